package scoring

type Level string

const (
	LevelFocused    Level = "focused"
	LevelNeutral    Level = "neutral"
	LevelDistracted Level = "distracted"
)

// LevelOf buckets a score the way the classroom dashboard colours it.
func LevelOf(score int) Level {
	switch {
	case score >= 75:
		return LevelFocused
	case score >= 50:
		return LevelNeutral
	default:
		return LevelDistracted
	}
}
