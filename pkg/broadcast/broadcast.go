package broadcast

import (
	"context"
	"time"
)

// Update is one live engagement sample for the dashboard of a class session.
type Update struct {
	SessionID   string    `json:"session_id"`
	StudentID   string    `json:"student_id,omitempty"`
	StudentName string    `json:"student_name,omitempty"`
	AgoraUID    string    `json:"agora_uid,omitempty"`
	Score       int       `json:"score"`
	Level       string    `json:"level"`
	Timestamp   time.Time `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, u Update) error
	Close()
}

type Noop struct{}

func (Noop) Publish(context.Context, Update) error { return nil }

func (Noop) Close() {}
