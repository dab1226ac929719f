package entity

import (
	"time"

	"classlens/pkg/scoring"
)

type EngagementRecord struct {
	ID          string
	SessionID   string
	StudentID   string
	StudentName string
	AgoraUID    string
	Score       int
	Level       scoring.Level
	Details     *scoring.Details
	CreatedAt   time.Time
}

type StudentSummary struct {
	StudentID    string
	StudentName  string
	AverageScore int
	PeakScore    int
	Records      int
}

type SessionReport struct {
	SessionID       string
	AverageScore    int
	PeakScore       int
	TotalRecords    int
	FocusedCount    int
	NeutralCount    int
	DistractedCount int
	FirstRecordAt   time.Time
	LastRecordAt    time.Time
	Students        []StudentSummary
}
