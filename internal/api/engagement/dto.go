package engagement

import (
	"time"

	"classlens/pkg/scoring"
)

type AnalyzeRequest struct {
	ImageBase64 string `json:"image_base64" validate:"required"`
	SessionID   string `json:"session_id" validate:"omitempty,max=128"`
}

type AnalyzeResponse struct {
	Score   int             `json:"score"`
	Level   scoring.Level   `json:"level"`
	Details scoring.Details `json:"details"`
}

type RecordRequest struct {
	SessionID string           `json:"session_id" validate:"required,max=128"`
	Score     *int             `json:"score" validate:"required,min=0,max=100"`
	AgoraUID  string           `json:"agora_uid" validate:"omitempty,max=64"`
	Details   *scoring.Details `json:"details"`
}

type RecordResponse struct {
	ID          string           `json:"id"`
	SessionID   string           `json:"session_id"`
	StudentID   string           `json:"student_id"`
	StudentName string           `json:"student_name"`
	AgoraUID    string           `json:"agora_uid,omitempty"`
	Score       int              `json:"score"`
	Level       scoring.Level    `json:"level"`
	Details     *scoring.Details `json:"details,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

type RecordsResponse struct {
	Data []RecordResponse `json:"data"`
}

type StudentReport struct {
	StudentID    string `json:"student_id"`
	StudentName  string `json:"student_name"`
	AverageScore int    `json:"avg_score"`
	PeakScore    int    `json:"peak_score"`
	Records      int    `json:"records"`
}

type ReportResponse struct {
	SessionID       string          `json:"session_id"`
	AverageScore    int             `json:"avg_score"`
	PeakScore       int             `json:"peak_score"`
	TotalRecords    int             `json:"total_records"`
	FocusedCount    int             `json:"focused"`
	NeutralCount    int             `json:"neutral"`
	DistractedCount int             `json:"distracted"`
	StartedAt       time.Time       `json:"started_at"`
	EndedAt         time.Time       `json:"ended_at"`
	Students        []StudentReport `json:"students"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Landmark string `json:"landmark"`
	Error    string `json:"error,omitempty"`
}
