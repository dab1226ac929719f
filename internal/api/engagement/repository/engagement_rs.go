package engagementRepository

import (
	"context"
	"database/sql"
	"time"

	"classlens/internal/entity"
	contextPkg "classlens/pkg/context"
	"classlens/pkg/scoring"

	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

type EngagementRecordDB struct {
	ID          sql.NullString `db:"id"`
	SessionID   sql.NullString `db:"session_id"`
	StudentID   sql.NullString `db:"student_id"`
	StudentName sql.NullString `db:"student_name"`
	AgoraUID    sql.NullString `db:"agora_uid"`
	Score       sql.NullInt64  `db:"score"`
	Level       sql.NullString `db:"level"`
	Details     sql.NullString `db:"details"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r *engagementRepository) CreateRecord(c context.Context, record entity.EngagementRecord) error {
	requestID := contextPkg.GetRequestID(c)

	var details sql.NullString
	if record.Details != nil {
		raw, err := jsoniter.Marshal(record.Details)
		if err != nil {
			return err
		}
		details = sql.NullString{String: string(raw), Valid: true}
	}

	argsKV := map[string]interface{}{
		"id":           record.ID,
		"session_id":   record.SessionID,
		"student_id":   record.StudentID,
		"student_name": record.StudentName,
		"agora_uid":    sql.NullString{String: record.AgoraUID, Valid: record.AgoraUID != ""},
		"score":        record.Score,
		"level":        string(record.Level),
		"details":      details,
		"created_at":   record.CreatedAt,
	}

	query, args, err := sqlx.Named(queryCreateRecord, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateRecord")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": record.SessionID,
			"error":      err.Error(),
		}).Error("Database error when creating engagement record")
		return err
	}

	return nil
}

func (r *engagementRepository) GetRecordsBySession(c context.Context, sessionID string) ([]entity.EngagementRecord, error) {
	requestID := contextPkg.GetRequestID(c)
	var rows []EngagementRecordDB

	query, args, err := sqlx.Named(queryGetRecordsBySession, map[string]interface{}{
		"session_id": sessionID,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetRecordsBySession named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	if err := r.q.SelectContext(c, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetRecordsBySession execution err")
		return nil, err
	}

	result := make([]entity.EngagementRecord, 0, len(rows))
	for _, row := range rows {
		result = append(result, r.makeEngagementRecord(row))
	}

	return result, nil
}

func (r *engagementRepository) makeEngagementRecord(row EngagementRecordDB) entity.EngagementRecord {
	record := entity.EngagementRecord{
		ID:          row.ID.String,
		SessionID:   row.SessionID.String,
		StudentID:   row.StudentID.String,
		StudentName: row.StudentName.String,
		AgoraUID:    row.AgoraUID.String,
		Score:       int(row.Score.Int64),
		Level:       scoring.Level(row.Level.String),
		CreatedAt:   row.CreatedAt,
	}

	if row.Details.Valid {
		var details scoring.Details
		if err := jsoniter.UnmarshalFromString(row.Details.String, &details); err != nil {
			r.log.WithFields(logrus.Fields{
				"id":    record.ID,
				"error": err.Error(),
			}).Warn("Skipping malformed engagement details")
		} else {
			record.Details = &details
		}
	}

	return record
}
