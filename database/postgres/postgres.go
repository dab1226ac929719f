package postgres

import (
	"context"
	"fmt"
	"time"

	"classlens/pkg/env"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func New() (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		env.GetEnv("DB_HOST", "localhost"),
		env.GetEnv("DB_PORT", "5432"),
		env.GetEnv("DB_USER", "postgres"),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_NAME", "classlens"),
		env.GetEnv("DB_SSLMODE", "disable"),
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(env.GetEnvInt("DB_MAX_OPEN_CONNS", 25))
	db.SetMaxIdleConns(env.GetEnvInt("DB_MAX_IDLE_CONNS", 10))
	db.SetConnMaxLifetime(env.GetEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// Migrate creates the tables the service writes to. Statements are idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS engagement_records (
		id           VARCHAR(26)  PRIMARY KEY,
		session_id   VARCHAR(128) NOT NULL,
		student_id   VARCHAR(128) NOT NULL,
		student_name VARCHAR(255) NOT NULL DEFAULT '',
		agora_uid    VARCHAR(64),
		score        SMALLINT     NOT NULL CHECK (score BETWEEN 0 AND 100),
		level        VARCHAR(16)  NOT NULL,
		details      JSONB,
		created_at   TIMESTAMPTZ  NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_engagement_records_session
		ON engagement_records (session_id, created_at)`,
}
