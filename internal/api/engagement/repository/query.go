package engagementRepository

const (
	queryCreateRecord = `
		INSERT INTO engagement_records (
			id,
			session_id,
			student_id,
			student_name,
			agora_uid,
			score,
			level,
			details,
			created_at
		) VALUES (
			:id,
			:session_id,
			:student_id,
			:student_name,
			:agora_uid,
			:score,
			:level,
			:details,
			:created_at
		)
	`

	queryGetRecordsBySession = `
		SELECT
			id,
			session_id,
			student_id,
			student_name,
			agora_uid,
			score,
			level,
			details,
			created_at
		FROM engagement_records
		WHERE session_id = :session_id
		ORDER BY created_at ASC, id ASC
	`
)
