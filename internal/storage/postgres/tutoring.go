package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tutoring-service/internal/models"
	"tutoring-service/pkg/response"
)

const tutoringColumns = `id, student_id, student_name, class_id, class_name, type, status,
	absent_date, attendance_link_id, scheduled_date, scheduled_time, tutor_id, tutor_name,
	completed_at, completed_by, charged_reason, deleted_at, deleted_by,
	status_history, note, last_sync_error, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTutoring(row rowScanner) (*models.TutoringRecord, error) {
	var rec models.TutoringRecord
	var completedAt, deletedAt sql.NullTime
	var history []byte

	err := row.Scan(
		&rec.ID, &rec.StudentID, &rec.StudentName, &rec.ClassID, &rec.ClassName, &rec.Type, &rec.Status,
		&rec.AbsentDate, &rec.AttendanceLinkID, &rec.ScheduledDate, &rec.ScheduledTime, &rec.TutorID, &rec.TutorName,
		&completedAt, &rec.CompletedBy, &rec.ChargedReason, &deletedAt, &rec.DeletedBy,
		&history, &rec.Note, &rec.LastSyncError, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		t := completedAt.Time.UTC()
		rec.CompletedAt = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time.UTC()
		rec.DeletedAt = &t
	}
	if err := json.Unmarshal(history, &rec.StatusHistory); err != nil {
		return nil, fmt.Errorf("decode status history: %w", err)
	}

	return &rec, nil
}

func (s *Storage) CreateTutoring(ctx context.Context, rec *models.TutoringRecord) (string, error) {
	const op = "storage.postgres.CreateTutoring"

	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}

	history, err := json.Marshal(rec.StatusHistory)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO tutoring_records (`+tutoringColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`,
		id, rec.StudentID, rec.StudentName, rec.ClassID, rec.ClassName, rec.Type, rec.Status,
		rec.AbsentDate, rec.AttendanceLinkID, rec.ScheduledDate, rec.ScheduledTime, rec.TutorID, rec.TutorName,
		rec.CompletedAt, rec.CompletedBy, rec.ChargedReason, rec.DeletedAt, rec.DeletedBy,
		history, rec.Note, rec.LastSyncError, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) GetTutoring(ctx context.Context, id string) (*models.TutoringRecord, error) {
	const op = "storage.postgres.GetTutoring"

	rec, err := scanTutoring(s.db.QueryRowContext(ctx,
		`SELECT `+tutoringColumns+` FROM tutoring_records WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rec, nil
}

func (s *Storage) ListTutoring(ctx context.Context, filter models.TutoringFilter) ([]*models.TutoringRecord, error) {
	const op = "storage.postgres.ListTutoring"

	where, args := tutoringWhere(filter)
	query := `SELECT ` + tutoringColumns + ` FROM tutoring_records`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []*models.TutoringRecord
	for rows.Next() {
		rec, err := scanTutoring(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func tutoringWhere(filter models.TutoringFilter) ([]string, []any) {
	var where []string
	var args []any

	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	switch {
	case filter.OnlyDeleted:
		where = append(where, "deleted_at IS NOT NULL")
	case !filter.IncludeDeleted:
		where = append(where, "deleted_at IS NULL")
	}
	if filter.Type != nil {
		add("type=$%d", string(*filter.Type))
	}
	if filter.Status != nil {
		add("status=$%d", string(*filter.Status))
	}
	if filter.StudentID != nil {
		add("student_id=$%d", *filter.StudentID)
	}
	if filter.ClassID != nil {
		add("class_id=$%d", *filter.ClassID)
	}

	return where, args
}

// UpdateTutoring locks the row for the length of the transaction, so
// concurrent writers of one record apply their mutations in turn.
func (s *Storage) UpdateTutoring(ctx context.Context, id string, mutate func(rec *models.TutoringRecord) error) (*models.TutoringRecord, error) {
	const op = "storage.postgres.UpdateTutoring"

	tx, err := s.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := scanTutoring(tx.QueryRowContext(ctx,
		`SELECT `+tutoringColumns+` FROM tutoring_records WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := mutate(rec); err != nil {
		return nil, err
	}

	history, err := json.Marshal(rec.StatusHistory)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE tutoring_records SET
		student_name=$2, class_name=$3, type=$4, status=$5, absent_date=$6, attendance_link_id=$7,
		scheduled_date=$8, scheduled_time=$9, tutor_id=$10, tutor_name=$11,
		completed_at=$12, completed_by=$13, charged_reason=$14, deleted_at=$15, deleted_by=$16,
		status_history=$17, note=$18, last_sync_error=$19, updated_at=$20
		WHERE id=$1`,
		id, rec.StudentName, rec.ClassName, rec.Type, rec.Status, rec.AbsentDate, rec.AttendanceLinkID,
		rec.ScheduledDate, rec.ScheduledTime, rec.TutorID, rec.TutorName,
		rec.CompletedAt, rec.CompletedBy, rec.ChargedReason, rec.DeletedAt, rec.DeletedBy,
		history, rec.Note, rec.LastSyncError, rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: update: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}

	rec.ID = id
	return rec, nil
}
