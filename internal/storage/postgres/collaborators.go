package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"tutoring-service/internal/models"
	"tutoring-service/internal/settlement"
	"tutoring-service/pkg/response"
)

// #### attendance ####

func (s *Storage) FindAttendance(ctx context.Context, studentID, classID, date string) (string, error) {
	const op = "storage.postgres.FindAttendance"

	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM student_attendance
		WHERE student_id=$1 AND class_id=$2 AND date=$3
		ORDER BY id LIMIT 1`, studentID, classID, date).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) SetAttendanceStatus(ctx context.Context, id string, status models.AttendanceStatus) error {
	const op = "storage.postgres.SetAttendanceStatus"

	res, err := s.db.ExecContext(ctx, `UPDATE student_attendance SET status=$1 WHERE id=$2`, string(status), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return requireAffected(op, res)
}

// #### enrollments ####

func (s *Storage) ExtendCourse(ctx context.Context, studentID, classID string) error {
	const op = "storage.postgres.ExtendCourse"

	res, err := s.db.ExecContext(ctx, `UPDATE enrollments SET
		expected_end_date = expected_end_date + make_interval(days => CASE WHEN session_interval_days > 0 THEN session_interval_days ELSE $3 END),
		extended_sessions = extended_sessions + 1
		WHERE student_id=$1 AND class_id=$2`, studentID, classID, models.DefaultSessionIntervalDays)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return requireAffected(op, res)
}

// #### invoices ####

func (s *Storage) FindInvoiceByStudentAndStatus(ctx context.Context, studentID string, status models.InvoiceStatus) (*models.Invoice, error) {
	const op = "storage.postgres.FindInvoiceByStudentAndStatus"

	var inv models.Invoice
	err := s.db.QueryRowContext(ctx, `SELECT id, code, student_id, status, amount, created_at
		FROM settlement_invoices
		WHERE student_id=$1 AND status=$2
		ORDER BY created_at DESC LIMIT 1`, studentID, string(status)).
		Scan(&inv.ID, &inv.Code, &inv.StudentID, &inv.Status, &inv.Amount, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &inv, nil
}

// #### students ####

func (s *Storage) GetStudentSessions(ctx context.Context, studentID string) (*models.StudentSessions, error) {
	const op = "storage.postgres.GetStudentSessions"

	out := models.StudentSessions{StudentID: studentID}
	err := s.db.QueryRowContext(ctx, `SELECT attended_sessions, registered_sessions FROM students WHERE id=$1`, studentID).
		Scan(&out.AttendedSessions, &out.RegisteredSessions)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// ApplyStudentPatch writes the bad-debt fields and, for settlements, the
// withdrawal. registered_sessions is never part of the statement.
func (s *Storage) ApplyStudentPatch(ctx context.Context, studentID string, patch settlement.StudentPatch) error {
	const op = "storage.postgres.ApplyStudentPatch"

	bd := patch.BadDebt
	res, err := s.db.ExecContext(ctx, `UPDATE students SET
		bad_debt=$2, bad_debt_sessions=$3, bad_debt_amount=$4, bad_debt_date=$5, bad_debt_note=$6,
		status = COALESCE($7, status),
		class_id = CASE WHEN $8 THEN NULL ELSE class_id END,
		class_ids = CASE WHEN $8 THEN $9::text[] ELSE class_ids END
		WHERE id=$1`,
		studentID, bd.BadDebt, bd.Sessions, bd.Amount, bd.Date, bd.Note,
		patch.Status, patch.ClearClass, pq.Array([]string{}),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return requireAffected(op, res)
}

func requireAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}
	return nil
}
