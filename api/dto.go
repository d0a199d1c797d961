package api

import (
	"time"

	"github.com/shopspring/decimal"
)

type TutoringCreateRequest struct {
	StudentID        string `json:"student_id" validate:"required"`
	StudentName      string `json:"student_name"`
	ClassID          string `json:"class_id" validate:"required"`
	ClassName        string `json:"class_name"`
	Type             string `json:"type" validate:"required,oneof=absence_makeup weak_performance"`
	Status           string `json:"status" validate:"omitempty,oneof=not_scheduled scheduled"`
	AbsentDate       string `json:"absent_date" validate:"omitempty,isodate"`
	AttendanceLinkID string `json:"attendance_link_id"`
	Note             string `json:"note"`
	ActorID          string `json:"actor_id"`
}

// TutoringUpdateRequest is a partial update; nil fields are left untouched.
type TutoringUpdateRequest struct {
	StudentName      *string `json:"student_name"`
	ClassName        *string `json:"class_name"`
	Type             *string `json:"type" validate:"omitempty,oneof=absence_makeup weak_performance"`
	AbsentDate       *string `json:"absent_date" validate:"omitempty,isodate"`
	AttendanceLinkID *string `json:"attendance_link_id"`
	ScheduledDate    *string `json:"scheduled_date" validate:"omitempty,isodate"`
	ScheduledTime    *string `json:"scheduled_time"`
	TutorID          *string `json:"tutor_id"`
	TutorName        *string `json:"tutor_name"`
	Note             *string `json:"note"`
}

type TutoringScheduleRequest struct {
	Date      string `json:"date" validate:"required,isodate"`
	Time      string `json:"time" validate:"required"`
	TutorID   string `json:"tutor_id" validate:"required"`
	TutorName string `json:"tutor_name"`
	ActorID   string `json:"actor_id" validate:"required"`
}

// TutoringActionRequest carries the body of complete, charge, reserve,
// undo, cancel, delete and sync-attendance.
type TutoringActionRequest struct {
	ActorID string `json:"actor_id"`
	Note    string `json:"note,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type TutoringListFilters struct {
	Type           *string
	Status         *string
	StudentID      *string
	ClassID        *string
	IncludeDeleted bool
	OnlyDeleted    bool
}

type StatusChange struct {
	Status    string    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
	ChangedBy string    `json:"changed_by"`
	Reason    string    `json:"reason,omitempty"`
}

type TutoringResponse struct {
	ID               string         `json:"id"`
	StudentID        string         `json:"student_id"`
	StudentName      string         `json:"student_name"`
	ClassID          string         `json:"class_id"`
	ClassName        string         `json:"class_name"`
	Type             string         `json:"type"`
	Status           string         `json:"status"`
	AbsentDate       string         `json:"absent_date,omitempty"`
	AttendanceLinkID string         `json:"attendance_link_id,omitempty"`
	ScheduledDate    string         `json:"scheduled_date,omitempty"`
	ScheduledTime    string         `json:"scheduled_time,omitempty"`
	TutorID          string         `json:"tutor_id,omitempty"`
	TutorName        string         `json:"tutor_name,omitempty"`
	CompletedAt      *time.Time     `json:"completed_at"`
	CompletedBy      string         `json:"completed_by,omitempty"`
	ChargedReason    string         `json:"charged_reason,omitempty"`
	DeletedAt        *time.Time     `json:"deleted_at"`
	DeletedBy        string         `json:"deleted_by,omitempty"`
	StatusHistory    []StatusChange `json:"status_history"`
	Note             string         `json:"note,omitempty"`
	LastSyncError    string         `json:"last_sync_error,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Warning reports a side effect that did not complete after the record
// itself was committed.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	WarnAttendanceNotFound         = "ATTENDANCE_NOT_FOUND"
	WarnAttendanceSyncFailed       = "ATTENDANCE_SYNC_FAILED"
	WarnCourseExtensionFailed      = "COURSE_EXTENSION_FAILED"
	WarnCourseExtensionNotReverted = "COURSE_EXTENSION_NOT_REVERTED"
)

type TutoringResult struct {
	Tutoring TutoringResponse `json:"tutoring"`
	Warnings []Warning        `json:"warnings,omitempty"`
}

type SettlementStatusResponse struct {
	StudentID         string `json:"student_id"`
	HasBadDebtInvoice bool   `json:"has_bad_debt_invoice"`
	HasPaidInvoice    bool   `json:"has_paid_invoice"`
	PaidInvoiceCode   string `json:"paid_invoice_code,omitempty"`
}

type SettleRequest struct {
	Type string `json:"type" validate:"required,oneof=paid bad_debt"`
	Note string `json:"note"`
}

type SettleResponse struct {
	StudentID    string          `json:"student_id"`
	Type         string          `json:"type"`
	DebtSessions int             `json:"debt_sessions"`
	DebtAmount   decimal.Decimal `json:"debt_amount"`
	Patch        any             `json:"patch"`
}

type ReconcileResponse struct {
	StudentID          string `json:"student_id"`
	AttendedSessions   int    `json:"attended_sessions"`
	RegisteredSessions int    `json:"registered_sessions"`
	Action             string `json:"action"`
	Patch              any    `json:"patch,omitempty"`
}
