package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TutoringType string

const (
	TutoringAbsenceMakeup   TutoringType = "absence_makeup"
	TutoringWeakPerformance TutoringType = "weak_performance"
)

type TutoringStatus string

const (
	TutoringNotScheduled    TutoringStatus = "not_scheduled"
	TutoringScheduled       TutoringStatus = "scheduled"
	TutoringCompleted       TutoringStatus = "completed"
	TutoringChargedAbsence  TutoringStatus = "charged_absence"
	TutoringReservedAbsence TutoringStatus = "reserved_absence"
	TutoringCancelled       TutoringStatus = "cancelled"
)

// IsTerminal reports whether Undo may be applied from s.
func (s TutoringStatus) IsTerminal() bool {
	switch s {
	case TutoringCompleted, TutoringChargedAbsence, TutoringReservedAbsence:
		return true
	}
	return false
}

func (s TutoringStatus) Valid() bool {
	switch s {
	case TutoringNotScheduled, TutoringScheduled, TutoringCompleted,
		TutoringChargedAbsence, TutoringReservedAbsence, TutoringCancelled:
		return true
	}
	return false
}

func (t TutoringType) Valid() bool {
	return t == TutoringAbsenceMakeup || t == TutoringWeakPerformance
}

type StatusChange struct {
	Status    TutoringStatus `json:"status" bson:"status"`
	ChangedAt time.Time      `json:"changed_at" bson:"changed_at"`
	ChangedBy string         `json:"changed_by" bson:"changed_by"`
	Reason    string         `json:"reason,omitempty" bson:"reason,omitempty"`
}

// TutoringRecord is one make-up obligation tied to a single missed session.
type TutoringRecord struct {
	ID          string       `json:"id" bson:"_id"`
	StudentID   string       `json:"student_id" bson:"student_id"`
	StudentName string       `json:"student_name" bson:"student_name"`
	ClassID     string       `json:"class_id" bson:"class_id"`
	ClassName   string       `json:"class_name" bson:"class_name"`
	Type        TutoringType `json:"type" bson:"type"`

	Status           TutoringStatus `json:"status" bson:"status"`
	AbsentDate       string         `json:"absent_date,omitempty" bson:"absent_date,omitempty"`
	AttendanceLinkID string         `json:"attendance_link_id,omitempty" bson:"attendance_link_id,omitempty"`

	ScheduledDate string `json:"scheduled_date,omitempty" bson:"scheduled_date,omitempty"`
	ScheduledTime string `json:"scheduled_time,omitempty" bson:"scheduled_time,omitempty"`
	TutorID       string `json:"tutor_id,omitempty" bson:"tutor_id,omitempty"`
	TutorName     string `json:"tutor_name,omitempty" bson:"tutor_name,omitempty"`

	CompletedAt   *time.Time `json:"completed_at" bson:"completed_at"`
	CompletedBy   string     `json:"completed_by,omitempty" bson:"completed_by,omitempty"`
	ChargedReason string     `json:"charged_reason,omitempty" bson:"charged_reason,omitempty"`

	DeletedAt *time.Time `json:"deleted_at" bson:"deleted_at"`
	DeletedBy string     `json:"deleted_by,omitempty" bson:"deleted_by,omitempty"`

	StatusHistory []StatusChange `json:"status_history" bson:"status_history"`
	Note          string         `json:"note,omitempty" bson:"note,omitempty"`
	LastSyncError string         `json:"last_sync_error,omitempty" bson:"last_sync_error,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func (r *TutoringRecord) IsDeleted() bool { return r.DeletedAt != nil }

// Clone returns a deep copy; history is never shared between copies.
func (r *TutoringRecord) Clone() *TutoringRecord {
	c := *r
	c.StatusHistory = append([]StatusChange(nil), r.StatusHistory...)
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	if r.DeletedAt != nil {
		t := *r.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

type TutoringFilter struct {
	Type           *TutoringType
	Status         *TutoringStatus
	StudentID      *string
	ClassID        *string
	IncludeDeleted bool
	OnlyDeleted    bool
}

// Match applies the list contract to a single record.
func (f TutoringFilter) Match(r *TutoringRecord) bool {
	switch {
	case f.OnlyDeleted:
		if !r.IsDeleted() {
			return false
		}
	case !f.IncludeDeleted:
		if r.IsDeleted() {
			return false
		}
	}
	if f.Type != nil && r.Type != *f.Type {
		return false
	}
	if f.Status != nil && r.Status != *f.Status {
		return false
	}
	if f.StudentID != nil && r.StudentID != *f.StudentID {
		return false
	}
	if f.ClassID != nil && r.ClassID != *f.ClassID {
		return false
	}
	return true
}

type AttendanceStatus string

const (
	AttendancePresent  AttendanceStatus = "present"
	AttendanceAbsent   AttendanceStatus = "absent"
	AttendanceTutored  AttendanceStatus = "tutored"
	AttendanceReserved AttendanceStatus = "reserved"
)

type Attendance struct {
	ID        string           `json:"id" bson:"_id"`
	StudentID string           `json:"student_id" bson:"student_id"`
	ClassID   string           `json:"class_id" bson:"class_id"`
	Date      string           `json:"date" bson:"date"`
	Status    AttendanceStatus `json:"status" bson:"status"`
}

type Enrollment struct {
	StudentID           string    `json:"student_id" bson:"student_id"`
	ClassID             string    `json:"class_id" bson:"class_id"`
	ExpectedEndDate     time.Time `json:"expected_end_date" bson:"expected_end_date"`
	SessionIntervalDays int       `json:"session_interval_days" bson:"session_interval_days"`
	ExtendedSessions    int       `json:"extended_sessions" bson:"extended_sessions"`
}

const DefaultSessionIntervalDays = 7

type InvoiceStatus string

const (
	InvoiceUnpaid  InvoiceStatus = "unpaid"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceBadDebt InvoiceStatus = "bad_debt"
)

// Invoice is a settlement invoice; only the fields the policy reads are modelled.
type Invoice struct {
	ID        string          `json:"id" bson:"_id"`
	Code      string          `json:"code" bson:"code"`
	StudentID string          `json:"student_id" bson:"student_id"`
	Status    InvoiceStatus   `json:"status" bson:"status"`
	Amount    decimal.Decimal `json:"amount" bson:"-"`
	CreatedAt time.Time       `json:"created_at" bson:"created_at"`
}

// StudentSessions holds the counters bad-debt reconciliation compares.
type StudentSessions struct {
	StudentID          string `json:"student_id"`
	AttendedSessions   int    `json:"attended_sessions"`
	RegisteredSessions int    `json:"registered_sessions"`
}
