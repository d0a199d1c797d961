package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"tutoring-service/internal/lock"
	"tutoring-service/internal/metrics"
	"tutoring-service/internal/models"
	"tutoring-service/internal/settlement"
	"tutoring-service/pkg/response"
	"tutoring-service/pkg/sl"
)

const defaultLockTTL = 10 * time.Second

type Service struct {
	store      Store
	attendance AttendanceLink
	courses    CourseExtender
	invoices   InvoiceFinder
	students   StudentStore
	locker     lock.Locker

	log     *slog.Logger
	metrics *metrics.Metrics
	lockTTL time.Duration
	price   decimal.Decimal
	now     func() time.Time
}

// Store persists tutoring records.
type Store interface {
	CreateTutoring(ctx context.Context, rec *models.TutoringRecord) (string, error)
	GetTutoring(ctx context.Context, id string) (*models.TutoringRecord, error)
	// ListTutoring returns matching records ordered newest-created first.
	ListTutoring(ctx context.Context, filter models.TutoringFilter) ([]*models.TutoringRecord, error)
	// UpdateTutoring loads the record, applies mutate and persists the result
	// atomically for that record. Nothing is written when mutate fails.
	UpdateTutoring(ctx context.Context, id string, mutate func(rec *models.TutoringRecord) error) (*models.TutoringRecord, error)
}

// AttendanceLink locates and updates the attendance entry of a missed session.
// FindAttendance returns response.ErrNotFound when there is none.
type AttendanceLink interface {
	FindAttendance(ctx context.Context, studentID, classID, date string) (string, error)
	SetAttendanceStatus(ctx context.Context, id string, status models.AttendanceStatus) error
}

// CourseExtender pushes a student's expected end date out by one session.
type CourseExtender interface {
	ExtendCourse(ctx context.Context, studentID, classID string) error
}

// InvoiceFinder returns response.ErrNotFound when the student has no invoice in status.
type InvoiceFinder interface {
	FindInvoiceByStudentAndStatus(ctx context.Context, studentID string, status models.InvoiceStatus) (*models.Invoice, error)
}

type StudentStore interface {
	GetStudentSessions(ctx context.Context, studentID string) (*models.StudentSessions, error)
	ApplyStudentPatch(ctx context.Context, studentID string, patch settlement.StudentPatch) error
}

// Backend is implemented by every storage driver.
type Backend interface {
	Store
	AttendanceLink
	CourseExtender
	InvoiceFinder
	StudentStore
}

type Option func(*Service)

func WithAttendanceLink(a AttendanceLink) Option { return func(s *Service) { s.attendance = a } }

func WithCourseExtender(c CourseExtender) Option { return func(s *Service) { s.courses = c } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithLockTTL(ttl time.Duration) Option { return func(s *Service) { s.lockTTL = ttl } }

func WithPricePerSession(p decimal.Decimal) Option { return func(s *Service) { s.price = p } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(backend Backend, locker lock.Locker, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:      backend,
		attendance: backend,
		courses:    backend,
		invoices:   backend,
		students:   backend,
		locker:     locker,
		log:        log,
		lockTTL:    defaultLockTTL,
		price:      settlement.DefaultPricePerSession,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lockRecord serializes writers of one record across service instances.
func (s *Service) lockRecord(ctx context.Context, id string) (func(), error) {
	const op = "service.lockRecord"

	key := fmt.Sprintf("tutoring:%s", id)

	token, locked, err := s.locker.Lock(ctx, key, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: lock error: %w", op, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", op, response.ErrLocked)
	}

	return func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			s.log.Warn("Failed to release record lock", slog.String("key", key), sl.Err(err))
		}
	}, nil
}
