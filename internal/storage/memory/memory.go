// Package memory is a process-local storage backend for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"tutoring-service/internal/models"
	"tutoring-service/internal/settlement"
	"tutoring-service/pkg/response"
)

// Student is the slice of a student document the settlement flow touches.
type Student struct {
	ID                 string
	Status             string
	ClassID            *string
	ClassIDs           []string
	AttendedSessions   int
	RegisteredSessions int
	BadDebt            settlement.BadDebtFields
}

type Storage struct {
	mu sync.RWMutex

	tutoring    map[string]*models.TutoringRecord
	attendance  map[string]*models.Attendance
	enrollments map[string]*models.Enrollment
	invoices    []*models.Invoice
	students    map[string]*Student
}

func New() *Storage {
	return &Storage{
		tutoring:    make(map[string]*models.TutoringRecord),
		attendance:  make(map[string]*models.Attendance),
		enrollments: make(map[string]*models.Enrollment),
		students:    make(map[string]*Student),
	}
}

func (s *Storage) Close() error { return nil }

// Tutoring records

func (s *Storage) CreateTutoring(_ context.Context, rec *models.TutoringRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := rec.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, ok := s.tutoring[c.ID]; ok {
		return "", fmt.Errorf("storage.memory.CreateTutoring: id %s exists: %w", c.ID, response.ErrConflict)
	}
	s.tutoring[c.ID] = c
	return c.ID, nil
}

func (s *Storage) GetTutoring(_ context.Context, id string) (*models.TutoringRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.tutoring[id]
	if !ok {
		return nil, fmt.Errorf("storage.memory.GetTutoring: %w", response.ErrNotFound)
	}
	return rec.Clone(), nil
}

func (s *Storage) ListTutoring(_ context.Context, filter models.TutoringFilter) ([]*models.TutoringRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := lo.FilterMap(lo.Values(s.tutoring), func(r *models.TutoringRecord, _ int) (*models.TutoringRecord, bool) {
		if !filter.Match(r) {
			return nil, false
		}
		return r.Clone(), true
	})

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Storage) UpdateTutoring(_ context.Context, id string, mutate func(rec *models.TutoringRecord) error) (*models.TutoringRecord, error) {
	const op = "storage.memory.UpdateTutoring"

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.tutoring[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	next := cur.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.ID = id
	s.tutoring[id] = next
	return next.Clone(), nil
}

// Attendance

func (s *Storage) AddAttendance(a models.Attendance) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.attendance[a.ID] = &a
	return a.ID
}

func (s *Storage) Attendance(id string) (models.Attendance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.attendance[id]
	if !ok {
		return models.Attendance{}, false
	}
	return *a, true
}

func (s *Storage) FindAttendance(_ context.Context, studentID, classID, date string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := lo.Find(lo.Values(s.attendance), func(a *models.Attendance) bool {
		return a.StudentID == studentID && a.ClassID == classID && a.Date == date
	})
	if !ok {
		return "", fmt.Errorf("storage.memory.FindAttendance: %w", response.ErrNotFound)
	}
	return a.ID, nil
}

func (s *Storage) SetAttendanceStatus(_ context.Context, id string, status models.AttendanceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attendance[id]
	if !ok {
		return fmt.Errorf("storage.memory.SetAttendanceStatus: %w", response.ErrNotFound)
	}
	a.Status = status
	return nil
}

// Enrollments

func enrollmentKey(studentID, classID string) string { return studentID + "/" + classID }

func (s *Storage) AddEnrollment(e models.Enrollment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enrollments[enrollmentKey(e.StudentID, e.ClassID)] = &e
}

func (s *Storage) Enrollment(studentID, classID string) (models.Enrollment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.enrollments[enrollmentKey(studentID, classID)]
	if !ok {
		return models.Enrollment{}, false
	}
	return *e, true
}

func (s *Storage) ExtendCourse(_ context.Context, studentID, classID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.enrollments[enrollmentKey(studentID, classID)]
	if !ok {
		return fmt.Errorf("storage.memory.ExtendCourse: %w", response.ErrNotFound)
	}

	days := e.SessionIntervalDays
	if days <= 0 {
		days = models.DefaultSessionIntervalDays
	}
	e.ExpectedEndDate = e.ExpectedEndDate.AddDate(0, 0, days)
	e.ExtendedSessions++
	return nil
}

// Invoices

func (s *Storage) AddInvoice(inv models.Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	s.invoices = append(s.invoices, &inv)
}

// FindInvoiceByStudentAndStatus returns the most recent matching invoice.
func (s *Storage) FindInvoiceByStudentAndStatus(_ context.Context, studentID string, status models.InvoiceStatus) (*models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := lo.Filter(s.invoices, func(inv *models.Invoice, _ int) bool {
		return inv.StudentID == studentID && inv.Status == status
	})
	if len(matches) == 0 {
		return nil, fmt.Errorf("storage.memory.FindInvoiceByStudentAndStatus: %w", response.ErrNotFound)
	}

	latest := lo.MaxBy(matches, func(a, b *models.Invoice) bool { return a.CreatedAt.After(b.CreatedAt) })
	c := *latest
	return &c, nil
}

// Students

func (s *Storage) AddStudent(st Student) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st.ClassIDs = append([]string(nil), st.ClassIDs...)
	s.students[st.ID] = &st
}

func (s *Storage) Student(id string) (Student, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.students[id]
	if !ok {
		return Student{}, false
	}
	c := *st
	c.ClassIDs = append([]string(nil), st.ClassIDs...)
	return c, true
}

func (s *Storage) GetStudentSessions(_ context.Context, studentID string) (*models.StudentSessions, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.students[studentID]
	if !ok {
		return nil, fmt.Errorf("storage.memory.GetStudentSessions: %w", response.ErrNotFound)
	}
	return &models.StudentSessions{
		StudentID:          st.ID,
		AttendedSessions:   st.AttendedSessions,
		RegisteredSessions: st.RegisteredSessions,
	}, nil
}

// ApplyStudentPatch writes the patch; registered sessions are never touched.
func (s *Storage) ApplyStudentPatch(_ context.Context, studentID string, patch settlement.StudentPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.students[studentID]
	if !ok {
		return fmt.Errorf("storage.memory.ApplyStudentPatch: %w", response.ErrNotFound)
	}

	st.BadDebt = patch.BadDebt
	if patch.Status != nil {
		st.Status = *patch.Status
	}
	if patch.ClearClass {
		st.ClassID = nil
		st.ClassIDs = []string{}
	}
	return nil
}
