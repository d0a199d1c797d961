package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"tutoring-service/api"
	"tutoring-service/internal/models"
	"tutoring-service/internal/validation"
	"tutoring-service/pkg/response"
	"tutoring-service/pkg/sl"
)

// SystemActor is recorded when a create or cancel has no explicit actor.
const SystemActor = "system"

const createdReason = "Created"

// courseExtensionFailed prefixes a failed extension in lastSyncError so a
// later sync knows to retry it.
const courseExtensionFailed = "course extension failed"

// Tutoring records

func (s *Service) CreateTutoring(ctx context.Context, req *api.TutoringCreateRequest) (*api.TutoringResponse, error) {
	const op = "service.CreateTutoring"

	req.StudentID = strings.TrimSpace(req.StudentID)
	req.ClassID = strings.TrimSpace(req.ClassID)
	req.ActorID = strings.TrimSpace(req.ActorID)
	if req.ActorID == "" {
		req.ActorID = SystemActor
	}

	if err := validation.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	status := models.TutoringNotScheduled
	if req.Status != "" {
		status = models.TutoringStatus(req.Status)
	}

	now := s.now().UTC()
	rec := &models.TutoringRecord{
		StudentID:        req.StudentID,
		StudentName:      req.StudentName,
		ClassID:          req.ClassID,
		ClassName:        req.ClassName,
		Type:             models.TutoringType(req.Type),
		Status:           status,
		AbsentDate:       req.AbsentDate,
		AttendanceLinkID: req.AttendanceLinkID,
		Note:             req.Note,
		StatusHistory: []models.StatusChange{
			{Status: status, ChangedAt: now, ChangedBy: req.ActorID, Reason: createdReason},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	id, err := s.store.CreateTutoring(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetTutoring(ctx, id)
}

func (s *Service) GetTutoring(ctx context.Context, id string) (*api.TutoringResponse, error) {
	const op = "service.GetTutoring"

	rec, err := s.store.GetTutoring(ctx, id)
	if err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp := toTutoringResponse(rec)
	return &resp, nil
}

func (s *Service) ListTutoring(ctx context.Context, filters *api.TutoringListFilters) ([]*api.TutoringResponse, error) {
	const op = "service.ListTutoring"

	filter := models.TutoringFilter{
		StudentID:      filters.StudentID,
		ClassID:        filters.ClassID,
		IncludeDeleted: filters.IncludeDeleted,
		OnlyDeleted:    filters.OnlyDeleted,
	}
	if filters.Type != nil {
		t := models.TutoringType(*filters.Type)
		if !t.Valid() {
			return nil, fmt.Errorf("%s: unknown type %q: %w", op, *filters.Type, response.ErrInvalidArgument)
		}
		filter.Type = &t
	}
	if filters.Status != nil {
		st := models.TutoringStatus(*filters.Status)
		if !st.Valid() {
			return nil, fmt.Errorf("%s: unknown status %q: %w", op, *filters.Status, response.ErrInvalidArgument)
		}
		filter.Status = &st
	}

	records, err := s.store.ListTutoring(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return lo.Map(records, func(rec *models.TutoringRecord, _ int) *api.TutoringResponse {
		resp := toTutoringResponse(rec)
		return &resp
	}), nil
}

// UpdateTutoring edits descriptive fields. Status only moves through transitions.
func (s *Service) UpdateTutoring(ctx context.Context, id string, req *api.TutoringUpdateRequest) (*api.TutoringResponse, error) {
	const op = "service.UpdateTutoring"

	if err := validation.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	unlock, err := s.lockRecord(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	rec, err := s.store.UpdateTutoring(ctx, id, func(rec *models.TutoringRecord) error {
		if rec.IsDeleted() {
			return fmt.Errorf("record is deleted: %w", response.ErrIllegalTransition)
		}
		setIfPresent(&rec.StudentName, req.StudentName)
		setIfPresent(&rec.ClassName, req.ClassName)
		if req.Type != nil {
			rec.Type = models.TutoringType(*req.Type)
		}
		setIfPresent(&rec.AbsentDate, req.AbsentDate)
		setIfPresent(&rec.AttendanceLinkID, req.AttendanceLinkID)
		setIfPresent(&rec.ScheduledDate, req.ScheduledDate)
		setIfPresent(&rec.ScheduledTime, req.ScheduledTime)
		setIfPresent(&rec.TutorID, req.TutorID)
		setIfPresent(&rec.TutorName, req.TutorName)
		setIfPresent(&rec.Note, req.Note)
		rec.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp := toTutoringResponse(rec)
	return &resp, nil
}

func setIfPresent(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Transitions

func (s *Service) Schedule(ctx context.Context, id string, req *api.TutoringScheduleRequest) (*api.TutoringResult, error) {
	const op = "service.Schedule"

	if err := validation.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rec, _, unlock, err := s.transition(ctx, id, ActionSchedule, req.ActorID, func(rec *models.TutoringRecord, _ time.Time) (string, error) {
		rec.ScheduledDate = req.Date
		rec.ScheduledTime = req.Time
		rec.TutorID = req.TutorID
		rec.TutorName = req.TutorName
		return "", nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	unlock()

	return &api.TutoringResult{Tutoring: toTutoringResponse(rec)}, nil
}

func (s *Service) Complete(ctx context.Context, id, actorID, note string) (*api.TutoringResult, error) {
	const op = "service.Complete"

	if err := requireActor(actorID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rec, _, unlock, err := s.transition(ctx, id, ActionComplete, actorID, func(rec *models.TutoringRecord, now time.Time) (string, error) {
		markFinished(rec, now, actorID)
		if note != "" {
			rec.Note = note
		}
		return note, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	sync := s.syncAttendance(ctx, rec, models.AttendanceTutored)
	return s.finishSync(ctx, rec, sync), nil
}

func (s *Service) MarkChargedAbsence(ctx context.Context, id, actorID, reason string) (*api.TutoringResult, error) {
	const op = "service.MarkChargedAbsence"

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%s: reason is required: %w", op, response.ErrInvalidArgument)
	}
	if err := requireActor(actorID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// the missed session stays absent: the student is charged for it
	rec, _, unlock, err := s.transition(ctx, id, ActionCharge, actorID, func(rec *models.TutoringRecord, now time.Time) (string, error) {
		markFinished(rec, now, actorID)
		rec.ChargedReason = reason
		return reason, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	unlock()

	return &api.TutoringResult{Tutoring: toTutoringResponse(rec)}, nil
}

func (s *Service) MarkReservedAbsence(ctx context.Context, id, actorID, note string) (*api.TutoringResult, error) {
	const op = "service.MarkReservedAbsence"

	if err := requireActor(actorID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rec, _, unlock, err := s.transition(ctx, id, ActionReserve, actorID, func(rec *models.TutoringRecord, now time.Time) (string, error) {
		markFinished(rec, now, actorID)
		if note != "" {
			rec.Note = note
		}
		return note, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	sync := s.syncAttendance(ctx, rec, models.AttendanceReserved)
	s.extendCourse(ctx, rec, sync)

	return s.finishSync(ctx, rec, sync), nil
}

func (s *Service) Undo(ctx context.Context, id, actorID string) (*api.TutoringResult, error) {
	const op = "service.Undo"

	if err := requireActor(actorID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rec, prev, unlock, err := s.transition(ctx, id, ActionUndo, actorID, func(rec *models.TutoringRecord, _ time.Time) (string, error) {
		undone := rec.Status
		rec.CompletedAt = nil
		rec.CompletedBy = ""
		rec.ChargedReason = ""
		return fmt.Sprintf("Undo %s", undone), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	sync := &syncOutcome{linkID: rec.AttendanceLinkID}
	if prev == models.TutoringCompleted || prev == models.TutoringReservedAbsence {
		sync = s.syncAttendance(ctx, rec, models.AttendanceAbsent)
	}
	if prev == models.TutoringReservedAbsence {
		// the extension granted on reserve is not stored, so it cannot be subtracted here
		sync.warn(api.WarnCourseExtensionNotReverted,
			"the course end date extended when this absence was reserved was not reverted; adjust it manually")
	}

	return s.finishSync(ctx, rec, sync), nil
}

// Cancel is an administrative override allowed from every status.
func (s *Service) Cancel(ctx context.Context, id, reason, actorID string) (*api.TutoringResult, error) {
	const op = "service.Cancel"

	if strings.TrimSpace(actorID) == "" {
		actorID = SystemActor
	}

	rec, _, unlock, err := s.transition(ctx, id, ActionCancel, actorID, func(rec *models.TutoringRecord, _ time.Time) (string, error) {
		rec.ChargedReason = ""
		if reason != "" {
			rec.Note = reason
		}
		return reason, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	unlock()

	return &api.TutoringResult{Tutoring: toTutoringResponse(rec)}, nil
}

func (s *Service) SoftDelete(ctx context.Context, id, actorID string) (*api.TutoringResponse, error) {
	const op = "service.SoftDelete"

	if err := requireActor(actorID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	unlock, err := s.lockRecord(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	rec, err := s.store.UpdateTutoring(ctx, id, func(rec *models.TutoringRecord) error {
		if rec.IsDeleted() {
			return nil
		}
		now := s.now().UTC()
		rec.DeletedAt = &now
		rec.DeletedBy = actorID
		rec.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp := toTutoringResponse(rec)
	return &resp, nil
}

func (s *Service) Restore(ctx context.Context, id string) (*api.TutoringResponse, error) {
	const op = "service.Restore"

	unlock, err := s.lockRecord(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	rec, err := s.store.UpdateTutoring(ctx, id, func(rec *models.TutoringRecord) error {
		if !rec.IsDeleted() {
			return nil
		}
		rec.DeletedAt = nil
		rec.DeletedBy = ""
		rec.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp := toTutoringResponse(rec)
	return &resp, nil
}

// SyncAttendance re-applies the attendance status implied by the record's
// current status. Callers use it to retry a side effect that failed earlier.
// A reserved absence whose course extension failed gets the extension retried
// as well.
func (s *Service) SyncAttendance(ctx context.Context, id, actorID string) (*api.TutoringResult, error) {
	const op = "service.SyncAttendance"

	if err := requireActor(actorID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	unlock, err := s.lockRecord(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	rec, err := s.store.GetTutoring(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var status models.AttendanceStatus
	switch rec.Status {
	case models.TutoringCompleted:
		status = models.AttendanceTutored
	case models.TutoringReservedAbsence:
		status = models.AttendanceReserved
	default:
		return &api.TutoringResult{Tutoring: toTutoringResponse(rec)}, nil
	}

	s.log.Info("Retrying attendance sync",
		slog.String("tutoring_id", id),
		slog.String("actor_id", actorID),
		slog.String("status", string(status)),
	)

	sync := s.syncAttendance(ctx, rec, status)
	if rec.Status == models.TutoringReservedAbsence && strings.Contains(rec.LastSyncError, courseExtensionFailed) {
		s.log.Info("Retrying course extension", slog.String("tutoring_id", id))
		s.extendCourse(ctx, rec, sync)
	}

	return s.finishSync(ctx, rec, sync), nil
}

// transition runs one state machine step under the record lock. change sets
// the fields that accompany the new status and returns the history reason.
// On success the lock is still held; the caller releases it with the returned
// func once the side effects of the step are done.
func (s *Service) transition(
	ctx context.Context,
	id string,
	action Action,
	actorID string,
	change func(rec *models.TutoringRecord, now time.Time) (string, error),
) (*models.TutoringRecord, models.TutoringStatus, func(), error) {
	unlock, err := s.lockRecord(ctx, id)
	if err != nil {
		return nil, "", nil, err
	}

	var prev models.TutoringStatus
	rec, err := s.store.UpdateTutoring(ctx, id, func(rec *models.TutoringRecord) error {
		if rec.IsDeleted() {
			return fmt.Errorf("record is deleted: %w", response.ErrIllegalTransition)
		}

		next, err := nextStatus(rec.Status, action)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		prev = rec.Status

		reason, err := change(rec, now)
		if err != nil {
			return err
		}

		rec.Status = next
		rec.StatusHistory = append(rec.StatusHistory, models.StatusChange{
			Status:    next,
			ChangedAt: now,
			ChangedBy: actorID,
			Reason:    reason,
		})
		rec.UpdatedAt = now
		return nil
	})
	if err != nil {
		unlock()
		return nil, "", nil, err
	}

	s.metrics.Transition(string(action))
	s.log.Info("Tutoring status changed",
		slog.String("tutoring_id", id),
		slog.String("action", string(action)),
		slog.String("from", string(prev)),
		slog.String("to", string(rec.Status)),
		slog.String("actor_id", actorID),
	)

	return rec, prev, unlock, nil
}

func markFinished(rec *models.TutoringRecord, now time.Time, actorID string) {
	rec.CompletedAt = &now
	rec.CompletedBy = actorID
}

func requireActor(actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return fmt.Errorf("actor_id is required: %w", response.ErrInvalidArgument)
	}
	return nil
}

// Side effects

// syncOutcome collects what happened to the side effects of one transition.
type syncOutcome struct {
	linkID   string
	warnings []api.Warning
	failures []string
}

func (o *syncOutcome) warn(code, msg string) {
	o.warnings = append(o.warnings, api.Warning{Code: code, Message: msg})
}

func (o *syncOutcome) fail(code, msg string) {
	o.warn(code, msg)
	o.failures = append(o.failures, msg)
}

// syncAttendance sets the linked attendance entry to status. The link is the
// stored attendanceLinkId, or else the entry found by student, class and
// absent date.
func (s *Service) syncAttendance(ctx context.Context, rec *models.TutoringRecord, status models.AttendanceStatus) *syncOutcome {
	out := &syncOutcome{linkID: rec.AttendanceLinkID}

	log := s.log.With(
		slog.String("tutoring_id", rec.ID),
		slog.String("attendance_status", string(status)),
	)

	if out.linkID == "" {
		if rec.AbsentDate == "" {
			log.Warn("No attendance link and no absent date, skipping attendance sync")
			out.warn(api.WarnAttendanceNotFound, "record has neither an attendance link nor an absent date")
			return out
		}

		id, err := s.attendance.FindAttendance(ctx, rec.StudentID, rec.ClassID, rec.AbsentDate)
		if errors.Is(err, response.ErrNotFound) {
			log.Warn("Attendance entry not found, skipping attendance sync",
				slog.String("student_id", rec.StudentID),
				slog.String("class_id", rec.ClassID),
				slog.String("absent_date", rec.AbsentDate),
			)
			out.warn(api.WarnAttendanceNotFound, fmt.Sprintf("no attendance entry for %s on %s", rec.StudentID, rec.AbsentDate))
			return out
		}
		if err != nil {
			log.Error("Failed to look up attendance", sl.Err(err))
			s.metrics.SideEffectFailure("attendance")
			out.fail(api.WarnAttendanceSyncFailed, fmt.Sprintf("attendance lookup failed: %v", err))
			return out
		}
		out.linkID = id
	}

	if err := s.attendance.SetAttendanceStatus(ctx, out.linkID, status); err != nil {
		log.Error("Failed to update attendance", slog.String("attendance_id", out.linkID), sl.Err(err))
		s.metrics.SideEffectFailure("attendance")
		out.fail(api.WarnAttendanceSyncFailed, fmt.Sprintf("attendance %s update failed: %v", out.linkID, err))
	}

	return out
}

// extendCourse pushes the enrollment end date out by one session.
func (s *Service) extendCourse(ctx context.Context, rec *models.TutoringRecord, out *syncOutcome) {
	if err := s.courses.ExtendCourse(ctx, rec.StudentID, rec.ClassID); err != nil {
		s.log.Error("Failed to extend course",
			slog.String("tutoring_id", rec.ID),
			slog.String("student_id", rec.StudentID),
			slog.String("class_id", rec.ClassID),
			sl.Err(err),
		)
		s.metrics.SideEffectFailure("course_extension")
		out.fail(api.WarnCourseExtensionFailed, fmt.Sprintf("%s: %v", courseExtensionFailed, err))
	}
}

// finishSync persists a discovered attendance link and the sync error state,
// then builds the result. The primary transition is already committed, so a
// failure here only degrades to a warning.
func (s *Service) finishSync(ctx context.Context, rec *models.TutoringRecord, out *syncOutcome) *api.TutoringResult {
	syncErr := strings.Join(out.failures, "; ")

	if out.linkID != rec.AttendanceLinkID || syncErr != rec.LastSyncError {
		updated, err := s.store.UpdateTutoring(ctx, rec.ID, func(r *models.TutoringRecord) error {
			if out.linkID != "" {
				r.AttendanceLinkID = out.linkID
			}
			r.LastSyncError = syncErr
			return nil
		})
		if err != nil {
			s.log.Error("Failed to record attendance sync state", slog.String("tutoring_id", rec.ID), sl.Err(err))
			out.warn(api.WarnAttendanceSyncFailed, fmt.Sprintf("sync state not saved: %v", err))
		} else {
			rec = updated
		}
	}

	return &api.TutoringResult{
		Tutoring: toTutoringResponse(rec),
		Warnings: out.warnings,
	}
}

func toTutoringResponse(rec *models.TutoringRecord) api.TutoringResponse {
	return api.TutoringResponse{
		ID:               rec.ID,
		StudentID:        rec.StudentID,
		StudentName:      rec.StudentName,
		ClassID:          rec.ClassID,
		ClassName:        rec.ClassName,
		Type:             string(rec.Type),
		Status:           string(rec.Status),
		AbsentDate:       rec.AbsentDate,
		AttendanceLinkID: rec.AttendanceLinkID,
		ScheduledDate:    rec.ScheduledDate,
		ScheduledTime:    rec.ScheduledTime,
		TutorID:          rec.TutorID,
		TutorName:        rec.TutorName,
		CompletedAt:      rec.CompletedAt,
		CompletedBy:      rec.CompletedBy,
		ChargedReason:    rec.ChargedReason,
		DeletedAt:        rec.DeletedAt,
		DeletedBy:        rec.DeletedBy,
		StatusHistory: lo.Map(rec.StatusHistory, func(c models.StatusChange, _ int) api.StatusChange {
			return api.StatusChange{
				Status:    string(c.Status),
				ChangedAt: c.ChangedAt,
				ChangedBy: c.ChangedBy,
				Reason:    c.Reason,
			}
		}),
		Note:          rec.Note,
		LastSyncError: rec.LastSyncError,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}
