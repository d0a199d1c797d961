package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tutoring-service/api"
	"tutoring-service/internal/models"
	"tutoring-service/internal/settlement"
	"tutoring-service/pkg/response"
)

// CheckSettlementStatus reports the settlement invoices on file for a student.
// An unpaid bad-debt invoice is looked up first and short-circuits the paid lookup.
func (s *Service) CheckSettlementStatus(ctx context.Context, studentID string) (settlement.Result, error) {
	const op = "service.CheckSettlementStatus"

	if studentID == "" {
		return settlement.Result{}, fmt.Errorf("%s: student id is required: %w", op, response.ErrInvalidArgument)
	}

	_, err := s.invoices.FindInvoiceByStudentAndStatus(ctx, studentID, models.InvoiceBadDebt)
	switch {
	case err == nil:
		return settlement.Result{HasBadDebtInvoice: true}, nil
	case !errors.Is(err, response.ErrNotFound):
		return settlement.Result{}, fmt.Errorf("%s: %w", op, err)
	}

	inv, err := s.invoices.FindInvoiceByStudentAndStatus(ctx, studentID, models.InvoicePaid)
	switch {
	case err == nil:
		return settlement.Result{HasPaidInvoice: true, PaidInvoiceCode: inv.Code}, nil
	case !errors.Is(err, response.ErrNotFound):
		return settlement.Result{}, fmt.Errorf("%s: %w", op, err)
	}

	return settlement.Result{}, nil
}

// ReconcileBadDebt brings the student's bad-debt flag in line with their
// invoices and session counts.
func (s *Service) ReconcileBadDebt(ctx context.Context, studentID string) (*api.ReconcileResponse, error) {
	const op = "service.ReconcileBadDebt"

	sessions, err := s.students.GetStudentSessions(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.CheckSettlementStatus(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	action := settlement.DecideBadDebtAction(sessions.AttendedSessions, sessions.RegisteredSessions, res)
	s.metrics.BadDebtDecision(string(action))

	resp := &api.ReconcileResponse{
		StudentID:          studentID,
		AttendedSessions:   sessions.AttendedSessions,
		RegisteredSessions: sessions.RegisteredSessions,
		Action:             string(action),
	}

	var patch settlement.StudentPatch
	switch action {
	case settlement.AutoSetBadDebt:
		debt := settlement.CalculateDebtSessions(sessions.AttendedSessions, sessions.RegisteredSessions)
		patch = settlement.AutoSetBadDebtPatch(debt, settlement.CalculateDebtAmount(debt, s.price))
	case settlement.ClearBadDebt:
		patch = settlement.ClearBadDebtPatch()
	default:
		return resp, nil
	}

	if err := s.students.ApplyStudentPatch(ctx, studentID, patch); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("Bad debt reconciled",
		slog.String("student_id", studentID),
		slog.String("action", string(action)),
	)

	resp.Patch = patch
	return resp, nil
}

// SettleStudent closes out a student: withdraws them and records either a
// paid settlement or the outstanding debt.
func (s *Service) SettleStudent(ctx context.Context, studentID string, req *api.SettleRequest) (*api.SettleResponse, error) {
	const op = "service.SettleStudent"

	if !settlement.Type(req.Type).Valid() {
		return nil, fmt.Errorf("%s: unknown settlement type %q: %w", op, req.Type, response.ErrInvalidArgument)
	}

	sessions, err := s.students.GetStudentSessions(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	debt := settlement.CalculateDebtSessions(sessions.AttendedSessions, sessions.RegisteredSessions)
	amount := settlement.CalculateDebtAmount(debt, s.price)
	patch := settlement.PrepareStudentUpdate(settlement.Type(req.Type), debt, amount, req.Note)

	if err := s.students.ApplyStudentPatch(ctx, studentID, patch); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("Student settled",
		slog.String("student_id", studentID),
		slog.String("type", req.Type),
		slog.Int("debt_sessions", debt),
	)

	return &api.SettleResponse{
		StudentID:    studentID,
		Type:         req.Type,
		DebtSessions: debt,
		DebtAmount:   amount,
		Patch:        patch,
	}, nil
}
