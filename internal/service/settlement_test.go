package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutoring-service/api"
	"tutoring-service/internal/lock"
	"tutoring-service/internal/models"
	"tutoring-service/internal/settlement"
	"tutoring-service/internal/storage/memory"
	"tutoring-service/pkg/response"
)

func newSettlementService(t *testing.T, store *memory.Storage, opts ...Option) *Service {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, lock.NewLocalLock(), log, opts...)
}

func TestCheckSettlementStatus(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		invoices []models.Invoice
		want     settlement.Result
	}{
		{
			name: "none",
			want: settlement.Result{},
		},
		{
			name:     "paid only",
			invoices: []models.Invoice{{Code: "INV-7", StudentID: "s1", Status: models.InvoicePaid, CreatedAt: base}},
			want:     settlement.Result{HasPaidInvoice: true, PaidInvoiceCode: "INV-7"},
		},
		{
			name: "bad debt takes precedence",
			invoices: []models.Invoice{
				{Code: "INV-7", StudentID: "s1", Status: models.InvoicePaid, CreatedAt: base},
				{Code: "INV-8", StudentID: "s1", Status: models.InvoiceBadDebt, CreatedAt: base},
			},
			want: settlement.Result{HasBadDebtInvoice: true},
		},
		{
			name:     "other student's invoice",
			invoices: []models.Invoice{{Code: "INV-9", StudentID: "s2", Status: models.InvoicePaid, CreatedAt: base}},
			want:     settlement.Result{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			for _, inv := range tt.invoices {
				store.AddInvoice(inv)
			}

			got, err := newSettlementService(t, store).CheckSettlementStatus(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type brokenInvoices struct{ *memory.Storage }

func (brokenInvoices) FindInvoiceByStudentAndStatus(context.Context, string, models.InvoiceStatus) (*models.Invoice, error) {
	return nil, errors.New("connection reset")
}

func TestCheckSettlementStatus_QueryError(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(brokenInvoices{memory.New()}, lock.NewLocalLock(), log)

	_, err := svc.CheckSettlementStatus(context.Background(), "s1")
	assert.ErrorContains(t, err, "connection reset")
	assert.NotErrorIs(t, err, response.ErrNotFound)
}

func TestReconcileBadDebt(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		attended     int
		invoice      *models.InvoiceStatus
		wantAction   settlement.Action
		wantBadDebt  bool
		wantSessions int
		wantAmount   int64
	}{
		{name: "over attendance", attended: 12, wantAction: settlement.AutoSetBadDebt, wantBadDebt: true, wantSessions: 2, wantAmount: 400000},
		{name: "within package", attended: 10, wantAction: settlement.NoAction, wantBadDebt: true, wantSessions: 5},
		{name: "paid invoice", attended: 12, invoice: lo.ToPtr(models.InvoicePaid), wantAction: settlement.ClearBadDebt},
		{name: "bad debt invoice", attended: 12, invoice: lo.ToPtr(models.InvoiceBadDebt), wantAction: settlement.KeepBadDebt, wantBadDebt: true, wantSessions: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			store.AddStudent(memory.Student{
				ID:                 "s1",
				AttendedSessions:   tt.attended,
				RegisteredSessions: 10,
				BadDebt:            settlement.BadDebtFields{BadDebt: true, Sessions: 5},
			})
			if tt.invoice != nil {
				store.AddInvoice(models.Invoice{Code: "INV-1", StudentID: "s1", Status: *tt.invoice})
			}

			svc := newSettlementService(t, store, WithPricePerSession(decimal.NewFromInt(200000)))
			resp, err := svc.ReconcileBadDebt(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, string(tt.wantAction), resp.Action)

			st, _ := store.Student("s1")
			assert.Equal(t, tt.wantBadDebt, st.BadDebt.BadDebt)
			assert.Equal(t, tt.wantSessions, st.BadDebt.Sessions)
			assert.Equal(t, 10, st.RegisteredSessions)
			if tt.wantAmount > 0 {
				assert.True(t, decimal.NewFromInt(tt.wantAmount).Equal(st.BadDebt.Amount))
			}
		})
	}
}

func TestSettleStudent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	class := "c1"
	store.AddStudent(memory.Student{ID: "s1", ClassID: &class, ClassIDs: []string{"c1"}, AttendedSessions: 13, RegisteredSessions: 10})

	svc := newSettlementService(t, store)

	_, err := svc.SettleStudent(ctx, "s1", &api.SettleRequest{Type: "refund"})
	require.ErrorIs(t, err, response.ErrInvalidArgument)

	resp, err := svc.SettleStudent(ctx, "s1", &api.SettleRequest{Type: string(settlement.BadDebt)})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.DebtSessions)
	assert.True(t, decimal.NewFromInt(450000).Equal(resp.DebtAmount))

	st, _ := store.Student("s1")
	assert.Equal(t, settlement.WithdrawnStatus, st.Status)
	assert.Nil(t, st.ClassID)
	assert.True(t, st.BadDebt.BadDebt)
	require.NotNil(t, st.BadDebt.Note)
	assert.Equal(t, "Nợ 3 buổi - Tất toán", *st.BadDebt.Note)

	_, err = svc.SettleStudent(ctx, "missing", &api.SettleRequest{Type: string(settlement.Paid)})
	assert.ErrorIs(t, err, response.ErrNotFound)
}
