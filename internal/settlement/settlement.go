// Package settlement holds the pure bad-debt rules: debt arithmetic, the
// decision table for a student's bad-debt flag and the student patches the
// settlement flow is allowed to write.
package settlement

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	Paid    Type = "paid"
	BadDebt Type = "bad_debt"
)

func (t Type) Valid() bool { return t == Paid || t == BadDebt }

type Action string

const (
	KeepBadDebt    Action = "keep_bad_debt"
	ClearBadDebt   Action = "clear_bad_debt"
	AutoSetBadDebt Action = "auto_set_bad_debt"
	NoAction       Action = "no_action"
)

// WithdrawnStatus is the student status written by every settlement.
const WithdrawnStatus = "Nghỉ học"

// ISOLayout matches the millisecond ISO-8601 form the student documents use.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	DefaultPricePerSession = decimal.NewFromInt(150000)

	NowFunc = time.Now // mockable
)

// Result describes the settlement invoices on file for a student.
type Result struct {
	HasBadDebtInvoice bool   `json:"has_bad_debt_invoice"`
	HasPaidInvoice    bool   `json:"has_paid_invoice"`
	PaidInvoiceCode   string `json:"paid_invoice_code,omitempty"`
}

func CalculateDebtSessions(attended, registered int) int {
	if attended <= registered {
		return 0
	}
	return attended - registered
}

// CalculateDebtAmount prices sessions at pricePerSession, or DefaultPricePerSession when omitted.
func CalculateDebtAmount(sessions int, pricePerSession ...decimal.Decimal) decimal.Decimal {
	price := DefaultPricePerSession
	if len(pricePerSession) > 0 {
		price = pricePerSession[0]
	}
	return price.Mul(decimal.NewFromInt(int64(sessions)))
}

// DecideBadDebtAction resolves the student's bad-debt flag. An unpaid
// settlement invoice always wins over a paid one.
func DecideBadDebtAction(attendedSessions, registeredSessions int, res Result) Action {
	switch {
	case res.HasBadDebtInvoice:
		return KeepBadDebt
	case res.HasPaidInvoice:
		return ClearBadDebt
	case attendedSessions > registeredSessions:
		return AutoSetBadDebt
	default:
		return NoAction
	}
}

type BadDebtFields struct {
	BadDebt  bool
	Sessions int
	Amount   decimal.Decimal
	Date     *time.Time
	Note     *string
}

// StudentPatch is the only sanctioned write to a student's bad-debt fields.
// It never carries registeredSessions.
type StudentPatch struct {
	Status     *string
	ClearClass bool
	BadDebt    BadDebtFields
}

// PrepareStudentUpdate builds the patch written when a student is settled.
// Settlement always withdraws the student from their classes.
func PrepareStudentUpdate(t Type, debtSessions int, totalAmount decimal.Decimal, note string) StudentPatch {
	status := WithdrawnStatus
	patch := StudentPatch{
		Status:     &status,
		ClearClass: true,
		BadDebt:    ClearBadDebtPatch().BadDebt,
	}

	if t == BadDebt {
		if note == "" {
			note = fmt.Sprintf("Nợ %d buổi - Tất toán", debtSessions)
		}
		now := NowFunc().UTC()
		patch.BadDebt = BadDebtFields{
			BadDebt:  true,
			Sessions: debtSessions,
			Amount:   totalAmount,
			Date:     &now,
			Note:     &note,
		}
	}

	return patch
}

// AutoSetBadDebtPatch flags over-attendance without withdrawing the student.
func AutoSetBadDebtPatch(debtSessions int, amount decimal.Decimal) StudentPatch {
	now := NowFunc().UTC()
	note := fmt.Sprintf("Nợ %d buổi", debtSessions)
	return StudentPatch{
		BadDebt: BadDebtFields{
			BadDebt:  true,
			Sessions: debtSessions,
			Amount:   amount,
			Date:     &now,
			Note:     &note,
		},
	}
}

func ClearBadDebtPatch() StudentPatch {
	return StudentPatch{
		BadDebt: BadDebtFields{Amount: decimal.Zero},
	}
}

// Fields renders the patch as the field set written onto the student document.
func (p StudentPatch) Fields() map[string]any {
	fields := map[string]any{
		"badDebt":         p.BadDebt.BadDebt,
		"badDebtSessions": p.BadDebt.Sessions,
		"badDebtAmount":   json.Number(p.BadDebt.Amount.String()),
		"badDebtDate":     nil,
		"badDebtNote":     nil,
	}
	if p.BadDebt.Date != nil {
		fields["badDebtDate"] = p.BadDebt.Date.Format(ISOLayout)
	}
	if p.BadDebt.Note != nil {
		fields["badDebtNote"] = *p.BadDebt.Note
	}
	if p.Status != nil {
		fields["status"] = *p.Status
	}
	if p.ClearClass {
		fields["classId"] = nil
		fields["classIds"] = []string{}
		fields["class"] = nil
	}
	return fields
}

func (p StudentPatch) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Fields())
}
