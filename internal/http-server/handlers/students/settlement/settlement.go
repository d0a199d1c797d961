package settlement

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"tutoring-service/api"
	settlementpolicy "tutoring-service/internal/settlement"
	"tutoring-service/pkg/response"
	"tutoring-service/pkg/sl"
)

type StatusChecker interface {
	CheckSettlementStatus(ctx context.Context, studentID string) (settlementpolicy.Result, error)
}

type Response struct {
	response.Response
	Settlement *api.SettlementStatusResponse `json:"settlement,omitempty"`
}

func New(log *slog.Logger, checker StatusChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.students.settlement.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		studentID := chi.URLParam(r, "id")

		res, err := checker.CheckSettlementStatus(r.Context(), studentID)
		if err != nil {
			log.Error("Failed to check settlement status", slog.String("student_id", studentID), sl.Err(err))
			response.Render(w, r, err, "failed to check settlement status")
			return
		}

		render.JSON(w, r, Response{Settlement: &api.SettlementStatusResponse{
			StudentID:         studentID,
			HasBadDebtInvoice: res.HasBadDebtInvoice,
			HasPaidInvoice:    res.HasPaidInvoice,
			PaidInvoiceCode:   res.PaidInvoiceCode,
		}})
	}
}
