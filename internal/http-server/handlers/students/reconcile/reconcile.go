package reconcile

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"tutoring-service/api"
	"tutoring-service/pkg/response"
	"tutoring-service/pkg/sl"
)

type DebtReconciler interface {
	ReconcileBadDebt(ctx context.Context, studentID string) (*api.ReconcileResponse, error)
}

type Response struct {
	response.Response
	Reconciliation *api.ReconcileResponse `json:"reconciliation,omitempty"`
}

func New(log *slog.Logger, reconciler DebtReconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.students.reconcile.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		studentID := chi.URLParam(r, "id")

		res, err := reconciler.ReconcileBadDebt(r.Context(), studentID)
		if err != nil {
			log.Error("Failed to reconcile bad debt", slog.String("student_id", studentID), sl.Err(err))
			response.Render(w, r, err, "failed to reconcile bad debt")
			return
		}

		log.Info("Bad debt reconciled", slog.String("student_id", studentID), slog.String("action", res.Action))
		render.JSON(w, r, Response{Reconciliation: res})
	}
}
