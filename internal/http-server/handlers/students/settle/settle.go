package settle

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"tutoring-service/api"
	"tutoring-service/internal/http-server/handlers/request"
	"tutoring-service/internal/validation"
	"tutoring-service/pkg/response"
	"tutoring-service/pkg/sl"
)

type StudentSettler interface {
	SettleStudent(ctx context.Context, studentID string, req *api.SettleRequest) (*api.SettleResponse, error)
}

type Response struct {
	response.Response
	Settlement *api.SettleResponse `json:"settlement,omitempty"`
}

func New(log *slog.Logger, settler StudentSettler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.students.settle.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		studentID := chi.URLParam(r, "id")

		var req api.SettleRequest
		if err := request.DecodeJSON(r, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			response.Render(w, r, err, "failed to decode request")
			return
		}

		if err := validation.Struct(&req); err != nil {
			log.Error("Invalid request", sl.Err(err))
			response.Render(w, r, err, "invalid request")
			return
		}

		res, err := settler.SettleStudent(r.Context(), studentID, &req)
		if err != nil {
			log.Error("Failed to settle student", slog.String("student_id", studentID), sl.Err(err))
			response.Render(w, r, err, "failed to settle student")
			return
		}

		log.Info("Student settled",
			slog.String("student_id", studentID),
			slog.String("type", res.Type),
			slog.Int("debt_sessions", res.DebtSessions),
		)
		render.JSON(w, r, Response{Settlement: res})
	}
}
