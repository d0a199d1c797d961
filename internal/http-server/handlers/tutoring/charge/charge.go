package charge

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"tutoring-service/api"
	"tutoring-service/internal/http-server/handlers/request"
	"tutoring-service/pkg/response"
	"tutoring-service/pkg/sl"
)

type AbsenceCharger interface {
	MarkChargedAbsence(ctx context.Context, id, actorID, reason string) (*api.TutoringResult, error)
}

type Response struct {
	response.Response
	*api.TutoringResult
}

func New(log *slog.Logger, charger AbsenceCharger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.tutoring.charge.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		var req api.TutoringActionRequest
		if err := request.DecodeJSON(r, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			response.Render(w, r, err, "failed to decode request")
			return
		}

		res, err := charger.MarkChargedAbsence(r.Context(), id, request.ActorID(r, req.ActorID), req.Reason)
		if err != nil {
			log.Error("Failed to charge absence", slog.String("id", id), sl.Err(err))
			response.Render(w, r, err, "failed to charge absence")
			return
		}

		log.Info("Absence charged", slog.String("id", id))
		render.JSON(w, r, Response{TutoringResult: res})
	}
}
