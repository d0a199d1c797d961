package cancel

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

type TutoringCanceller interface {
	Cancel(ctx context.Context, id, reason, actorID string) (*api.TutoringResult, error)
}

type Response struct {
	response.Response
	*api.TutoringResult
}

func New(log *slog.Logger, canceller TutoringCanceller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.tutoring.cancel.New"

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

		// an empty actor is allowed and recorded as the system
		res, err := canceller.Cancel(r.Context(), id, req.Reason, request.ActorID(r, req.ActorID))
		if err != nil {
			log.Error("Failed to cancel tutoring", slog.String("id", id), sl.Err(err))
			response.Render(w, r, err, "failed to cancel tutoring")
			return
		}

		log.Info("Tutoring cancelled", slog.String("id", id))
		render.JSON(w, r, Response{TutoringResult: res})
	}
}
