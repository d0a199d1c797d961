package delete

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

type TutoringDeleter interface {
	SoftDelete(ctx context.Context, id, actorID string) (*api.TutoringResponse, error)
}

type Response struct {
	response.Response
	Tutoring *api.TutoringResponse `json:"tutoring,omitempty"`
}

func New(log *slog.Logger, deleter TutoringDeleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.tutoring.delete.New"

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

		rec, err := deleter.SoftDelete(r.Context(), id, request.ActorID(r, req.ActorID))
		if err != nil {
			log.Error("Failed to delete tutoring", slog.String("id", id), sl.Err(err))
			response.Render(w, r, err, "failed to delete tutoring")
			return
		}

		log.Info("Tutoring deleted", slog.String("id", id))
		render.JSON(w, r, Response{Tutoring: rec})
	}
}
