package update

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

type TutoringUpdater interface {
	UpdateTutoring(ctx context.Context, id string, req *api.TutoringUpdateRequest) (*api.TutoringResponse, error)
}

type Response struct {
	response.Response
	Tutoring *api.TutoringResponse `json:"tutoring,omitempty"`
}

func New(log *slog.Logger, updater TutoringUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.tutoring.update.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		var req api.TutoringUpdateRequest
		if err := request.DecodeJSON(r, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			response.Render(w, r, err, "failed to decode request")
			return
		}

		rec, err := updater.UpdateTutoring(r.Context(), id, &req)
		if err != nil {
			log.Error("Failed to update tutoring", slog.String("id", id), sl.Err(err))
			response.Render(w, r, err, "failed to update tutoring")
			return
		}

		log.Info("Tutoring updated", slog.String("id", id))
		render.JSON(w, r, Response{Tutoring: rec})
	}
}
