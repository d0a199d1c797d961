package restore

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

type TutoringRestorer interface {
	Restore(ctx context.Context, id string) (*api.TutoringResponse, error)
}

type Response struct {
	response.Response
	Tutoring *api.TutoringResponse `json:"tutoring,omitempty"`
}

func New(log *slog.Logger, restorer TutoringRestorer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.tutoring.restore.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		rec, err := restorer.Restore(r.Context(), id)
		if err != nil {
			log.Error("Failed to restore tutoring", slog.String("id", id), sl.Err(err))
			response.Render(w, r, err, "failed to restore tutoring")
			return
		}

		log.Info("Tutoring restored", slog.String("id", id))
		render.JSON(w, r, Response{Tutoring: rec})
	}
}
