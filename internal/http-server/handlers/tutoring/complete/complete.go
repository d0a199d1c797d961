package complete

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

type TutoringCompleter interface {
	Complete(ctx context.Context, id, actorID, note string) (*api.TutoringResult, error)
}

type Response struct {
	response.Response
	*api.TutoringResult
}

func New(log *slog.Logger, completer TutoringCompleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.tutoring.complete.New"

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

		res, err := completer.Complete(r.Context(), id, request.ActorID(r, req.ActorID), req.Note)
		if err != nil {
			log.Error("Failed to complete tutoring", slog.String("id", id), sl.Err(err))
			response.Render(w, r, err, "failed to complete tutoring")
			return
		}

		log.Info("Tutoring completed", slog.String("id", id), slog.Int("warnings", len(res.Warnings)))
		render.JSON(w, r, Response{TutoringResult: res})
	}
}
