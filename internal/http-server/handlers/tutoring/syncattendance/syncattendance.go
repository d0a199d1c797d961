package syncattendance

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

type AttendanceSyncer interface {
	SyncAttendance(ctx context.Context, id, actorID string) (*api.TutoringResult, error)
}

type Response struct {
	response.Response
	*api.TutoringResult
}

func New(log *slog.Logger, syncer AttendanceSyncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.tutoring.syncattendance.New"

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

		res, err := syncer.SyncAttendance(r.Context(), id, request.ActorID(r, req.ActorID))
		if err != nil {
			log.Error("Failed to sync attendance", slog.String("id", id), sl.Err(err))
			response.Render(w, r, err, "failed to sync attendance")
			return
		}

		render.JSON(w, r, Response{TutoringResult: res})
	}
}
