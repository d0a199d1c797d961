package schedule

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

type TutoringScheduler interface {
	Schedule(ctx context.Context, id string, req *api.TutoringScheduleRequest) (*api.TutoringResult, error)
}

type Response struct {
	response.Response
	*api.TutoringResult
}

func New(log *slog.Logger, scheduler TutoringScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.tutoring.schedule.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		var req api.TutoringScheduleRequest
		if err := request.DecodeJSON(r, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			response.Render(w, r, err, "failed to decode request")
			return
		}
		req.ActorID = request.ActorID(r, req.ActorID)

		res, err := scheduler.Schedule(r.Context(), id, &req)
		if err != nil {
			log.Error("Failed to schedule tutoring", slog.String("id", id), sl.Err(err))
			response.Render(w, r, err, "failed to schedule tutoring")
			return
		}

		log.Info("Tutoring scheduled",
			slog.String("id", id),
			slog.String("date", req.Date),
			slog.String("tutor_id", req.TutorID),
		)
		render.JSON(w, r, Response{TutoringResult: res})
	}
}
