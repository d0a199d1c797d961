package create

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"tutoring-service/api"
	"tutoring-service/internal/http-server/handlers/request"
	"tutoring-service/pkg/response"
	"tutoring-service/pkg/sl"
)

type TutoringCreator interface {
	CreateTutoring(ctx context.Context, req *api.TutoringCreateRequest) (*api.TutoringResponse, error)
}

type Response struct {
	response.Response
	Tutoring *api.TutoringResponse `json:"tutoring,omitempty"`
}

func New(log *slog.Logger, creator TutoringCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.tutoring.create.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req api.TutoringCreateRequest
		if err := request.DecodeJSON(r, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			response.Render(w, r, err, "failed to decode request")
			return
		}
		req.ActorID = request.ActorID(r, req.ActorID)

		rec, err := creator.CreateTutoring(r.Context(), &req)
		if err != nil {
			log.Error("Failed to create tutoring", sl.Err(err))
			response.Render(w, r, err, "failed to create tutoring")
			return
		}

		log.Info("Tutoring created", slog.String("id", rec.ID))

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, Response{Tutoring: rec})
	}
}
