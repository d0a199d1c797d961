package get

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"tutoring-service/api"
	"tutoring-service/pkg/response"
	"tutoring-service/pkg/sl"
)

type TutoringGetter interface {
	GetTutoring(ctx context.Context, id string) (*api.TutoringResponse, error)
	ListTutoring(ctx context.Context, filters *api.TutoringListFilters) ([]*api.TutoringResponse, error)
}

type Response struct {
	response.Response
	Tutoring *api.TutoringResponse `json:"tutoring,omitempty"`
}

type ListResponse struct {
	response.Response
	Tutorings []*api.TutoringResponse `json:"tutorings"`
}

func New(log *slog.Logger, getter TutoringGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.tutoring.get.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if id := chi.URLParam(r, "id"); id != "" {
			rec, err := getter.GetTutoring(r.Context(), id)
			if err != nil {
				log.Error("Failed to get tutoring", slog.String("id", id), sl.Err(err))
				response.Render(w, r, err, "failed to get tutoring")
				return
			}

			render.JSON(w, r, Response{Tutoring: rec})
			return
		}

		filters, err := parseFilters(r)
		if err != nil {
			log.Error("Invalid list filters", sl.Err(err))
			response.Render(w, r, err, "invalid filters")
			return
		}

		recs, err := getter.ListTutoring(r.Context(), filters)
		if err != nil {
			log.Error("Failed to list tutoring", sl.Err(err))
			response.Render(w, r, err, "failed to list tutoring")
			return
		}

		if recs == nil {
			recs = []*api.TutoringResponse{}
		}

		log.Debug("Tutoring listed", slog.Int("count", len(recs)))
		render.JSON(w, r, ListResponse{Tutorings: recs})
	}
}

func parseFilters(r *http.Request) (*api.TutoringListFilters, error) {
	q := r.URL.Query()

	optional := func(key string) *string {
		if v := q.Get(key); v != "" {
			return &v
		}
		return nil
	}

	flag := func(key string) (bool, error) {
		v := q.Get(key)
		if v == "" {
			return false, nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("%s must be a boolean: %w", key, response.ErrInvalidArgument)
		}
		return b, nil
	}

	includeDeleted, err := flag("include_deleted")
	if err != nil {
		return nil, err
	}
	onlyDeleted, err := flag("only_deleted")
	if err != nil {
		return nil, err
	}

	return &api.TutoringListFilters{
		Type:           optional("type"),
		Status:         optional("status"),
		StudentID:      optional("student_id"),
		ClassID:        optional("class_id"),
		IncludeDeleted: includeDeleted,
		OnlyDeleted:    onlyDeleted,
	}, nil
}
