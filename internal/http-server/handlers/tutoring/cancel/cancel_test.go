package cancel

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutoring-service/api"
	"tutoring-service/internal/http-server/handlers/request"
	"tutoring-service/pkg/response"
)

type cancellerFunc func(ctx context.Context, id, reason, actorID string) (*api.TutoringResult, error)

func (f cancellerFunc) Cancel(ctx context.Context, id, reason, actorID string) (*api.TutoringResult, error) {
	return f(ctx, id, reason, actorID)
}

func TestCancel(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		header     map[string]string
		err        error
		wantActor  string
		wantReason string
		wantStatus int
		wantCode   response.ErrCode
	}{
		{
			name:       "with actor and reason",
			body:       `{"actor_id":"admin-1","reason":"student left"}`,
			wantActor:  "admin-1",
			wantReason: "student left",
			wantStatus: http.StatusOK,
		},
		{
			name:       "header actor",
			body:       `{}`,
			header:     map[string]string{request.ActorHeader: "admin-3"},
			wantActor:  "admin-3",
			wantStatus: http.StatusOK,
		},
		{
			name:       "empty body passes empty actor",
			wantStatus: http.StatusOK,
		},
		{
			name:       "not found",
			body:       `{"reason":"dup"}`,
			err:        response.ErrNotFound,
			wantReason: "dup",
			wantStatus: http.StatusNotFound,
			wantCode:   response.NOT_FOUND,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID, gotActor, gotReason string
			canceller := cancellerFunc(func(_ context.Context, id, reason, actorID string) (*api.TutoringResult, error) {
				gotID, gotActor, gotReason = id, actorID, reason
				if tt.err != nil {
					return nil, tt.err
				}
				return &api.TutoringResult{Tutoring: api.TutoringResponse{ID: id, Status: "cancelled"}}, nil
			})

			log := slog.New(slog.NewTextHandler(io.Discard, nil))
			router := chi.NewRouter()
			router.Post("/tutoring/{id}/cancel", New(log, canceller))

			req := httptest.NewRequest(http.MethodPost, "/tutoring/t-3/cancel", strings.NewReader(tt.body))
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "t-3", gotID)
			assert.Equal(t, tt.wantActor, gotActor)
			assert.Equal(t, tt.wantReason, gotReason)

			var body response.Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(tt.wantCode), body.Code)
		})
	}
}
