package complete

import (
	"context"
	"encoding/json"
	"fmt"
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

type completerFunc func(ctx context.Context, id, actorID, note string) (*api.TutoringResult, error)

func (f completerFunc) Complete(ctx context.Context, id, actorID, note string) (*api.TutoringResult, error) {
	return f(ctx, id, actorID, note)
}

func serve(t *testing.T, completer TutoringCompleter, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := chi.NewRouter()
	router.Post("/tutoring/{id}/complete", New(log, completer))

	req := httptest.NewRequest(http.MethodPost, "/tutoring/t-1/complete", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestComplete_OK(t *testing.T) {
	var gotID, gotActor, gotNote string
	completer := completerFunc(func(_ context.Context, id, actorID, note string) (*api.TutoringResult, error) {
		gotID, gotActor, gotNote = id, actorID, note
		return &api.TutoringResult{
			Tutoring: api.TutoringResponse{ID: id, Status: "completed"},
			Warnings: []api.Warning{{Code: api.WarnAttendanceNotFound, Message: "no attendance entry"}},
		}, nil
	})

	rec := serve(t, completer, `{"note":"good"}`, map[string]string{request.ActorHeader: "tutor-9"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t-1", gotID)
	assert.Equal(t, "tutor-9", gotActor)
	assert.Equal(t, "good", gotNote)

	var body struct {
		Error    *response.ResponseError `json:"error"`
		Tutoring api.TutoringResponse    `json:"tutoring"`
		Warnings []api.Warning           `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body.Error)
	assert.Equal(t, "completed", body.Tutoring.Status)
	require.Len(t, body.Warnings, 1)
	assert.Equal(t, api.WarnAttendanceNotFound, body.Warnings[0].Code)
}

func TestComplete_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   response.ErrCode
	}{
		{name: "illegal", body: `{"actor_id":"a"}`, err: fmt.Errorf("service.Complete: cannot complete from status cancelled: %w", response.ErrIllegalTransition), wantStatus: http.StatusConflict, wantCode: response.ILLEGAL_TRANSITION},
		{name: "missing", body: `{"actor_id":"a"}`, err: response.ErrNotFound, wantStatus: http.StatusNotFound, wantCode: response.NOT_FOUND},
		{name: "locked", body: `{"actor_id":"a"}`, err: response.ErrLocked, wantStatus: http.StatusLocked, wantCode: response.LOCKED},
		{name: "bad json", body: `{"actor_id":`, wantStatus: http.StatusBadRequest, wantCode: response.BAD_REQUEST},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := completerFunc(func(context.Context, string, string, string) (*api.TutoringResult, error) {
				return nil, tt.err
			})

			rec := serve(t, completer, tt.body, nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body response.Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(tt.wantCode), body.Code)
		})
	}
}
