package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutoring-service/api"
	"tutoring-service/pkg/response"
)

type reconcilerFunc func(ctx context.Context, studentID string) (*api.ReconcileResponse, error)

func (f reconcilerFunc) ReconcileBadDebt(ctx context.Context, studentID string) (*api.ReconcileResponse, error) {
	return f(ctx, studentID)
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   response.ErrCode
		wantBody   string
	}{
		{name: "decision", wantStatus: http.StatusOK, wantBody: `"action":"auto_set_bad_debt"`},
		{name: "unknown student", err: response.ErrNotFound, wantStatus: http.StatusNotFound, wantCode: response.NOT_FOUND},
		{name: "storage down", err: errors.New("connection refused"), wantStatus: http.StatusInternalServerError, wantCode: response.FAILED_REQUEST},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotStudent string
			reconciler := reconcilerFunc(func(_ context.Context, studentID string) (*api.ReconcileResponse, error) {
				gotStudent = studentID
				if tt.err != nil {
					return nil, tt.err
				}
				return &api.ReconcileResponse{StudentID: studentID, AttendedSessions: 10, RegisteredSessions: 8, Action: "auto_set_bad_debt"}, nil
			})

			log := slog.New(slog.NewTextHandler(io.Discard, nil))
			router := chi.NewRouter()
			router.Post("/students/{id}/reconcile-debt", New(log, reconciler))

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/students/stu-8/reconcile-debt", nil))

			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "stu-8", gotStudent)

			var body response.Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(tt.wantCode), body.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			if tt.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), "connection refused")
			}
		})
	}
}
