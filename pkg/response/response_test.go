package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  ErrCode
	}{
		{name: "not found", err: fmt.Errorf("service.Get: %w", ErrNotFound), wantCode: http.StatusNotFound, wantErr: NOT_FOUND},
		{name: "invalid argument", err: fmt.Errorf("x: reason is required: %w", ErrInvalidArgument), wantCode: http.StatusBadRequest, wantErr: INVALID_ARGUMENT},
		{name: "illegal transition", err: ErrIllegalTransition, wantCode: http.StatusConflict, wantErr: ILLEGAL_TRANSITION},
		{name: "locked", err: ErrLocked, wantCode: http.StatusLocked, wantErr: LOCKED},
		{name: "conflict", err: ErrConflict, wantCode: http.StatusConflict, wantErr: CONFLICT},
		{name: "unknown", err: errors.New("boom"), wantCode: http.StatusInternalServerError, wantErr: FAILED_REQUEST},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, errCode := Status(tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantErr, errCode)
		})
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "client error keeps reason",
			err:         fmt.Errorf("service.Undo: can only undo from a completed state, current status is scheduled: %w", ErrIllegalTransition),
			wantStatus:  http.StatusConflict,
			wantMessage: "can only undo from a completed state, current status is scheduled: illegal transition",
		},
		{
			name:        "nested ops are stripped",
			err:         fmt.Errorf("service.Complete: service.lockRecord: %w", ErrLocked),
			wantStatus:  http.StatusLocked,
			wantMessage: "resource is locked",
		},
		{
			name:        "server error is hidden",
			err:         errors.New("pq: connection refused"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "failed to complete tutoring",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", nil)

			Render(rec, req, tt.err, "failed to complete tutoring")

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantMessage, body.Message)
		})
	}
}
