package settle

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
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutoring-service/api"
	"tutoring-service/pkg/response"
)

type settlerFunc func(ctx context.Context, studentID string, req *api.SettleRequest) (*api.SettleResponse, error)

func (f settlerFunc) SettleStudent(ctx context.Context, studentID string, req *api.SettleRequest) (*api.SettleResponse, error) {
	return f(ctx, studentID, req)
}

func TestSettle(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantCalled bool
		wantType   string
		wantStatus int
		wantCode   response.ErrCode
	}{
		{name: "paid", body: `{"type":"paid","note":"cash"}`, wantCalled: true, wantType: "paid", wantStatus: http.StatusOK},
		{name: "bad debt", body: `{"type":"bad_debt"}`, wantCalled: true, wantType: "bad_debt", wantStatus: http.StatusOK},
		{name: "unknown type", body: `{"type":"forgiven"}`, wantStatus: http.StatusBadRequest, wantCode: response.INVALID_ARGUMENT},
		{name: "missing type", body: `{}`, wantStatus: http.StatusBadRequest, wantCode: response.INVALID_ARGUMENT},
		{name: "bad json", body: `{"type":`, wantStatus: http.StatusBadRequest, wantCode: response.BAD_REQUEST},
		{name: "unknown student", body: `{"type":"paid"}`, err: response.ErrNotFound, wantCalled: true, wantType: "paid", wantStatus: http.StatusNotFound, wantCode: response.NOT_FOUND},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			var gotStudent, gotType string
			settler := settlerFunc(func(_ context.Context, studentID string, req *api.SettleRequest) (*api.SettleResponse, error) {
				called = true
				gotStudent, gotType = studentID, req.Type
				if tt.err != nil {
					return nil, tt.err
				}
				return &api.SettleResponse{
					StudentID:    studentID,
					Type:         req.Type,
					DebtSessions: 2,
					DebtAmount:   decimal.NewFromInt(300000),
				}, nil
			})

			log := slog.New(slog.NewTextHandler(io.Discard, nil))
			router := chi.NewRouter()
			router.Post("/students/{id}/settle", New(log, settler))

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/students/stu-5/settle", strings.NewReader(tt.body)))

			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
			if tt.wantCalled {
				assert.Equal(t, "stu-5", gotStudent)
				assert.Equal(t, tt.wantType, gotType)
			}

			var body struct {
				response.Response
				Settlement *api.SettleResponse `json:"settlement"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(tt.wantCode), body.Code)
			if tt.wantStatus == http.StatusOK {
				require.NotNil(t, body.Settlement)
				assert.Equal(t, 2, body.Settlement.DebtSessions)
				assert.True(t, decimal.NewFromInt(300000).Equal(body.Settlement.DebtAmount))
			}
		})
	}
}
