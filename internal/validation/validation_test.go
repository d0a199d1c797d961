package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"tutoring-service/pkg/response"
)

type sample struct {
	StudentID  string `json:"student_id" validate:"required"`
	Type       string `json:"type" validate:"oneof=absence_makeup weak_performance"`
	AbsentDate string `json:"absent_date" validate:"omitempty,isodate"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		in      sample
		wantErr string
	}{
		{name: "valid", in: sample{StudentID: "s1", Type: "absence_makeup", AbsentDate: "2024-03-01"}},
		{name: "missing student", in: sample{Type: "absence_makeup"}, wantErr: "field 'student_id' is required"},
		{name: "bad type", in: sample{StudentID: "s1", Type: "lol"}, wantErr: "field 'type' must be one of [absence_makeup weak_performance]"},
		{name: "bad date", in: sample{StudentID: "s1", Type: "weak_performance", AbsentDate: "01/03/2024"}, wantErr: "field 'absent_date' must be a YYYY-MM-DD date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, response.ErrInvalidArgument))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
