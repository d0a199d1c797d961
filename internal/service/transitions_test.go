package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tutoring-service/internal/models"
	"tutoring-service/pkg/response"
)

func TestNextStatus(t *testing.T) {
	const (
		ns  = models.TutoringNotScheduled
		sc  = models.TutoringScheduled
		co  = models.TutoringCompleted
		ch  = models.TutoringChargedAbsence
		re  = models.TutoringReservedAbsence
		ca  = models.TutoringCancelled
		bad = models.TutoringStatus("")
	)

	tests := []struct {
		from   models.TutoringStatus
		action Action
		want   models.TutoringStatus
	}{
		{ns, ActionSchedule, sc},
		{sc, ActionSchedule, sc},
		{ca, ActionSchedule, sc},
		{co, ActionSchedule, bad},
		{ch, ActionSchedule, bad},
		{re, ActionSchedule, bad},

		{ns, ActionComplete, co},
		{sc, ActionComplete, co},
		{ca, ActionComplete, bad},
		{co, ActionComplete, bad},

		{ns, ActionCharge, ch},
		{sc, ActionCharge, ch},
		{ca, ActionCharge, bad},
		{re, ActionCharge, bad},

		{ns, ActionReserve, re},
		{sc, ActionReserve, re},
		{ca, ActionReserve, bad},
		{ch, ActionReserve, bad},

		{co, ActionUndo, sc},
		{ch, ActionUndo, sc},
		{re, ActionUndo, sc},
		{ns, ActionUndo, bad},
		{sc, ActionUndo, bad},
		{ca, ActionUndo, bad},

		{ns, ActionCancel, ca},
		{sc, ActionCancel, ca},
		{co, ActionCancel, ca},
		{ch, ActionCancel, ca},
		{re, ActionCancel, ca},
		{ca, ActionCancel, ca},
	}

	for _, tt := range tests {
		t.Run(string(tt.action)+"_from_"+string(tt.from), func(t *testing.T) {
			got, err := nextStatus(tt.from, tt.action)
			if tt.want == bad {
				assert.ErrorIs(t, err, response.ErrIllegalTransition)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextStatus_UndoMessage(t *testing.T) {
	_, err := nextStatus(models.TutoringScheduled, ActionUndo)
	assert.ErrorContains(t, err, "can only undo from a completed state")

	_, err = nextStatus(models.TutoringScheduled, Action("teleport"))
	assert.ErrorIs(t, err, response.ErrIllegalTransition)
}
