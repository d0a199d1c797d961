package service

import (
	"fmt"

	"github.com/samber/lo"

	"tutoring-service/internal/models"
	"tutoring-service/pkg/response"
)

type Action string

const (
	ActionSchedule Action = "schedule"
	ActionComplete Action = "complete"
	ActionCharge   Action = "charge"
	ActionReserve  Action = "reserve"
	ActionUndo     Action = "undo"
	ActionCancel   Action = "cancel"
)

var (
	nonTerminal = []models.TutoringStatus{models.TutoringNotScheduled, models.TutoringScheduled}
	terminal    = []models.TutoringStatus{models.TutoringCompleted, models.TutoringChargedAbsence, models.TutoringReservedAbsence}
	allStatuses = []models.TutoringStatus{
		models.TutoringNotScheduled, models.TutoringScheduled, models.TutoringCompleted,
		models.TutoringChargedAbsence, models.TutoringReservedAbsence, models.TutoringCancelled,
	}
)

type transitionRule struct {
	from []models.TutoringStatus
	to   models.TutoringStatus
}

// transitions is the whole tutoring state machine.
var transitions = map[Action]transitionRule{
	ActionSchedule: {from: append(append([]models.TutoringStatus{}, nonTerminal...), models.TutoringCancelled), to: models.TutoringScheduled},
	ActionComplete: {from: nonTerminal, to: models.TutoringCompleted},
	ActionCharge:   {from: nonTerminal, to: models.TutoringChargedAbsence},
	ActionReserve:  {from: nonTerminal, to: models.TutoringReservedAbsence},
	ActionUndo:     {from: terminal, to: models.TutoringScheduled},
	ActionCancel:   {from: allStatuses, to: models.TutoringCancelled},
}

func nextStatus(current models.TutoringStatus, action Action) (models.TutoringStatus, error) {
	rule, ok := transitions[action]
	if !ok {
		return "", fmt.Errorf("unknown action %q: %w", action, response.ErrIllegalTransition)
	}

	if lo.Contains(rule.from, current) {
		return rule.to, nil
	}

	if action == ActionUndo {
		return "", fmt.Errorf("can only undo from a completed state, current status is %s: %w", current, response.ErrIllegalTransition)
	}
	return "", fmt.Errorf("cannot %s from status %s: %w", action, current, response.ErrIllegalTransition)
}
