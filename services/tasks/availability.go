package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeBreakExpire = "availability:break_expire"
	TypeShiftClose  = "availability:shift_close"
)

// BreakExpiryPayload identifies the break a scheduled task should end.
// The deadline lets the handler ignore tasks superseded by a newer break.
type BreakExpiryPayload struct {
	TechnicianID string    `json:"technicianId"`
	Deadline     time.Time `json:"deadline"`
}

func NewBreakExpiryTask(technicianID string, deadline time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(BreakExpiryPayload{TechnicianID: technicianID, Deadline: deadline})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeBreakExpire, b)
	opts := []asynq.Option{asynq.ProcessAt(deadline)}

	return task, opts, nil
}

// ShiftClosePayload identifies the shift a scheduled task should close
// at the end of the technician's working day. The deadline lets the
// handler ignore tasks scheduled for a shift that was already closed
// and reopened.
type ShiftClosePayload struct {
	TechnicianID string    `json:"technicianId"`
	Deadline     time.Time `json:"deadline"`
}

func NewShiftCloseTask(technicianID string, deadline time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(ShiftClosePayload{TechnicianID: technicianID, Deadline: deadline})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeShiftClose, b)
	opts := []asynq.Option{asynq.ProcessAt(deadline)}

	return task, opts, nil
}
