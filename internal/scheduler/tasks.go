package scheduler

import (
	"encoding/json"

	"leadrelay_backend/internal/response"

	"github.com/hibiken/asynq"
)

const TaskLeadRetry = "leads.response.retry"

// LeadRetryPayload carries the immutable intake event through the retry
// queue. AttemptCount is the number of response rounds that have already
// failed when the task was enqueued.
type LeadRetryPayload struct {
	Event        response.LeadIntakeEvent `json:"event"`
	AttemptCount int                      `json:"attemptCount"`
}

func NewLeadRetryTask(payload LeadRetryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadRetry, data), nil
}

func ParseLeadRetryPayload(task *asynq.Task) (LeadRetryPayload, error) {
	var payload LeadRetryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadRetryPayload{}, err
	}
	return payload, nil
}
