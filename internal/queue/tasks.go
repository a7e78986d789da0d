package queue

import (
	"encoding/json"

	"github.com/promodeal-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskDealNotify 活动通知任务
	TaskDealNotify = constants.TaskDealNotify
)

// DealNotifyPayload 活动通知任务载荷
type DealNotifyPayload struct {
	DealID    uint   `json:"deal_id"`
	UserID    uint   `json:"user_id"`
	EventType string `json:"event_type"`
}

// NewDealNotifyTask 创建活动通知任务
func NewDealNotifyTask(payload DealNotifyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDealNotify, body), nil
}
