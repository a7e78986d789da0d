package worker

import (
	"context"
	"encoding/json"

	"github.com/promodeal-next/internal/logger"
	"github.com/promodeal-next/internal/provider"
	"github.com/promodeal-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskDealNotify, c.handleDealNotify)
}

// handleDealNotify 投递活动事件通知。
// 投递渠道（邮件/站内信）由外部系统承接，此处完成事件落日志与活动校验。
func (c *Consumer) handleDealNotify(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_deal_notify_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.DealNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_deal_notify_unmarshal_failed", "error", err)
		return err
	}
	if payload.DealID == 0 || payload.EventType == "" {
		logger.Debugw("worker_deal_notify_skip_invalid_payload", "deal_id", payload.DealID, "event_type", payload.EventType)
		return nil
	}

	deal, err := c.DealRepo.GetByID(payload.DealID)
	if err != nil {
		logger.Warnw("worker_deal_notify_fetch_deal_failed", "deal_id", payload.DealID, "error", err)
		return err
	}
	if deal == nil {
		logger.Debugw("worker_deal_notify_skip_deal_not_found", "deal_id", payload.DealID)
		return nil
	}

	receiver := ""
	if payload.UserID != 0 {
		user, err := c.UserRepo.GetByID(payload.UserID)
		if err != nil {
			logger.Warnw("worker_deal_notify_fetch_user_failed", "deal_id", payload.DealID, "user_id", payload.UserID, "error", err)
			return err
		}
		if user != nil {
			receiver = user.Email
		}
	}

	logger.Infow("deal_notification_delivered",
		"deal_id", deal.ID,
		"deal_name", deal.Name,
		"event_type", payload.EventType,
		"user_id", payload.UserID,
		"receiver", receiver,
	)
	return nil
}
