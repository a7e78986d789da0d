package service

import (
	"github.com/promodeal-next/internal/logger"
	"github.com/promodeal-next/internal/queue"
)

// Notifier 活动事件通知接口
type Notifier interface {
	Notify(dealID, userID uint, eventType string)
}

// QueueNotifier 基于异步队列的通知实现。
// 通知失败只记录日志，永远不影响调用方。
type QueueNotifier struct {
	client *queue.Client
}

// NewQueueNotifier 创建队列通知器
func NewQueueNotifier(client *queue.Client) *QueueNotifier {
	return &QueueNotifier{client: client}
}

// Notify 推送活动事件通知
func (n *QueueNotifier) Notify(dealID, userID uint, eventType string) {
	if n == nil || n.client == nil {
		return
	}
	err := n.client.EnqueueDealNotify(queue.DealNotifyPayload{
		DealID:    dealID,
		UserID:    userID,
		EventType: eventType,
	})
	if err != nil {
		logger.Warnw("deal_notify_enqueue_failed",
			"deal_id", dealID,
			"user_id", userID,
			"event_type", eventType,
			"error", err,
		)
	}
}
