package worker

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/promodeal-next/internal/config"
	"github.com/promodeal-next/internal/logger"
	"github.com/promodeal-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 异步队列服务，同时承载活动生命周期巡检
type Service struct {
	name          string
	server        *asynq.Server
	mux           *asynq.ServeMux
	consumer      *Consumer
	sweepInterval time.Duration
	sweepJitter   time.Duration
}

// NewService 创建异步队列服务
func NewService(cfg *config.Config, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Queue.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(&cfg.Queue)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)

	sweepInterval := time.Duration(cfg.Deal.SweepIntervalSeconds) * time.Second
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	sweepJitter := time.Duration(cfg.Deal.SweepJitterSeconds) * time.Second
	if sweepJitter < 0 {
		sweepJitter = 0
	}

	return &Service{
		name:          "worker",
		server:        server,
		mux:           mux,
		consumer:      consumer,
		sweepInterval: sweepInterval,
		sweepJitter:   sweepJitter,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.LifecycleService != nil {
		go s.runLifecycleSweepLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runLifecycleSweepLoop 周期性执行生命周期巡检。
// 间隔附加随机抖动，避免多实例同刻扫库。巡检本身幂等，重叠调度安全。
func (s *Service) runLifecycleSweepLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.LifecycleService == nil {
		return
	}
	runOnce := func() {
		activated, ended, err := s.consumer.LifecycleService.Sweep(time.Now())
		if err != nil {
			logger.Warnw("worker_deal_lifecycle_sweep_failed", "error", err)
			return
		}
		if activated > 0 || ended > 0 {
			logger.Infow("worker_deal_lifecycle_sweep", "activated", activated, "ended", ended)
		}
	}
	runOnce()

	for {
		interval := s.sweepInterval
		if s.sweepJitter > 0 {
			interval += time.Duration(rand.Int63n(int64(s.sweepJitter)))
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			runOnce()
		}
	}
}
