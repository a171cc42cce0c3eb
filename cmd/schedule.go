package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/phuslu/log"
	"github.com/posix4e/btc-mnav-rainbow/config"
	"github.com/posix4e/btc-mnav-rainbow/workflow"
	"github.com/robfig/cron/v3"
)

// Schedule 按 cron 表达式 (含秒) 定时刷新, 直到 ctx 取消。
// 上一次刷新未结束时跳过本次触发。
func Schedule(ctx context.Context, cfg *config.Config, runNow bool) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	var mu sync.Mutex
	refresh := func() {
		if !mu.TryLock() {
			log.Warn().Msg("⏳ 上一次刷新仍在运行, 跳过")
			return
		}
		defer mu.Unlock()

		if _, _, err := workflow.Refresh(ctx, db, cfg); err != nil {
			log.Error().Err(err).Msg("🚨 定时刷新失败")
		}
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(cfg.Schedule.Cron, refresh); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}

	if runNow {
		refresh()
	}

	c.Start()
	log.Info().Str("cron", cfg.Schedule.Cron).Msg("⏰ 定时任务已启动")

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	log.Info().Msg("👋 定时任务已停止")
	return nil
}
