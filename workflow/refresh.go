package workflow

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"github.com/posix4e/btc-mnav-rainbow/config"
	"github.com/posix4e/btc-mnav-rainbow/database"
	"github.com/posix4e/btc-mnav-rainbow/utils"
)

// Refresh 执行一次完整刷新, 返回本次运行的 run id 与执行器 (用于查看各任务结果)
func Refresh(ctx context.Context, db database.DataRepository, cfg *config.Config) (string, *TaskExecutor, error) {
	runID := uuid.NewString()

	staging, err := utils.StagingDir(runID)
	if err != nil {
		return runID, nil, fmt.Errorf("failed to create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	args := &TaskArgs{
		Config:     cfg,
		RunID:      runID,
		StagingDir: staging,
		Now:        time.Now().UTC().Truncate(time.Second),
	}

	start := time.Now()
	log.Info().Str("run_id", runID).Msg("🛠️ 开始刷新")

	executor := NewTaskExecutor(db, GetRegisteredTasks())
	if err := executor.Run(ctx, GetRefreshTaskNames(), args); err != nil {
		return runID, executor, fmt.Errorf("workflow execution failed: %w", err)
	}

	log.Info().Str("run_id", runID).Dur("elapsed", time.Since(start)).Msg("✅ 刷新完成")
	return runID, executor, nil
}
