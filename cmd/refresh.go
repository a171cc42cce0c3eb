package cmd

import (
	"context"

	"github.com/posix4e/btc-mnav-rainbow/config"
	"github.com/posix4e/btc-mnav-rainbow/workflow"
)

// Refresh 导入输入文件, 计算 MNAV, 拟合模型并导出图表数据
func Refresh(ctx context.Context, cfg *config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := ctx.Err(); err != nil {
		return err
	}

	_, _, err = workflow.Refresh(ctx, db, cfg)
	return err
}
