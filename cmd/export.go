package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/phuslu/log"
	"github.com/posix4e/btc-mnav-rainbow/calc"
	"github.com/posix4e/btc-mnav-rainbow/config"
	"github.com/posix4e/btc-mnav-rainbow/model"
	"github.com/posix4e/btc-mnav-rainbow/utils"
	"github.com/posix4e/btc-mnav-rainbow/workflow"
)

// Export 用库中每条序列最近一次拟合的模型重新导出图表数据, 不重新拟合。
// withCSV 时额外导出 MNAV 与模型历史的 CSV。
func Export(cfg *config.Config, withCSV bool) error {
	start := time.Now()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	models, err := db.QueryLatestModels()
	if err != nil {
		return fmt.Errorf("failed to query latest models: %w", err)
	}
	if len(models) == 0 {
		log.Warn().Msg("🟡 库中没有模型, 请先执行 refresh")
	}

	runID := ""
	for _, m := range models {
		if m.Series == calc.SeriesBTC {
			runID = m.RunID
		}
	}

	if _, err := workflow.Export(db, cfg, runID, time.Now().UTC(), models); err != nil {
		return err
	}

	if withCSV {
		if err := utils.EnsureOutputDir(cfg.Output.Dir); err != nil {
			return err
		}
		dumps := []struct {
			table, order, file string
		}{
			{model.TableMnav.TableName, "date", "mnav.csv"},
			{model.TableModels.TableName, "fitted_at, series", "models.csv"},
		}
		for _, d := range dumps {
			if err := db.CopyToCSV(d.table, d.order, filepath.Join(cfg.Output.Dir, d.file)); err != nil {
				return err
			}
		}
		log.Info().Str("dir", cfg.Output.Dir).Msg("📄 CSV 导出成功")
	}

	log.Info().Dur("elapsed", time.Since(start)).Msg("✅ 导出完成")
	return nil
}
