package cmd

import (
	"fmt"

	"github.com/phuslu/log"
	"github.com/posix4e/btc-mnav-rainbow/config"
	"github.com/posix4e/btc-mnav-rainbow/model"
)

// Init 创建数据库文件与全部表结构, 可重复执行
func Init(cfg *config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, meta := range model.AllTables() {
		n, err := db.CountRows(meta.TableName)
		if err != nil {
			return fmt.Errorf("failed to check table %s: %w", meta.TableName, err)
		}
		log.Info().Str("table", meta.TableName).Int64("rows", n).Msg("📦 表已就绪")
	}

	log.Info().Str("path", cfg.Database.Path).Msg("🚀 数据库初始化完成")
	return nil
}
