package cmd

import (
	"fmt"
	"os"

	"github.com/phuslu/log"
	"github.com/posix4e/btc-mnav-rainbow/config"
	"github.com/posix4e/btc-mnav-rainbow/database"
)

// SetupLogger 终端输出, 级别取自配置
func SetupLogger(cfg *config.Config) {
	log.DefaultLogger = log.Logger{
		Level:      cfg.LogLevel(),
		TimeFormat: "15:04:05",
		Writer: &log.ConsoleWriter{
			ColorOutput:    isTerminal(),
			EndWithMessage: true,
			Writer:         os.Stderr,
		},
	}
}

func isTerminal() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func openDB(cfg *config.Config) (database.DataRepository, error) {
	if cfg.Database.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	return database.Open(cfg.Database.Path)
}
