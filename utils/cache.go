package utils

import (
	"os"
	"path/filepath"
)

const appName = "btc-mnav-rainbow"

// StagingDir 为一次运行创建独立的临时目录, 存放导入前的规范化 CSV
func StagingDir(runID string) (string, error) {
	base := filepath.Join(os.TempDir(), appName)
	if err := os.MkdirAll(base, 0755); err != nil {
		return "", err
	}
	return os.MkdirTemp(base, runID+"-")
}
