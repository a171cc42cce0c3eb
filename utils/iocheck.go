package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

var (
	ErrInputMissing = errors.New("does not exist")
	ErrInputNotFile = errors.New("is not a regular file")
	ErrInputEmpty   = errors.New("is empty")
)

// CheckInput 在导入前确认输入文件存在, 是非空的普通文件且可读。
// kind 描述输入的用途, 例如 "btc prices", 出现在错误信息里。
func CheckInput(kind, path string) error {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%s input %s %w", kind, path, ErrInputMissing)
	case err != nil:
		return fmt.Errorf("%s input %s: %w", kind, path, err)
	case !info.Mode().IsRegular():
		return fmt.Errorf("%s input %s %w", kind, path, ErrInputNotFile)
	case info.Size() == 0:
		return fmt.Errorf("%s input %s %w", kind, path, ErrInputEmpty)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%s input %s is not readable: %w", kind, path, err)
	}
	return f.Close()
}

// EnsureOutputDir 创建导出目录 (含父目录) 并确认可以写入文件
func EnsureOutputDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("export directory %s: %w", path, err)
	}
	f, err := os.CreateTemp(path, ".rainbow-write-*")
	if err != nil {
		return fmt.Errorf("export directory %s is not writable: %w", path, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
