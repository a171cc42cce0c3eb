package database

import (
	"fmt"
	"strings"

	"github.com/posix4e/btc-mnav-rainbow/database/duckdb"
	"github.com/posix4e/btc-mnav-rainbow/model"
)

func NewDatabase(cfg model.DBConfig) (DataRepository, error) {
	switch cfg.Type {
	case model.DBTypeDuckDB:
		return duckdb.NewDriver(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported db type: %s", cfg.Type)
	}
}

// NewDB 按路径推断数据库类型, 目前只支持 DuckDB 文件或 duckdb:// 前缀
func NewDB(uri string) (DataRepository, error) {
	dsn := strings.TrimPrefix(uri, "duckdb://")
	if strings.Contains(dsn, "://") {
		return nil, fmt.Errorf("unsupported database uri: %s", uri)
	}
	return NewDatabase(model.DBConfig{Type: model.DBTypeDuckDB, DSN: dsn})
}

// Open 创建, 连接并初始化表结构
func Open(uri string) (DataRepository, error) {
	db, err := NewDB(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}
	if err := db.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.InitSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}
