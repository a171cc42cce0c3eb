package utils

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
)

type ParquetWriter[T any] struct {
	file   *os.File
	writer *parquet.GenericWriter[T]
	rows   int64
}

// NewParquetWriter 默认 Snappy 压缩, options 追加在默认配置之后
func NewParquetWriter[T any](filename string, options ...parquet.WriterOption) (*ParquetWriter[T], error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	opts := append([]parquet.WriterOption{
		parquet.Compression(&parquet.Snappy),
		parquet.PageBufferSize(64 * 1024),
	}, options...)

	return &ParquetWriter[T]{
		file:   f,
		writer: parquet.NewGenericWriter[T](f, opts...),
	}, nil
}

func (p *ParquetWriter[T]) Write(data []T) error {
	n, err := p.writer.Write(data)
	p.rows += int64(n)
	return err
}

func (p *ParquetWriter[T]) Rows() int64 {
	return p.rows
}

// Close 先写 footer 再关文件
func (p *ParquetWriter[T]) Close() error {
	if err := p.writer.Close(); err != nil {
		p.file.Close()
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	if err := p.file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}

// WriteParquet 一次性写出整个切片
func WriteParquet[T any](path string, data []T, options ...parquet.WriterOption) error {
	pw, err := NewParquetWriter[T](path, options...)
	if err != nil {
		return err
	}
	if err := pw.Write(data); err != nil {
		pw.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return pw.Close()
}

func ReadParquet[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return rows, nil
}
