package utils

import (
	"encoding/csv"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/guregu/null/v6"
)

type columnKind int

const (
	kindPlain columnKind = iota
	kindTime
	kindFloat
	kindNullFloat
)

var (
	timeType      = reflect.TypeOf(time.Time{})
	nullFloatType = reflect.TypeOf(null.Float{})
)

// CSVWriter 按 col 标签把结构体写成 CSV, 供 DuckDB read_csv 导入
type CSVWriter[T any] struct {
	file          *os.File
	writer        *csv.Writer
	headerWritten bool
	columns       []columnInfo
	rows          int
}

type columnInfo struct {
	Index      int
	HeaderName string
	Kind       columnKind
	IsDateType bool // type:"date" 只写 YYYY-MM-DD
}

func NewCSVWriter[T any](filename string) (*CSVWriter[T], error) {
	cols, err := csvColumns[T]()
	if err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return &CSVWriter[T]{
		file:    f,
		writer:  csv.NewWriter(f),
		columns: cols,
	}, nil
}

func csvColumns[T any]() ([]columnInfo, error) {
	var zero T
	typ := reflect.TypeOf(zero)
	if typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("generic type T must be a struct")
	}

	var cols []columnInfo
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}

		name := field.Tag.Get("col")
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}

		kind := kindPlain
		switch {
		case field.Type == timeType:
			kind = kindTime
		case field.Type == nullFloatType:
			kind = kindNullFloat
		case field.Type.Kind() == reflect.Float64 || field.Type.Kind() == reflect.Float32:
			kind = kindFloat
		}

		cols = append(cols, columnInfo{
			Index:      i,
			HeaderName: name,
			Kind:       kind,
			IsDateType: field.Tag.Get("type") == "date",
		})
	}
	return cols, nil
}

// Write 写入一批数据; 第一次写入时输出表头
func (cw *CSVWriter[T]) Write(data []T) error {
	if !cw.headerWritten {
		if err := cw.writeHeader(); err != nil {
			return err
		}
	}

	record := make([]string, len(cw.columns))
	for _, item := range data {
		val := reflect.ValueOf(item)
		if val.Kind() == reflect.Ptr {
			val = val.Elem()
		}

		for i, col := range cw.columns {
			record[i] = col.format(val.Field(col.Index))
		}

		if err := cw.writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
		cw.rows++
	}

	return nil
}

func (cw *CSVWriter[T]) writeHeader() error {
	headers := make([]string, len(cw.columns))
	for i, col := range cw.columns {
		headers[i] = col.HeaderName
	}
	if err := cw.writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	cw.headerWritten = true
	return nil
}

// format null 与零时间写成空串, DuckDB 读入为 NULL
func (c columnInfo) format(v reflect.Value) string {
	switch c.Kind {
	case kindTime:
		t := v.Interface().(time.Time)
		if t.IsZero() {
			return ""
		}
		if c.IsDateType {
			return t.Format("2006-01-02")
		}
		return t.Format("2006-01-02 15:04:05")
	case kindNullFloat:
		n := v.Interface().(null.Float)
		if !n.Valid {
			return ""
		}
		return strconv.FormatFloat(n.Float64, 'f', -1, 64)
	case kindFloat:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	default:
		return fmt.Sprint(v.Interface())
	}
}

// Rows 已写入的数据行数
func (cw *CSVWriter[T]) Rows() int {
	return cw.rows
}

func (cw *CSVWriter[T]) Close() error {
	if !cw.headerWritten {
		if err := cw.writeHeader(); err != nil {
			cw.file.Close()
			return err
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		cw.file.Close()
		return fmt.Errorf("failed to flush: %w", err)
	}
	return cw.file.Close()
}

// WriteCSV 一次性写出整个切片
func WriteCSV[T any](path string, data []T) error {
	cw, err := NewCSVWriter[T](path)
	if err != nil {
		return err
	}
	if err := cw.Write(data); err != nil {
		cw.Close()
		return err
	}
	return cw.Close()
}
