package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/guregu/null/v6"
)

// table 是读入内存的 CSV, 列名已归一化
type table struct {
	index map[string]int
	rows  [][]string
}

func openTable(path string) (*table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	t, err := readTable(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

func readTable(r io.Reader) (*table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return &table{index: map[string]int{}}, nil
	}
	if err != nil {
		return nil, err
	}

	t := &table{index: make(map[string]int, len(header))}
	for i, name := range header {
		t.index[normalizeColumn(name)] = i
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		t.rows = append(t.rows, record)
	}
	return t, nil
}

// normalizeColumn "# date" -> "date", 去掉 BOM 与大小写差异
func normalizeColumn(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.TrimSpace(name)
	name = strings.TrimLeft(name, "# ")
	return strings.ToLower(name)
}

func (t *table) has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// get 依次尝试候选列名, 返回第一个非空值
func (t *table) get(row []string, cols ...string) string {
	for _, c := range cols {
		i, ok := t.index[c]
		if !ok || i >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[i]); v != "" {
			return v
		}
	}
	return ""
}

// parseDate 接受 YYYY-MM-DD, 忽略其后的时间部分
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " T"); i >= 0 {
		s = s[:i]
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return time.Time{}, err
	}
	return d.In(time.UTC), nil
}

// parseNullable 无法解析或非有限值返回 null
func parseNullable(s string) null.Float {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return null.Float{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return null.Float{}
	}
	return null.FloatFrom(v)
}
