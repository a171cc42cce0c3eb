package utils

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/guregu/null/v6"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type csvRow struct {
	Date     time.Time  `col:"date" type:"date"`
	At       time.Time  `col:"at"`
	Kind     string     `col:"kind"`
	Value    null.Float `col:"value"`
	Plain    float64    `col:"plain"`
	Count    int64      `col:"count"`
	Internal string     `col:"-"`
}

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.csv")
	rows := []csvRow{
		{
			Date:     time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			At:       time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
			Kind:     "STRK",
			Value:    null.FloatFrom(1.5),
			Plain:    1e9,
			Count:    3,
			Internal: "hidden",
		},
		{Kind: "empty"},
	}

	require.NoError(t, WriteCSV(path, rows))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"date,at,kind,value,plain,count\n"+
			"2024-01-02,2024-01-02 03:04:05,STRK,1.5,1000000000,3\n"+
			",,empty,,0,0\n",
		string(data))
}

func TestCSVWriter_HeaderOnlyWhenEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, WriteCSV[csvRow](path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "date,at,kind,value,plain,count\n", string(data))
}

func TestCSVWriter_RejectsNonStruct(t *testing.T) {
	_, err := NewCSVWriter[int](filepath.Join(t.TempDir(), "x.csv"))
	assert.Error(t, err)
}

type parquetRow struct {
	Name  string   `parquet:"name"`
	Value *float64 `parquet:"value"`
}

func TestParquetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.parquet")
	v := 2.5
	rows := []parquetRow{{Name: "a", Value: &v}, {Name: "b"}}

	require.NoError(t, WriteParquet(path, rows))

	got, err := ReadParquet[parquetRow](path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name)
	require.NotNil(t, got[0].Value)
	assert.Equal(t, 2.5, *got[0].Value)
	assert.Nil(t, got[1].Value)
}

func TestPipeline_Run(t *testing.T) {
	p := NewPipeline[int, int](WithConcurrency(2))

	var mu sync.Mutex
	var sum int
	res, err := p.Run(context.Background(), []int{1, 2, 3, 4},
		func(ctx context.Context, n int) ([]int, error) {
			if n == 3 {
				return nil, errors.New("boom")
			}
			if n == 4 {
				panic("bad input")
			}
			return []int{n, n * 10}, nil
		},
		func(rows []int) error {
			mu.Lock()
			defer mu.Unlock()
			for _, r := range rows {
				sum += r
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalItems)
	assert.Equal(t, int64(2), res.ProcessedItems)
	assert.Equal(t, int64(4), res.OutputRows)
	assert.Equal(t, 33, sum)
	assert.True(t, res.HasErrors())
	assert.Len(t, res.Errors, 2)
	assert.NotEmpty(t, res.ErrorSummary())
}

func TestPipeline_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPipeline[int, int](WithConcurrency(1))
	res, err := p.Run(ctx, []int{1, 2}, func(ctx context.Context, n int) ([]int, error) {
		return nil, ctx.Err()
	}, func(rows []int) error { return nil })

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), res.ProcessedItems)
}

func TestPipeline_Empty(t *testing.T) {
	p := NewPipeline[int, int]()
	res, err := p.Run(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	assert.False(t, res.HasErrors())
	assert.NoError(t, res.FirstError())
}

func TestEnsureOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	require.NoError(t, EnsureOutputDir(dir))
	require.NoError(t, EnsureOutputDir(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	assert.Error(t, EnsureOutputDir(file))
}

func TestCheckInput(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "btc.csv")
	require.NoError(t, os.WriteFile(file, []byte("date,btc_price_usd\n"), 0o644))
	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	assert.NoError(t, CheckInput("btc prices", file))

	tests := []struct {
		name string
		path string
		want error
	}{
		{"missing", filepath.Join(dir, "missing.csv"), ErrInputMissing},
		{"directory", dir, ErrInputNotFile},
		{"empty", empty, ErrInputEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckInput("btc prices", tt.path)
			require.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "btc prices input "+tt.path)
		})
	}
}

func TestStagingDir(t *testing.T) {
	a, err := StagingDir("run")
	require.NoError(t, err)
	defer os.RemoveAll(a)
	b, err := StagingDir("run")
	require.NoError(t, err)
	defer os.RemoveAll(b)

	assert.NotEqual(t, a, b)
	assert.DirExists(t, a)
}
