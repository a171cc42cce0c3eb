package utils

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// PipelineResult 执行结果统计
type PipelineResult struct {
	TotalItems     int
	ProcessedItems int64
	OutputRows     int64
	Errors         []error
	Duration       time.Duration
}

// Pipeline 有界并发的 处理->汇总 管道, consume 只在单个 goroutine 中调用
type Pipeline[I, O any] struct {
	concurrency int
	bufferSize  int

	processedItems atomic.Int64
	outputRows     atomic.Int64

	errors []error
	errMu  sync.Mutex
}

type PipelineOption func(*pipelineConfig)

type pipelineConfig struct {
	concurrency int
	bufferSize  int
}

func WithConcurrency(n int) PipelineOption {
	return func(c *pipelineConfig) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func WithBufferSize(n int) PipelineOption {
	return func(c *pipelineConfig) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

func NewPipeline[I, O any](opts ...PipelineOption) *Pipeline[I, O] {
	cfg := &pipelineConfig{concurrency: runtime.NumCPU()}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.bufferSize == 0 {
		cfg.bufferSize = cfg.concurrency * 2
	}

	return &Pipeline[I, O]{
		concurrency: cfg.concurrency,
		bufferSize:  cfg.bufferSize,
	}
}

type batchResult[O any] struct {
	Rows []O
	Err  error
}

// Run 并发执行 process, 结果交给 consume。
// 单个输入失败只记录错误, 不中断其他输入; ctx 取消后尚未开始的输入被跳过并记为错误。
func (p *Pipeline[I, O]) Run(
	ctx context.Context,
	inputs []I,
	process func(ctx context.Context, input I) ([]O, error),
	consume func(rows []O) error,
) (*PipelineResult, error) {
	start := time.Now()

	p.processedItems.Store(0)
	p.outputRows.Store(0)
	p.errMu.Lock()
	p.errors = nil
	p.errMu.Unlock()

	if len(inputs) == 0 {
		return &PipelineResult{Duration: time.Since(start)}, nil
	}

	results := make(chan batchResult[O], p.bufferSize)
	sem := make(chan struct{}, p.concurrency)

	var consumerWg sync.WaitGroup
	consumerWg.Add(1)
	go func() {
		defer consumerWg.Done()
		for batch := range results {
			if batch.Err != nil {
				p.collectError(batch.Err)
				continue
			}
			if len(batch.Rows) == 0 {
				continue
			}
			if err := consume(batch.Rows); err != nil {
				p.collectError(fmt.Errorf("consume error: %w", err))
				continue
			}
			p.outputRows.Add(int64(len(batch.Rows)))
		}
	}()

	var producerWg sync.WaitGroup
	for _, input := range inputs {
		producerWg.Add(1)
		go func() {
			defer producerWg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results <- batchResult[O]{Err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			rows, err := p.safeProcess(ctx, input, process)
			results <- batchResult[O]{Rows: rows, Err: err}
			if err == nil {
				p.processedItems.Add(1)
			}
		}()
	}

	producerWg.Wait()
	close(results)
	consumerWg.Wait()

	return &PipelineResult{
		TotalItems:     len(inputs),
		ProcessedItems: p.processedItems.Load(),
		OutputRows:     p.outputRows.Load(),
		Errors:         p.getErrors(),
		Duration:       time.Since(start),
	}, ctx.Err()
}

func (p *Pipeline[I, O]) safeProcess(
	ctx context.Context,
	input I,
	process func(ctx context.Context, input I) ([]O, error),
) (rows []O, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing input: %v", r)
		}
	}()
	return process(ctx, input)
}

func (p *Pipeline[I, O]) collectError(err error) {
	p.errMu.Lock()
	p.errors = append(p.errors, err)
	p.errMu.Unlock()
}

func (p *Pipeline[I, O]) getErrors() []error {
	p.errMu.Lock()
	defer p.errMu.Unlock()

	if len(p.errors) == 0 {
		return nil
	}
	out := make([]error, len(p.errors))
	copy(out, p.errors)
	return out
}

func (r *PipelineResult) HasErrors() bool {
	return len(r.Errors) > 0
}

func (r *PipelineResult) FirstError() error {
	if len(r.Errors) > 0 {
		return r.Errors[0]
	}
	return nil
}

func (r *PipelineResult) ErrorSummary() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return fmt.Sprintf("%d errors, first: %v", len(r.Errors), r.Errors[0])
}
