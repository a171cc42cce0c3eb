package workflow

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/phuslu/log"
	"github.com/posix4e/btc-mnav-rainbow/config"
	"github.com/posix4e/btc-mnav-rainbow/database"
)

// TaskState represents the state of a task execution
type TaskState string

const (
	StatePending   TaskState = "pending"
	StateRunning   TaskState = "running"
	StateCompleted TaskState = "completed"
	StateSkipped   TaskState = "skipped"
	StateFailed    TaskState = "failed"
)

// TaskResult holds the execution result of a task
type TaskResult struct {
	State    TaskState
	Rows     int
	Message  string
	Error    error
	Duration time.Duration
}

const msgDependencyFailed = "dependency failed"

type ErrorMode int

const (
	ErrorModeStop ErrorMode = iota
	ErrorModeSkip
)

// TaskFunc is the function that executes a task
type TaskFunc func(ctx context.Context, db database.DataRepository, args *TaskArgs) (*TaskResult, error)

// SkipCondition determines if a task should be skipped
type SkipCondition func(ctx context.Context, db database.DataRepository, args *TaskArgs) bool

// Task represents a unit of work with dependencies
type Task struct {
	Name      string
	DependsOn []string
	Executor  TaskFunc
	SkipIf    SkipCondition
	OnError   ErrorMode
}

// TaskArgs 一次运行共享的只读参数
type TaskArgs struct {
	Config     *config.Config
	RunID      string
	StagingDir string
	Now        time.Time
}

// TaskExecutor manages and executes tasks with dependency resolution
type TaskExecutor struct {
	db    database.DataRepository
	tasks map[string]*Task

	mu      sync.Mutex
	results map[string]*TaskResult
}

func NewTaskExecutor(db database.DataRepository, tasks map[string]*Task) *TaskExecutor {
	return &TaskExecutor{
		db:    db,
		tasks: tasks,
	}
}

// Run 按依赖顺序执行任务, 同一批就绪的任务并发执行。
// 依赖失败 (ErrorModeSkip) 的任务直接标记为跳过。
func (te *TaskExecutor) Run(ctx context.Context, taskNames []string, args *TaskArgs) error {
	te.mu.Lock()
	te.results = make(map[string]*TaskResult)
	te.mu.Unlock()

	if len(taskNames) == 0 {
		return nil
	}

	order, err := te.topologicalSort(taskNames)
	if err != nil {
		return fmt.Errorf("failed to resolve task dependencies: %w", err)
	}

	pending := make(map[string]bool, len(order))
	for _, name := range order {
		pending[name] = true
	}

	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		ready, blocked := te.findReadyTasks(pending)
		for _, name := range blocked {
			log.Warn().Str("task", name).Msg("⏭️ 依赖任务失败, 跳过")
			te.setResult(name, &TaskResult{State: StateSkipped, Message: msgDependencyFailed})
			delete(pending, name)
		}
		if len(ready) == 0 {
			if len(blocked) > 0 {
				continue
			}
			return fmt.Errorf("circular dependency detected or no ready tasks")
		}

		var wg sync.WaitGroup
		for _, name := range ready {
			task := te.tasks[name]

			if task.SkipIf != nil && task.SkipIf(ctx, te.db, args) {
				log.Debug().Str("task", name).Msg("🌲 条件不满足, 跳过")
				te.setResult(name, &TaskResult{State: StateSkipped, Message: "skipped by condition"})
				continue
			}

			wg.Add(1)
			go func(t *Task) {
				defer wg.Done()
				te.setResult(t.Name, te.executeTask(ctx, t, args))
			}(task)
		}
		wg.Wait()

		for _, name := range ready {
			delete(pending, name)
			result := te.Result(name)
			if result.Error == nil {
				continue
			}
			if te.tasks[name].OnError == ErrorModeStop {
				return fmt.Errorf("task %s failed: %w", name, result.Error)
			}
			log.Warn().Str("task", name).Err(result.Error).Msg("🚨 任务失败, 继续执行")
		}
	}

	return nil
}

func (te *TaskExecutor) executeTask(ctx context.Context, task *Task, args *TaskArgs) (result *TaskResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = &TaskResult{State: StateFailed, Error: fmt.Errorf("panic: %v", r)}
		}
		result.Duration = time.Since(start)
		log.Debug().Str("task", task.Name).Str("state", string(result.State)).
			Dur("duration", result.Duration).Msg("task finished")
	}()

	res, err := task.Executor(ctx, te.db, args)
	if err != nil {
		return &TaskResult{State: StateFailed, Error: err}
	}
	if res == nil {
		return &TaskResult{State: StateCompleted}
	}
	return res
}

func (te *TaskExecutor) setResult(name string, r *TaskResult) {
	te.mu.Lock()
	te.results[name] = r
	te.mu.Unlock()
}

// Result 返回最近一次 Run 中任务的结果, 未执行返回 nil
func (te *TaskExecutor) Result(name string) *TaskResult {
	te.mu.Lock()
	defer te.mu.Unlock()
	return te.results[name]
}

func (te *TaskExecutor) topologicalSort(taskNames []string) ([]string, error) {
	inDegree := make(map[string]int)
	adj := make(map[string][]string)
	taskSet := make(map[string]bool)

	for _, name := range taskNames {
		if _, exists := te.tasks[name]; !exists {
			return nil, fmt.Errorf("task %s not found", name)
		}
		taskSet[name] = true
		inDegree[name] = 0
	}

	for _, name := range taskNames {
		for _, dep := range te.tasks[name].DependsOn {
			if !taskSet[dep] {
				continue
			}
			adj[dep] = append(adj[dep], name)
			inDegree[name]++
		}
	}

	var queue []string
	for _, name := range taskNames {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	var order []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		for _, next := range adj[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(taskNames) {
		return nil, fmt.Errorf("circular dependency detected")
	}
	return order, nil
}

// findReadyTasks 只看本次运行中的依赖; 不在本次运行中的依赖视为已满足
func (te *TaskExecutor) findReadyTasks(pending map[string]bool) (ready, blocked []string) {
	te.mu.Lock()
	defer te.mu.Unlock()

	for name := range pending {
		ok := true
		failed := false
		for _, dep := range te.tasks[name].DependsOn {
			if pending[dep] {
				ok = false
				break
			}
			result, ran := te.results[dep]
			if !ran {
				continue
			}
			if result.State == StateFailed || result.Error != nil ||
				(result.State == StateSkipped && result.Message == msgDependencyFailed) {
				failed = true
			}
		}
		switch {
		case !ok:
		case failed:
			blocked = append(blocked, name)
		default:
			ready = append(ready, name)
		}
	}

	sort.Strings(ready)
	sort.Strings(blocked)
	return ready, blocked
}

func (te *TaskExecutor) GetTaskNames() []string {
	names := make([]string, 0, len(te.tasks))
	for name := range te.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (te *TaskExecutor) HasTask(name string) bool {
	_, exists := te.tasks[name]
	return exists
}
