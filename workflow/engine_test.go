package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/posix4e/btc-mnav-rainbow/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) task(name string, deps ...string) *Task {
	return &Task{
		Name:      name,
		DependsOn: deps,
		Executor: func(ctx context.Context, db database.DataRepository, args *TaskArgs) (*TaskResult, error) {
			r.mu.Lock()
			r.order = append(r.order, name)
			r.mu.Unlock()
			return nil, nil
		},
	}
}

func taskMap(tasks ...*Task) map[string]*Task {
	m := make(map[string]*Task, len(tasks))
	for _, t := range tasks {
		m[t.Name] = t
	}
	return m
}

func failing(name string, mode ErrorMode, deps ...string) *Task {
	return &Task{
		Name:      name,
		DependsOn: deps,
		OnError:   mode,
		Executor: func(ctx context.Context, db database.DataRepository, args *TaskArgs) (*TaskResult, error) {
			return nil, errors.New("boom")
		},
	}
}

func TestRun_DependencyOrder(t *testing.T) {
	rec := &recorder{}
	te := NewTaskExecutor(nil, taskMap(
		rec.task("fit", "mnav"),
		rec.task("mnav", "capital", "btc"),
		rec.task("btc"),
		rec.task("capital"),
	))

	require.NoError(t, te.Run(context.Background(), []string{"fit", "mnav", "btc", "capital"}, &TaskArgs{}))

	require.Len(t, rec.order, 4)
	assert.ElementsMatch(t, []string{"btc", "capital"}, rec.order[:2])
	assert.Equal(t, []string{"mnav", "fit"}, rec.order[2:])
	assert.Equal(t, StateCompleted, te.Result("fit").State)
}

func TestRun_DependencyOutsideRunIsSatisfied(t *testing.T) {
	rec := &recorder{}
	te := NewTaskExecutor(nil, taskMap(rec.task("a"), rec.task("b", "a")))

	require.NoError(t, te.Run(context.Background(), []string{"b"}, &TaskArgs{}))
	assert.Equal(t, []string{"b"}, rec.order)
	assert.Nil(t, te.Result("a"))
}

func TestRun_SkipModePropagatesToDependents(t *testing.T) {
	rec := &recorder{}
	te := NewTaskExecutor(nil, taskMap(
		failing("a", ErrorModeSkip),
		rec.task("b", "a"),
		rec.task("c", "b"),
		rec.task("d"),
	))

	require.NoError(t, te.Run(context.Background(), []string{"a", "b", "c", "d"}, &TaskArgs{}))

	assert.Equal(t, []string{"d"}, rec.order)
	assert.Equal(t, StateFailed, te.Result("a").State)
	for _, name := range []string{"b", "c"} {
		res := te.Result(name)
		require.NotNil(t, res, name)
		assert.Equal(t, StateSkipped, res.State, name)
		assert.Equal(t, msgDependencyFailed, res.Message, name)
	}
}

func TestRun_StopModeReturnsError(t *testing.T) {
	rec := &recorder{}
	te := NewTaskExecutor(nil, taskMap(failing("a", ErrorModeStop), rec.task("b", "a")))

	err := te.Run(context.Background(), []string{"a", "b"}, &TaskArgs{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task a failed")
	assert.Empty(t, rec.order)
}

func TestRun_SkipIfAndPanic(t *testing.T) {
	rec := &recorder{}
	skipped := rec.task("skipped")
	skipped.SkipIf = func(ctx context.Context, db database.DataRepository, args *TaskArgs) bool { return true }

	panicky := &Task{
		Name:    "panicky",
		OnError: ErrorModeSkip,
		Executor: func(ctx context.Context, db database.DataRepository, args *TaskArgs) (*TaskResult, error) {
			panic("bad input")
		},
	}

	te := NewTaskExecutor(nil, taskMap(skipped, panicky, rec.task("after", "skipped")))
	require.NoError(t, te.Run(context.Background(), []string{"skipped", "panicky", "after"}, &TaskArgs{}))

	assert.Equal(t, StateSkipped, te.Result("skipped").State)
	assert.Equal(t, []string{"after"}, rec.order)

	res := te.Result("panicky")
	assert.Equal(t, StateFailed, res.State)
	assert.ErrorContains(t, res.Error, "bad input")
}

func TestRun_UnknownTaskAndCycle(t *testing.T) {
	rec := &recorder{}
	te := NewTaskExecutor(nil, taskMap(rec.task("a", "b"), rec.task("b", "a")))

	assert.Error(t, te.Run(context.Background(), []string{"missing"}, &TaskArgs{}))
	assert.ErrorContains(t, te.Run(context.Background(), []string{"a", "b"}, &TaskArgs{}), "circular")
}

func TestRun_CanceledContext(t *testing.T) {
	rec := &recorder{}
	te := NewTaskExecutor(nil, taskMap(rec.task("a")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, te.Run(ctx, []string{"a"}, &TaskArgs{}), context.Canceled)
}

func TestRegisteredTasks(t *testing.T) {
	te := NewTaskExecutor(nil, GetRegisteredTasks())
	for _, name := range GetRefreshTaskNames() {
		assert.True(t, te.HasTask(name), name)
	}
	assert.Len(t, te.GetTaskNames(), len(GetRefreshTaskNames()))
}
