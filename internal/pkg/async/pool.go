// Package async runs a batch of named tasks with bounded concurrency. The
// stats dashboard uses it to fan out its independent queries.
package async

import (
	"context"
	"sync"
)

// Task is one named unit of work.
type Task struct {
	Name    string
	Execute func() (interface{}, error)
}

// Result carries a task's outcome, keyed by its name.
type Result struct {
	Name string
	Data interface{}
	Err  error
}

// Pool bounds how many tasks run at once. A Pool holds no per-batch state
// and can be reused across Execute calls.
type Pool struct {
	workerCount int
}

func NewPool(workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{workerCount: workerCount}
}

// Execute runs all tasks and blocks until every result arrived or the
// context is cancelled. A cancelled context returns the results collected so
// far; callers treat missing entries as failed branches.
func (p *Pool) Execute(ctx context.Context, tasks []Task) map[string]Result {
	var (
		mu      sync.Mutex
		results = make(map[string]Result, len(tasks))
	)

	sem := make(chan struct{}, p.workerCount)
	done := make(chan struct{})

	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for _, task := range tasks {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				wg.Wait()
				return
			}

			wg.Add(1)
			go func(t Task) {
				defer wg.Done()
				defer func() { <-sem }()

				data, err := t.Execute()
				mu.Lock()
				results[t.Name] = Result{Name: t.Name, Data: data, Err: err}
				mu.Unlock()
			}(task)
		}
		wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	// In-flight tasks may still be writing after cancellation; hand the
	// caller a stable snapshot.
	mu.Lock()
	defer mu.Unlock()
	snapshot := make(map[string]Result, len(results))
	for name, res := range results {
		snapshot[name] = res
	}
	return snapshot
}
