// Package worker runs batches of grid generation jobs in parallel. Each job
// renders on a single goroutine; parallelism is across jobs only.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MeKo-Tech/wangtiles/internal/pipeline"
)

// Generator matches pipeline.Generator.Generate.
type Generator interface {
	Generate(ctx context.Context, job pipeline.Job) (pipeline.Result, error)
}

// Task is a single job plus its position in the batch. Run sets Index.
type Task struct {
	Job   pipeline.Job
	Index int
}

// Result is the outcome of a task.
type Result struct {
	Err     error
	Task    Task
	Output  pipeline.Result
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the worker pool.
type Config struct {
	Generator  Generator
	OnProgress ProgressFunc
	Workers    int
}

// Pool manages parallel grid generation.
type Pool struct {
	generator  Generator
	onProgress ProgressFunc
	workers    int
}

// New creates a new worker pool. Workers defaults to 1.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:    workers,
		generator:  cfg.Generator,
		onProgress: cfg.OnProgress,
	}
}

// SeedTasks builds count tasks with consecutive seeds starting at first.
// Names are "<base>-<seed>".
func SeedTasks(base string, first int64, count int, force bool) []Task {
	tasks := make([]Task, count)
	for i := range tasks {
		seed := first + int64(i)
		tasks[i] = Task{
			Index: i,
			Job: pipeline.Job{
				Name:  nameFor(base, seed),
				Seed:  seed,
				Force: force,
			},
		}
	}
	return tasks
}

func nameFor(base string, seed int64) string {
	if base == "" {
		base = pipeline.DefaultName
	}
	return fmt.Sprintf("%s-%d", base, seed)
}

// Run executes all tasks and returns one result per task, ordered by
// Task.Index. It blocks until every task finished or was cancelled.
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	taskCh := make(chan Task)
	resultCh := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	go func() {
		defer close(taskCh)
		for i, task := range tasks {
			task.Index = i
			taskCh <- task
		}
	}()

	results := make([]Result, len(tasks))
	done := make(chan struct{})
	go func() {
		defer close(done)
		completed, failed := 0, 0
		for result := range resultCh {
			results[result.Task.Index] = result
			completed++
			if result.Err != nil {
				failed++
			}
			if p.onProgress != nil {
				p.onProgress(completed, len(tasks), failed)
			}
		}
	}()

	wg.Wait()
	close(resultCh)
	<-done

	return results
}

// worker drains tasks. After cancellation remaining tasks are reported
// with the context error instead of being run.
func (p *Pool) worker(ctx context.Context, tasks <-chan Task, results chan<- Result) {
	for task := range tasks {
		if err := ctx.Err(); err != nil {
			results <- Result{Task: task, Err: err}
			continue
		}

		start := time.Now()
		out, err := p.generator.Generate(ctx, task.Job)
		results <- Result{
			Task:    task,
			Output:  out,
			Err:     err,
			Elapsed: time.Since(start),
		}
	}
}
