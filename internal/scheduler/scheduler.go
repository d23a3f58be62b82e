package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/argie33/algo-sub006/internal/logger"
)

// TaskStatus tracks a task's last outcome.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Task is one scheduled job.
type Task struct {
	Name        string
	Schedule    string
	LastRunTime time.Time
	NextRunTime time.Time
	Status      TaskStatus
	Error       string
}

// Scheduler runs periodic jobs on cron schedules. It exists so the embedding
// daemon can drive engine ticks on wall-clock cadence while the engine
// itself stays trigger-agnostic and testable without sleeps.
type Scheduler struct {
	cron    *cron.Cron
	tasks   map[string]*Task
	entries map[string]cron.EntryID
	log     logger.Logger
	mu      sync.RWMutex
}

// New creates a scheduler with second-level granularity.
func New(log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		tasks:   make(map[string]*Task),
		entries: make(map[string]cron.EntryID),
		log:     log,
	}
}

// Add registers a job under a unique name. The schedule accepts cron
// expressions with a seconds field and @every shorthand.
func (s *Scheduler) Add(name, schedule string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[name]; exists {
		return fmt.Errorf("task already registered: %s", name)
	}

	task := &Task{
		Name:     name,
		Schedule: schedule,
		Status:   TaskStatusPending,
	}

	id, err := s.cron.AddFunc(schedule, func() {
		s.run(task, fn)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for task %s: %w", schedule, name, err)
	}

	s.tasks[name] = task
	s.entries[name] = id
	return nil
}

func (s *Scheduler) run(task *Task, fn func() error) {
	s.mu.Lock()
	task.Status = TaskStatusRunning
	task.LastRunTime = time.Now()
	s.mu.Unlock()

	err := fn()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		task.Status = TaskStatusFailed
		task.Error = err.Error()
		s.log.Error("scheduled task failed", "task", task.Name, "error", err.Error())
		return
	}
	task.Status = TaskStatusCompleted
	task.Error = ""
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", "tasks", len(s.tasks))
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

// Tasks returns a snapshot of the registered tasks.
func (s *Scheduler) Tasks() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Task, 0, len(s.tasks))
	for name, task := range s.tasks {
		t := *task
		if id, ok := s.entries[name]; ok {
			t.NextRunTime = s.cron.Entry(id).Next
		}
		out = append(out, t)
	}
	return out
}
