package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"election_dashboard/pkg/config"
	"election_dashboard/pkg/utils"
)

// Error variables for task management
var (
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskExists   = errors.New("task already exists")
	ErrInvalidTask  = errors.New("invalid task")
)

// TaskStatus represents the current state of a scheduled task
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusComplete  TaskStatus = "complete"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Schedules use the standard five fields with an optional leading seconds
// field, plus descriptors such as @hourly.
var scheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Task represents a scheduled task
type Task struct {
	ID          string                          `json:"id"`
	Name        string                          `json:"name"`
	Schedule    string                          `json:"schedule"`
	LastRun     time.Time                       `json:"last_run,omitempty"`
	NextRun     time.Time                       `json:"next_run,omitempty"`
	Status      TaskStatus                      `json:"status"`
	Error       error                           `json:"-"`
	LastError   string                          `json:"last_error,omitempty"`
	RetryCount  int                             `json:"retry_count"`
	MaxRetries  int                             `json:"max_retries"`
	CronID      cron.EntryID                    `json:"-"`
	ExecutionFn func(ctx context.Context) error `json:"-"`
}

// Scheduler runs tasks on cron schedules through a bounded worker pool
type Scheduler struct {
	cron       *cron.Cron
	tasks      map[string]*Task
	config     config.RefreshConfig
	logger     *zap.Logger
	metrics    *SchedulerMetrics
	workerPool chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
	mu         sync.RWMutex
}

// SchedulerMetrics tracks scheduler performance
type SchedulerMetrics struct {
	TasksScheduled  int64
	TasksCompleted  int64
	TasksFailed     int64
	AverageLatency  time.Duration
	ConcurrentTasks int
	LastUpdate      time.Time
	mu              sync.RWMutex
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg config.RefreshConfig, logger *zap.Logger) *Scheduler {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:       cron.New(cron.WithParser(scheduleParser)),
		tasks:      make(map[string]*Task),
		config:     cfg,
		logger:     logger,
		metrics:    &SchedulerMetrics{},
		workerPool: make(chan struct{}, cfg.MaxConcurrent),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins the scheduler
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler",
		zap.Int("maxConcurrent", s.config.MaxConcurrent))

	go s.collectMetrics()
	s.cron.Start()

	return nil
}

// Stop cancels running tasks and waits for them to return
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")

	s.cancel()
	<-s.cron.Stop().Done()

	return nil
}

// ScheduleTask adds a new task to the scheduler
func (s *Scheduler) ScheduleTask(task *Task) error {
	if err := validateTask(task); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("%w: %s", ErrTaskExists, task.ID)
	}

	cronID, err := s.cron.AddFunc(task.Schedule, func() {
		s.executeTask(s.ctx, task)
	})
	if err != nil {
		return fmt.Errorf("scheduling task: %w", err)
	}

	task.CronID = cronID
	task.Status = TaskStatusPending
	task.NextRun = s.cron.Entry(cronID).Next
	s.tasks[task.ID] = task

	s.metrics.mu.Lock()
	s.metrics.TasksScheduled++
	s.metrics.LastUpdate = time.Now()
	s.metrics.mu.Unlock()

	s.logger.Info("Task scheduled",
		zap.String("taskID", task.ID),
		zap.String("schedule", task.Schedule),
		zap.Time("nextRun", task.NextRun))

	return nil
}

// RunNow executes a scheduled task immediately, outside its schedule
func (s *Scheduler) RunNow(taskID string) error {
	s.mu.RLock()
	task, exists := s.tasks[taskID]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	utils.SafeGo(s.logger, func() {
		s.executeTask(s.ctx, task)
	})
	return nil
}

// UnscheduleTask removes a task from the scheduler
func (s *Scheduler) UnscheduleTask(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, exists := s.tasks[taskID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	s.cron.Remove(task.CronID)
	delete(s.tasks, taskID)

	s.logger.Info("Task unscheduled",
		zap.String("taskID", taskID))

	return nil
}

// GetTask returns a copy of a task
func (s *Scheduler) GetTask(taskID string) (Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.tasks[taskID]
	if !exists {
		return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	return *task, nil
}

// ListTasks returns copies of all scheduled tasks
func (s *Scheduler) ListTasks() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, *task)
	}

	return tasks
}

func (s *Scheduler) executeTask(ctx context.Context, task *Task) {
	if ctx.Err() != nil {
		return
	}

	select {
	case s.workerPool <- struct{}{}:
		defer func() { <-s.workerPool }()
	case <-ctx.Done():
		return
	}

	start := time.Now()

	s.mu.Lock()
	task.Status = TaskStatusRunning
	task.LastRun = start
	s.mu.Unlock()

	log := utils.LoggerWithContext(s.logger, zap.String("taskID", task.ID))
	err := s.runTaskWithRetries(ctx, task, log)
	elapsed := time.Since(start)

	s.metrics.mu.Lock()
	s.metrics.AverageLatency = (s.metrics.AverageLatency*9 + elapsed) / 10
	s.metrics.LastUpdate = time.Now()
	s.metrics.mu.Unlock()

	// Log before publishing the final status
	log.Info("Task execution completed",
		zap.Duration("duration", elapsed),
		zap.Error(err))

	s.mu.Lock()
	switch {
	case err != nil && ctx.Err() != nil:
		task.Status = TaskStatusCancelled
		task.Error = err
		task.LastError = err.Error()
	case err != nil:
		task.Status = TaskStatusFailed
		task.Error = err
		task.LastError = err.Error()
		s.metrics.mu.Lock()
		s.metrics.TasksFailed++
		s.metrics.mu.Unlock()
	default:
		task.Status = TaskStatusComplete
		task.Error = nil
		task.LastError = ""
		s.metrics.mu.Lock()
		s.metrics.TasksCompleted++
		s.metrics.mu.Unlock()
	}
	task.NextRun = s.cron.Entry(task.CronID).Next
	s.mu.Unlock()
}

func (s *Scheduler) runTaskWithRetries(ctx context.Context, task *Task, log *zap.Logger) error {
	var lastErr error

	for attempt := 0; attempt <= task.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(s.config.RetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		s.mu.Lock()
		task.RetryCount = attempt
		s.mu.Unlock()

		err := runProtected(ctx, task.ExecutionFn)
		if err == nil {
			return nil
		}
		lastErr = err
		log.Warn("Task execution failed",
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if ctx.Err() != nil {
			return err
		}
	}

	return fmt.Errorf("task failed after %d retries: %w", task.MaxRetries, lastErr)
}

// runProtected turns a panic in fn into an error
func runProtected(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(ctx)
}

func validateTask(task *Task) error {
	if task.ID == "" {
		return fmt.Errorf("%w: task ID cannot be empty", ErrInvalidTask)
	}
	if task.Schedule == "" {
		return fmt.Errorf("%w: task schedule cannot be empty", ErrInvalidTask)
	}
	if task.ExecutionFn == nil {
		return fmt.Errorf("%w: task execution function cannot be nil", ErrInvalidTask)
	}
	if task.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries cannot be negative", ErrInvalidTask)
	}
	if _, err := scheduleParser.Parse(task.Schedule); err != nil {
		return fmt.Errorf("%w: invalid cron schedule: %v", ErrInvalidTask, err)
	}

	return nil
}

func (s *Scheduler) collectMetrics() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.updateMetrics()
		}
	}
}

func (s *Scheduler) updateMetrics() {
	s.mu.RLock()
	runningTasks := 0
	for _, task := range s.tasks {
		if task.Status == TaskStatusRunning {
			runningTasks++
		}
	}
	s.mu.RUnlock()

	s.metrics.mu.Lock()
	s.metrics.ConcurrentTasks = runningTasks
	s.metrics.LastUpdate = time.Now()
	s.metrics.mu.Unlock()
}

// GetSchedulerStats returns current scheduler statistics
func (s *Scheduler) GetSchedulerStats() SchedulerStats {
	s.updateMetrics()

	s.metrics.mu.RLock()
	defer s.metrics.mu.RUnlock()

	return SchedulerStats{
		TasksScheduled:  s.metrics.TasksScheduled,
		TasksCompleted:  s.metrics.TasksCompleted,
		TasksFailed:     s.metrics.TasksFailed,
		AverageLatency:  s.metrics.AverageLatency,
		ConcurrentTasks: s.metrics.ConcurrentTasks,
		LastUpdate:      s.metrics.LastUpdate,
	}
}

// SchedulerStats represents scheduler statistics
type SchedulerStats struct {
	TasksScheduled  int64         `json:"tasks_scheduled"`
	TasksCompleted  int64         `json:"tasks_completed"`
	TasksFailed     int64         `json:"tasks_failed"`
	AverageLatency  time.Duration `json:"average_latency"`
	ConcurrentTasks int           `json:"concurrent_tasks"`
	LastUpdate      time.Time     `json:"last_update"`
}
