package tasks

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"booking_app_echo/internal/models"
)

// Runner executes due scheduled tasks and records their history
type Runner struct {
	db       *gorm.DB
	registry *Registry
	now      func() time.Time
}

func NewRunner(db *gorm.DB, registry *Registry) *Runner {
	return &Runner{db: db, registry: registry, now: func() time.Time { return time.Now().UTC() }}
}

// ProcessDue runs every active task whose due time has passed and returns how many ran
func (r *Runner) ProcessDue(ctx context.Context) int {
	log.Println("[Worker] Checking for pending tasks...")

	var pendingTasks []models.ScheduledTask
	if err := r.db.WithContext(ctx).
		Where("status = ? AND due <= ?", models.ScheduledTaskStatusActive, r.now()).
		Order("due asc").
		Find(&pendingTasks).Error; err != nil {
		log.Printf("[Worker] Error fetching pending tasks: %v", err)
		return 0
	}

	if len(pendingTasks) == 0 {
		log.Println("[Worker] No pending tasks found.")
		return 0
	}

	log.Printf("[Worker] Found %d pending tasks.", len(pendingTasks))

	ran := 0
	for _, task := range pendingTasks {
		if ctx.Err() != nil {
			break
		}
		r.Execute(ctx, task, 1)
		ran++
	}
	return ran
}

// Execute runs one task, retrying immediately until MaxAttempt is reached
func (r *Runner) Execute(ctx context.Context, task models.ScheduledTask, curAttempt int) {
	log.Printf("[Worker] Processing task: %s (ID: %d, attempt %d)", task.TaskName, task.ID, curAttempt)

	if task.Arguments == nil {
		task.Arguments = make(map[string]interface{})
	}

	handler, found := r.registry.Get(task.TaskName)
	if !found {
		log.Printf("[Worker] Task handler not found for: %s. Marking as failure.", task.TaskName)

		now := r.now()
		r.db.Model(&task).Updates(map[string]interface{}{
			"status":   models.ScheduledTaskStatusFailure,
			"last_run": &now,
		})

		r.db.Create(&models.ScheduledTaskHistory{
			ScheduledTaskID: task.ID,
			TaskName:        task.TaskName,
			RunAt:           now,
			Status:          "handler_not_found",
			AttemptNumber:   curAttempt,
			Arguments:       task.Arguments,
			Result:          map[string]interface{}{"error": "Handler not found"},
		})
		return
	}

	startTime := r.now()
	result, err := handler(ctx, task)
	runtimeMs := int(time.Since(startTime).Milliseconds())

	status := "success"
	resultData := result
	if err != nil {
		status = "failure"
		resultData = map[string]interface{}{"error": err.Error()}
		log.Printf("[Worker] Task %s failed: %v", task.TaskName, err)
	} else {
		log.Printf("[Worker] Task %s completed successfully.", task.TaskName)
	}

	r.db.Create(&models.ScheduledTaskHistory{
		ScheduledTaskID: task.ID,
		TaskName:        task.TaskName,
		RunAt:           startTime,
		Runtime:         runtimeMs,
		Status:          status,
		AttemptNumber:   curAttempt,
		Arguments:       task.Arguments,
		Result:          resultData,
	})

	taskUpdates := map[string]interface{}{
		"last_run": &startTime,
	}

	if status != "success" {
		if curAttempt < task.MaxAttempt && ctx.Err() == nil {
			r.Execute(ctx, task, curAttempt+1)
			return
		}
		taskUpdates["status"] = models.ScheduledTaskStatusFailure
	} else {
		switch task.TaskType {
		case models.ScheduledTaskTypeRecurring:
			// a next due that is not in the future would run the task again on every tick
			nextDue := task.NextDue()
			if nextDue.After(task.Due) {
				taskUpdates["status"] = models.ScheduledTaskStatusActive
				taskUpdates["due"] = nextDue
			} else {
				taskUpdates["status"] = models.ScheduledTaskStatusDone
			}
		default:
			taskUpdates["status"] = models.ScheduledTaskStatusDone
		}
	}

	r.db.Model(&task).Updates(taskUpdates)
}
