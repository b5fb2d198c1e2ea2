package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cast"

	"booking_app_echo/internal/models"
)

// BuildScheduledTask is a helper to build ScheduledTask records generically
func BuildScheduledTask(taskName string, args interface{}, due time.Time, recurringInterval *string, taskType models.ScheduledTaskType, maxAttempt int) (*models.ScheduledTask, error) {
	argsBytes, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal args: %w", err)
	}

	var mapArgs map[string]interface{}
	if err := json.Unmarshal(argsBytes, &mapArgs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into map: %w", err)
	}

	return &models.ScheduledTask{
		TaskName:          taskName,
		Arguments:         mapArgs,
		Due:               due,
		RecurringInterval: recurringInterval,
		Status:            models.ScheduledTaskStatusActive,
		TaskType:          taskType,
		MaxAttempt:        maxAttempt,
	}, nil
}

// argString reads a string argument; numbers are formatted
func argString(task models.ScheduledTask, key string) string {
	return cast.ToString(task.Arguments[key])
}

// argInt reads an integer argument written as a JSON number or a string.
// Missing, malformed or non-positive values yield def.
func argInt(task models.ScheduledTask, key string, def int) int {
	v, ok := task.Arguments[key]
	if !ok {
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
