package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/teambition/rrule-go"

	"booking_app_echo/internal/config"
	"booking_app_echo/internal/models"
	"booking_app_echo/internal/services"
)

func main() {
	taskName := flag.String("task_name", "", "Name of the task (mandatory), e.g. reconcile_stale_checkouts")
	argsStr := flag.String("arguments", "{}", "JSON arguments for the task")
	dueStr := flag.String("due", "", "Due date (format: 2006-01-02 15:04 or RFC3339, default: now)")
	taskType := flag.String("tasktype", "onetime", "Task type: onetime or recurring")
	recurring := flag.String("recurring", "", "RRULE for recurring tasks, e.g. FREQ=MINUTELY;INTERVAL=15")
	maxAttempt := flag.Int("max_attempt", 3, "Max attempts")

	flag.Parse()

	if *taskName == "" {
		fmt.Println("Usage: schedule_task -task_name <name> [-arguments <json_args>] [-due <YYYY-MM-DD HH:MM>] [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	tt := models.ScheduledTaskType(*taskType)
	if tt != models.ScheduledTaskTypeOneTime && tt != models.ScheduledTaskTypeRecurring {
		log.Fatalf("Invalid task type %q", *taskType)
	}

	var recurringPtr *string
	if *recurring != "" {
		if _, err := rrule.StrToRRule(*recurring); err != nil {
			log.Fatalf("Invalid recurring rule: %v", err)
		}
		recurringPtr = recurring
	} else if tt == models.ScheduledTaskTypeRecurring {
		log.Fatal("Recurring tasks need -recurring")
	}

	var args map[string]interface{}
	if err := json.Unmarshal([]byte(*argsStr), &args); err != nil {
		log.Fatalf("Invalid JSON arguments: %v", err)
	}

	due := time.Now()
	if *dueStr != "" {
		var err error
		due, err = time.Parse(time.RFC3339, *dueStr)
		if err != nil {
			due, err = time.ParseInLocation("2006-01-02 15:04", *dueStr, time.Local)
			if err != nil {
				log.Fatalf("Invalid due date format. Use '2006-01-02 15:04' (Local) or RFC3339: %v", err)
			}
		}
	}

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := services.InitDB(cfg.DatabaseDriver, cfg.DatabaseURL, false)
	if err != nil {
		log.Fatalf("Failed to connect DB: %v", err)
	}
	defer services.CloseDB(db)

	task := models.ScheduledTask{
		TaskName:          *taskName,
		Arguments:         args,
		Due:               due.UTC(),
		TaskType:          tt,
		RecurringInterval: recurringPtr,
		MaxAttempt:        *maxAttempt,
		Status:            models.ScheduledTaskStatusActive,
	}

	if err := db.Create(&task).Error; err != nil {
		log.Fatalf("Failed to create task: %v", err)
	}

	fmt.Printf("Successfully created task ID: %d\n", task.ID)
	fmt.Printf("Task: %s\nDue: %s\nType: %s\n", task.TaskName, task.Due, task.TaskType)
}
