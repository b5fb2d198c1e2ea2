package models

import (
	"testing"
	"time"
)

func TestPaymentStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to PaymentStatus
		want     bool
	}{
		{PaymentStatusPending, PaymentStatusPaid, true},
		{PaymentStatusPending, PaymentStatusFailed, true},
		{PaymentStatusPending, PaymentStatusCancelled, true},
		{PaymentStatusPending, PaymentStatusRefunded, false},
		{PaymentStatusPaid, PaymentStatusRefunded, true},
		{PaymentStatusPaid, PaymentStatusPending, false},
		{PaymentStatusPaid, PaymentStatusFailed, false},
		{PaymentStatusPaid, PaymentStatusPaid, true},
		{PaymentStatusFailed, PaymentStatusPaid, false},
		{PaymentStatusRefunded, PaymentStatusPaid, false},
		{PaymentStatusCancelled, PaymentStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("%s.CanTransitionTo(%s) = %v; want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestPaymentStatusValid(t *testing.T) {
	if !PaymentStatusRefunded.Valid() {
		t.Error("REFUNDED should be valid")
	}
	if PaymentStatus("paid").Valid() {
		t.Error("lower-case status should not be valid")
	}
}

func TestReservationGroupKey(t *testing.T) {
	group := "g1"
	empty := ""

	if got := (Reservation{ID: "r1", GroupID: &group}).GroupKey(); got != "g1" {
		t.Errorf("GroupKey with group = %q; want g1", got)
	}
	if got := (Reservation{ID: "r1"}).GroupKey(); got != "r1" {
		t.Errorf("GroupKey without group = %q; want r1", got)
	}
	if got := (Reservation{ID: "r1", GroupID: &empty}).GroupKey(); got != "r1" {
		t.Errorf("GroupKey with empty group = %q; want r1", got)
	}
}

func TestScheduledTaskNextDue(t *testing.T) {
	due := time.Now().Add(time.Hour).Truncate(time.Second)
	rule := "FREQ=HOURLY;INTERVAL=2"
	bad := "NOT A RULE"

	tests := []struct {
		name string
		task ScheduledTask
		want time.Time
	}{
		{
			name: "one time task keeps due",
			task: ScheduledTask{TaskType: ScheduledTaskTypeOneTime, Due: due, RecurringInterval: &rule},
			want: due,
		},
		{
			name: "recurring task moves to next occurrence",
			task: ScheduledTask{TaskType: ScheduledTaskTypeRecurring, Due: due, RecurringInterval: &rule},
			want: due.Add(2 * time.Hour),
		},
		{
			name: "invalid rule keeps due",
			task: ScheduledTask{TaskType: ScheduledTaskTypeRecurring, Due: due, RecurringInterval: &bad},
			want: due,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.task.NextDue()
			if !got.Equal(tt.want) {
				t.Errorf("NextDue() = %v; want %v", got, tt.want)
			}
		})
	}
}
