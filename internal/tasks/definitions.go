package tasks

import (
	"gorm.io/gorm"

	"booking_app_echo/internal/services"
)

// Deps are the services task handlers run against
type Deps struct {
	DB         *gorm.DB
	Store      *services.PaymentStore
	Reconciler *services.Reconciler
}

// DefineTasks registers all available tasks
func DefineTasks(r *Registry, d Deps) {
	r.Register(LogInfoTask.TaskID(), LogInfoTask.HandleExecution)

	stale := &ReconcileStaleCheckoutsTaskDef{store: d.Store, reconciler: d.Reconciler}
	r.Register(stale.TaskID(), stale.HandleExecution)

	resend := &ResendConfirmationTaskDef{db: d.DB, reconciler: d.Reconciler}
	r.Register(resend.TaskID(), resend.HandleExecution)
}
