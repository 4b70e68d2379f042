package jobs

import (
	"time"

	"github.com/pataid/backend/internal/queue"
	"github.com/pataid/backend/internal/services/notification"
	"gorm.io/gorm"
)

// RegisterAllJobHandlers registers all job handlers with the queue
func RegisterAllJobHandlers(
	q *queue.Queue,
	email *notification.EmailService,
	sms *notification.SMSService,
) {
	notificationJob := NewNotificationJob(email, sms)
	notificationJob.RegisterHandlers(q)
}

// ScheduleRecurringJobs schedules all recurring maintenance jobs on the worker.
func ScheduleRecurringJobs(w *queue.Worker, db *gorm.DB) error {
	expiryJob := NewExpiryJob(db)
	return w.ScheduleEvery(15*time.Minute, "verification_expiry_sweep", expiryJob.Sweep)
}
