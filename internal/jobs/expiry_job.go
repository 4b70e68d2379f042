package jobs

import (
	"log"
	"time"

	"github.com/pataid/backend/internal/models"
	"gorm.io/gorm"
)

// ExpiryJob sweeps verifications whose deadline has passed. The services
// already treat overdue verifications as expired on read; the sweep keeps the
// stored rows honest for dashboards and stats.
type ExpiryJob struct {
	db *gorm.DB
}

// NewExpiryJob creates a new expiry sweep job.
func NewExpiryJob(db *gorm.DB) *ExpiryJob {
	return &ExpiryJob{db: db}
}

// Sweep marks overdue non-terminal verifications expired.
func (j *ExpiryJob) Sweep() {
	result := j.db.Model(&models.Verification{}).
		Where("status IN ? AND expires_at < ?", models.ActiveVerificationStates, time.Now()).
		Update("status", models.VerificationExpired)
	if result.Error != nil {
		log.Printf("expiry sweep failed: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("expiry sweep: marked %d verifications expired", result.RowsAffected)
	}
}
