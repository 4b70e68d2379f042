package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeSendOTPSMS             JobType = "send_otp_sms"
	JobTypeSendGuardClaimAlert    JobType = "send_guard_claim_alert"
	JobTypeSendDocumentReview     JobType = "send_document_review_request"
	JobTypeSendClaimOutcomeEmail  JobType = "send_claim_outcome_email"
	JobTypeSendOwnerFoundAlert    JobType = "send_owner_found_alert"
	JobTypeSendReportConfirmation JobType = "send_report_confirmation"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job represents a background job
type Job struct {
	ID         uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Type       JobType         `json:"type"`
	Payload    json.RawMessage `json:"payload" gorm:"type:jsonb"`
	Status     JobStatus       `json:"status"`
	RetryCount int             `json:"retry_count" gorm:"default:0"`
	MaxRetries int             `json:"max_retries" gorm:"default:3"`
	NextRetry  *time.Time      `json:"next_retry,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// JobHandler is a function that processes a job
type JobHandler func(ctx context.Context, job Job) error

// Enqueuer is the producer half of the queue, consumed by services that only
// emit jobs.
type Enqueuer interface {
	Enqueue(jobType JobType, payload interface{}) (string, error)
}

// Queue is a redis-backed job queue with a database record per job for
// retry accounting and inspection.
type Queue struct {
	db       *gorm.DB
	redis    RedisBroker
	handlers map[JobType]JobHandler
}

// NewQueue creates a new queue
func NewQueue(db *gorm.DB, broker RedisBroker) *Queue {
	return &Queue{
		db:       db,
		redis:    broker,
		handlers: make(map[JobType]JobHandler),
	}
}

// RegisterHandler registers a handler for a job type
func (q *Queue) RegisterHandler(jobType JobType, handler JobHandler) {
	q.handlers[jobType] = handler
}

// Enqueue persists a job record and pushes its ID onto the redis queue.
func (q *Queue) Enqueue(jobType JobType, payload interface{}) (string, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job payload: %w", err)
	}

	job := Job{
		ID:         uuid.New(),
		Type:       jobType,
		Payload:    payloadBytes,
		Status:     JobStatusPending,
		MaxRetries: 3,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := q.db.Create(&job).Error; err != nil {
		return "", fmt.Errorf("failed to persist job: %w", err)
	}

	if err := q.redis.Push(job.ID.String()); err != nil {
		return "", fmt.Errorf("failed to push job to queue: %w", err)
	}
	return job.ID.String(), nil
}

// ProcessNext pops one job and runs its handler, recording the outcome.
// Returns false when the queue was empty.
func (q *Queue) ProcessNext(ctx context.Context) (bool, error) {
	jobID, err := q.redis.Pop(1 * time.Second)
	if err != nil {
		return false, err
	}
	if jobID == "" {
		return false, nil
	}

	var job Job
	if err := q.db.Where("id = ?", jobID).First(&job).Error; err != nil {
		return true, fmt.Errorf("job %s not found: %w", jobID, err)
	}

	handler, ok := q.handlers[job.Type]
	if !ok {
		q.markFailed(&job, fmt.Errorf("no handler registered for job type %s", job.Type))
		return true, nil
	}

	q.db.Model(&job).Update("status", JobStatusProcessing)

	if err := handler(ctx, job); err != nil {
		q.retryOrFail(&job, err)
		return true, nil
	}

	q.db.Model(&job).Updates(map[string]interface{}{
		"status":     JobStatusCompleted,
		"updated_at": time.Now(),
	})
	return true, nil
}

func (q *Queue) retryOrFail(job *Job, cause error) {
	if job.RetryCount+1 >= job.MaxRetries {
		q.markFailed(job, cause)
		return
	}

	q.db.Model(job).Updates(map[string]interface{}{
		"status":      JobStatusPending,
		"retry_count": gorm.Expr("retry_count + 1"),
		"error":       cause.Error(),
		"updated_at":  time.Now(),
	})
	// Requeue immediately; notification jobs are cheap and best-effort.
	_ = q.redis.Push(job.ID.String())
}

func (q *Queue) markFailed(job *Job, cause error) {
	q.db.Model(job).Updates(map[string]interface{}{
		"status":     JobStatusFailed,
		"error":      cause.Error(),
		"updated_at": time.Now(),
	})
}
