package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pataid/backend/internal/queue"
	"github.com/pataid/backend/internal/services/notification"
)

// NotificationJob wires queue jobs to the email and SMS services.
type NotificationJob struct {
	email *notification.EmailService
	sms   *notification.SMSService
}

// NewNotificationJob creates a new notification job handler set.
func NewNotificationJob(email *notification.EmailService, sms *notification.SMSService) *NotificationJob {
	return &NotificationJob{email: email, sms: sms}
}

// RegisterHandlers registers all notification job handlers with the queue.
func (j *NotificationJob) RegisterHandlers(q *queue.Queue) {
	q.RegisterHandler(queue.JobTypeSendOTPSMS, j.handleSendOTP)
	q.RegisterHandler(queue.JobTypeSendOwnerFoundAlert, j.handleOwnerFoundAlert)
	q.RegisterHandler(queue.JobTypeSendClaimOutcomeEmail, j.handleClaimOutcome)
	q.RegisterHandler(queue.JobTypeSendReportConfirmation, j.handleReportConfirmation)
	q.RegisterHandler(queue.JobTypeSendDocumentReview, j.handleDocumentReview)
	q.RegisterHandler(queue.JobTypeSendGuardClaimAlert, j.handleGuardClaimAlert)
}

func (j *NotificationJob) handleSendOTP(ctx context.Context, job queue.Job) error {
	var payload notification.OTPPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("invalid otp payload: %w", err)
	}
	return j.sms.SendOTP(payload.Phone, payload.Code)
}

func (j *NotificationJob) handleOwnerFoundAlert(ctx context.Context, job queue.Job) error {
	var payload notification.OwnerFoundPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("invalid owner found payload: %w", err)
	}

	// Email and SMS channels are independent; send to whichever the owner
	// opted into.
	var firstErr error
	if payload.Email != "" {
		if err := j.email.SendOwnerFoundAlert(payload.Email, payload.OwnerName, payload.ReportNumber, payload.Campus); err != nil {
			firstErr = err
		}
	}
	if payload.Phone != "" {
		if err := j.sms.SendOwnerFoundAlert(payload.Phone, payload.ReportNumber, payload.Campus); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (j *NotificationJob) handleClaimOutcome(ctx context.Context, job queue.Job) error {
	var payload notification.ClaimOutcomePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("invalid claim outcome payload: %w", err)
	}
	return j.email.SendClaimOutcome(payload.Email, payload.ClaimantName, payload.ReportNumber, payload.Outcome, payload.CollectionPoint)
}

func (j *NotificationJob) handleReportConfirmation(ctx context.Context, job queue.Job) error {
	var payload notification.ReportConfirmationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("invalid report confirmation payload: %w", err)
	}
	return j.email.SendReportConfirmation(payload.Email, payload.FinderName, payload.ReportNumber)
}

func (j *NotificationJob) handleDocumentReview(ctx context.Context, job queue.Job) error {
	var payload notification.DocumentReviewPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("invalid document review payload: %w", err)
	}
	return j.email.SendDocumentReviewRequest(payload.GuardEmail, payload.GuardName, payload.ReportNumber, payload.Campus)
}

func (j *NotificationJob) handleGuardClaimAlert(ctx context.Context, job queue.Job) error {
	var payload notification.GuardClaimAlertPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("invalid guard claim alert payload: %w", err)
	}
	return j.email.SendGuardClaimAlert(payload.GuardEmail, payload.GuardName, payload.ReportNumber, payload.Campus, payload.Method)
}
