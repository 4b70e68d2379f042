package notification

import (
	"log"

	"github.com/pataid/backend/internal/queue"
)

// Payloads carried by notification jobs. The dispatcher marshals these and
// the job handlers decode them on the other side of the queue.

type OTPPayload struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type OwnerFoundPayload struct {
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	OwnerName    string `json:"owner_name"`
	ReportNumber string `json:"report_number"`
	Campus       string `json:"campus"`
}

type ClaimOutcomePayload struct {
	Email           string `json:"email"`
	ClaimantName    string `json:"claimant_name"`
	ReportNumber    string `json:"report_number"`
	Outcome         string `json:"outcome"`
	CollectionPoint string `json:"collection_point,omitempty"`
}

type ReportConfirmationPayload struct {
	Email        string `json:"email"`
	FinderName   string `json:"finder_name"`
	ReportNumber string `json:"report_number"`
}

type DocumentReviewPayload struct {
	GuardEmail   string `json:"guard_email"`
	GuardName    string `json:"guard_name"`
	ReportNumber string `json:"report_number"`
	Campus       string `json:"campus"`
}

type GuardClaimAlertPayload struct {
	GuardEmail   string `json:"guard_email"`
	GuardName    string `json:"guard_name"`
	ReportNumber string `json:"report_number"`
	Campus       string `json:"campus"`
	Method       string `json:"method"`
}

// Dispatcher is the notification surface the report and verification services
// depend on. Every call is fire-and-forget: delivery failures are logged by
// the queue, never surfaced to the operation that triggered them.
type Dispatcher interface {
	SendOTP(payload OTPPayload)
	SendOwnerFoundAlert(payload OwnerFoundPayload)
	SendClaimOutcome(payload ClaimOutcomePayload)
	SendReportConfirmation(payload ReportConfirmationPayload)
	SendDocumentReviewRequest(payload DocumentReviewPayload)
	SendGuardClaimAlert(payload GuardClaimAlertPayload)
}

// NoopDispatcher drops every notification. Used where side effects are
// unwanted, such as service tests.
type NoopDispatcher struct{}

func (NoopDispatcher) SendOTP(OTPPayload)                               {}
func (NoopDispatcher) SendOwnerFoundAlert(OwnerFoundPayload)            {}
func (NoopDispatcher) SendClaimOutcome(ClaimOutcomePayload)             {}
func (NoopDispatcher) SendReportConfirmation(ReportConfirmationPayload) {}
func (NoopDispatcher) SendDocumentReviewRequest(DocumentReviewPayload)  {}
func (NoopDispatcher) SendGuardClaimAlert(GuardClaimAlertPayload)       {}

// QueueDispatcher pushes notifications onto the background job queue.
type QueueDispatcher struct {
	queue queue.Enqueuer
}

// NewQueueDispatcher creates a queue-backed dispatcher.
func NewQueueDispatcher(q queue.Enqueuer) *QueueDispatcher {
	return &QueueDispatcher{queue: q}
}

func (d *QueueDispatcher) enqueue(jobType queue.JobType, payload interface{}) {
	if _, err := d.queue.Enqueue(jobType, payload); err != nil {
		log.Printf("notification: failed to enqueue %s: %v", jobType, err)
	}
}

func (d *QueueDispatcher) SendOTP(payload OTPPayload) {
	d.enqueue(queue.JobTypeSendOTPSMS, payload)
}

func (d *QueueDispatcher) SendOwnerFoundAlert(payload OwnerFoundPayload) {
	d.enqueue(queue.JobTypeSendOwnerFoundAlert, payload)
}

func (d *QueueDispatcher) SendClaimOutcome(payload ClaimOutcomePayload) {
	d.enqueue(queue.JobTypeSendClaimOutcomeEmail, payload)
}

func (d *QueueDispatcher) SendReportConfirmation(payload ReportConfirmationPayload) {
	d.enqueue(queue.JobTypeSendReportConfirmation, payload)
}

func (d *QueueDispatcher) SendDocumentReviewRequest(payload DocumentReviewPayload) {
	d.enqueue(queue.JobTypeSendDocumentReview, payload)
}

func (d *QueueDispatcher) SendGuardClaimAlert(payload GuardClaimAlertPayload) {
	d.enqueue(queue.JobTypeSendGuardClaimAlert, payload)
}
