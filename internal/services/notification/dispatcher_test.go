package notification

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pataid/backend/internal/queue"
)

type fakeEnqueuer struct {
	jobType queue.JobType
	payload interface{}
	calls   int
}

func (f *fakeEnqueuer) Enqueue(jobType queue.JobType, payload interface{}) (string, error) {
	f.jobType = jobType
	f.payload = payload
	f.calls++
	return "job-id", nil
}

func TestQueueDispatcherJobTypes(t *testing.T) {
	tests := []struct {
		name     string
		send     func(d Dispatcher)
		wantType queue.JobType
	}{
		{
			name:     "otp",
			send:     func(d Dispatcher) { d.SendOTP(OTPPayload{Phone: "+254712345678", Code: "123456"}) },
			wantType: queue.JobTypeSendOTPSMS,
		},
		{
			name: "owner found",
			send: func(d Dispatcher) {
				d.SendOwnerFoundAlert(OwnerFoundPayload{Email: "owner@daystar.ac.ke", ReportNumber: "STU000001"})
			},
			wantType: queue.JobTypeSendOwnerFoundAlert,
		},
		{
			name: "claim outcome",
			send: func(d Dispatcher) {
				d.SendClaimOutcome(ClaimOutcomePayload{Email: "claimant@daystar.ac.ke", Outcome: "verified"})
			},
			wantType: queue.JobTypeSendClaimOutcomeEmail,
		},
		{
			name: "report confirmation",
			send: func(d Dispatcher) {
				d.SendReportConfirmation(ReportConfirmationPayload{Email: "finder@daystar.ac.ke", ReportNumber: "STA000007"})
			},
			wantType: queue.JobTypeSendReportConfirmation,
		},
		{
			name: "document review",
			send: func(d Dispatcher) {
				d.SendDocumentReviewRequest(DocumentReviewPayload{GuardEmail: "guard@daystar.ac.ke"})
			},
			wantType: queue.JobTypeSendDocumentReview,
		},
		{
			name: "guard claim alert",
			send: func(d Dispatcher) {
				d.SendGuardClaimAlert(GuardClaimAlertPayload{GuardEmail: "guard@daystar.ac.ke", Method: "phone_otp"})
			},
			wantType: queue.JobTypeSendGuardClaimAlert,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeEnqueuer{}
			dispatcher := NewQueueDispatcher(fake)

			tt.send(dispatcher)

			assert.Equal(t, 1, fake.calls)
			assert.Equal(t, tt.wantType, fake.jobType)

			// Every payload must round-trip through JSON for the job handler.
			data, err := json.Marshal(fake.payload)
			require.NoError(t, err)
			assert.NotEmpty(t, data)
		})
	}
}

func TestOTPPayloadRoundTrip(t *testing.T) {
	original := OTPPayload{Phone: "+254712345678", Code: "042913"}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded OTPPayload
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}
