package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// VerificationMethod is the closed set of ways a claimant can prove ownership
type VerificationMethod string

const (
	MethodIDNumber          VerificationMethod = "id_number"
	MethodSecurityQuestions VerificationMethod = "security_questions"
	MethodPhoneOTP          VerificationMethod = "phone_otp"
	MethodDocumentUpload    VerificationMethod = "document_upload"
)

// Valid reports whether the method is one of the supported variants.
func (m VerificationMethod) Valid() bool {
	switch m {
	case MethodIDNumber, MethodSecurityQuestions, MethodPhoneOTP, MethodDocumentUpload:
		return true
	}
	return false
}

// ClaimMethodTag maps a verification method to the claim tag stored on the report.
func (m VerificationMethod) ClaimMethodTag() ClaimMethod {
	switch m {
	case MethodIDNumber:
		return ClaimMethodIDVerification
	case MethodSecurityQuestions:
		return ClaimMethodSecurityQuestions
	case MethodPhoneOTP:
		return ClaimMethodPhoneVerification
	default:
		return ClaimMethodDocumentUpload
	}
}

// VerificationState is the status of one claim attempt
type VerificationState string

const (
	VerificationPending    VerificationState = "pending"
	VerificationInProgress VerificationState = "in_progress"
	VerificationVerified   VerificationState = "verified"
	VerificationRejected   VerificationState = "rejected"
	VerificationExpired    VerificationState = "expired"
)

// ActiveVerificationStates are the non-terminal states. At most one
// verification per (report, claimant) may be in one of these.
var ActiveVerificationStates = []VerificationState{VerificationPending, VerificationInProgress}

const (
	// MaxVerificationAttempts is the attempt budget for claimant-submitted
	// methods. Reaching it forces the verification to expired.
	MaxVerificationAttempts = 5

	// VerificationTTL is the absolute deadline for completing a claim attempt.
	VerificationTTL = 24 * time.Hour

	// OTPTTL bounds how long a phone code stays valid.
	OTPTTL = 10 * time.Minute
)

// SecurityQuestion is one challenge presented to the claimant
type SecurityQuestion struct {
	Question       string `json:"question"`
	AnswerProvided string `json:"answer_provided"`
	IsCorrect      bool   `json:"is_correct"`
}

// VerificationDocument is one uploaded ownership-proof document, reviewed
// manually by campus security.
type VerificationDocument struct {
	URL          string    `json:"url,omitempty"`
	StorageKey   string    `json:"storage_key,omitempty"`
	DocumentType string    `json:"document_type"`
	UploadedAt   time.Time `json:"uploaded_at"`
	Verified     bool      `json:"verified"`
}

// Verification represents one method-specific attempt to prove ownership of
// a reported ID. Records are never deleted; terminal attempts are retained
// for audit.
type Verification struct {
	Base
	ReportID   uuid.UUID `gorm:"type:uuid;not null;index" json:"report_id"`
	ClaimantID uuid.UUID `gorm:"type:uuid;not null;index" json:"claimant_id"`

	ClaimantEmail string `gorm:"type:varchar(255)" json:"claimant_email,omitempty"`
	ClaimantPhone string `gorm:"type:varchar(20)" json:"claimant_phone,omitempty"`

	Method VerificationMethod `gorm:"type:varchar(30);not null" json:"method"`

	IDNumberProvided  string         `gorm:"type:varchar(100)" json:"-"`
	SecurityQuestions datatypes.JSON `gorm:"type:jsonb" json:"security_questions,omitempty"`
	PhoneOTP          string         `gorm:"type:varchar(10)" json:"phone_otp,omitempty"`
	PhoneOTPExpires   *time.Time     `json:"phone_otp_expires,omitempty"`
	Documents         datatypes.JSON `gorm:"type:jsonb" json:"documents,omitempty"`

	Status VerificationState `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	VerifiedByGuardID *uuid.UUID `gorm:"type:uuid" json:"verified_by_guard_id,omitempty"`
	GuardNotes        string     `gorm:"type:text" json:"guard_notes,omitempty"`

	VerificationToken string    `gorm:"uniqueIndex;type:varchar(64)" json:"verification_token,omitempty"`
	TokenExpires      time.Time `json:"token_expires"`

	AttemptCount int        `gorm:"default:0" json:"attempt_count"`
	LastAttempt  *time.Time `json:"last_attempt,omitempty"`

	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
}

// IsTerminal reports whether no further transitions are permitted.
func (v *Verification) IsTerminal() bool {
	switch v.Status {
	case VerificationVerified, VerificationRejected, VerificationExpired:
		return true
	}
	return false
}

// DeadlinePassed reports whether the absolute 24h deadline has elapsed.
// Callers must treat such a record as invalid even if the stored status has
// not been refreshed yet.
func (v *Verification) DeadlinePassed(now time.Time) bool {
	return now.After(v.ExpiresAt)
}

// AttemptsExhausted reports whether the retry budget has been spent.
func (v *Verification) AttemptsExhausted() bool {
	return v.AttemptCount >= MaxVerificationAttempts
}

// CheckPhoneOTP validates a submitted code. A match consumes the stored code
// so a verified value can never be re-checked.
func (v *Verification) CheckPhoneOTP(code string, now time.Time) bool {
	if v.Method != MethodPhoneOTP || v.PhoneOTP == "" {
		return false
	}
	if v.PhoneOTPExpires == nil || now.After(*v.PhoneOTPExpires) {
		return false
	}
	if v.PhoneOTP != code {
		return false
	}
	v.Status = VerificationVerified
	v.PhoneOTP = ""
	v.PhoneOTPExpires = nil
	return true
}

// CheckSecurityAnswers applies the challenge-answer policy: at least two
// submitted answers must be non-empty after trimming. This is a placeholder
// policy threshold, not cryptographic proof of identity.
func (v *Verification) CheckSecurityAnswers(answers []string) bool {
	if v.Method != MethodSecurityQuestions {
		return false
	}
	provided := 0
	for _, a := range answers {
		if strings.TrimSpace(a) != "" {
			provided++
		}
	}
	if provided < 2 {
		return false
	}
	v.Status = VerificationVerified
	return true
}

// QuestionList decodes the seeded security questions.
func (v *Verification) QuestionList() []SecurityQuestion {
	var questions []SecurityQuestion
	if len(v.SecurityQuestions) > 0 {
		_ = json.Unmarshal(v.SecurityQuestions, &questions)
	}
	return questions
}

// SetQuestions encodes security questions into the JSON column.
func (v *Verification) SetQuestions(questions []SecurityQuestion) error {
	data, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	v.SecurityQuestions = datatypes.JSON(data)
	return nil
}

// DocumentList decodes the attached ownership-proof documents.
func (v *Verification) DocumentList() []VerificationDocument {
	var docs []VerificationDocument
	if len(v.Documents) > 0 {
		_ = json.Unmarshal(v.Documents, &docs)
	}
	return docs
}

// SetDocuments encodes documents into the JSON column.
func (v *Verification) SetDocuments(docs []VerificationDocument) error {
	data, err := json.Marshal(docs)
	if err != nil {
		return err
	}
	v.Documents = datatypes.JSON(data)
	return nil
}

// MarkDocumentsReviewed sets every attached document's verified flag to the
// review outcome.
func (v *Verification) MarkDocumentsReviewed(approved bool) error {
	docs := v.DocumentList()
	for i := range docs {
		docs[i].Verified = approved
	}
	return v.SetDocuments(docs)
}
