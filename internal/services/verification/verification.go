package verification

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pataid/backend/internal/apperrors"
	"github.com/pataid/backend/internal/models"
	"github.com/pataid/backend/internal/policy"
	"github.com/pataid/backend/internal/security/audit"
	"github.com/pataid/backend/internal/services/notification"
	"github.com/pataid/backend/internal/services/report"
	"github.com/pataid/backend/internal/utils"
)

// Questions seeded for the security_questions method. Every claimant gets the
// same three challenges; answers are recorded for the guard to eyeball, the
// automated check only requires that enough of them were filled in.
var seededQuestions = []string{
	"What is your mother's maiden name?",
	"What was the name of your first pet?",
	"Which elementary school did you attend?",
}

// VerificationService runs claim attempts against found-ID reports
type VerificationService struct {
	db       *gorm.DB
	reports  *report.ReportService
	notifier notification.Dispatcher
	audit    *audit.Logger
}

// NewVerificationService creates a new verification service
func NewVerificationService(db *gorm.DB, reports *report.ReportService, notifier notification.Dispatcher, auditLogger *audit.Logger) *VerificationService {
	return &VerificationService{
		db:       db,
		reports:  reports,
		notifier: notifier,
		audit:    auditLogger,
	}
}

// StartVerification opens a claim attempt for the actor against a report.
// Starting is idempotent per (report, claimant): an existing non-terminal
// attempt is returned instead of creating a second one.
func (s *VerificationService) StartVerification(reportID uuid.UUID, method models.VerificationMethod, phone string, actor *models.User, meta audit.RequestMeta) (*models.Verification, error) {
	if actor == nil {
		return nil, apperrors.New(apperrors.CodeForbidden, "authentication required to start a claim")
	}
	if !method.Valid() {
		return nil, apperrors.Newf(apperrors.CodeValidationFailed, "unsupported verification method %q", method)
	}

	var rpt models.Report
	if err := s.db.Where("id = ?", reportID).First(&rpt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "report not found")
		}
		return nil, fmt.Errorf("failed to fetch report: %w", err)
	}
	if !rpt.IsClaimable() {
		return nil, apperrors.New(apperrors.CodeInvalidState, "report is not open for claims")
	}

	var existing models.Verification
	err := s.db.Where("report_id = ? AND claimant_id = ? AND status IN ?",
		reportID, actor.ID, models.ActiveVerificationStates).
		First(&existing).Error
	if err == nil {
		if !existing.DeadlinePassed(time.Now()) {
			return &existing, nil
		}
		// Stale attempt past its deadline: refresh the stored status and fall
		// through to create a new one.
		s.db.Model(&existing).Update("status", models.VerificationExpired)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing verification: %w", err)
	}

	token, err := utils.GenerateVerificationToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token: %w", err)
	}

	now := time.Now()
	v := models.Verification{
		ReportID:          reportID,
		ClaimantID:        actor.ID,
		ClaimantEmail:     actor.Email,
		ClaimantPhone:     actor.Phone,
		Method:            method,
		Status:            models.VerificationPending,
		VerificationToken: token,
		TokenExpires:      now.Add(models.VerificationTTL),
		ExpiresAt:         now.Add(models.VerificationTTL),
	}

	switch method {
	case models.MethodIDNumber:
		v.Status = models.VerificationInProgress

	case models.MethodSecurityQuestions:
		questions := make([]models.SecurityQuestion, 0, len(seededQuestions))
		for _, q := range seededQuestions {
			questions = append(questions, models.SecurityQuestion{Question: q})
		}
		if err := v.SetQuestions(questions); err != nil {
			return nil, fmt.Errorf("failed to seed questions: %w", err)
		}
		v.Status = models.VerificationInProgress

	case models.MethodPhoneOTP:
		if phone != "" {
			v.ClaimantPhone = phone
		}
		if utils.FormatPhoneNumber(v.ClaimantPhone) == "" {
			return nil, apperrors.New(apperrors.CodeValidationFailed, "a phone number is required for phone verification")
		}
		code, err := utils.GenerateOTP()
		if err != nil {
			return nil, fmt.Errorf("failed to generate otp: %w", err)
		}
		expires := now.Add(models.OTPTTL)
		v.PhoneOTP = code
		v.PhoneOTPExpires = &expires
		v.Status = models.VerificationInProgress

	case models.MethodDocumentUpload:
		// Stays pending until documents arrive.
	}

	if err := s.db.Create(&v).Error; err != nil {
		return nil, fmt.Errorf("failed to create verification: %w", err)
	}

	if v.Method == models.MethodPhoneOTP {
		s.notifier.SendOTP(notification.OTPPayload{
			Phone: v.ClaimantPhone,
			Code:  v.PhoneOTP,
		})
	}
	s.alertGuards(&rpt, &v, guardAlertClaimStarted)

	s.recordAudit(audit.ActionStartClaim, actor, v.ID, nil, map[string]interface{}{
		"report_id": rpt.ID.String(),
		"method":    string(method),
		"status":    string(v.Status),
	}, true, meta)

	return &v, nil
}

// VerifyIDNumber checks the claimant-supplied ID number against the stored
// one. Comparison is whitespace-trimmed and case-insensitive.
func (s *VerificationService) VerifyIDNumber(verificationID uuid.UUID, idNumber string, actor *models.User, meta audit.RequestMeta) (*models.Verification, error) {
	v, rpt, err := s.loadForAttempt(verificationID, models.MethodIDNumber, actor)
	if err != nil {
		return nil, err
	}

	provided := utils.NormalizeIDNumber(idNumber)
	if provided == "" {
		// A blank submission is not a guess; it costs no budget.
		return nil, apperrors.New(apperrors.CodeValidationFailed, "id_number is required")
	}

	if provided != utils.NormalizeIDNumber(rpt.IDNumber) {
		return nil, s.failAttempt(v, actor, meta, "id_number", map[string]interface{}{
			"id_number_provided": provided,
		}, "ID number does not match")
	}

	v.IDNumberProvided = provided
	return s.succeed(v, rpt, actor, meta, map[string]interface{}{
		"id_number_provided": provided,
	})
}

// VerifyOTP checks a submitted phone code. A matching code is consumed so it
// can never be replayed.
func (s *VerificationService) VerifyOTP(verificationID uuid.UUID, code string, actor *models.User, meta audit.RequestMeta) (*models.Verification, error) {
	v, rpt, err := s.loadForAttempt(verificationID, models.MethodPhoneOTP, actor)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if v.PhoneOTPExpires == nil || now.After(*v.PhoneOTPExpires) {
		// A lapsed code is not a guess; it costs no budget.
		return nil, apperrors.New(apperrors.CodeVerificationExpired, "verification code has expired, request a new one")
	}
	if !v.CheckPhoneOTP(code, now) {
		return nil, s.failAttempt(v, actor, meta, "phone_otp", nil, "incorrect verification code")
	}

	return s.succeed(v, rpt, actor, meta, map[string]interface{}{
		"phone_otp":         "",
		"phone_otp_expires": nil,
	})
}

// ResendOTP issues a fresh code for an in-flight phone verification.
func (s *VerificationService) ResendOTP(verificationID uuid.UUID, actor *models.User, meta audit.RequestMeta) error {
	v, _, err := s.loadForAttempt(verificationID, models.MethodPhoneOTP, actor)
	if err != nil {
		return err
	}

	code, err := utils.GenerateOTP()
	if err != nil {
		return fmt.Errorf("failed to generate otp: %w", err)
	}
	expires := time.Now().Add(models.OTPTTL)

	if err := s.db.Model(v).Updates(map[string]interface{}{
		"phone_otp":         code,
		"phone_otp_expires": expires,
	}).Error; err != nil {
		return fmt.Errorf("failed to store new otp: %w", err)
	}

	s.notifier.SendOTP(notification.OTPPayload{Phone: v.ClaimantPhone, Code: code})
	return nil
}

// VerifyAnswers checks submitted security-question answers. At least two
// non-empty answers pass; the answers themselves are stored for review.
func (s *VerificationService) VerifyAnswers(verificationID uuid.UUID, answers []string, actor *models.User, meta audit.RequestMeta) (*models.Verification, error) {
	v, rpt, err := s.loadForAttempt(verificationID, models.MethodSecurityQuestions, actor)
	if err != nil {
		return nil, err
	}

	questions := v.QuestionList()
	for i := range questions {
		if i < len(answers) {
			questions[i].AnswerProvided = answers[i]
			questions[i].IsCorrect = answers[i] != ""
		}
	}
	if err := v.SetQuestions(questions); err != nil {
		return nil, fmt.Errorf("failed to store answers: %w", err)
	}
	answered := v.SecurityQuestions

	if !v.CheckSecurityAnswers(answers) {
		return nil, s.failAttempt(v, actor, meta, "security_questions", map[string]interface{}{
			"security_questions": answered,
		}, "not enough answers provided")
	}

	return s.succeed(v, rpt, actor, meta, map[string]interface{}{
		"security_questions": answered,
	})
}

// AttachDocuments adds ownership-proof documents to a document_upload claim
// and moves it to in_progress for manual review.
func (s *VerificationService) AttachDocuments(verificationID uuid.UUID, docs []models.VerificationDocument, actor *models.User, meta audit.RequestMeta) (*models.Verification, error) {
	v, rpt, err := s.loadForAttempt(verificationID, models.MethodDocumentUpload, actor)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, apperrors.New(apperrors.CodeValidationFailed, "at least one document is required")
	}

	now := time.Now()
	existing := v.DocumentList()
	for i := range docs {
		docs[i].UploadedAt = now
		docs[i].Verified = false
	}
	if err := v.SetDocuments(append(existing, docs...)); err != nil {
		return nil, fmt.Errorf("failed to store documents: %w", err)
	}
	v.Status = models.VerificationInProgress

	if err := s.db.Model(v).Updates(map[string]interface{}{
		"documents": v.Documents,
		"status":    v.Status,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to attach documents: %w", err)
	}

	s.alertGuards(rpt, v, guardAlertDocumentsUploaded)

	s.recordAudit(audit.ActionVerifyReport, actor, v.ID, nil, map[string]interface{}{
		"method":    "document_upload",
		"documents": len(v.DocumentList()),
	}, true, meta)

	return v, nil
}

// SecurityVerify resolves a document_upload claim. Only the security role may
// call it, and only while the claim is in review. Approval completes the
// claim; rejection closes it.
func (s *VerificationService) SecurityVerify(verificationID uuid.UUID, approved bool, notes string, actor *models.User, meta audit.RequestMeta) (*models.Verification, error) {
	if actor == nil || actor.Role != models.RoleSecurity {
		return nil, apperrors.New(apperrors.CodeForbidden, "only security staff can resolve document claims")
	}

	var v models.Verification
	if err := s.db.Where("id = ?", verificationID).First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "verification not found")
		}
		return nil, fmt.Errorf("failed to fetch verification: %w", err)
	}
	if v.Method != models.MethodDocumentUpload {
		return nil, apperrors.New(apperrors.CodeInvalidState, "only document claims require manual review")
	}
	if v.Status != models.VerificationInProgress {
		return nil, apperrors.New(apperrors.CodeInvalidState, "verification is not awaiting review")
	}

	var rpt models.Report
	if err := s.db.Where("id = ?", v.ReportID).First(&rpt).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch report: %w", err)
	}
	if actor.Campus != models.CampusAll && actor.Campus != rpt.Campus {
		return nil, apperrors.New(apperrors.CodeForbidden, "report belongs to another campus")
	}
	if v.DeadlinePassed(time.Now()) {
		s.db.Model(&v).Update("status", models.VerificationExpired)
		return nil, apperrors.New(apperrors.CodeVerificationExpired, "verification deadline has passed")
	}

	if err := v.MarkDocumentsReviewed(approved); err != nil {
		return nil, fmt.Errorf("failed to mark documents: %w", err)
	}
	v.VerifiedByGuardID = &actor.ID
	v.GuardNotes = notes

	if !approved {
		if err := s.db.Model(&v).Updates(map[string]interface{}{
			"status":               models.VerificationRejected,
			"documents":            v.Documents,
			"verified_by_guard_id": actor.ID,
			"guard_notes":          notes,
		}).Error; err != nil {
			return nil, fmt.Errorf("failed to reject verification: %w", err)
		}
		v.Status = models.VerificationRejected

		s.notifyOutcome(&v, &rpt, "rejected")
		s.recordAudit(audit.ActionVerifyReport, actor, v.ID, nil, map[string]interface{}{
			"approved": false,
		}, true, meta)
		return &v, nil
	}

	result, err := s.succeed(&v, &rpt, actor, meta, map[string]interface{}{
		"documents":            v.Documents,
		"verified_by_guard_id": actor.ID,
		"guard_notes":          notes,
	})
	if err != nil {
		return nil, err
	}

	// The resolving guard takes ownership of the report's handover.
	if err := s.db.Model(&models.Report{}).
		Where("id = ?", rpt.ID).
		Update("security_guard_id", actor.ID).Error; err != nil {
		log.Printf("failed to assign guard to report %s: %v", rpt.ReportNumber, err)
	}
	return result, nil
}

// GetVerification returns one claim attempt, policy-filtered for the actor.
func (s *VerificationService) GetVerification(id uuid.UUID, actor *models.User) (*models.Verification, error) {
	var v models.Verification
	if err := s.db.Where("id = ?", id).First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "verification not found")
		}
		return nil, fmt.Errorf("failed to fetch verification: %w", err)
	}

	var rpt models.Report
	if err := s.db.Where("id = ?", v.ReportID).First(&rpt).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to fetch report: %w", err)
	}

	if !policy.CanViewVerification(&v, &rpt, actor) {
		return nil, apperrors.New(apperrors.CodeForbidden, "you do not have access to this verification")
	}

	filtered := policy.FilterVerification(&v, actor)
	return &filtered, nil
}

// ReportVerifications lists claim attempts against a report for staff review.
func (s *VerificationService) ReportVerifications(reportID uuid.UUID, actor *models.User) ([]models.Verification, error) {
	if actor == nil || !actor.IsStaffRole() {
		return nil, apperrors.New(apperrors.CodeForbidden, "only admin or security can list claims")
	}

	var rpt models.Report
	if err := s.db.Where("id = ?", reportID).First(&rpt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "report not found")
		}
		return nil, fmt.Errorf("failed to fetch report: %w", err)
	}
	if actor.Role == models.RoleSecurity && actor.Campus != models.CampusAll && actor.Campus != rpt.Campus {
		return nil, apperrors.New(apperrors.CodeForbidden, "report belongs to another campus")
	}

	var list []models.Verification
	if err := s.db.Where("report_id = ?", reportID).
		Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list verifications: %w", err)
	}
	return list, nil
}

// loadForAttempt fetches a verification and enforces the shared attempt
// preconditions: the actor owns it, the method matches, it is not terminal
// and the 24h deadline has not lapsed. Lazy expiry: a record past its
// deadline is marked expired on the spot.
func (s *VerificationService) loadForAttempt(id uuid.UUID, method models.VerificationMethod, actor *models.User) (*models.Verification, *models.Report, error) {
	if actor == nil {
		return nil, nil, apperrors.New(apperrors.CodeForbidden, "authentication required")
	}

	var v models.Verification
	if err := s.db.Where("id = ?", id).First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.New(apperrors.CodeNotFound, "verification not found")
		}
		return nil, nil, fmt.Errorf("failed to fetch verification: %w", err)
	}

	if v.ClaimantID != actor.ID {
		return nil, nil, apperrors.New(apperrors.CodeForbidden, "verification belongs to another claimant")
	}
	if v.Method != method {
		return nil, nil, apperrors.Newf(apperrors.CodeInvalidState, "verification uses method %q", v.Method)
	}
	if v.IsTerminal() {
		if v.Status == models.VerificationExpired {
			return nil, nil, apperrors.New(apperrors.CodeVerificationExpired, "verification has expired")
		}
		return nil, nil, apperrors.Newf(apperrors.CodeInvalidState, "verification already %s", v.Status)
	}
	if v.DeadlinePassed(time.Now()) {
		s.db.Model(&v).Update("status", models.VerificationExpired)
		return nil, nil, apperrors.New(apperrors.CodeVerificationExpired, "verification deadline has passed")
	}

	var rpt models.Report
	if err := s.db.Where("id = ?", v.ReportID).First(&rpt).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to fetch report: %w", err)
	}

	return &v, &rpt, nil
}

// spendAttempt burns one unit of the attempt budget for a FAILED check, in a
// single conditional UPDATE so concurrent retries cannot double-spend; the
// CASE forces the status to expired the moment the budget runs out. Correct
// submissions never spend, so a match on the final attempt still succeeds.
// Returns true when the verification just expired.
func (s *VerificationService) spendAttempt(v *models.Verification) (bool, error) {
	now := time.Now()
	result := s.db.Model(&models.Verification{}).
		Where("id = ? AND status IN ?", v.ID, models.ActiveVerificationStates).
		Updates(map[string]interface{}{
			"attempt_count": gorm.Expr("attempt_count + 1"),
			"last_attempt":  now,
			"status": gorm.Expr(
				"CASE WHEN attempt_count + 1 >= ? THEN 'expired' ELSE status END",
				models.MaxVerificationAttempts,
			),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to record attempt: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return true, apperrors.New(apperrors.CodeVerificationExpired, "verification is no longer active")
	}

	if err := s.db.Where("id = ?", v.ID).First(v).Error; err != nil {
		return false, fmt.Errorf("failed to reload verification: %w", err)
	}
	return v.Status == models.VerificationExpired, nil
}

// failAttempt records a failed check: it spends one attempt, stores any
// method payload for staff review and returns either the validation error or
// exhaustion when that spend emptied the budget.
func (s *VerificationService) failAttempt(v *models.Verification, actor *models.User, meta audit.RequestMeta, method string, updates map[string]interface{}, message string) error {
	expired, err := s.spendAttempt(v)
	if err != nil {
		return err
	}
	if len(updates) > 0 {
		if dbErr := s.db.Model(v).Updates(updates).Error; dbErr != nil {
			log.Printf("failed to record %s attempt: %v", method, dbErr)
		}
	}
	s.recordAudit(audit.ActionVerifyReport, actor, v.ID, nil, map[string]interface{}{"method": method}, false, meta)
	if expired {
		return apperrors.New(apperrors.CodeVerificationExpired, "verification attempts exhausted")
	}
	return apperrors.New(apperrors.CodeValidationFailed, message)
}

// succeed finalizes a passed check: the verification flips to verified and
// the report is claimed in the same transaction. If another claimant won the
// race, this verification rolls to rejected and the caller gets Conflict.
// Both UPDATEs only touch active rows, so a verification that already reached
// a terminal state is never clobbered; finding it already verified (another
// submission by the same claimant committed first) is reported as success.
func (s *VerificationService) succeed(v *models.Verification, rpt *models.Report, actor *models.User, meta audit.RequestMeta, extraUpdates map[string]interface{}) (*models.Verification, error) {
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	updates := map[string]interface{}{"status": models.VerificationVerified}
	for k, val := range extraUpdates {
		updates[k] = val
	}
	result := tx.Model(&models.Verification{}).
		Where("id = ? AND status IN ?", v.ID, models.ActiveVerificationStates).
		Updates(updates)
	if result.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to mark verification verified: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// Another submission resolved this attempt first; report the stored
		// outcome instead of overwriting it.
		tx.Rollback()
		if err := s.db.Where("id = ?", v.ID).First(v).Error; err != nil {
			return nil, fmt.Errorf("failed to reload verification: %w", err)
		}
		switch v.Status {
		case models.VerificationVerified:
			return v, nil
		case models.VerificationExpired:
			return nil, apperrors.New(apperrors.CodeVerificationExpired, "verification has expired")
		default:
			return nil, apperrors.New(apperrors.CodeConflict, "verification was already resolved")
		}
	}

	if err := s.reports.CompleteClaim(tx, rpt.ID, v.ClaimantID, v.Method.ClaimMethodTag()); err != nil {
		tx.Rollback()
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			// If this claimant already owns the report, an earlier submission
			// of theirs won; surface that success instead of rejecting it.
			var current models.Report
			if lookupErr := s.db.Where("id = ?", rpt.ID).First(&current).Error; lookupErr == nil &&
				current.OwnerID != nil && *current.OwnerID == v.ClaimantID {
				if reloadErr := s.db.Where("id = ?", v.ID).First(v).Error; reloadErr == nil &&
					v.Status == models.VerificationVerified {
					return v, nil
				}
			}
			if dbErr := s.db.Model(&models.Verification{}).
				Where("id = ? AND status IN ?", v.ID, models.ActiveVerificationStates).
				Update("status", models.VerificationRejected).Error; dbErr != nil {
				log.Printf("failed to reject losing verification %s: %v", v.ID, dbErr)
			}
		}
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	if err := s.db.Where("id = ?", v.ID).First(v).Error; err != nil {
		return nil, fmt.Errorf("failed to reload verification: %w", err)
	}

	s.notifyOutcome(v, rpt, "verified")
	s.recordAudit(audit.ActionClaimReport, actor, v.ID, map[string]interface{}{
		"report_status": string(rpt.Status),
	}, map[string]interface{}{
		"report_id":      rpt.ID.String(),
		"claimed_method": string(v.Method.ClaimMethodTag()),
	}, true, meta)

	return v, nil
}

// notifyOutcome emails the claimant the result. Best-effort.
func (s *VerificationService) notifyOutcome(v *models.Verification, rpt *models.Report, outcome string) {
	if v.ClaimantEmail == "" {
		return
	}

	collectionPoint := rpt.CollectionPoint
	if collectionPoint == "" {
		collectionPoint = fmt.Sprintf("%s Campus Security Office", rpt.Campus)
	}

	var claimant models.User
	name := "there"
	if err := s.db.Where("id = ?", v.ClaimantID).First(&claimant).Error; err == nil {
		name = claimant.FullName()
	}

	s.notifier.SendClaimOutcome(notification.ClaimOutcomePayload{
		Email:           v.ClaimantEmail,
		ClaimantName:    name,
		ReportNumber:    rpt.ReportNumber,
		Outcome:         outcome,
		CollectionPoint: collectionPoint,
	})
}

type guardAlertKind int

const (
	guardAlertClaimStarted guardAlertKind = iota
	guardAlertDocumentsUploaded
)

// alertGuards notifies campus security about claim activity. Best-effort.
func (s *VerificationService) alertGuards(rpt *models.Report, v *models.Verification, kind guardAlertKind) {
	var guards []models.User
	if err := s.db.Where("role = ? AND (campus = ? OR campus = ?)",
		models.RoleSecurity, rpt.Campus, models.CampusAll).
		Limit(10).Find(&guards).Error; err != nil {
		log.Printf("guard lookup failed for report %s: %v", rpt.ReportNumber, err)
		return
	}

	for _, guard := range guards {
		if guard.Email == "" || !guard.NotifyEmail {
			continue
		}
		switch kind {
		case guardAlertDocumentsUploaded:
			s.notifier.SendDocumentReviewRequest(notification.DocumentReviewPayload{
				GuardEmail:   guard.Email,
				GuardName:    guard.FullName(),
				ReportNumber: rpt.ReportNumber,
				Campus:       rpt.Campus,
			})
		default:
			s.notifier.SendGuardClaimAlert(notification.GuardClaimAlertPayload{
				GuardEmail:   guard.Email,
				GuardName:    guard.FullName(),
				ReportNumber: rpt.ReportNumber,
				Campus:       rpt.Campus,
				Method:       string(v.Method),
			})
		}
	}
}

func (s *VerificationService) recordAudit(action string, actor *models.User, resourceID uuid.UUID, before, after map[string]interface{}, success bool, meta audit.RequestMeta) {
	entry := audit.Entry{
		Action:       action,
		ResourceType: audit.ResourceVerification,
		ResourceID:   &resourceID,
		BeforeState:  before,
		AfterState:   after,
		Success:      success,
	}
	if actor != nil {
		entry.ActorID = &actor.ID
		entry.ActorRole = string(actor.Role)
	}
	s.audit.Record(entry, meta)
}
