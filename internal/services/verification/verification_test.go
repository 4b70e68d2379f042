package verification

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pataid/backend/internal/apperrors"
	"github.com/pataid/backend/internal/models"
	"github.com/pataid/backend/internal/security/audit"
	"github.com/pataid/backend/internal/services/notification"
	"github.com/pataid/backend/internal/services/report"
	"github.com/pataid/backend/internal/utils"
)

var reportSeq int64

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "pataid.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Report{}, &models.Verification{}, &audit.AuditLog{}))
	return db
}

func newTestService(t *testing.T) (*VerificationService, *gorm.DB) {
	t.Helper()
	db := setupDB(t)
	reports := report.NewReportService(db, notification.NoopDispatcher{}, audit.NewLogger(db))
	return NewVerificationService(db, reports, notification.NoopDispatcher{}, audit.NewLogger(db)), db
}

func seedUser(t *testing.T, db *gorm.DB, role models.Role, campus string) *models.User {
	t.Helper()
	u := &models.User{
		Email:     fmt.Sprintf("%s@ku.ac.ke", uuid.NewString()[:8]),
		Phone:     "0712345678",
		FirstName: "Wanjiku",
		LastName:  "Kamau",
		Role:      role,
		Campus:    campus,
		Password:  "not-a-real-hash",
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedReport(t *testing.T, db *gorm.DB, idNumber string) *models.Report {
	t.Helper()
	r := &models.Report{
		ReportNumber:     fmt.Sprintf("STU%06d", atomic.AddInt64(&reportSeq, 1)),
		IDType:           models.IDTypeStudent,
		FullName:         "Wanjiku Kamau",
		IDNumber:         idNumber,
		MaskedIDNumber:   utils.MaskIdentifier(idNumber),
		FinderType:       "guest",
		FinderContact:    "finder@ku.ac.ke",
		Campus:           "Main Campus",
		SpecificLocation: "Library entrance",
		Status:           models.ReportStatusPending,
		FoundAt:          time.Now(),
	}
	require.NoError(t, db.Create(r).Error)
	return r
}

func reloadVerification(t *testing.T, db *gorm.DB, id uuid.UUID) *models.Verification {
	t.Helper()
	var v models.Verification
	require.NoError(t, db.Where("id = ?", id).First(&v).Error)
	return &v
}

func reloadReport(t *testing.T, db *gorm.DB, id uuid.UUID) *models.Report {
	t.Helper()
	var r models.Report
	require.NoError(t, db.Where("id = ?", id).First(&r).Error)
	return &r
}

func TestStartVerification(t *testing.T) {
	svc, db := newTestService(t)
	claimant := seedUser(t, db, models.RoleStudent, "Main Campus")
	rpt := seedReport(t, db, "STD202300456")
	meta := audit.RequestMeta{}

	t.Run("requires authentication", func(t *testing.T) {
		_, err := svc.StartVerification(rpt.ID, models.MethodIDNumber, "", nil, meta)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	})

	t.Run("rejects unknown method", func(t *testing.T) {
		_, err := svc.StartVerification(rpt.ID, "telepathy", "", claimant, meta)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	})

	t.Run("idempotent per report and claimant", func(t *testing.T) {
		first, err := svc.StartVerification(rpt.ID, models.MethodIDNumber, "", claimant, meta)
		require.NoError(t, err)
		assert.Equal(t, models.VerificationInProgress, first.Status)

		second, err := svc.StartVerification(rpt.ID, models.MethodIDNumber, "", claimant, meta)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("claimed report is not open for claims", func(t *testing.T) {
		other := seedReport(t, db, "STD999900111")
		require.NoError(t, db.Model(other).Update("status", models.ReportStatusClaimed).Error)

		_, err := svc.StartVerification(other.ID, models.MethodIDNumber, "", claimant, meta)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))
	})
}

func TestVerifyIDNumberClaimsReport(t *testing.T) {
	svc, db := newTestService(t)
	claimant := seedUser(t, db, models.RoleStudent, "Main Campus")
	rpt := seedReport(t, db, "STD202300456")
	meta := audit.RequestMeta{}

	v, err := svc.StartVerification(rpt.ID, models.MethodIDNumber, "", claimant, meta)
	require.NoError(t, err)

	out, err := svc.VerifyIDNumber(v.ID, "  std202300456 ", claimant, meta)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, out.Status)

	got := reloadReport(t, db, rpt.ID)
	assert.Equal(t, models.ReportStatusClaimed, got.Status)
	require.NotNil(t, got.OwnerID)
	assert.Equal(t, claimant.ID, *got.OwnerID)
	require.NotNil(t, got.ClaimedMethod)
	assert.Equal(t, models.ClaimMethodIDVerification, *got.ClaimedMethod)
	assert.NotNil(t, got.ClaimedAt)
}

func TestVerifyIDNumberMismatchSpendsAttempt(t *testing.T) {
	svc, db := newTestService(t)
	claimant := seedUser(t, db, models.RoleStudent, "Main Campus")
	rpt := seedReport(t, db, "STD202300456")
	meta := audit.RequestMeta{}

	v, err := svc.StartVerification(rpt.ID, models.MethodIDNumber, "", claimant, meta)
	require.NoError(t, err)

	_, err = svc.VerifyIDNumber(v.ID, "STD000000000", claimant, meta)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	got := reloadVerification(t, db, v.ID)
	assert.Equal(t, 1, got.AttemptCount)
	assert.Equal(t, models.VerificationInProgress, got.Status)
	assert.Equal(t, "STD000000000", got.IDNumberProvided)
}

func TestVerifyIDNumberBlankInputCostsNoAttempt(t *testing.T) {
	svc, db := newTestService(t)
	claimant := seedUser(t, db, models.RoleStudent, "Main Campus")
	rpt := seedReport(t, db, "STD202300456")
	meta := audit.RequestMeta{}

	v, err := svc.StartVerification(rpt.ID, models.MethodIDNumber, "", claimant, meta)
	require.NoError(t, err)

	_, err = svc.VerifyIDNumber(v.ID, "   ", claimant, meta)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	got := reloadVerification(t, db, v.ID)
	assert.Equal(t, 0, got.AttemptCount)
}

func TestAttemptBudgetExhaustion(t *testing.T) {
	svc, db := newTestService(t)
	claimant := seedUser(t, db, models.RoleStudent, "Main Campus")
	rpt := seedReport(t, db, "STD202300456")
	meta := audit.RequestMeta{}

	v, err := svc.StartVerification(rpt.ID, models.MethodIDNumber, "", claimant, meta)
	require.NoError(t, err)

	for i := 1; i < models.MaxVerificationAttempts; i++ {
		_, err = svc.VerifyIDNumber(v.ID, "STD000000000", claimant, meta)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed), "attempt %d", i)
	}

	// The final failure empties the budget and forces the terminal state.
	_, err = svc.VerifyIDNumber(v.ID, "STD000000000", claimant, meta)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeVerificationExpired))

	got := reloadVerification(t, db, v.ID)
	assert.Equal(t, models.VerificationExpired, got.Status)
	assert.Equal(t, models.MaxVerificationAttempts, got.AttemptCount)

	// Even the right answer is refused afterwards.
	_, err = svc.VerifyIDNumber(v.ID, "STD202300456", claimant, meta)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeVerificationExpired))
	assert.Equal(t, models.ReportStatusPending, reloadReport(t, db, rpt.ID).Status)
}

func TestCorrectSubmissionOnFinalAttempt(t *testing.T) {
	svc, db := newTestService(t)
	claimant := seedUser(t, db, models.RoleStudent, "Main Campus")
	rpt := seedReport(t, db, "STD202300456")
	meta := audit.RequestMeta{}

	v, err := svc.StartVerification(rpt.ID, models.MethodIDNumber, "", claimant, meta)
	require.NoError(t, err)

	for i := 1; i < models.MaxVerificationAttempts; i++ {
		_, err = svc.VerifyIDNumber(v.ID, "STD000000000", claimant, meta)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed), "attempt %d", i)
	}
	require.Equal(t, models.MaxVerificationAttempts-1, reloadVerification(t, db, v.ID).AttemptCount)

	// One attempt left: a matching submission must still win.
	out, err := svc.VerifyIDNumber(v.ID, "STD202300456", claimant, meta)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, out.Status)
	assert.Equal(t, models.ReportStatusClaimed, reloadReport(t, db, rpt.ID).Status)
}

func TestVerifyOTP(t *testing.T) {
	svc, db := newTestService(t)
	claimant := seedUser(t, db, models.RoleStudent, "Main Campus")
	rpt := seedReport(t, db, "STD202300456")
	meta := audit.RequestMeta{}

	v, err := svc.StartVerification(rpt.ID, models.MethodPhoneOTP, "0712345678", claimant, meta)
	require.NoError(t, err)
	stored := reloadVerification(t, db, v.ID)
	require.Len(t, stored.PhoneOTP, 6)

	t.Run("wrong code spends an attempt", func(t *testing.T) {
		_, err := svc.VerifyOTP(v.ID, "000000", claimant, meta)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
		assert.Equal(t, 1, reloadVerification(t, db, v.ID).AttemptCount)
	})

	t.Run("matching code claims and is consumed", func(t *testing.T) {
		out, err := svc.VerifyOTP(v.ID, stored.PhoneOTP, claimant, meta)
		require.NoError(t, err)
		assert.Equal(t, models.VerificationVerified, out.Status)

		got := reloadVerification(t, db, v.ID)
		assert.Empty(t, got.PhoneOTP)
		assert.Nil(t, got.PhoneOTPExpires)
		assert.Equal(t, models.ReportStatusClaimed, reloadReport(t, db, rpt.ID).Status)
	})
}

func TestVerifyOTPLapsedCodeCostsNoAttempt(t *testing.T) {
	svc, db := newTestService(t)
	claimant := seedUser(t, db, models.RoleStudent, "Main Campus")
	rpt := seedReport(t, db, "STD202300456")
	meta := audit.RequestMeta{}

	v, err := svc.StartVerification(rpt.ID, models.MethodPhoneOTP, "0712345678", claimant, meta)
	require.NoError(t, err)
	stored := reloadVerification(t, db, v.ID)
	require.NoError(t, db.Model(v).Update("phone_otp_expires", time.Now().Add(-time.Minute)).Error)

	_, err = svc.VerifyOTP(v.ID, stored.PhoneOTP, claimant, meta)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeVerificationExpired))
	assert.Equal(t, 0, reloadVerification(t, db, v.ID).AttemptCount)
}

func TestVerifyAnswers(t *testing.T) {
	svc, db := newTestService(t)
	claimant := seedUser(t, db, models.RoleStudent, "Main Campus")
	rpt := seedReport(t, db, "STD202300456")
	meta := audit.RequestMeta{}

	v, err := svc.StartVerification(rpt.ID, models.MethodSecurityQuestions, "", claimant, meta)
	require.NoError(t, err)
	require.Len(t, v.QuestionList(), len(seededQuestions))

	t.Run("one answer is not enough", func(t *testing.T) {
		_, err := svc.VerifyAnswers(v.ID, []string{"Njeri", "", " "}, claimant, meta)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

		got := reloadVerification(t, db, v.ID)
		assert.Equal(t, 1, got.AttemptCount)
		questions := got.QuestionList()
		require.Len(t, questions, len(seededQuestions))
		assert.Equal(t, "Njeri", questions[0].AnswerProvided)
	})

	t.Run("two answers pass", func(t *testing.T) {
		out, err := svc.VerifyAnswers(v.ID, []string{"Njeri", "Simba", ""}, claimant, meta)
		require.NoError(t, err)
		assert.Equal(t, models.VerificationVerified, out.Status)
		assert.Equal(t, models.ReportStatusClaimed, reloadReport(t, db, rpt.ID).Status)
	})
}

func TestDeadlineLapseExpiresOnAccess(t *testing.T) {
	svc, db := newTestService(t)
	claimant := seedUser(t, db, models.RoleStudent, "Main Campus")
	rpt := seedReport(t, db, "STD202300456")
	meta := audit.RequestMeta{}

	v, err := svc.StartVerification(rpt.ID, models.MethodIDNumber, "", claimant, meta)
	require.NoError(t, err)
	require.NoError(t, db.Model(v).Update("expires_at", time.Now().Add(-time.Hour)).Error)

	_, err = svc.VerifyIDNumber(v.ID, "STD202300456", claimant, meta)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeVerificationExpired))
	assert.Equal(t, models.VerificationExpired, reloadVerification(t, db, v.ID).Status)
}

func TestCompetingClaimantLosesAndIsRejected(t *testing.T) {
	svc, db := newTestService(t)
	winner := seedUser(t, db, models.RoleStudent, "Main Campus")
	loser := seedUser(t, db, models.RoleStudent, "Main Campus")
	rpt := seedReport(t, db, "STD202300456")
	meta := audit.RequestMeta{}

	winnerV, err := svc.StartVerification(rpt.ID, models.MethodIDNumber, "", winner, meta)
	require.NoError(t, err)
	loserV, err := svc.StartVerification(rpt.ID, models.MethodIDNumber, "", loser, meta)
	require.NoError(t, err)

	_, err = svc.VerifyIDNumber(winnerV.ID, "STD202300456", winner, meta)
	require.NoError(t, err)

	// The second correct submission finds the report already claimed.
	_, err = svc.VerifyIDNumber(loserV.ID, "STD202300456", loser, meta)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	assert.Equal(t, models.VerificationRejected, reloadVerification(t, db, loserV.ID).Status)

	got := reloadReport(t, db, rpt.ID)
	require.NotNil(t, got.OwnerID)
	assert.Equal(t, winner.ID, *got.OwnerID)
	assert.Equal(t, models.VerificationVerified, reloadVerification(t, db, winnerV.ID).Status)
}

func TestFinalizeTwiceKeepsWinner(t *testing.T) {
	svc, db := newTestService(t)
	claimant := seedUser(t, db, models.RoleStudent, "Main Campus")
	rpt := seedReport(t, db, "STD202300456")
	meta := audit.RequestMeta{}

	v, err := svc.StartVerification(rpt.ID, models.MethodIDNumber, "", claimant, meta)
	require.NoError(t, err)

	// Two in-flight submissions of the same correct value hold the same stale
	// snapshot; the second to finalize must not clobber the committed winner.
	stale := *v

	out, err := svc.succeed(v, rpt, claimant, meta, nil)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, out.Status)

	again, err := svc.succeed(&stale, rpt, claimant, meta, nil)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, again.Status)

	got := reloadVerification(t, db, v.ID)
	assert.Equal(t, models.VerificationVerified, got.Status)

	rptNow := reloadReport(t, db, rpt.ID)
	require.NotNil(t, rptNow.OwnerID)
	assert.Equal(t, claimant.ID, *rptNow.OwnerID)
}

func TestSecurityVerify(t *testing.T) {
	meta := audit.RequestMeta{}

	start := func(t *testing.T) (*VerificationService, *gorm.DB, *models.User, *models.Report, *models.Verification) {
		svc, db := newTestService(t)
		claimant := seedUser(t, db, models.RoleStudent, "Main Campus")
		rpt := seedReport(t, db, "STD202300456")

		v, err := svc.StartVerification(rpt.ID, models.MethodDocumentUpload, "", claimant, meta)
		require.NoError(t, err)
		assert.Equal(t, models.VerificationPending, v.Status)

		v, err = svc.AttachDocuments(v.ID, []models.VerificationDocument{{
			URL:          "https://cdn.pataid.com/d/doc.pdf",
			StorageKey:   "d/doc.pdf",
			DocumentType: "national_id",
		}}, claimant, meta)
		require.NoError(t, err)
		assert.Equal(t, models.VerificationInProgress, v.Status)
		return svc, db, claimant, rpt, v
	}

	t.Run("only the security role may resolve", func(t *testing.T) {
		svc, db, claimant, _, v := start(t)
		admin := seedUser(t, db, models.RoleAdmin, models.CampusAll)

		_, err := svc.SecurityVerify(v.ID, true, "", claimant, meta)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
		_, err = svc.SecurityVerify(v.ID, true, "", admin, meta)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	})

	t.Run("campus scoping", func(t *testing.T) {
		svc, db, _, _, v := start(t)
		guard := seedUser(t, db, models.RoleSecurity, "Coast Campus")

		_, err := svc.SecurityVerify(v.ID, true, "", guard, meta)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	})

	t.Run("approval claims the report for the claimant", func(t *testing.T) {
		svc, db, claimant, rpt, v := start(t)
		guard := seedUser(t, db, models.RoleSecurity, "Main Campus")

		out, err := svc.SecurityVerify(v.ID, true, "documents match", guard, meta)
		require.NoError(t, err)
		assert.Equal(t, models.VerificationVerified, out.Status)

		docs := reloadVerification(t, db, v.ID).DocumentList()
		require.Len(t, docs, 1)
		assert.True(t, docs[0].Verified)

		got := reloadReport(t, db, rpt.ID)
		assert.Equal(t, models.ReportStatusClaimed, got.Status)
		require.NotNil(t, got.OwnerID)
		assert.Equal(t, claimant.ID, *got.OwnerID)
		require.NotNil(t, got.SecurityGuardID)
		assert.Equal(t, guard.ID, *got.SecurityGuardID)
	})

	t.Run("rejection closes the claim and leaves the report open", func(t *testing.T) {
		svc, db, _, rpt, v := start(t)
		guard := seedUser(t, db, models.RoleSecurity, models.CampusAll)

		out, err := svc.SecurityVerify(v.ID, false, "photo does not match", guard, meta)
		require.NoError(t, err)
		assert.Equal(t, models.VerificationRejected, out.Status)
		assert.Equal(t, models.ReportStatusPending, reloadReport(t, db, rpt.ID).Status)
	})
}
