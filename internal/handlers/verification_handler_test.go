package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pataid/backend/internal/models"
	"github.com/pataid/backend/internal/security/audit"
	"github.com/pataid/backend/internal/services/notification"
	"github.com/pataid/backend/internal/services/report"
	"github.com/pataid/backend/internal/services/upload"
	"github.com/pataid/backend/internal/services/verification"
)

func setupVerificationHandler(t *testing.T) (*VerificationHandler, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "pataid.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Report{}, &models.Verification{}, &audit.AuditLog{}))

	reports := report.NewReportService(db, notification.NoopDispatcher{}, audit.NewLogger(db))
	verifications := verification.NewVerificationService(db, reports, notification.NoopDispatcher{}, audit.NewLogger(db))
	uploads := upload.NewUploadService(t.TempDir(), "/uploads")
	return NewVerificationHandler(db, verifications, uploads), db
}

func seedClaimant(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	u := &models.User{
		Email:     fmt.Sprintf("%s@ku.ac.ke", uuid.NewString()[:8]),
		Phone:     "0712345678",
		FirstName: "Wanjiku",
		LastName:  "Kamau",
		Role:      models.RoleStudent,
		Campus:    "Main Campus",
		Password:  "not-a-real-hash",
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedClaimableReport(t *testing.T, db *gorm.DB) *models.Report {
	t.Helper()
	r := &models.Report{
		ReportNumber:     "STU000001",
		IDType:           models.IDTypeStudent,
		FullName:         "Wanjiku Kamau",
		IDNumber:         "STD202300456",
		MaskedIDNumber:   "********0456",
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

// asUser injects the authenticated user the way the auth middleware does.
func asUser(u *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", u.ID)
		c.Next()
	}
}

func TestStartClaimResponseOmitsPhoneCode(t *testing.T) {
	h, db := setupVerificationHandler(t)
	claimant := seedClaimant(t, db)
	rpt := seedClaimableReport(t, db)

	r := gin.New()
	r.POST("/api/reports/:id/claim", asUser(claimant), h.Start)

	req := httptest.NewRequest(http.MethodPost, "/api/reports/"+rpt.ID.String()+"/claim",
		strings.NewReader(`{"method":"phone_otp"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	// The code was generated and stored for checking...
	var stored models.Verification
	require.NoError(t, db.Where("claimant_id = ?", claimant.ID).First(&stored).Error)
	require.Len(t, stored.PhoneOTP, 6)

	// ...but the claimant-facing response must never carry it.
	body := w.Body.String()
	assert.NotContains(t, body, "phone_otp")
	assert.NotContains(t, body, stored.PhoneOTP)
	assert.Contains(t, body, `"status":"in_progress"`)
}

func TestVerifyAnswersResponseOmitsQuestionPayload(t *testing.T) {
	h, db := setupVerificationHandler(t)
	claimant := seedClaimant(t, db)
	rpt := seedClaimableReport(t, db)

	r := gin.New()
	r.POST("/api/reports/:id/claim", asUser(claimant), h.Start)
	r.POST("/api/verifications/:id/answers", asUser(claimant), h.VerifyAnswers)

	req := httptest.NewRequest(http.MethodPost, "/api/reports/"+rpt.ID.String()+"/claim",
		strings.NewReader(`{"method":"security_questions"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "security_questions\":[")

	var stored models.Verification
	require.NoError(t, db.Where("claimant_id = ?", claimant.ID).First(&stored).Error)

	req = httptest.NewRequest(http.MethodPost, "/api/verifications/"+stored.ID.String()+"/answers",
		strings.NewReader(`{"answers":["Njeri","Simba",""]}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"status":"verified"`)
	assert.NotContains(t, body, "answer_provided")
	assert.NotContains(t, body, "Njeri")
}
