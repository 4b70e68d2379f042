package report

import (
	"fmt"
	"path/filepath"
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
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "pataid.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Report{}, &models.Verification{}, &audit.AuditLog{}))
	return db
}

func newTestService(t *testing.T) (*ReportService, *gorm.DB) {
	t.Helper()
	db := setupDB(t)
	return NewReportService(db, notification.NoopDispatcher{}, audit.NewLogger(db)), db
}

func seedUser(t *testing.T, db *gorm.DB, role models.Role, campus string) *models.User {
	t.Helper()
	u := &models.User{
		Email:     fmt.Sprintf("%s@ku.ac.ke", uuid.NewString()[:8]),
		FirstName: "Achieng",
		LastName:  "Odhiambo",
		Role:      role,
		Campus:    campus,
		Password:  "not-a-real-hash",
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func studentInput(idNumber string) CreateReportInput {
	return CreateReportInput{
		IDType:           models.IDTypeStudent,
		FullName:         "Achieng Odhiambo",
		IDNumber:         idNumber,
		FinderContact:    "finder@ku.ac.ke",
		Campus:           "Main Campus",
		SpecificLocation: "Cafeteria, table 4",
	}
}

func TestCreateReport(t *testing.T) {
	svc, db := newTestService(t)
	meta := audit.RequestMeta{}

	t.Run("guest reports need finder contact", func(t *testing.T) {
		input := studentInput("STD202300456")
		input.FinderContact = ""
		_, err := svc.CreateReport(input, nil, meta)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	})

	t.Run("numbering is sequential per id type", func(t *testing.T) {
		first, err := svc.CreateReport(studentInput("STD202300456"), nil, meta)
		require.NoError(t, err)
		assert.Equal(t, "STU000001", first.ReportNumber)
		assert.Equal(t, "********0456", first.MaskedIDNumber)
		assert.Equal(t, models.ReportStatusPending, first.Status)
		assert.Equal(t, "guest", first.FinderType)

		second, err := svc.CreateReport(studentInput("STD202300457"), nil, meta)
		require.NoError(t, err)
		assert.Equal(t, "STU000002", second.ReportNumber)

		staffInput := studentInput("STF-9911")
		staffInput.IDType = models.IDTypeStaff
		staff, err := svc.CreateReport(staffInput, nil, meta)
		require.NoError(t, err)
		assert.Equal(t, "STA000001", staff.ReportNumber)
	})

	t.Run("authenticated finder is linked, not asked for contact", func(t *testing.T) {
		finder := seedUser(t, db, models.RoleStudent, "Main Campus")
		input := studentInput("STD202300458")
		input.FinderContact = ""

		out, err := svc.CreateReport(input, finder, meta)
		require.NoError(t, err)
		require.NotNil(t, out.FinderID)
		assert.Equal(t, finder.ID, *out.FinderID)
		assert.Equal(t, string(models.RoleStudent), out.FinderType)
	})

	t.Run("duplicate active id number is rejected", func(t *testing.T) {
		_, err := svc.CreateReport(studentInput("STD202300456"), nil, meta)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	})

	t.Run("terminal report does not block a fresh loss", func(t *testing.T) {
		require.NoError(t, db.Model(&models.Report{}).
			Where("id_number = ?", "STD202300456").
			Update("status", models.ReportStatusReturned).Error)

		_, err := svc.CreateReport(studentInput("STD202300456"), nil, meta)
		require.NoError(t, err)
	})
}

func TestCompleteClaimSingleWinner(t *testing.T) {
	svc, db := newTestService(t)
	meta := audit.RequestMeta{}
	owner := seedUser(t, db, models.RoleStudent, "Main Campus")
	rival := seedUser(t, db, models.RoleStudent, "Main Campus")

	rpt, err := svc.CreateReport(studentInput("STD202300456"), nil, meta)
	require.NoError(t, err)

	require.NoError(t, svc.CompleteClaim(db, rpt.ID, owner.ID, models.ClaimMethodIDVerification))

	err = svc.CompleteClaim(db, rpt.ID, rival.ID, models.ClaimMethodPhoneVerification)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	var got models.Report
	require.NoError(t, db.Where("id = ?", rpt.ID).First(&got).Error)
	assert.Equal(t, models.ReportStatusClaimed, got.Status)
	assert.Equal(t, models.VerificationStatusVerified, got.VerificationStatus)
	require.NotNil(t, got.OwnerID)
	assert.Equal(t, owner.ID, *got.OwnerID)
	require.NotNil(t, got.ClaimedMethod)
	assert.Equal(t, models.ClaimMethodIDVerification, *got.ClaimedMethod)
	assert.NotNil(t, got.ClaimedAt)
}

func TestUpdateReport(t *testing.T) {
	svc, db := newTestService(t)
	meta := audit.RequestMeta{}

	rpt, err := svc.CreateReport(studentInput("STD202300456"), nil, meta)
	require.NoError(t, err)

	t.Run("students cannot update", func(t *testing.T) {
		student := seedUser(t, db, models.RoleStudent, "Main Campus")
		status := models.ReportStatusArchived
		_, err := svc.UpdateReport(rpt.ID, UpdateReportInput{Status: &status}, student, meta)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	})

	t.Run("security scoped by campus", func(t *testing.T) {
		guard := seedUser(t, db, models.RoleSecurity, "Coast Campus")
		status := models.ReportStatusArchived
		_, err := svc.UpdateReport(rpt.ID, UpdateReportInput{Status: &status}, guard, meta)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	})

	t.Run("invalid status rejected", func(t *testing.T) {
		admin := seedUser(t, db, models.RoleAdmin, models.CampusAll)
		status := models.ReportStatus("misplaced")
		_, err := svc.UpdateReport(rpt.ID, UpdateReportInput{Status: &status}, admin, meta)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	})

	t.Run("marking returned stamps collection and self-assigns the guard", func(t *testing.T) {
		guard := seedUser(t, db, models.RoleSecurity, "Main Campus")
		status := models.ReportStatusReturned
		notes := "collected in person"

		out, err := svc.UpdateReport(rpt.ID, UpdateReportInput{
			Status:          &status,
			CollectionNotes: &notes,
		}, guard, meta)
		require.NoError(t, err)

		assert.Equal(t, models.ReportStatusReturned, out.Status)
		assert.NotNil(t, out.CollectedAt)
		require.NotNil(t, out.SecurityGuardID)
		assert.Equal(t, guard.ID, *out.SecurityGuardID)
		assert.Equal(t, "collected in person", out.CollectionNotes)
		assert.NotEmpty(t, out.AccessEntries())
	})
}

func TestDeleteReport(t *testing.T) {
	svc, db := newTestService(t)
	meta := audit.RequestMeta{}
	admin := seedUser(t, db, models.RoleAdmin, models.CampusAll)
	claimant := seedUser(t, db, models.RoleStudent, "Main Campus")

	rpt, err := svc.CreateReport(studentInput("STD202300456"), nil, meta)
	require.NoError(t, err)

	t.Run("security cannot delete", func(t *testing.T) {
		guard := seedUser(t, db, models.RoleSecurity, models.CampusAll)
		err := svc.DeleteReport(rpt.ID, guard, meta)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	})

	t.Run("blocked while a claim is in flight", func(t *testing.T) {
		v := models.Verification{
			ReportID:          rpt.ID,
			ClaimantID:        claimant.ID,
			Method:            models.MethodIDNumber,
			Status:            models.VerificationInProgress,
			VerificationToken: uuid.NewString(),
			ExpiresAt:         time.Now().Add(models.VerificationTTL),
		}
		require.NoError(t, db.Create(&v).Error)

		err := svc.DeleteReport(rpt.ID, admin, meta)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))

		require.NoError(t, db.Model(&v).Update("status", models.VerificationRejected).Error)
	})

	t.Run("admin deletes once claims are settled", func(t *testing.T) {
		require.NoError(t, svc.DeleteReport(rpt.ID, admin, meta))

		var count int64
		require.NoError(t, db.Model(&models.Report{}).Where("id = ?", rpt.ID).Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestSearchReportsVisibility(t *testing.T) {
	svc, db := newTestService(t)
	meta := audit.RequestMeta{}

	open, err := svc.CreateReport(studentInput("STD202300456"), nil, meta)
	require.NoError(t, err)
	claimed, err := svc.CreateReport(studentInput("STD202300457"), nil, meta)
	require.NoError(t, err)
	require.NoError(t, db.Model(claimed).Update("status", models.ReportStatusClaimed).Error)

	t.Run("guests see only claimable reports, with raw fields stripped", func(t *testing.T) {
		results, total, err := svc.SearchReports(SearchParams{}, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, results, 1)
		assert.Equal(t, open.ID, results[0].ID)
		assert.Empty(t, results[0].IDNumber)
		assert.Equal(t, "********0456", results[0].MaskedIDNumber)
	})

	t.Run("admin filters by status and keeps raw fields", func(t *testing.T) {
		admin := seedUser(t, db, models.RoleAdmin, models.CampusAll)
		results, total, err := svc.SearchReports(SearchParams{Status: models.ReportStatusClaimed}, admin)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, results, 1)
		assert.Equal(t, claimed.ID, results[0].ID)
		assert.Equal(t, "STD202300457", results[0].IDNumber)
	})

	t.Run("security sees only their campus", func(t *testing.T) {
		guard := seedUser(t, db, models.RoleSecurity, "Coast Campus")
		_, total, err := svc.SearchReports(SearchParams{}, guard)
		require.NoError(t, err)
		assert.Zero(t, total)
	})
}

func TestGetReport(t *testing.T) {
	svc, db := newTestService(t)
	meta := audit.RequestMeta{}

	rpt, err := svc.CreateReport(studentInput("STD202300456"), nil, meta)
	require.NoError(t, err)

	t.Run("guest view of a claimable report is filtered", func(t *testing.T) {
		out, err := svc.GetReport(rpt.ID, nil, meta)
		require.NoError(t, err)
		assert.Empty(t, out.IDNumber)
		assert.Equal(t, "********0456", out.MaskedIDNumber)
	})

	t.Run("guest cannot view a claimed report", func(t *testing.T) {
		require.NoError(t, db.Model(&models.Report{}).Where("id = ?", rpt.ID).
			Update("status", models.ReportStatusClaimed).Error)
		defer func() {
			require.NoError(t, db.Model(&models.Report{}).Where("id = ?", rpt.ID).
				Update("status", models.ReportStatusPending).Error)
		}()

		_, err := svc.GetReport(rpt.ID, nil, meta)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	})

	t.Run("staff view appends to the access log", func(t *testing.T) {
		admin := seedUser(t, db, models.RoleAdmin, models.CampusAll)
		out, err := svc.GetReport(rpt.ID, admin, meta)
		require.NoError(t, err)
		assert.Equal(t, "STD202300456", out.IDNumber)

		var stored models.Report
		require.NoError(t, db.Where("id = ?", rpt.ID).First(&stored).Error)
		entries := stored.AccessEntries()
		require.NotEmpty(t, entries)
		assert.Equal(t, admin.ID, entries[len(entries)-1].UserID)
		assert.NotNil(t, stored.LastAccessed)
	})
}
