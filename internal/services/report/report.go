package report

import (
	"database/sql"
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
	"github.com/pataid/backend/internal/utils"
)

// ReportService manages found-ID reports
type ReportService struct {
	db       *gorm.DB
	notifier notification.Dispatcher
	audit    *audit.Logger
}

// NewReportService creates a new report service
func NewReportService(db *gorm.DB, notifier notification.Dispatcher, auditLogger *audit.Logger) *ReportService {
	return &ReportService{
		db:       db,
		notifier: notifier,
		audit:    auditLogger,
	}
}

// CreateReportInput carries the fields a finder submits when reporting a
// found ID.
type CreateReportInput struct {
	IDType              models.IDType
	FullName            string
	IDNumber            string
	FinderContact       string
	FinderContactMethod string
	Campus              string
	Building            string
	SpecificLocation    string
	GPSCoordinates      *models.GPSCoordinates
	Photos              []models.Photo
	FoundAt             time.Time
}

// CreateReport registers a found ID. The masked number is derived at
// construction so the raw value never leaves the privileged read path, and a
// duplicate active report for the same ID number is rejected.
func (s *ReportService) CreateReport(input CreateReportInput, actor *models.User, meta audit.RequestMeta) (*models.Report, error) {
	if input.IDType != models.IDTypeStudent && input.IDType != models.IDTypeStaff {
		return nil, apperrors.New(apperrors.CodeValidationFailed, "id_type must be student or staff")
	}
	if input.FullName == "" || input.IDNumber == "" || input.Campus == "" || input.SpecificLocation == "" {
		return nil, apperrors.New(apperrors.CodeValidationFailed, "full_name, id_number, campus and specific_location are required")
	}

	report := models.Report{
		IDType:           input.IDType,
		FullName:         input.FullName,
		IDNumber:         input.IDNumber,
		MaskedIDNumber:   utils.MaskIdentifier(input.IDNumber),
		Campus:           input.Campus,
		Building:         input.Building,
		SpecificLocation: input.SpecificLocation,
		Status:           models.ReportStatusPending,
		FoundAt:          input.FoundAt,
	}
	if report.FoundAt.IsZero() {
		report.FoundAt = time.Now()
	}

	if actor != nil {
		report.FinderID = &actor.ID
		report.FinderType = string(actor.Role)
	} else {
		report.FinderType = "guest"
		report.FinderContact = input.FinderContact
		report.FinderContactMethod = input.FinderContactMethod
		if report.FinderContact == "" {
			return nil, apperrors.New(apperrors.CodeValidationFailed, "finder_contact is required for guest reports")
		}
	}

	if err := report.SetGPS(input.GPSCoordinates); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidationFailed, "invalid gps coordinates", err)
	}
	if len(input.Photos) > 0 {
		if err := report.SetPhotos(input.Photos); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeValidationFailed, "invalid photos", err)
		}
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// One active report per ID number. Terminal reports for the same number
	// do not block a fresh loss.
	var existing int64
	if err := tx.Model(&models.Report{}).
		Where("id_number = ? AND status IN ?", input.IDNumber, models.ClaimableStatuses).
		Count(&existing).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to check for duplicate report: %w", err)
	}
	if existing > 0 {
		tx.Rollback()
		return nil, apperrors.New(apperrors.CodeConflict, "an active report already exists for this ID number")
	}

	// Report numbers are sequential per ID type, derived from the table count
	// under the insert transaction.
	var sequence int64
	if err := tx.Model(&models.Report{}).
		Where("id_type = ?", input.IDType).
		Count(&sequence).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to derive report number: %w", err)
	}
	report.ReportNumber = utils.FormatReportNumber(input.IDType.ReportNumberPrefix(), sequence+1)

	if err := tx.Create(&report).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit report: %w", err)
	}

	s.recordAudit(audit.ActionCreateReport, actor, audit.ResourceReport, report.ID, nil, map[string]interface{}{
		"report_number": report.ReportNumber,
		"status":        string(report.Status),
		"campus":        report.Campus,
	}, true, meta)

	s.notifyOnCreate(&report, actor)

	return &report, nil
}

// notifyOnCreate confirms the report to the finder and alerts the registered
// owner if one matches the found ID number. Delivery is best-effort.
func (s *ReportService) notifyOnCreate(report *models.Report, actor *models.User) {
	if actor != nil && actor.Email != "" && actor.NotifyEmail {
		s.notifier.SendReportConfirmation(notification.ReportConfirmationPayload{
			Email:        actor.Email,
			FinderName:   actor.FullName(),
			ReportNumber: report.ReportNumber,
		})
	}

	normalized := utils.NormalizeIDNumber(report.IDNumber)
	idColumn := "student_id"
	if report.IDType == models.IDTypeStaff {
		idColumn = "staff_id"
	}

	var owner models.User
	err := s.db.Where(fmt.Sprintf("UPPER(%s) = ?", idColumn), normalized).First(&owner).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("owner lookup failed for report %s: %v", report.ReportNumber, err)
		}
		return
	}

	payload := notification.OwnerFoundPayload{
		OwnerName:    owner.FullName(),
		ReportNumber: report.ReportNumber,
		Campus:       report.Campus,
	}
	if owner.NotifyEmail {
		payload.Email = owner.Email
	}
	if owner.NotifySMS {
		payload.Phone = owner.Phone
	}
	if payload.Email == "" && payload.Phone == "" {
		return
	}
	s.notifier.SendOwnerFoundAlert(payload)
}

// SearchParams are the public search filters.
type SearchParams struct {
	Query  string
	IDType models.IDType
	Campus string
	Status models.ReportStatus
	Page   int
	Limit  int
}

// SearchReports lists reports visible to the actor. Guests and regular users
// only ever see claimable reports; staff filters pass through.
func (s *ReportService) SearchReports(params SearchParams, actor *models.User) ([]models.Report, int64, error) {
	query := s.db.Model(&models.Report{})

	staff := actor != nil && actor.IsStaffRole()
	if staff {
		if params.Status != "" {
			query = query.Where("status = ?", params.Status)
		}
		if actor.Role == models.RoleSecurity && actor.Campus != models.CampusAll {
			query = query.Where("campus = ?", actor.Campus)
		}
	} else {
		query = query.Where("status IN ?", models.ClaimableStatuses)
	}

	if params.Query != "" {
		like := "%" + params.Query + "%"
		query = query.Where("full_name ILIKE ? OR masked_id_number ILIKE ? OR report_number ILIKE ?", like, like, like)
	}
	if params.IDType != "" {
		query = query.Where("id_type = ?", params.IDType)
	}
	if params.Campus != "" {
		query = query.Where("campus = ?", params.Campus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 20
	}
	if params.Page < 1 {
		params.Page = 1
	}

	var reports []models.Report
	if err := query.Order("created_at DESC").
		Limit(params.Limit).
		Offset((params.Page - 1) * params.Limit).
		Find(&reports).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to search reports: %w", err)
	}

	filtered := make([]models.Report, 0, len(reports))
	for i := range reports {
		filtered = append(filtered, policy.FilterReport(&reports[i], actor))
	}
	return filtered, total, nil
}

// GetReport fetches one report with policy filtering. Privileged views append
// to the report's access log.
func (s *ReportService) GetReport(id uuid.UUID, actor *models.User, meta audit.RequestMeta) (*models.Report, error) {
	var report models.Report
	if err := s.db.Where("id = ?", id).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "report not found")
		}
		return nil, fmt.Errorf("failed to fetch report: %w", err)
	}

	if !policy.CanViewReport(&report, actor) {
		return nil, apperrors.New(apperrors.CodeForbidden, "you do not have access to this report")
	}

	if actor != nil && actor.IsStaffRole() {
		if err := report.AppendAccess(actor.ID, audit.ActionViewReport, time.Now()); err == nil {
			if err := s.db.Model(&report).Updates(map[string]interface{}{
				"access_log":    report.AccessLog,
				"last_accessed": report.LastAccessed,
			}).Error; err != nil {
				log.Printf("failed to append access log for report %s: %v", report.ReportNumber, err)
			}
		}
		s.recordAudit(audit.ActionViewReport, actor, audit.ResourceReport, report.ID, nil, nil, true, meta)
	}

	filtered := policy.FilterReport(&report, actor)
	return &filtered, nil
}

// UpdateReportInput whitelists the mutable report fields.
type UpdateReportInput struct {
	Status             *models.ReportStatus
	VerificationStatus *models.VerificationStatus
	SecurityGuardID    *uuid.UUID
	SecurityNotes      *string
	CollectionPoint    *string
	CollectionNotes    *string
}

// UpdateReport applies a whitelisted update. Only admin and security may call
// it; a security guard touching a report without an assigned guard takes it
// over.
func (s *ReportService) UpdateReport(id uuid.UUID, input UpdateReportInput, actor *models.User, meta audit.RequestMeta) (*models.Report, error) {
	if !policy.CanEditReport(actor) {
		return nil, apperrors.New(apperrors.CodeForbidden, "only admin or security can update reports")
	}

	var report models.Report
	if err := s.db.Where("id = ?", id).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "report not found")
		}
		return nil, fmt.Errorf("failed to fetch report: %w", err)
	}
	if actor.Role == models.RoleSecurity && !campusCovered(actor, report.Campus) {
		return nil, apperrors.New(apperrors.CodeForbidden, "report belongs to another campus")
	}

	before := map[string]interface{}{
		"status":              string(report.Status),
		"verification_status": string(report.VerificationStatus),
	}

	updates := map[string]interface{}{}
	now := time.Now()

	if input.Status != nil {
		switch *input.Status {
		case models.ReportStatusPending, models.ReportStatusVerified, models.ReportStatusClaimed,
			models.ReportStatusReturned, models.ReportStatusArchived:
		default:
			return nil, apperrors.Newf(apperrors.CodeValidationFailed, "invalid status %q", *input.Status)
		}
		updates["status"] = *input.Status
		if *input.Status == models.ReportStatusClaimed && report.ClaimedAt == nil {
			updates["claimed_at"] = now
		}
		if *input.Status == models.ReportStatusReturned && report.CollectedAt == nil {
			updates["collected_at"] = now
		}
	}
	if input.VerificationStatus != nil {
		updates["verification_status"] = *input.VerificationStatus
	}
	if input.SecurityGuardID != nil {
		updates["security_guard_id"] = *input.SecurityGuardID
	} else if actor.Role == models.RoleSecurity && report.SecurityGuardID == nil {
		updates["security_guard_id"] = actor.ID
	}
	if input.SecurityNotes != nil {
		updates["security_notes"] = *input.SecurityNotes
	}
	if input.CollectionPoint != nil {
		updates["collection_point"] = *input.CollectionPoint
	}
	if input.CollectionNotes != nil {
		updates["collection_notes"] = *input.CollectionNotes
	}

	if len(updates) == 0 {
		return &report, nil
	}

	if err := report.AppendAccess(actor.ID, audit.ActionUpdateReport, now); err == nil {
		updates["access_log"] = report.AccessLog
		updates["last_accessed"] = report.LastAccessed
	}

	if err := s.db.Model(&report).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update report: %w", err)
	}

	if err := s.db.Where("id = ?", id).First(&report).Error; err != nil {
		return nil, fmt.Errorf("failed to reload report: %w", err)
	}

	s.recordAudit(audit.ActionUpdateReport, actor, audit.ResourceReport, report.ID, before, map[string]interface{}{
		"status":              string(report.Status),
		"verification_status": string(report.VerificationStatus),
	}, true, meta)

	return &report, nil
}

// CompleteClaim atomically marks the report claimed by the winning claimant.
// The conditional WHERE makes concurrent winners impossible: exactly one
// UPDATE can match while the report is still unclaimed, everyone else gets
// Conflict. Runs inside the caller's transaction.
func (s *ReportService) CompleteClaim(tx *gorm.DB, reportID, ownerID uuid.UUID, method models.ClaimMethod) error {
	now := time.Now()
	result := tx.Model(&models.Report{}).
		Where("id = ? AND status IN ? AND owner_id IS NULL", reportID, models.ClaimableStatuses).
		Updates(map[string]interface{}{
			"status":              models.ReportStatusClaimed,
			"verification_status": models.VerificationStatusVerified,
			"owner_id":            ownerID,
			"claimed_at":          now,
			"claimed_method":      method,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to complete claim: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.CodeConflict, "report has already been claimed")
	}
	return nil
}

// DeleteReport removes a report. Admin only, and blocked while any claim is
// still in flight.
func (s *ReportService) DeleteReport(id uuid.UUID, actor *models.User, meta audit.RequestMeta) error {
	if !policy.CanDeleteReport(actor) {
		return apperrors.New(apperrors.CodeForbidden, "only admin can delete reports")
	}

	var report models.Report
	if err := s.db.Where("id = ?", id).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.CodeNotFound, "report not found")
		}
		return fmt.Errorf("failed to fetch report: %w", err)
	}

	var active int64
	if err := s.db.Model(&models.Verification{}).
		Where("report_id = ? AND status IN ?", id, models.ActiveVerificationStates).
		Count(&active).Error; err != nil {
		return fmt.Errorf("failed to check active claims: %w", err)
	}
	if active > 0 {
		return apperrors.New(apperrors.CodeInvalidState, "report has active claims and cannot be deleted")
	}

	if err := s.db.Delete(&report).Error; err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}

	s.recordAudit(audit.ActionDeleteReport, actor, audit.ResourceReport, report.ID, map[string]interface{}{
		"report_number": report.ReportNumber,
		"status":        string(report.Status),
	}, nil, true, meta)

	return nil
}

// MyReports returns the reports the actor filed plus the ones claimed as
// theirs.
func (s *ReportService) MyReports(actor *models.User) (found []models.Report, claimed []models.Report, err error) {
	if actor == nil {
		return nil, nil, apperrors.New(apperrors.CodeForbidden, "authentication required")
	}

	if err = s.db.Where("finder_id = ?", actor.ID).
		Order("created_at DESC").Find(&found).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to fetch found reports: %w", err)
	}
	if err = s.db.Where("owner_id = ?", actor.ID).
		Order("created_at DESC").Find(&claimed).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to fetch claimed reports: %w", err)
	}
	return found, claimed, nil
}

// Stats summarizes platform recovery performance.
type Stats struct {
	TotalReports    int64            `json:"total_reports"`
	ByStatus        map[string]int64 `json:"by_status"`
	RecoveryRate    float64          `json:"recovery_rate"`
	AvgDaysToReturn float64          `json:"avg_days_to_return"`
}

// GetStats computes counts per status, the recovery rate and the average days
// from claim to collection. Staff only.
func (s *ReportService) GetStats(actor *models.User) (*Stats, error) {
	if actor == nil || !actor.IsStaffRole() {
		return nil, apperrors.New(apperrors.CodeForbidden, "only admin or security can view stats")
	}

	stats := &Stats{ByStatus: make(map[string]int64)}

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	if err := s.db.Model(&models.Report{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("failed to count reports: %w", err)
	}
	for _, c := range counts {
		stats.ByStatus[c.Status] = c.Count
		stats.TotalReports += c.Count
	}

	if stats.TotalReports > 0 {
		recovered := stats.ByStatus[string(models.ReportStatusClaimed)] + stats.ByStatus[string(models.ReportStatusReturned)]
		stats.RecoveryRate = float64(recovered) / float64(stats.TotalReports)
	}

	var avgDays sql.NullFloat64
	if err := s.db.Model(&models.Report{}).
		Select("AVG(EXTRACT(EPOCH FROM (collected_at - claimed_at)) / 86400)").
		Where("claimed_at IS NOT NULL AND collected_at IS NOT NULL").
		Scan(&avgDays).Error; err != nil {
		return nil, fmt.Errorf("failed to compute average return time: %w", err)
	}
	if avgDays.Valid {
		stats.AvgDaysToReturn = avgDays.Float64
	}

	return stats, nil
}

func campusCovered(actor *models.User, campus string) bool {
	return actor.Campus == models.CampusAll || actor.Campus == campus
}

func (s *ReportService) recordAudit(action string, actor *models.User, resourceType string, resourceID uuid.UUID, before, after map[string]interface{}, success bool, meta audit.RequestMeta) {
	entry := audit.Entry{
		Action:       action,
		ResourceType: resourceType,
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
