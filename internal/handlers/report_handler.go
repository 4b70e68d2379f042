package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pataid/backend/internal/middleware"
	"github.com/pataid/backend/internal/models"
	"github.com/pataid/backend/internal/security/audit"
	"github.com/pataid/backend/internal/services/report"
	"github.com/pataid/backend/internal/services/upload"
)

// ReportHandler handles found-ID report requests
type ReportHandler struct {
	db      *gorm.DB
	reports *report.ReportService
	uploads *upload.UploadService
}

// NewReportHandler creates a new report handler
func NewReportHandler(db *gorm.DB, reports *report.ReportService, uploads *upload.UploadService) *ReportHandler {
	return &ReportHandler{db: db, reports: reports, uploads: uploads}
}

// CreateReportRequest represents the request body for reporting a found ID
type CreateReportRequest struct {
	IDType              string                 `json:"id_type" binding:"required"`
	FullName            string                 `json:"full_name" binding:"required"`
	IDNumber            string                 `json:"id_number" binding:"required"`
	FinderContact       string                 `json:"finder_contact"`
	FinderContactMethod string                 `json:"finder_contact_method"`
	Campus              string                 `json:"campus" binding:"required"`
	Building            string                 `json:"building"`
	SpecificLocation    string                 `json:"specific_location" binding:"required"`
	GPSCoordinates      *models.GPSCoordinates `json:"gps_coordinates"`
	Photos              []models.Photo         `json:"photos"`
	FoundAt             *time.Time             `json:"found_at"`
}

// Create registers a found ID report. Works for both authenticated users and
// guests.
func (h *ReportHandler) Create(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	actor, err := middleware.CurrentUser(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to resolve user"})
		return
	}

	input := report.CreateReportInput{
		IDType:              models.IDType(req.IDType),
		FullName:            req.FullName,
		IDNumber:            req.IDNumber,
		FinderContact:       req.FinderContact,
		FinderContactMethod: req.FinderContactMethod,
		Campus:              req.Campus,
		Building:            req.Building,
		SpecificLocation:    req.SpecificLocation,
		GPSCoordinates:      req.GPSCoordinates,
		Photos:              req.Photos,
	}
	if req.FoundAt != nil {
		input.FoundAt = *req.FoundAt
	}

	created, err := h.reports.CreateReport(input, actor, audit.MetaFromGin(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, created)
}

// Search lists reports matching the query filters
func (h *ReportHandler) Search(c *gin.Context) {
	actor, err := middleware.CurrentUser(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to resolve user"})
		return
	}

	params := report.SearchParams{
		Query:  c.Query("q"),
		IDType: models.IDType(c.Query("id_type")),
		Campus: c.Query("campus"),
		Status: models.ReportStatus(c.Query("status")),
	}
	params.Page = intQuery(c, "page", 1)
	params.Limit = intQuery(c, "limit", 20)

	reports, total, err := h.reports.SearchReports(params, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{
		"reports": reports,
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
	})
}

// Get fetches one report
func (h *ReportHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	actor, err := middleware.CurrentUser(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to resolve user"})
		return
	}

	found, err := h.reports.GetReport(id, actor, audit.MetaFromGin(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, found)
}

// UpdateReportRequest whitelists the updatable fields
type UpdateReportRequest struct {
	Status             *string    `json:"status"`
	VerificationStatus *string    `json:"verification_status"`
	SecurityGuardID    *uuid.UUID `json:"security_guard_id"`
	SecurityNotes      *string    `json:"security_notes"`
	CollectionPoint    *string    `json:"collection_point"`
	CollectionNotes    *string    `json:"collection_notes"`
}

// Update applies a staff update to a report
func (h *ReportHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	actor, err := middleware.CurrentUser(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to resolve user"})
		return
	}

	input := report.UpdateReportInput{
		SecurityGuardID: req.SecurityGuardID,
		SecurityNotes:   req.SecurityNotes,
		CollectionPoint: req.CollectionPoint,
		CollectionNotes: req.CollectionNotes,
	}
	if req.Status != nil {
		status := models.ReportStatus(*req.Status)
		input.Status = &status
	}
	if req.VerificationStatus != nil {
		vs := models.VerificationStatus(*req.VerificationStatus)
		input.VerificationStatus = &vs
	}

	updated, err := h.reports.UpdateReport(id, input, actor, audit.MetaFromGin(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, updated)
}

// Delete removes a report (admin only)
func (h *ReportHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	actor, err := middleware.CurrentUser(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to resolve user"})
		return
	}

	if err := h.reports.DeleteReport(id, actor, audit.MetaFromGin(c)); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"deleted": true})
}

// MyReports lists the reports the user filed and the ones claimed as theirs
func (h *ReportHandler) MyReports(c *gin.Context) {
	actor, err := middleware.CurrentUser(c, h.db)
	if err != nil || actor == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authentication required"})
		return
	}

	found, claimed, err := h.reports.MyReports(actor)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"found": found, "claimed": claimed})
}

// Stats summarizes recovery performance (staff only)
func (h *ReportHandler) Stats(c *gin.Context) {
	actor, err := middleware.CurrentUser(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to resolve user"})
		return
	}

	stats, err := h.reports.GetStats(actor)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, stats)
}

// UploadPhoto stores a report photo and returns its storage details
func (h *ReportHandler) UploadPhoto(c *gin.Context) {
	file, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "photo file is required"})
		return
	}

	stored, err := h.uploads.Save(file, "photos")
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, gin.H{
		"url":         stored.URL,
		"storage_key": stored.StorageKey,
		"size":        stored.Size,
	})
}
