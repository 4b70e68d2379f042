package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pataid/backend/internal/middleware"
	"github.com/pataid/backend/internal/models"
	"github.com/pataid/backend/internal/policy"
	"github.com/pataid/backend/internal/security/audit"
	"github.com/pataid/backend/internal/services/upload"
	"github.com/pataid/backend/internal/services/verification"
)

// VerificationHandler handles claim verification requests
type VerificationHandler struct {
	db            *gorm.DB
	verifications *verification.VerificationService
	uploads       *upload.UploadService
}

// NewVerificationHandler creates a new verification handler
func NewVerificationHandler(db *gorm.DB, verifications *verification.VerificationService, uploads *upload.UploadService) *VerificationHandler {
	return &VerificationHandler{db: db, verifications: verifications, uploads: uploads}
}

// StartVerificationRequest represents the request body for starting a claim
type StartVerificationRequest struct {
	Method string `json:"method" binding:"required"`
	Phone  string `json:"phone"`
}

// Start opens a claim attempt against a report
func (h *VerificationHandler) Start(c *gin.Context) {
	reportID, ok := parseID(c)
	if !ok {
		return
	}

	var req StartVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	actor, err := middleware.CurrentUser(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to resolve user"})
		return
	}

	v, err := h.verifications.StartVerification(reportID, models.VerificationMethod(req.Method), req.Phone, actor, audit.MetaFromGin(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, policy.FilterVerification(v, actor))
}

// VerifyIDNumberRequest carries the claimant-supplied ID number
type VerifyIDNumberRequest struct {
	IDNumber string `json:"id_number" binding:"required"`
}

// VerifyIDNumber checks the claimant's ID number against the report
func (h *VerificationHandler) VerifyIDNumber(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req VerifyIDNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	actor, err := middleware.CurrentUser(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to resolve user"})
		return
	}

	v, err := h.verifications.VerifyIDNumber(id, req.IDNumber, actor, audit.MetaFromGin(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, policy.FilterVerification(v, actor))
}

// VerifyOTPRequest carries the submitted phone code
type VerifyOTPRequest struct {
	Code string `json:"code" binding:"required"`
}

// VerifyOTP checks a submitted phone verification code
func (h *VerificationHandler) VerifyOTP(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	actor, err := middleware.CurrentUser(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to resolve user"})
		return
	}

	v, err := h.verifications.VerifyOTP(id, req.Code, actor, audit.MetaFromGin(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, policy.FilterVerification(v, actor))
}

// ResendOTP issues a fresh phone verification code
func (h *VerificationHandler) ResendOTP(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	actor, err := middleware.CurrentUser(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to resolve user"})
		return
	}

	if err := h.verifications.ResendOTP(id, actor, audit.MetaFromGin(c)); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"sent": true})
}

// VerifyAnswersRequest carries the security question answers
type VerifyAnswersRequest struct {
	Answers []string `json:"answers" binding:"required"`
}

// VerifyAnswers checks submitted security question answers
func (h *VerificationHandler) VerifyAnswers(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req VerifyAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	actor, err := middleware.CurrentUser(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to resolve user"})
		return
	}

	v, err := h.verifications.VerifyAnswers(id, req.Answers, actor, audit.MetaFromGin(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, policy.FilterVerification(v, actor))
}

// UploadDocuments attaches ownership-proof files to a document claim
func (h *VerificationHandler) UploadDocuments(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "multipart form required"})
		return
	}
	files := form.File["documents"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "at least one document is required"})
		return
	}

	actor, err := middleware.CurrentUser(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to resolve user"})
		return
	}

	docs := make([]models.VerificationDocument, 0, len(files))
	for _, file := range files {
		stored, err := h.uploads.Save(file, "documents")
		if err != nil {
			respondError(c, err)
			return
		}
		docType := c.PostForm("document_type")
		if docType == "" {
			docType = "ownership_proof"
		}
		docs = append(docs, models.VerificationDocument{
			URL:          stored.URL,
			StorageKey:   stored.StorageKey,
			DocumentType: docType,
		})
	}

	v, err := h.verifications.AttachDocuments(id, docs, actor, audit.MetaFromGin(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, policy.FilterVerification(v, actor))
}

// SecurityVerifyRequest carries a guard's review decision
type SecurityVerifyRequest struct {
	Approved bool   `json:"approved"`
	Notes    string `json:"notes"`
}

// SecurityVerify resolves a document claim (security role only)
func (h *VerificationHandler) SecurityVerify(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req SecurityVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	actor, err := middleware.CurrentUser(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to resolve user"})
		return
	}

	v, err := h.verifications.SecurityVerify(id, req.Approved, req.Notes, actor, audit.MetaFromGin(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, policy.FilterVerification(v, actor))
}

// Get fetches one verification, policy-filtered for the caller
func (h *VerificationHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	actor, err := middleware.CurrentUser(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to resolve user"})
		return
	}

	v, err := h.verifications.GetVerification(id, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, v)
}

// ListForReport lists claim attempts against a report (staff only)
func (h *VerificationHandler) ListForReport(c *gin.Context) {
	reportID, ok := parseID(c)
	if !ok {
		return
	}

	actor, err := middleware.CurrentUser(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to resolve user"})
		return
	}

	list, err := h.verifications.ReportVerifications(reportID, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, list)
}
