package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pataid/backend/internal/models"
	"github.com/pataid/backend/internal/security/audit"
	"github.com/pataid/backend/internal/utils"
)

// AdminHandler handles admin-only platform management
type AdminHandler struct {
	db    *gorm.DB
	audit *audit.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(db *gorm.DB, auditLogger *audit.Logger) *AdminHandler {
	return &AdminHandler{db: db, audit: auditLogger}
}

// CreateStaffRequest provisions a security or admin account
type CreateStaffRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone"`
	Role      string `json:"role" binding:"required"`
	Campus    string `json:"campus" binding:"required"`
	GuardID   string `json:"guard_id"`
	Shift     string `json:"shift"`
}

// CreateStaff provisions a security or admin account
func (h *AdminHandler) CreateStaff(c *gin.Context) {
	var req CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	role := models.Role(req.Role)
	if role != models.RoleSecurity && role != models.RoleAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "role must be security or admin"})
		return
	}
	if role == models.RoleSecurity && req.GuardID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "guard_id is required for security accounts"})
		return
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	var existing models.User
	if result := h.db.Where("email = ?", req.Email).First(&existing); result.RowsAffected > 0 {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "Email already in use"})
		return
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to process password"})
		return
	}

	user := models.User{
		Email:      req.Email,
		Password:   hashed,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Phone:      utils.FormatPhoneNumber(req.Phone),
		Role:       role,
		Campus:     req.Campus,
		GuardID:    req.GuardID,
		Shift:      req.Shift,
		IsVerified: true,
	}

	if err := h.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create account"})
		return
	}

	respondCreated(c, user)
}

// ListUsers pages through platform accounts
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 50)
	if limit > 200 {
		limit = 200
	}

	query := h.db.Model(&models.User{})
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if campus := c.Query("campus"); campus != "" {
		query = query.Where("campus = ?", campus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to count users"})
		return
	}

	var users []models.User
	if err := query.Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to list users"})
		return
	}

	respondOK(c, gin.H{"users": users, "total": total, "page": page, "limit": limit})
}

// AuditTrail pages through recent audit entries
func (h *AdminHandler) AuditTrail(c *gin.Context) {
	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 50)
	if limit > 200 {
		limit = 200
	}

	logs, err := h.audit.RecentLogs(limit, (page-1)*limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load audit trail"})
		return
	}

	respondOK(c, gin.H{"logs": logs, "page": page, "limit": limit})
}

// ResourceAudit returns the audit history for one resource
func (h *AdminHandler) ResourceAudit(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resourceType := c.Query("type")
	if resourceType == "" {
		resourceType = audit.ResourceReport
	}

	logs, err := h.audit.ResourceLogs(resourceType, id, 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load audit history"})
		return
	}

	respondOK(c, logs)
}
