package audit

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Action names recorded in the audit trail
const (
	ActionCreateReport  = "create_report"
	ActionViewReport    = "view_report"
	ActionUpdateReport  = "update_report"
	ActionDeleteReport  = "delete_report"
	ActionClaimReport   = "claim_report"
	ActionVerifyReport  = "verify_report"
	ActionStartClaim    = "start_claim"
	ActionSearchReports = "search_reports"
)

// Resource types recorded in the audit trail
const (
	ResourceReport       = "report"
	ResourceVerification = "verification"
	ResourceUser         = "user"
)

// AuditLog is one append-only record of a state transition or access
type AuditLog struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key;default:(gen_random_uuid())" json:"id"`
	ActorID      *uuid.UUID     `gorm:"type:uuid;index" json:"actor_id,omitempty"`
	ActorRole    string         `gorm:"type:varchar(20)" json:"actor_role,omitempty"`
	Action       string         `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType string         `gorm:"type:varchar(30);not null" json:"resource_type"`
	ResourceID   *uuid.UUID     `gorm:"type:uuid" json:"resource_id,omitempty"`
	BeforeState  datatypes.JSON `gorm:"type:jsonb" json:"before_state,omitempty"`
	AfterState   datatypes.JSON `gorm:"type:jsonb" json:"after_state,omitempty"`
	IPAddress    string         `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	UserAgent    string         `gorm:"type:text" json:"user_agent,omitempty"`
	Endpoint     string         `gorm:"type:varchar(255)" json:"endpoint,omitempty"`
	Method       string         `gorm:"type:varchar(10)" json:"method,omitempty"`
	Tags         datatypes.JSON `gorm:"type:jsonb" json:"tags,omitempty"`
	Success      bool           `gorm:"index;default:true" json:"success"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns the ID when the database has no uuid default.
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Entry describes one auditable event before it is persisted
type Entry struct {
	Action       string
	ActorID      *uuid.UUID
	ActorRole    string
	ResourceType string
	ResourceID   *uuid.UUID
	BeforeState  map[string]interface{}
	AfterState   map[string]interface{}
	Tags         []string
	Success      bool
}

// RequestMeta carries transport details into the audit record
type RequestMeta struct {
	IPAddress string
	UserAgent string
	Endpoint  string
	Method    string
}

// MetaFromGin extracts request metadata from a gin context.
func MetaFromGin(c *gin.Context) RequestMeta {
	if c == nil || c.Request == nil {
		return RequestMeta{}
	}
	return RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
		Endpoint:  c.Request.URL.Path,
		Method:    c.Request.Method,
	}
}

// Logger is the audit logger
type Logger struct {
	db *gorm.DB
}

// NewLogger creates a new audit logger
func NewLogger(db *gorm.DB) *Logger {
	return &Logger{db: db}
}

// Record writes one audit entry. Audit failures are logged and swallowed;
// they must never abort the operation being audited.
func (l *Logger) Record(entry Entry, meta RequestMeta) {
	record := AuditLog{
		ActorID:      entry.ActorID,
		ActorRole:    entry.ActorRole,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		Endpoint:     meta.Endpoint,
		Method:       meta.Method,
		Success:      entry.Success,
		CreatedAt:    time.Now(),
	}

	record.BeforeState = marshalState(entry.BeforeState)
	record.AfterState = marshalState(entry.AfterState)
	if len(entry.Tags) > 0 {
		if data, err := json.Marshal(entry.Tags); err == nil {
			record.Tags = datatypes.JSON(data)
		}
	}

	if err := l.db.Create(&record).Error; err != nil {
		log.Printf("audit: failed to record %s on %s: %v", entry.Action, entry.ResourceType, err)
	}
}

func marshalState(state map[string]interface{}) datatypes.JSON {
	if state == nil {
		return nil
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

// RecentLogs returns audit entries, newest first.
func (l *Logger) RecentLogs(limit, offset int) ([]AuditLog, error) {
	var logs []AuditLog
	err := l.db.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error
	return logs, err
}

// ResourceLogs returns the audit history of one resource, newest first.
func (l *Logger) ResourceLogs(resourceType string, resourceID uuid.UUID, limit int) ([]AuditLog, error) {
	var logs []AuditLog
	err := l.db.Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
