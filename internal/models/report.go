package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// IDType identifies the kind of identification card that was found
type IDType string

const (
	IDTypeStudent IDType = "student"
	IDTypeStaff   IDType = "staff"
)

// ReportNumberPrefix returns the report number prefix for the ID type.
func (t IDType) ReportNumberPrefix() string {
	if t == IDTypeStaff {
		return "STA"
	}
	return "STU"
}

// ReportStatus tracks a found-ID report through its lifecycle
type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "pending"
	ReportStatusVerified ReportStatus = "verified"
	ReportStatusClaimed  ReportStatus = "claimed"
	ReportStatusReturned ReportStatus = "returned"
	ReportStatusArchived ReportStatus = "archived"
)

// VerificationStatus summarizes claim progress on the report itself
type VerificationStatus string

const (
	VerificationStatusUnverified VerificationStatus = "unverified"
	VerificationStatusPending    VerificationStatus = "pending_verification"
	VerificationStatusVerified   VerificationStatus = "verified"
	VerificationStatusFailed     VerificationStatus = "failed"
)

// ClaimMethod is the tag recorded on a report once a claim succeeds
type ClaimMethod string

const (
	ClaimMethodIDVerification    ClaimMethod = "id_verification"
	ClaimMethodSecurityQuestions ClaimMethod = "security_questions"
	ClaimMethodPhoneVerification ClaimMethod = "phone_verification"
	ClaimMethodDocumentUpload    ClaimMethod = "document_upload"
)

// ClaimableStatuses are the report states in which a claim may be started.
var ClaimableStatuses = []ReportStatus{ReportStatusPending, ReportStatusVerified}

// Photo is one uploaded picture of the found ID
type Photo struct {
	URL        string    `json:"url,omitempty"`
	StorageKey string    `json:"storage_key,omitempty"`
	BlurHash   string    `json:"blur_hash,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// GPSCoordinates pinpoints where the ID was found
type GPSCoordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// AccessEntry is one row of a report's embedded access log
type AccessEntry struct {
	UserID     uuid.UUID `json:"user_id"`
	AccessedAt time.Time `json:"accessed_at"`
	Action     string    `json:"action"`
}

// Report represents one found identification card awaiting reunification
// with its owner.
type Report struct {
	Base
	ReportNumber string `gorm:"uniqueIndex;type:varchar(20);not null" json:"report_number"`

	IDType         IDType `gorm:"type:varchar(10);not null" json:"id_type"`
	FullName       string `gorm:"type:varchar(255);not null" json:"full_name"`
	IDNumber       string `gorm:"type:varchar(100);not null;index" json:"id_number,omitempty"`
	MaskedIDNumber string `gorm:"type:varchar(100);not null;index" json:"masked_id_number"`

	FinderID            *uuid.UUID `gorm:"type:uuid;index" json:"finder_id,omitempty"`
	FinderType          string     `gorm:"type:varchar(20);not null" json:"finder_type"`
	FinderContact       string     `gorm:"type:varchar(255)" json:"finder_contact,omitempty"`
	FinderContactMethod string     `gorm:"type:varchar(10)" json:"finder_contact_method,omitempty"`

	Campus           string         `gorm:"type:varchar(50);not null;index" json:"campus"`
	Building         string         `gorm:"type:varchar(100)" json:"building,omitempty"`
	SpecificLocation string         `gorm:"type:varchar(255);not null" json:"specific_location"`
	GPSCoordinates   datatypes.JSON `gorm:"type:jsonb" json:"gps_coordinates,omitempty"`

	Photos datatypes.JSON `gorm:"type:jsonb" json:"photos,omitempty"`

	Status             ReportStatus       `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	VerificationStatus VerificationStatus `gorm:"type:varchar(30);not null;default:'unverified'" json:"verification_status"`

	OwnerID       *uuid.UUID   `gorm:"type:uuid;index" json:"owner_id,omitempty"`
	ClaimedAt     *time.Time   `json:"claimed_at,omitempty"`
	ClaimedMethod *ClaimMethod `gorm:"type:varchar(30)" json:"claimed_method,omitempty"`

	SecurityGuardID *uuid.UUID `gorm:"type:uuid" json:"security_guard_id,omitempty"`
	SecurityNotes   string     `gorm:"type:text" json:"security_notes,omitempty"`

	CollectionPoint string     `gorm:"type:varchar(50)" json:"collection_point,omitempty"`
	CollectionNotes string     `gorm:"type:text" json:"collection_notes,omitempty"`
	CollectedAt     *time.Time `json:"collected_at,omitempty"`

	LastAccessed *time.Time     `json:"last_accessed,omitempty"`
	AccessLog    datatypes.JSON `gorm:"type:jsonb" json:"access_log,omitempty"`

	FoundAt time.Time `gorm:"not null" json:"found_at"`
}

// IsClaimable reports whether a claim may be started against the report.
func (r *Report) IsClaimable() bool {
	return r.Status == ReportStatusPending || r.Status == ReportStatusVerified
}

// PhotoList decodes the embedded photo attachments.
func (r *Report) PhotoList() []Photo {
	var photos []Photo
	if len(r.Photos) > 0 {
		_ = json.Unmarshal(r.Photos, &photos)
	}
	return photos
}

// SetPhotos encodes photo attachments into the JSON column.
func (r *Report) SetPhotos(photos []Photo) error {
	data, err := json.Marshal(photos)
	if err != nil {
		return err
	}
	r.Photos = datatypes.JSON(data)
	return nil
}

// AccessEntries decodes the embedded access log.
func (r *Report) AccessEntries() []AccessEntry {
	var entries []AccessEntry
	if len(r.AccessLog) > 0 {
		_ = json.Unmarshal(r.AccessLog, &entries)
	}
	return entries
}

// AppendAccess records a privileged view or mutation of the report.
func (r *Report) AppendAccess(userID uuid.UUID, action string, now time.Time) error {
	entries := append(r.AccessEntries(), AccessEntry{
		UserID:     userID,
		AccessedAt: now,
		Action:     action,
	})
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	r.AccessLog = datatypes.JSON(data)
	r.LastAccessed = &now
	return nil
}

// SetGPS encodes the coordinates into the JSON column.
func (r *Report) SetGPS(coords *GPSCoordinates) error {
	if coords == nil {
		r.GPSCoordinates = nil
		return nil
	}
	data, err := json.Marshal(coords)
	if err != nil {
		return err
	}
	r.GPSCoordinates = datatypes.JSON(data)
	return nil
}
