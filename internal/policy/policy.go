// Package policy centralizes every permission decision for reports and
// verifications. Functions here are pure: they take the record plus the
// acting user (nil for guests) and never touch storage.
package policy

import (
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/pataid/backend/internal/models"
)

// IsFinder reports whether the actor reported this ID as found.
func IsFinder(report *models.Report, actor *models.User) bool {
	return actor != nil && report.FinderID != nil && *report.FinderID == actor.ID
}

// IsOwner reports whether the actor has been recorded as the ID's owner.
func IsOwner(report *models.Report, actor *models.User) bool {
	return actor != nil && report.OwnerID != nil && *report.OwnerID == actor.ID
}

// campusMatches reports whether a security actor's campus covers the report.
func campusMatches(actor *models.User, campus string) bool {
	return actor.Campus == models.CampusAll || actor.Campus == campus
}

// CanViewReport decides read access to a report.
//
// Guests and student/staff users see only pending and verified reports, so
// the claim flow works before ownership is established. Admins see
// everything, security sees their campus, and a report's finder and owner
// always see their own report regardless of status.
func CanViewReport(report *models.Report, actor *models.User) bool {
	if actor == nil {
		return report.IsClaimable()
	}

	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleSecurity:
		return campusMatches(actor, report.Campus)
	}

	if IsFinder(report, actor) || IsOwner(report, actor) {
		return true
	}
	return report.IsClaimable()
}

// CanEditReport decides whether the actor may update report fields.
func CanEditReport(actor *models.User) bool {
	return actor != nil && (actor.Role == models.RoleAdmin || actor.Role == models.RoleSecurity)
}

// CanDeleteReport decides whether the actor may delete a report.
func CanDeleteReport(actor *models.User) bool {
	return actor != nil && actor.Role == models.RoleAdmin
}

// FilterReport returns a copy of the report with fields the actor must not
// see stripped out. Full ID number, finder contact, security notes and the
// access log are visible only to admin/security and to the report's own
// finder or owner; everyone else also gets photos reduced to blur hash and
// timestamp.
func FilterReport(report *models.Report, actor *models.User) models.Report {
	out := *report

	privileged := (actor != nil && actor.IsStaffRole()) || IsFinder(report, actor) || IsOwner(report, actor)
	if privileged {
		return out
	}

	out.IDNumber = ""
	out.FinderContact = ""
	out.FinderContactMethod = ""
	out.SecurityNotes = ""
	out.AccessLog = nil

	photos := report.PhotoList()
	if len(photos) > 0 {
		reduced := make([]models.Photo, 0, len(photos))
		for _, p := range photos {
			reduced = append(reduced, models.Photo{
				BlurHash:   p.BlurHash,
				UploadedAt: p.UploadedAt,
			})
		}
		if data, err := json.Marshal(reduced); err == nil {
			out.Photos = datatypes.JSON(data)
		} else {
			out.Photos = nil
		}
	}
	return out
}

// CanViewVerification decides read access to a claim attempt. Admins always,
// security within their campus, the claimant themselves, and the guard who
// resolved the attempt.
func CanViewVerification(v *models.Verification, report *models.Report, actor *models.User) bool {
	if actor == nil {
		return false
	}

	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleSecurity:
		return report != nil && campusMatches(actor, report.Campus)
	}

	if v.ClaimantID == actor.ID {
		return true
	}
	return v.VerifiedByGuardID != nil && *v.VerifiedByGuardID == actor.ID
}

// FilterVerification returns a copy of the verification with method payloads
// hidden from non-privileged viewers: OTP codes and expiry, security-question
// payloads, and document URLs are reserved for admin/security.
func FilterVerification(v *models.Verification, actor *models.User) models.Verification {
	out := *v

	if actor != nil && actor.IsStaffRole() {
		return out
	}

	out.PhoneOTP = ""
	out.PhoneOTPExpires = nil
	out.SecurityQuestions = nil
	out.IDNumberProvided = ""

	docs := v.DocumentList()
	if len(docs) > 0 {
		reduced := make([]models.VerificationDocument, 0, len(docs))
		for _, d := range docs {
			reduced = append(reduced, models.VerificationDocument{
				DocumentType: d.DocumentType,
				UploadedAt:   d.UploadedAt,
				Verified:     d.Verified,
			})
		}
		if data, err := json.Marshal(reduced); err == nil {
			out.Documents = datatypes.JSON(data)
		} else {
			out.Documents = nil
		}
	}
	return out
}
