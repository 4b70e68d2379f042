package models

// Role represents a user's role on the platform
type Role string

const (
	RoleStudent  Role = "student"
	RoleStaff    Role = "staff"
	RoleSecurity Role = "security"
	RoleAdmin    Role = "admin"
)

// CampusAll marks security staff with visibility across every campus.
const CampusAll = "All Campuses"

// User represents a registered platform user
type User struct {
	Base
	Email     string `gorm:"uniqueIndex;type:varchar(255)" json:"email"`
	Phone     string `gorm:"type:varchar(20)" json:"phone"`
	FirstName string `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName  string `gorm:"type:varchar(100);not null" json:"last_name"`
	Role      Role   `gorm:"type:varchar(20);not null;index" json:"role"`

	// Student/staff identification, used to match found IDs to owners
	StudentID string `gorm:"type:varchar(50);index" json:"student_id,omitempty"`
	StaffID   string `gorm:"type:varchar(50);index" json:"staff_id,omitempty"`
	Campus    string `gorm:"type:varchar(50)" json:"campus"`

	// Security guard specific
	GuardID string `gorm:"type:varchar(50)" json:"guard_id,omitempty"`
	Shift   string `gorm:"type:varchar(20)" json:"shift,omitempty"`

	Password   string `gorm:"type:varchar(255);not null" json:"-"`
	IsVerified bool   `gorm:"default:false" json:"is_verified"`

	NotifyEmail bool `gorm:"default:true" json:"notify_email"`
	NotifySMS   bool `gorm:"default:false" json:"notify_sms"`
}

// IsStaffRole reports whether the user holds an operational role.
func (u *User) IsStaffRole() bool {
	return u.Role == RoleAdmin || u.Role == RoleSecurity
}

// FullName returns the user's display name.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
