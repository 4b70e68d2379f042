package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// CreateUsersTable creates the users table
func CreateUsersTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_users_table",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

				CREATE TABLE IF NOT EXISTS users (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					email VARCHAR(255) UNIQUE,
					phone VARCHAR(20),
					first_name VARCHAR(100) NOT NULL,
					last_name VARCHAR(100) NOT NULL,
					role VARCHAR(20) NOT NULL,
					student_id VARCHAR(50),
					staff_id VARCHAR(50),
					campus VARCHAR(50),
					guard_id VARCHAR(50),
					shift VARCHAR(20),
					password VARCHAR(255) NOT NULL,
					is_verified BOOLEAN DEFAULT FALSE,
					notify_email BOOLEAN DEFAULT TRUE,
					notify_sms BOOLEAN DEFAULT FALSE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX idx_users_role ON users(role);
				CREATE INDEX idx_users_student_id ON users(student_id);
				CREATE INDEX idx_users_staff_id ON users(staff_id);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec("DROP TABLE IF EXISTS users").Error
		},
	}
}
