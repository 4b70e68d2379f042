package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// CreateReportsTables creates the reports and verifications tables.
//
// Two partial unique indexes back the claim invariants: a claimant may hold
// only one non-terminal verification per report, and a report may have only
// one winning verification. The application checks the same rules, but the
// storage layer is the authority under concurrent requests.
func CreateReportsTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_reports_tables",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS reports (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					report_number VARCHAR(20) NOT NULL UNIQUE,
					id_type VARCHAR(10) NOT NULL,
					full_name VARCHAR(255) NOT NULL,
					id_number VARCHAR(100) NOT NULL,
					masked_id_number VARCHAR(100) NOT NULL,
					finder_id UUID REFERENCES users(id),
					finder_type VARCHAR(20) NOT NULL,
					finder_contact VARCHAR(255),
					finder_contact_method VARCHAR(10),
					campus VARCHAR(50) NOT NULL,
					building VARCHAR(100),
					specific_location VARCHAR(255) NOT NULL,
					gps_coordinates JSONB,
					photos JSONB,
					status VARCHAR(20) NOT NULL DEFAULT 'pending',
					verification_status VARCHAR(30) NOT NULL DEFAULT 'unverified',
					owner_id UUID REFERENCES users(id),
					claimed_at TIMESTAMP WITH TIME ZONE,
					claimed_method VARCHAR(30),
					security_guard_id UUID REFERENCES users(id),
					security_notes TEXT,
					collection_point VARCHAR(50),
					collection_notes TEXT,
					collected_at TIMESTAMP WITH TIME ZONE,
					last_accessed TIMESTAMP WITH TIME ZONE,
					access_log JSONB,
					found_at TIMESTAMP WITH TIME ZONE NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX idx_reports_status_campus ON reports(status, campus);
				CREATE INDEX idx_reports_masked_id_number ON reports(masked_id_number);
				CREATE INDEX idx_reports_id_number ON reports(id_number);
				CREATE INDEX idx_reports_finder_id ON reports(finder_id);
				CREATE INDEX idx_reports_owner_id ON reports(owner_id);

				CREATE UNIQUE INDEX idx_reports_active_id_number ON reports(id_number)
					WHERE status IN ('pending', 'verified') AND deleted_at IS NULL;
			`).Error; err != nil {
				return err
			}

			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS verifications (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					report_id UUID NOT NULL REFERENCES reports(id),
					claimant_id UUID NOT NULL REFERENCES users(id),
					claimant_email VARCHAR(255),
					claimant_phone VARCHAR(20),
					method VARCHAR(30) NOT NULL,
					id_number_provided VARCHAR(100),
					security_questions JSONB,
					phone_otp VARCHAR(10),
					phone_otp_expires TIMESTAMP WITH TIME ZONE,
					documents JSONB,
					status VARCHAR(20) NOT NULL DEFAULT 'pending',
					verified_by_guard_id UUID REFERENCES users(id),
					guard_notes TEXT,
					verification_token VARCHAR(64) UNIQUE,
					token_expires TIMESTAMP WITH TIME ZONE,
					attempt_count INTEGER DEFAULT 0,
					last_attempt TIMESTAMP WITH TIME ZONE,
					expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX idx_verifications_report_id ON verifications(report_id);
				CREATE INDEX idx_verifications_claimant_id ON verifications(claimant_id);
				CREATE INDEX idx_verifications_status_expires ON verifications(status, expires_at);

				CREATE UNIQUE INDEX idx_verifications_one_active_per_claimant
					ON verifications(report_id, claimant_id)
					WHERE status IN ('pending', 'in_progress');

				CREATE UNIQUE INDEX idx_verifications_one_winner_per_report
					ON verifications(report_id)
					WHERE status = 'verified';
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			if err := tx.Exec("DROP TABLE IF EXISTS verifications").Error; err != nil {
				return err
			}
			return tx.Exec("DROP TABLE IF EXISTS reports").Error
		},
	}
}
