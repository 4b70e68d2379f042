package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// CreateJobsAndAuditTables creates the background job and audit log tables
func CreateJobsAndAuditTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_jobs_and_audit_tables",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS jobs (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					type VARCHAR(50) NOT NULL,
					payload JSONB,
					status VARCHAR(20) NOT NULL DEFAULT 'pending',
					retry_count INTEGER DEFAULT 0,
					max_retries INTEGER DEFAULT 3,
					next_retry TIMESTAMP WITH TIME ZONE,
					error TEXT,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX idx_jobs_status ON jobs(status);
				CREATE INDEX idx_jobs_type ON jobs(type);
			`).Error; err != nil {
				return err
			}

			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS audit_logs (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					actor_id UUID,
					actor_role VARCHAR(20),
					action VARCHAR(50) NOT NULL,
					resource_type VARCHAR(30) NOT NULL,
					resource_id UUID,
					before_state JSONB,
					after_state JSONB,
					ip_address VARCHAR(45),
					user_agent TEXT,
					endpoint VARCHAR(255),
					method VARCHAR(10),
					tags JSONB,
					success BOOLEAN DEFAULT TRUE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX idx_audit_logs_actor_id ON audit_logs(actor_id);
				CREATE INDEX idx_audit_logs_resource ON audit_logs(resource_type, resource_id);
				CREATE INDEX idx_audit_logs_created_at ON audit_logs(created_at);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			if err := tx.Exec("DROP TABLE IF EXISTS audit_logs").Error; err != nil {
				return err
			}
			return tx.Exec("DROP TABLE IF EXISTS jobs").Error
		},
	}
}
