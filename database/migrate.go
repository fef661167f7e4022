package database

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate applies idempotent schema tightening on top of AutoMigrate:
// - Money column types (NUMERIC(12,2))
// - Helpful/unique indexes (idempotency storage key, payments, appointments)
// - Basic CHECK constraints
func Migrate() error {
	return DB.Transaction(func(tx *gorm.DB) error {
		// --- Enforce money columns as NUMERIC(12,2) (idempotent ALTERs) ---
		alters := []string{
			`ALTER TABLE services     ALTER COLUMN price      TYPE numeric(12,2)`,
			`ALTER TABLE appointments ALTER COLUMN paid_total TYPE numeric(12,2)`,
			`ALTER TABLE payments     ALTER COLUMN amount     TYPE numeric(12,2)`,
		}
		for _, stmt := range alters {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("money type migration failed on: %s - %w", stmt, err)
			}
		}

		// --- Composite / helpful indexes (idempotent) ---
		indexes := []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_idempotency_records_storage_key ON idempotency_records (storage_key)`,
			`CREATE INDEX IF NOT EXISTS idx_idempotency_records_locked_at ON idempotency_records (status, locked_at)`,
			`CREATE INDEX IF NOT EXISTS idx_payments_appointment_paid_at ON payments (appointment_id, paid_at)`,
			`CREATE INDEX IF NOT EXISTS idx_appointments_user_starts_at ON appointments (user_id, starts_at)`,
		}
		for _, stmt := range indexes {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
			}
		}

		// --- Basic CHECK constraints (idempotent) ---
		checks := []string{
			// Non-negative service price
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'services'::regclass
					  AND conname  = 'chk_services_price_nonneg'
				) THEN
					ALTER TABLE services
					ADD CONSTRAINT chk_services_price_nonneg
					CHECK (price >= 0);
				END IF;
			END $$;`,
			// Payments.amount >= 0
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'payments'::regclass
					  AND conname  = 'chk_payments_amount_nonneg'
				) THEN
					ALTER TABLE payments
					ADD CONSTRAINT chk_payments_amount_nonneg
					CHECK (amount >= 0);
				END IF;
			END $$;`,
			// Appointments: end after start
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'appointments'::regclass
					  AND conname  = 'chk_appointments_ends_after_starts'
				) THEN
					ALTER TABLE appointments
					ADD CONSTRAINT chk_appointments_ends_after_starts
					CHECK (ends_at > starts_at);
				END IF;
			END $$;`,
		}
		for _, stmt := range checks {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("check constraint migration failed: %w", err)
			}
		}

		return nil
	})
}
