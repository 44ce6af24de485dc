// Package database provides database connection, migration and transaction helpers
package database

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"ghostlore.app/config"
	"ghostlore.app/errors"
	"ghostlore.app/models"
)

// Postgres error codes that drive this layer's error classification
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeNotNullViolation    = "23502"
	codeInvalidTextRep      = "22P02"
	codeSerializationFail   = "40001"
	codeDeadlockDetected    = "40P01"
)

const (
	txMaxAttempts = 3
	txBaseBackoff = 50 * time.Millisecond
	txMaxBackoff  = 500 * time.Millisecond
)

// InitDB initializes the database connection
func InitDB(config config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(config.GetDSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	return db, nil
}

// RunMigrations executes database schema migrations
func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.UserPreferences{},
		&models.Ghost{},
		&models.Story{},
		&models.Bookmark{},
		&models.ReadingProgress{},
		&models.Interaction{},
		&models.Recommendation{},
		&models.RecommendationFeedback{},
		&models.ConversationMessage{},
	)
}

// CloseDB safely closes the database connection
func CloseDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTransaction runs fn inside a transaction. Serialization and deadlock
// conflicts are retried with capped exponential backoff; any other failure
// rolls back and returns immediately.
func WithTransaction(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var lastErr error

	for attempt := 1; attempt <= txMaxAttempts; attempt++ {
		lastErr = db.Transaction(fn)
		if lastErr == nil {
			return nil
		}

		if !isRetryableTxError(lastErr) {
			return lastErr
		}

		backoff := txBaseBackoff * (1 << (attempt - 1))
		if backoff > txMaxBackoff {
			backoff = txMaxBackoff
		}

		slog.Warn("Transaction conflict, retrying",
			"attempt", attempt, "backoff", backoff, "error", lastErr)
		time.Sleep(backoff)
	}

	return lastErr
}

func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == codeSerializationFail || pgErr.Code == codeDeadlockDetected
	}
	return false
}

// Classify maps a raw database error to an application error type. Constraint
// violations become client-facing kinds; everything else stays internal.
func Classify(err error, context string) *errors.AppError {
	if err == nil {
		return nil
	}

	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.NewNotFoundError(context + " not found")
	}

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return errors.NewAlreadyExistsError(context + " already exists")
		case codeForeignKeyViolation:
			return errors.NewValidationError(context + " references a missing record")
		case codeNotNullViolation:
			return errors.NewValidationError(context + " is missing a required field")
		case codeInvalidTextRep:
			return errors.NewValidationError(context + " has an invalid identifier")
		}
	}

	return errors.NewDatabaseError("database error on "+context, err)
}
