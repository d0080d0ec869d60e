package postgres

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/school-portal-service/internal/repositories"
)

// baseRepository carries the connection every table repository falls back to
type baseRepository struct {
	db *gorm.DB
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (b baseRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return b.db
}

// handleDBError is a package-level helper for handling database errors
func handleDBError(err error, operation string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repositories.ErrNotFound
	}
	return fmt.Errorf("%s failed: %w", operation, err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside a LIKE/ILIKE pattern
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// containsPattern builds an ILIKE pattern matching s anywhere in the column
func containsPattern(s string) string {
	return "%" + escapeLike(s) + "%"
}

// dateOnly truncates t to its calendar day in UTC
func dateOnly(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}
