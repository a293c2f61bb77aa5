package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// WithTransaction runs fn inside a database transaction.
// The transaction commits when fn returns nil and rolls back on error or panic.
func (db *DB) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := db.DB.WithContext(ctx).Transaction(fn)
	if err != nil {
		return fmt.Errorf("transaction error: %w", err)
	}
	return nil
}
