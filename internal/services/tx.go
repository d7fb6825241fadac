package services

import (
	"context"

	"gorm.io/gorm"
)

// runInTransaction wraps fn in a database transaction. A nil db runs fn
// without one, letting repos fall back to their own handles; service tests
// rely on this with fake repos.
func runInTransaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}
