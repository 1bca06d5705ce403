// Package repository holds the storage-facing pieces of the document engine
// that do not fit the generic store.
package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/facturacr/facturacr/internal/clave"
	documentdomain "github.com/facturacr/facturacr/internal/document/domain"
)

// ClaveReserver checks candidate document keys against the documents table.
// The unique index on documents.clave remains the hard guarantee; this check
// lets the generator retry with a fresh security code before insertion.
type ClaveReserver struct {
	db *gorm.DB
}

func NewClaveReserver(db *gorm.DB) clave.Reserver {
	return &ClaveReserver{db: db}
}

func (r *ClaveReserver) Reserve(ctx context.Context, key string) error {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&documentdomain.Document{}).
		Where("clave = ?", key).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return clave.ErrClaveTaken
	}
	return nil
}
