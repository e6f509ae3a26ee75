package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bookwise/internal/model"
)

// BookRepository is the durable ingestion ledger. The vector store holds
// the embeddings; this table records which books were indexed, when, and
// at what size, so restarts and re-ingestion checks survive the process.
type BookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) *BookRepository {
	return &BookRepository{db: db}
}

func (r *BookRepository) GetByPath(path string) (*model.Book, error) {
	var book model.Book
	if err := r.db.Where("path = ?", path).First(&book).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get book failed: %w", err)
	}
	return &book, nil
}

// Save inserts the book or, when a row with the same path exists, updates
// its ingestion fields in place.
func (r *BookRepository) Save(book *model.Book) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"size_bytes", "page_count", "chunk_count", "status", "ingested_at", "updated_at",
		}),
	}).Create(book).Error
	if err != nil {
		return fmt.Errorf("save book failed: %w", err)
	}
	return nil
}

func (r *BookRepository) List() ([]model.Book, error) {
	var list []model.Book
	if err := r.db.Order("path ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list books failed: %w", err)
	}
	return list, nil
}
