// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Submission
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a submission is not found, functions return gorm.ErrRecordNotFound
//     (also exported as ErrNotFound).
//   - On DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cptec/go-academy-backend/internal/domain"
)

// SubmissionFilter narrows and orders submission listings. The zero value
// means "everything, newest first", mirroring the admin default ordering.
type SubmissionFilter struct {
	// Service filters by exact service name.
	Service string
	// Consent filters by consent flag when non-nil.
	Consent *bool
	// Search matches a substring (case-insensitive) of name, email, or service.
	Search string
	// OrderBy is "created_at" (default) or "name".
	OrderBy string
	// Asc flips the default descending order.
	Asc bool
}

// order returns the SQL ORDER BY clause for the filter.
func (f SubmissionFilter) order() string {
	col := "created_at"
	if f.OrderBy == "name" {
		col = "name"
	}
	dir := "DESC"
	if f.Asc {
		dir = "ASC"
	}
	return col + " " + dir
}

// applySubmissionFilter composes the WHERE clauses for f onto q.
func applySubmissionFilter(q *gorm.DB, f SubmissionFilter) *gorm.DB {
	if f.Service != "" {
		q = q.Where("service = ?", f.Service)
	}
	if f.Consent != nil {
		q = q.Where("consent = ?", *f.Consent)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("name LIKE ? OR email LIKE ? OR service LIKE ?", like, like, like)
	}
	return q
}

// CreateSubmission inserts a new submission row with a UUID primary key and
// UTC creation timestamp. On success the persisted record (with ID set) is
// returned through s.
func CreateSubmission(ctx context.Context, db *gorm.DB, s *domain.Submission) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(s).Error
}

// GetSubmission fetches a single submission by ID, or ErrNotFound.
func GetSubmission(ctx context.Context, db *gorm.DB, id string) (*domain.Submission, error) {
	var s domain.Submission
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// CountSubmissions returns the number of submissions matching f.
func CountSubmissions(ctx context.Context, db *gorm.DB, f SubmissionFilter) (int64, error) {
	var total int64
	q := applySubmissionFilter(db.WithContext(ctx).Model(&domain.Submission{}), f)
	err := q.Count(&total).Error
	return total, err
}

// ListSubmissionsPage returns one page of submissions matching f, ordered
// per the filter (newest first by default).
func ListSubmissionsPage(ctx context.Context, db *gorm.DB, f SubmissionFilter, offset, limit int) ([]domain.Submission, error) {
	var out []domain.Submission
	q := applySubmissionFilter(db.WithContext(ctx), f).
		Order(f.order()).
		Offset(offset).
		Limit(limit)
	err := q.Find(&out).Error
	return out, err
}

// ListSubmissions returns every submission matching f without pagination.
// Used by the CSV export, which streams the whole filtered set.
func ListSubmissions(ctx context.Context, db *gorm.DB, f SubmissionFilter) ([]domain.Submission, error) {
	var out []domain.Submission
	err := applySubmissionFilter(db.WithContext(ctx), f).
		Order(f.order()).
		Find(&out).Error
	return out, err
}

// DeleteSubmission removes a submission by ID. Returns ErrNotFound when no
// row was deleted.
func DeleteSubmission(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Submission{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SubmissionsStats returns aggregate metadata for the submissions table:
// total row count and the greatest UpdatedAt. Used for weak ETags on the
// admin listing. When the table is empty, maxUpdatedAt is nil.
func SubmissionsStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Submission{})

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
