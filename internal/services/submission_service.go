// Package services – SubmissionService
//
// This file implements the SubmissionService, which manages the lifecycle of
// public contact-form submissions: validated creation (the only client-facing
// write path), admin listing with filters and pagination, deletion, CSV
// export, and idempotent-replay support for retried POSTs.
//
// Service-level errors (e.g. ErrSubmissionNotFound, *ValidationError) are
// returned for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"time"

	"gorm.io/gorm"

	"github.com/cptec/go-academy-backend/internal/domain"
	"github.com/cptec/go-academy-backend/internal/repo"
	"github.com/cptec/go-academy-backend/internal/validation"
)

// SubmissionRepo defines the repository contract required by
// SubmissionService. Implementations are responsible for persistence of the
// submission aggregate.
type SubmissionRepo interface {
	// CreateSubmission inserts a new submission row.
	CreateSubmission(ctx context.Context, db *gorm.DB, s *domain.Submission) error

	// GetSubmission fetches a submission by ID.
	GetSubmission(ctx context.Context, db *gorm.DB, id string) (*domain.Submission, error)

	// CountSubmissions returns the total matching the filter, for pagination.
	CountSubmissions(ctx context.Context, db *gorm.DB, f repo.SubmissionFilter) (int64, error)

	// ListSubmissionsPage returns a page matching the filter.
	ListSubmissionsPage(ctx context.Context, db *gorm.DB, f repo.SubmissionFilter, offset, limit int) ([]domain.Submission, error)

	// ListSubmissions returns the whole filtered set (CSV export).
	ListSubmissions(ctx context.Context, db *gorm.DB, f repo.SubmissionFilter) ([]domain.Submission, error)

	// DeleteSubmission removes a submission by ID.
	DeleteSubmission(ctx context.Context, db *gorm.DB, id string) error
}

// SubmissionService provides the use-cases around contact submissions.
type SubmissionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the submission repository used by this service.
	Repo SubmissionRepo
	// Validator runs the field rules before anything is persisted.
	Validator *validation.Validator
	// IdempotencyTTL bounds how long a replayed Idempotency-Key stays valid.
	IdempotencyTTL time.Duration
}

// NewSubmissionService constructs a SubmissionService with a shared validator.
func NewSubmissionService(db *gorm.DB, r SubmissionRepo, v *validation.Validator) *SubmissionService {
	return &SubmissionService{
		DB:             db,
		Repo:           r,
		Validator:      v,
		IdempotencyTTL: 24 * time.Hour,
	}
}

// Create validates in and persists a new submission. On any rule violation
// (including consent=false, a hard business rule) it returns a
// *ValidationError with every violated field and persists nothing.
func (s *SubmissionService) Create(ctx context.Context, in *validation.SubmissionInput) (*domain.Submission, error) {
	if errs := s.Validator.Submission(in); !errs.Empty() {
		return nil, &ValidationError{Fields: errs}
	}

	sub := &domain.Submission{
		Name:    in.Name,
		Email:   in.Email,
		Phone:   in.Phone,
		Service: in.Service,
		Message: in.Message,
		Consent: in.Consent,
	}
	if err := s.Repo.CreateSubmission(ctx, s.DB, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Get fetches a submission by ID, mapping missing rows to
// ErrSubmissionNotFound.
func (s *SubmissionService) Get(ctx context.Context, id string) (*domain.Submission, error) {
	sub, err := s.Repo.GetSubmission(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return sub, nil
}

// ListPage returns a page of submissions matching f and the total count.
// It applies defaults for invalid page/pageSize values.
func (s *SubmissionService) ListPage(ctx context.Context, f repo.SubmissionFilter, page, pageSize int) ([]domain.Submission, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountSubmissions(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Submission{}, 0, nil
	}

	items, err := s.Repo.ListSubmissionsPage(ctx, s.DB, f, offset, pageSize)
	return items, total, err
}

// Delete removes a submission, mapping missing rows to ErrSubmissionNotFound.
func (s *SubmissionService) Delete(ctx context.Context, id string) error {
	if err := s.Repo.DeleteSubmission(ctx, s.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}
	return nil
}

// ExportCSV writes the whole filtered submission set to w as CSV, using the
// same column layout the admin dashboard exports. It returns the number of
// data rows written.
func (s *SubmissionService) ExportCSV(ctx context.Context, f repo.SubmissionFilter, w io.Writer) (int, error) {
	items, err := s.Repo.ListSubmissions(ctx, s.DB, f)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Nome", "Email", "Telefone", "Serviço", "Mensagem", "Data", "Consentimento"}); err != nil {
		return 0, err
	}
	for _, sub := range items {
		consent := "Não"
		if sub.Consent {
			consent = "Sim"
		}
		row := []string{
			sub.Name,
			sub.Email,
			sub.Phone,
			sub.Service,
			sub.Message,
			sub.CreatedAt.Format("02/01/2006 15:04"),
			consent,
		}
		if err := cw.Write(row); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(items), cw.Error()
}

// Remember records an idempotency key for a freshly created submission so a
// client retry of the same POST replays it instead of inserting twice.
// Duplicate keys are ignored: the first writer wins.
func (s *SubmissionService) Remember(ctx context.Context, key, submissionID string, status int) error {
	_, err := repo.CreateIdempotency(ctx, s.DB, repo.ScopeSubmissions, key, submissionID, status, s.IdempotencyTTL)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// Replay resolves a previously recorded idempotency key back to the
// submission it created, or ErrSubmissionNotFound when the key is unknown,
// expired, or the submission has since been deleted.
func (s *SubmissionService) Replay(ctx context.Context, key string) (*domain.Submission, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, repo.ScopeSubmissions, key, time.Now().UTC())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return s.Get(ctx, rec.SubmissionID)
}
