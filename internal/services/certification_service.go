// Package services – CertificationService
//
// This file implements the CertificationService, which governs the
// certification lifecycle: validated create with issue-once unique-link
// assignment, updates that can never touch an issued link, lookups by id /
// unique link / codigo, filtered listing, and cascading deletion of the
// owned modulo set.
//
// Uniqueness is delegated to store constraints: the service optimistically
// inserts and reacts to a violation. A codigo collision is a user problem
// and comes back as a *ValidationError on that field; a unique_link
// collision is an internal accident and is silently retried with a fresh
// token, never surfaced to the caller.
package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cptec/go-academy-backend/internal/domain"
	"github.com/cptec/go-academy-backend/internal/repo"
	"github.com/cptec/go-academy-backend/internal/validation"
)

// maxLinkAttempts bounds the regenerate-and-retry loop on unique_link
// collisions. Random UUID tokens make even a second attempt unlikely.
const maxLinkAttempts = 3

// CertificationService implements the use-cases around certifications.
// It is context-aware and safe for concurrent use; all multi-row writes run
// inside store transactions.
type CertificationService struct {
	// DB is the database handle used for all certification operations.
	DB *gorm.DB
	// Validator runs the field, cross-field, and uniqueness rules.
	Validator *validation.Validator
}

// NewCertificationService constructs a CertificationService.
func NewCertificationService(db *gorm.DB, v *validation.Validator) *CertificationService {
	return &CertificationService{DB: db, Validator: v}
}

// newLinkToken draws a fresh opaque share token. A random UUID gives
// 122 bits of entropy, enough that collisions are a store-constraint
// formality rather than a practical concern.
func newLinkToken() string { return uuid.NewString() }

// codigoTaken adapts the repository uniqueness probe to the validator's
// CodigoChecker contract.
func (s *CertificationService) codigoTaken(ctx context.Context, codigo, excludeID string) (bool, error) {
	return repo.CodigoTaken(ctx, s.DB, codigo, excludeID)
}

// Create validates in and persists a new certification together with its
// modulos. The unique link is issued here, exactly once, in the same
// transaction as the insert: no certification row ever exists without one.
//
// Outcomes:
//   - *ValidationError when any field rule fails (nothing persisted);
//   - *ValidationError on "codigo" when the insert races another create
//     past the pre-check;
//   - ErrLinkIssuance if every link attempt collided (practically unreachable);
//   - the raw store error otherwise.
func (s *CertificationService) Create(ctx context.Context, in *validation.CertificationInput) (*domain.Certification, error) {
	errs, date, err := s.Validator.Certification(ctx, in, "", s.codigoTaken)
	if err != nil {
		return nil, err
	}
	if !errs.Empty() {
		return nil, &ValidationError{Fields: errs}
	}

	cert := &domain.Certification{
		NomeCompleto:  in.NomeCompleto,
		Documento:     in.Documento,
		Curso:         in.Curso,
		Duracao:       in.Duracao,
		CargaHoraria:  in.CargaHoraria,
		DataConclusao: date,
		Ano:           in.Ano,
		Codigo:        in.Codigo,
		Status:        in.Status,
		Declaracao:    in.Declaracao,
		Foto:          in.Foto,
		Modulos:       buildModulos(in.Modulos),
	}

	for attempt := 0; attempt < maxLinkAttempts; attempt++ {
		if cert.UniqueLink == "" {
			cert.UniqueLink = newLinkToken()
		}

		err := repo.CreateCertification(ctx, s.DB, cert)
		if err == nil {
			return cert, nil
		}
		if repo.IsUniqueViolation(err, "unique_link") {
			// Internal collision: regenerate silently and try again.
			cert.UniqueLink = ""
			continue
		}
		if repo.IsUniqueViolation(err, "codigo") {
			fields := validation.Errors{}
			fields.Add("codigo", validation.MsgCodigoTaken)
			return nil, &ValidationError{Fields: fields}
		}
		return nil, err
	}
	return nil, ErrLinkIssuance
}

// Update validates in against the existing record (excluding it from the
// codigo uniqueness probe) and saves the changes. The unique link is
// immutable: re-saving never regenerates or alters it. When in.Modulos is
// non-nil the whole modulo set is replaced atomically; nil leaves it alone.
func (s *CertificationService) Update(ctx context.Context, id string, in *validation.CertificationInput) (*domain.Certification, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	errs, date, err := s.Validator.Certification(ctx, in, existing.ID, s.codigoTaken)
	if err != nil {
		return nil, err
	}
	if !errs.Empty() {
		return nil, &ValidationError{Fields: errs}
	}

	existing.NomeCompleto = in.NomeCompleto
	existing.Documento = in.Documento
	existing.Curso = in.Curso
	existing.Duracao = in.Duracao
	existing.CargaHoraria = in.CargaHoraria
	existing.DataConclusao = date
	existing.Ano = in.Ano
	existing.Codigo = in.Codigo
	existing.Status = in.Status
	existing.Declaracao = in.Declaracao
	existing.Foto = in.Foto

	replace := in.Modulos != nil
	if replace {
		existing.Modulos = buildModulos(in.Modulos)
	}

	if err := repo.UpdateCertification(ctx, s.DB, existing, replace); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCertificationNotFound
		}
		if repo.IsUniqueViolation(err, "codigo") {
			// Lost a race with a concurrent write past the pre-check.
			fields := validation.Errors{}
			fields.Add("codigo", validation.MsgCodigoTaken)
			return nil, &ValidationError{Fields: fields}
		}
		return nil, err
	}

	// Reload so the caller sees fresh timestamps and the stored modulo set.
	return s.Get(ctx, id)
}

// Get fetches a certification by primary key, with modulos, mapping missing
// rows to ErrCertificationNotFound.
func (s *CertificationService) Get(ctx context.Context, id string) (*domain.Certification, error) {
	cert, err := repo.GetCertification(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCertificationNotFound
		}
		return nil, err
	}
	return cert, nil
}

// GetByLink fetches a certification by its unique share link. A token that
// was never issued is a domain-level "not found", not a server error.
func (s *CertificationService) GetByLink(ctx context.Context, link string) (*domain.Certification, error) {
	cert, err := repo.GetCertificationByLink(ctx, s.DB, link)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCertificationNotFound
		}
		return nil, err
	}
	return cert, nil
}

// GetByCodigo fetches a certification by its validation code
// (case-sensitive exact match).
func (s *CertificationService) GetByCodigo(ctx context.Context, codigo string) (*domain.Certification, error) {
	cert, err := repo.GetCertificationByCodigo(ctx, s.DB, codigo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCertificationNotFound
		}
		return nil, err
	}
	return cert, nil
}

// ListPage returns a page of certifications matching f (modulos preloaded)
// and the total count. It applies defaults for invalid page/pageSize values.
func (s *CertificationService) ListPage(ctx context.Context, f repo.CertificationFilter, page, pageSize int) ([]domain.Certification, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountCertifications(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Certification{}, 0, nil
	}

	items, err := repo.ListCertificationsPage(ctx, s.DB, f, offset, pageSize)
	return items, total, err
}

// Delete removes a certification and every owned modulo row, mapping
// missing rows to ErrCertificationNotFound.
func (s *CertificationService) Delete(ctx context.Context, id string) error {
	if err := repo.DeleteCertification(ctx, s.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCertificationNotFound
		}
		return err
	}
	return nil
}

// buildModulos converts input modulos (possibly nil) into domain rows in
// their payload order. IDs and positions are assigned by the repository.
func buildModulos(in *[]validation.ModuloInput) []domain.Modulo {
	if in == nil {
		return nil
	}
	out := make([]domain.Modulo, 0, len(*in))
	for _, m := range *in {
		out = append(out, domain.Modulo{Nome: m.Nome})
	}
	return out
}
