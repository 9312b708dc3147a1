// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Certification aggregate and its owned Modulo rows.
//
// Contracts honored here:
//   - Every read path eagerly preloads the Modulo collection (ordered by
//     insertion position) so listings never need a per-record second fetch.
//   - Fetch-by-unique-link and fetch-by-codigo return at most one record and
//     map "no row" to ErrNotFound.
//   - Writes never touch unique_link except on first insert; the service
//     layer owns issuance.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cptec/go-academy-backend/internal/domain"
)

// CertificationFilter narrows certification listings. The zero value means
// "everything, newest first".
type CertificationFilter struct {
	// Status filters by exact status value (Aprovado, Reprovado, Em Andamento).
	Status string
	// Curso filters by exact course name.
	Curso string
	// Ano filters by exact year string.
	Ano string
	// Search matches a substring (case-insensitive) of nome_completo,
	// documento, or codigo.
	Search string
}

// applyCertificationFilter composes the WHERE clauses for f onto q.
func applyCertificationFilter(q *gorm.DB, f CertificationFilter) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Curso != "" {
		q = q.Where("curso = ?", f.Curso)
	}
	if f.Ano != "" {
		q = q.Where("ano = ?", f.Ano)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("nome_completo LIKE ? OR documento LIKE ? OR codigo LIKE ?", like, like, like)
	}
	return q
}

// preloadModulos attaches the ordered Modulo collection to any query.
func preloadModulos(q *gorm.DB) *gorm.DB {
	return q.Preload("Modulos", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// CreateCertification inserts the certification and its modulos in a single
// transaction. c.UniqueLink must already be set by the caller (issuance is a
// service concern); modulo IDs and positions are assigned here.
//
// Uniqueness violations (codigo or unique_link) surface as the raw driver
// error; use IsUniqueViolation to classify them.
func CreateCertification(ctx context.Context, db *gorm.DB, c *domain.Certification) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	for i := range c.Modulos {
		c.Modulos[i].ID = uuid.NewString()
		c.Modulos[i].CertificationID = c.ID
		c.Modulos[i].Position = i
		c.Modulos[i].CreatedAt = now
	}
	return db.WithContext(ctx).Create(c).Error
}

// GetCertification fetches a certification by primary key with its modulos,
// or ErrNotFound.
func GetCertification(ctx context.Context, db *gorm.DB, id string) (*domain.Certification, error) {
	var c domain.Certification
	if err := preloadModulos(db.WithContext(ctx)).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCertificationByLink fetches the certification whose unique_link exactly
// matches link, or ErrNotFound. Used by the public share page.
func GetCertificationByLink(ctx context.Context, db *gorm.DB, link string) (*domain.Certification, error) {
	var c domain.Certification
	if err := preloadModulos(db.WithContext(ctx)).Where("unique_link = ?", link).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCertificationByCodigo fetches the certification whose codigo exactly
// matches codigo (case-sensitive), or ErrNotFound. Used for manual
// certificate verification.
func GetCertificationByCodigo(ctx context.Context, db *gorm.DB, codigo string) (*domain.Certification, error) {
	var c domain.Certification
	if err := preloadModulos(db.WithContext(ctx)).Where("codigo = ?", codigo).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// CountCertifications returns the number of certifications matching f.
func CountCertifications(ctx context.Context, db *gorm.DB, f CertificationFilter) (int64, error) {
	var total int64
	err := applyCertificationFilter(db.WithContext(ctx).Model(&domain.Certification{}), f).
		Count(&total).Error
	return total, err
}

// ListCertificationsPage returns one page of certifications matching f,
// newest first, with modulos eagerly loaded.
func ListCertificationsPage(ctx context.Context, db *gorm.DB, f CertificationFilter, offset, limit int) ([]domain.Certification, error) {
	var out []domain.Certification
	err := preloadModulos(applyCertificationFilter(db.WithContext(ctx), f)).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CodigoTaken reports whether codigo already belongs to a certification
// other than excludeID (pass "" on create). The match is case-sensitive and
// exact: SQLite LIKE is case-insensitive, so this compares with = only.
func CodigoTaken(ctx context.Context, db *gorm.DB, codigo, excludeID string) (bool, error) {
	var total int64
	q := db.WithContext(ctx).Model(&domain.Certification{}).Where("codigo = ?", codigo)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&total).Error; err != nil {
		return false, err
	}
	return total > 0, nil
}

// UpdateCertification saves the certification fields and, when
// replaceModulos is set, swaps the whole modulo set for c.Modulos inside the
// same transaction. unique_link is explicitly omitted from the update so a
// re-save can never change an issued link.
func UpdateCertification(ctx context.Context, db *gorm.DB, c *domain.Certification, replaceModulos bool) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Updates with an explicit column map: unique_link and created_at are
		// simply never part of it.
		res := tx.Model(&domain.Certification{}).
			Where("id = ?", c.ID).
			Updates(map[string]any{
				"nome_completo":  c.NomeCompleto,
				"documento":      c.Documento,
				"curso":          c.Curso,
				"duracao":        c.Duracao,
				"carga_horaria":  c.CargaHoraria,
				"data_conclusao": c.DataConclusao,
				"ano":            c.Ano,
				"codigo":         c.Codigo,
				"status":         c.Status,
				"declaracao":     c.Declaracao,
				"foto":           c.Foto,
				"updated_at":     time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if !replaceModulos {
			return nil
		}
		if err := tx.Where("certification_id = ?", c.ID).Delete(&domain.Modulo{}).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		for i := range c.Modulos {
			c.Modulos[i].ID = uuid.NewString()
			c.Modulos[i].CertificationID = c.ID
			c.Modulos[i].Position = i
			c.Modulos[i].CreatedAt = now
		}
		if len(c.Modulos) > 0 {
			if err := tx.Create(&c.Modulos).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteCertification removes a certification and all of its modulos in one
// transaction. Returns ErrNotFound when the certification does not exist.
// The child delete is explicit rather than relying solely on the FK cascade,
// since SQLite only honors cascades when foreign_keys is enabled.
func DeleteCertification(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("certification_id = ?", id).Delete(&domain.Modulo{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.Certification{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// CertificationsStats returns aggregate metadata for the certifications
// table: total row count and the greatest UpdatedAt. Used for weak ETags on
// the listing endpoint. When the table is empty, maxUpdatedAt is nil.
func CertificationsStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Certification{})

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
