// Certification HTTP handlers.
//
// This file exposes the administrative certification endpoints plus the two
// lookup routes the dashboard uses to resolve a certificate:
//   - POST   /certifications                      (create, issues unique link)
//   - GET    /certifications                      (list, paginated, ETag)
//   - GET    /certifications/{id}                 (fetch)
//   - PUT    /certifications/{id}                 (update; link immutable)
//   - DELETE /certifications/{id}                 (delete with modulos)
//   - GET    /certifications/link/{unique_link}   (resolve by share token)
//   - GET    /certifications/codigo/{codigo}      (resolve by validation code)
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cptec/go-academy-backend/internal/domain"
	"github.com/cptec/go-academy-backend/internal/presenter"
	"github.com/cptec/go-academy-backend/internal/repo"
	"github.com/cptec/go-academy-backend/internal/services"
	"github.com/cptec/go-academy-backend/internal/validation"
)

// CertificationService defines certification lifecycle operations consumed by
// HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type CertificationService interface {
	// Create validates the payload, issues the unique share link, and persists
	// the certification with its modulos.
	Create(ctx context.Context, in *validation.CertificationInput) (*domain.Certification, error)
	// Update validates and applies changes. The unique link never changes.
	Update(ctx context.Context, id string, in *validation.CertificationInput) (*domain.Certification, error)
	// Get fetches a certification by ID, modulos included.
	Get(ctx context.Context, id string) (*domain.Certification, error)
	// GetByLink resolves a certification by its share token.
	GetByLink(ctx context.Context, link string) (*domain.Certification, error)
	// GetByCodigo resolves a certification by its validation code.
	GetByCodigo(ctx context.Context, codigo string) (*domain.Certification, error)
	// ListPage returns a page of certifications and the total count.
	ListPage(ctx context.Context, f repo.CertificationFilter, page, pageSize int) ([]domain.Certification, int64, error)
	// Delete removes a certification and its modulos.
	Delete(ctx context.Context, id string) error
}

// ListCertificationsResponse wraps a page of certifications and pagination
// information.
type ListCertificationsResponse struct {
	Certifications []presenter.CertificationView `json:"certifications"`
	Pagination     Pagination                    `json:"pagination"`
}

// certificationFilter builds the repository filter from list query params.
func certificationFilter(c *gin.Context) repo.CertificationFilter {
	return repo.CertificationFilter{
		Status: strings.TrimSpace(c.Query("status")),
		Curso:  strings.TrimSpace(c.Query("curso")),
		Ano:    strings.TrimSpace(c.Query("ano")),
		Search: strings.TrimSpace(c.Query("search")),
	}
}

// CreateCertification godoc
// @ID          createCertification
// @Summary     Create a certification
// @Description Validates and stores a certification with its ordered modulos. The shareable unique link is issued here, exactly once.
// @Tags        Certifications
// @Accept      json
// @Produce     json
//
// @Param       body  body  validation.CertificationInput  true  "Certification payload"
//
// @Success     201  {object}  presenter.CertificationView
// @Failure     400  {object}  handlers.ValidationErrorResponse  "Validation failure"
// @Failure     500  {object}  handlers.ErrorResponse            "Internal error"
// @Router      /certifications [post]
func (h *Handlers) CreateCertification(c *gin.Context) {
	var in validation.CertificationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	cert, err := h.certSvc.Create(c.Request.Context(), &in)
	if err != nil {
		if ve, isValidation := services.AsValidationError(err); isValidation {
			failValidation(c, ve.Fields)
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "could not store certification")
		return
	}
	ok(c, http.StatusCreated, presenter.Certification(cert, requestBaseURL(c), h.publicBaseURL))
}

// ListCertifications godoc
// @ID          listCertifications
// @Summary     List certifications (paginated)
// @Description Returns a page of certifications, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Certifications
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       status         query   string  false "Filter by exact status"
// @Param       curso          query   string  false "Filter by exact course"
// @Param       ano            query   string  false "Filter by year"
// @Param       search         query   string  false "Substring match over nome/curso/codigo"
// @Param       page           query   int     false "Page number"    minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListCertificationsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /certifications [get]
func (h *Handlers) ListCertifications(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)
	f := certificationFilter(c)

	var db *gorm.DB
	if svc, isConcrete := h.certSvc.(*services.CertificationService); isConcrete {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.CertificationsStats(ctx, db)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"certifications:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.certSvc.ListPage(ctx, f, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list certifications")
		return
	}

	base := requestBaseURL(c)
	views := make([]presenter.CertificationView, 0, len(items))
	for i := range items {
		views = append(views, presenter.Certification(&items[i], base, h.publicBaseURL))
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListCertificationsResponse{
		Certifications: views,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetCertification godoc
// @ID          getCertification
// @Summary     Fetch one certification
// @Tags        Certifications
// @Produce     json
//
// @Param       id  path  string  true "Certification ID (UUID)" format(uuid)
//
// @Success     200  {object} presenter.CertificationView
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Certification not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /certifications/{id} [get]
func (h *Handlers) GetCertification(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "certification id must be a UUID")
		return
	}

	cert, err := h.certSvc.Get(c.Request.Context(), id)
	if err != nil {
		if err == services.ErrCertificationNotFound {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "certification not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load certification")
		return
	}
	ok(c, http.StatusOK, presenter.Certification(cert, requestBaseURL(c), h.publicBaseURL))
}

// UpdateCertification godoc
// @ID          updateCertification
// @Summary     Update a certification
// @Description Applies a full update to the record. The issued unique link is immutable and survives any number of edits. Sending "modulos" replaces the whole set; omitting it leaves the stored set untouched.
// @Tags        Certifications
// @Accept      json
// @Produce     json
//
// @Param       id    path  string                         true "Certification ID (UUID)" format(uuid)
// @Param       body  body  validation.CertificationInput  true "Certification payload"
//
// @Success     200  {object} presenter.CertificationView
// @Failure     400  {object} handlers.ValidationErrorResponse "Validation failure"
// @Failure     404  {object} handlers.ErrorResponse           "Certification not found"
// @Failure     500  {object} handlers.ErrorResponse           "Internal error"
// @Router      /certifications/{id} [put]
func (h *Handlers) UpdateCertification(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "certification id must be a UUID")
		return
	}

	var in validation.CertificationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	cert, err := h.certSvc.Update(c.Request.Context(), id, &in)
	if err != nil {
		if err == services.ErrCertificationNotFound {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "certification not found")
			return
		}
		if ve, isValidation := services.AsValidationError(err); isValidation {
			failValidation(c, ve.Fields)
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not update certification")
		return
	}
	ok(c, http.StatusOK, presenter.Certification(cert, requestBaseURL(c), h.publicBaseURL))
}

// DeleteCertification godoc
// @ID          deleteCertification
// @Summary     Delete a certification
// @Description Removes the certification together with every owned modulo row.
// @Tags        Certifications
// @Produce     json
//
// @Param       id  path  string  true "Certification ID (UUID)" format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Certification not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /certifications/{id} [delete]
func (h *Handlers) DeleteCertification(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "certification id must be a UUID")
		return
	}

	if err := h.certSvc.Delete(c.Request.Context(), id); err != nil {
		if err == services.ErrCertificationNotFound {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "certification not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, "could not delete certification")
		return
	}
	noContent(c)
}

// GetCertificationByLink godoc
// @ID          getCertificationByLink
// @Summary     Resolve a certification by share token
// @Description Looks up the full administrative record behind an issued unique link.
// @Tags        Certifications
// @Produce     json
//
// @Param       unique_link  path  string  true "Issued share token"
//
// @Success     200  {object} presenter.CertificationView
// @Failure     404  {object} handlers.ErrorResponse "Certification not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /certifications/link/{unique_link} [get]
func (h *Handlers) GetCertificationByLink(c *gin.Context) {
	link := strings.TrimSpace(c.Param("unique_link"))
	if link == "" {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "certification not found")
		return
	}

	cert, err := h.certSvc.GetByLink(c.Request.Context(), link)
	if err != nil {
		if err == services.ErrCertificationNotFound {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "certification not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load certification")
		return
	}
	ok(c, http.StatusOK, presenter.Certification(cert, requestBaseURL(c), h.publicBaseURL))
}

// GetCertificationByCodigo godoc
// @ID          getCertificationByCodigo
// @Summary     Resolve a certification by validation code
// @Description Looks up a certification by its exact codigo. Matching is case-sensitive and never partial.
// @Tags        Certifications
// @Produce     json
//
// @Param       codigo  path  string  true "Validation code"
//
// @Success     200  {object} presenter.CertificationView
// @Failure     404  {object} handlers.ErrorResponse "Certification not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /certifications/codigo/{codigo} [get]
func (h *Handlers) GetCertificationByCodigo(c *gin.Context) {
	codigo := strings.TrimSpace(c.Param("codigo"))
	if codigo == "" {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "certification not found")
		return
	}

	cert, err := h.certSvc.GetByCodigo(c.Request.Context(), codigo)
	if err != nil {
		if err == services.ErrCertificationNotFound {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "certification not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load certification")
		return
	}
	ok(c, http.StatusOK, presenter.Certification(cert, requestBaseURL(c), h.publicBaseURL))
}
