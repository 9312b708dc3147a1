// Submission HTTP handlers.
//
// This file exposes REST endpoints for contact-form submissions:
//   - POST   /submissions          (public create, idempotency-aware)
//   - GET    /submissions          (admin list, paginated, ETag support)
//   - GET    /submissions/export   (admin CSV export)
//   - GET    /submissions/{id}     (admin fetch)
//   - DELETE /submissions/{id}     (admin delete)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cptec/go-academy-backend/internal/domain"
	"github.com/cptec/go-academy-backend/internal/http/middleware"
	"github.com/cptec/go-academy-backend/internal/presenter"
	"github.com/cptec/go-academy-backend/internal/repo"
	"github.com/cptec/go-academy-backend/internal/services"
	"github.com/cptec/go-academy-backend/internal/utils"
	"github.com/cptec/go-academy-backend/internal/validation"
)

//
// Service contracts (context-aware)
//

// SubmissionService defines submission lifecycle operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type SubmissionService interface {
	// Create validates the payload and persists a new submission.
	Create(ctx context.Context, in *validation.SubmissionInput) (*domain.Submission, error)
	// Get fetches a submission by ID.
	Get(ctx context.Context, id string) (*domain.Submission, error)
	// ListPage returns a page of submissions and the total count.
	ListPage(ctx context.Context, f repo.SubmissionFilter, page, pageSize int) ([]domain.Submission, int64, error)
	// Delete removes a submission.
	Delete(ctx context.Context, id string) error
	// ExportCSV streams the filtered set as CSV rows to w.
	ExportCSV(ctx context.Context, f repo.SubmissionFilter, w io.Writer) (int, error)
	// Remember records an idempotency key for a created submission.
	Remember(ctx context.Context, key, submissionID string, status int) error
	// Replay resolves an idempotency key to the submission it created.
	Replay(ctx context.Context, key string) (*domain.Submission, error)
}

//
// Handlers
//

// Handlers bundles the HTTP handler methods with their service dependencies.
// PublicBaseURL is the configured site base used to compose share links.
type Handlers struct {
	subSvc        SubmissionService
	certSvc       CertificationService
	publicBaseURL string
}

// New constructs and returns a Handlers instance bound to the given services.
func New(subSvc SubmissionService, certSvc CertificationService, publicBaseURL string) *Handlers {
	return &Handlers{
		subSvc:        subSvc,
		certSvc:       certSvc,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// requestBaseURL reconstructs scheme://host for the incoming request so
// presenters can render absolute media URLs. Respects X-Forwarded-Proto when
// a reverse proxy terminates TLS.
func requestBaseURL(c *gin.Context) string {
	if c == nil || c.Request == nil || c.Request.Host == "" {
		return ""
	}
	scheme := "http"
	if proto := c.GetHeader("X-Forwarded-Proto"); proto == "https" {
		scheme = "https"
	} else if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// CreateSubmissionResponse wraps a created submission in the public
// contract's {message, data} envelope.
type CreateSubmissionResponse struct {
	Message string                   `json:"message" example:"Submissão recebida com sucesso!"`
	Data    presenter.SubmissionView `json:"data"`
}

// ListSubmissionsResponse wraps a page of submissions and pagination
// information.
type ListSubmissionsResponse struct {
	Submissions []presenter.SubmissionView `json:"submissions"`
	Pagination  Pagination                 `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// submissionFilter builds the repository filter from list/export query params.
func submissionFilter(c *gin.Context) repo.SubmissionFilter {
	f := repo.SubmissionFilter{
		Service: strings.TrimSpace(c.Query("service")),
		Search:  strings.TrimSpace(c.Query("search")),
	}
	if v := strings.TrimSpace(c.Query("consent")); v != "" {
		b := v == "true" || v == "1"
		f.Consent = &b
	}
	switch c.Query("order_by") {
	case "name":
		f.OrderBy = "name"
	default:
		f.OrderBy = "created_at"
	}
	f.Asc = c.Query("order") == "asc"
	return f
}

//
// Handlers
//

// CreateSubmission godoc
// @ID          createSubmission
// @Summary     Submit the contact form
// @Description Validates and stores a public contact-form submission. Consent is mandatory. Retries carrying the same Idempotency-Key replay the original result.
// @Tags        Submissions
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Client-generated retry key"
// @Param       body             body    validation.SubmissionInput  true  "Submission payload"
//
// @Success     201  {object}  handlers.CreateSubmissionResponse
// @Success     200  {object}  handlers.CreateSubmissionResponse  "Idempotent replay"
// @Failure     400  {object}  handlers.ValidationErrorResponse   "Validation failure"
// @Failure     500  {object}  handlers.ErrorResponse             "Internal error"
// @Router      /submissions [post]
func (h *Handlers) CreateSubmission(c *gin.Context) {
	ctx := c.Request.Context()

	// Serve idempotent replays without re-executing side effects.
	if key, hasKey := middleware.GetIdempotencyKey(c); hasKey && middleware.IsReplay(c) {
		if sub, err := h.subSvc.Replay(ctx, key); err == nil {
			ok(c, http.StatusOK, CreateSubmissionResponse{
				Message: msgSubmissionReceived,
				Data:    presenter.Submission(sub),
			})
			return
		}
		// Fall through and process normally if the replay cannot be served.
	}

	var in validation.SubmissionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	sub, err := h.subSvc.Create(ctx, &in)
	if err != nil {
		if ve, isValidation := services.AsValidationError(err); isValidation {
			failValidation(c, ve.Fields)
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "could not store submission")
		return
	}

	if key, hasKey := middleware.GetIdempotencyKey(c); hasKey {
		// Best effort: losing the record only costs dedupe on a later retry.
		_ = h.subSvc.Remember(ctx, key, sub.ID, http.StatusCreated)
	}

	ok(c, http.StatusCreated, CreateSubmissionResponse{
		Message: msgSubmissionReceived,
		Data:    presenter.Submission(sub),
	})
}

// ListSubmissions godoc
// @ID          listSubmissions
// @Summary     List submissions (paginated)
// @Description Returns a page of contact submissions, newest first by default. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Submissions
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       service        query   string  false "Filter by exact service"
// @Param       consent        query   bool    false "Filter by consent flag"
// @Param       search         query   string  false "Substring match over name/email/service"
// @Param       order_by       query   string  false "created_at (default) or name"
// @Param       order          query   string  false "asc or desc (default)"
// @Param       page           query   int     false "Page number"    minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListSubmissionsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /submissions [get]
func (h *Handlers) ListSubmissions(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)
	f := submissionFilter(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, isConcrete := h.subSvc.(*services.SubmissionService); isConcrete {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.SubmissionsStats(ctx, db)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"submissions:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.subSvc.ListPage(ctx, f, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list submissions")
		return
	}

	views := make([]presenter.SubmissionView, 0, len(items))
	for i := range items {
		views = append(views, presenter.Submission(&items[i]))
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListSubmissionsResponse{
		Submissions: views,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetSubmission godoc
// @ID          getSubmission
// @Summary     Fetch one submission
// @Tags        Submissions
// @Produce     json
//
// @Param       id  path  string  true "Submission ID (UUID)" format(uuid)
//
// @Success     200  {object} presenter.SubmissionView
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Submission not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /submissions/{id} [get]
func (h *Handlers) GetSubmission(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "submission id must be a UUID")
		return
	}

	sub, err := h.subSvc.Get(c.Request.Context(), id)
	if err != nil {
		if err == services.ErrSubmissionNotFound {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "submission not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load submission")
		return
	}
	ok(c, http.StatusOK, presenter.Submission(sub))
}

// DeleteSubmission godoc
// @ID          deleteSubmission
// @Summary     Delete a submission
// @Tags        Submissions
// @Produce     json
//
// @Param       id  path  string  true "Submission ID (UUID)" format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Submission not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /submissions/{id} [delete]
func (h *Handlers) DeleteSubmission(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "submission id must be a UUID")
		return
	}

	if err := h.subSvc.Delete(c.Request.Context(), id); err != nil {
		if err == services.ErrSubmissionNotFound {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "submission not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, "could not delete submission")
		return
	}
	noContent(c)
}

// ExportSubmissions godoc
// @ID          exportSubmissions
// @Summary     Export submissions as CSV
// @Description Streams the filtered submission set as a CSV attachment with the dashboard column layout.
// @Tags        Submissions
// @Produce     text/csv
//
// @Param       service  query  string  false "Filter by exact service"
// @Param       consent  query  bool    false "Filter by consent flag"
// @Param       search   query  string  false "Substring match over name/email/service"
//
// @Success     200  {string} string "CSV payload"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /submissions/export [get]
func (h *Handlers) ExportSubmissions(c *gin.Context) {
	filename := fmt.Sprintf("submissions_%s.csv", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	if _, err := h.subSvc.ExportCSV(c.Request.Context(), submissionFilter(c), c.Writer); err != nil {
		// Headers may already be out; still report the failure.
		fail(c, http.StatusInternalServerError, ErrCodeExportFailed, "could not export submissions")
		return
	}
	c.Status(http.StatusOK)
}
