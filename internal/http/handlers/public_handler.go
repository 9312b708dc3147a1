// Public certificate view.
//
// This file serves the unauthenticated share page data: anyone holding an
// issued unique link can see the certificate, with the holder's documento
// withheld.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cptec/go-academy-backend/internal/presenter"
	"github.com/cptec/go-academy-backend/internal/services"
)

// ViewCertificate godoc
// @ID          viewCertificate
// @Summary     Public certificate view
// @Description Returns the shareable certificate data behind an issued unique link. No authentication; the holder's documento is never included.
// @Tags        Public
// @Produce     json
//
// @Param       unique_link  path  string  true "Issued share token"
//
// @Success     200  {object} presenter.PublicCertificationView
// @Failure     404  {object} handlers.ErrorResponse "Certificate not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /certificates/view/{unique_link} [get]
func (h *Handlers) ViewCertificate(c *gin.Context) {
	link := strings.TrimSpace(c.Param("unique_link"))
	if link == "" {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "certificate not found")
		return
	}

	cert, err := h.certSvc.GetByLink(c.Request.Context(), link)
	if err != nil {
		if err == services.ErrCertificationNotFound {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "certificate not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load certificate")
		return
	}
	ok(c, http.StatusOK, presenter.PublicCertification(cert, requestBaseURL(c), h.publicBaseURL))
}
