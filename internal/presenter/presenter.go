// Package presenter converts stored entities into client-facing
// representations. It owns the rules the API contract cares about:
// absolute media URLs when the request context is known, the derived
// shareable link computed from the configured public base URL, and modulos
// rendered as an ordered sequence of {id, nome} pairs.
//
// The request base URL is an explicit parameter here, never ambient state:
// handlers derive it from the incoming request and pass it down.
package presenter

import (
	"strings"
	"time"

	"github.com/cptec/go-academy-backend/internal/domain"
	"github.com/cptec/go-academy-backend/internal/validation"
)

// PublicViewPath is the path prefix of the unauthenticated share page.
// ShareLink is publicBaseURL + PublicViewPath + unique_link.
const PublicViewPath = "/certificates/view/"

// mediaPrefix is where uploaded certificate photos are served from.
const mediaPrefix = "/media/"

// ModuloView is one course unit as rendered to clients.
type ModuloView struct {
	ID   string `json:"id"`
	Nome string `json:"nome"`
}

// SubmissionView is the client-facing shape of a stored submission.
type SubmissionView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Service   string    `json:"service"`
	Message   string    `json:"message"`
	Consent   bool      `json:"consent"`
	CreatedAt time.Time `json:"created_at"`
}

// CertificationView is the full (administrative) client-facing shape of a
// certification. Foto and ShareLink are nullable by contract: null means
// "no photo" / "no link issued yet".
type CertificationView struct {
	ID            string       `json:"id"`
	NomeCompleto  string       `json:"nome_completo"`
	Documento     string       `json:"documento"`
	Curso         string       `json:"curso"`
	Duracao       string       `json:"duracao"`
	CargaHoraria  string       `json:"carga_horaria"`
	DataConclusao string       `json:"data_conclusao"`
	Ano           string       `json:"ano"`
	Codigo        string       `json:"codigo"`
	Status        string       `json:"status"`
	Declaracao    string       `json:"declaracao,omitempty"`
	Foto          *string      `json:"foto"`
	UniqueLink    string       `json:"unique_link"`
	ShareLink     *string      `json:"share_link"`
	TemModulos    bool         `json:"tem_modulos"`
	Modulos       []ModuloView `json:"modulos"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// PublicCertificationView is the unauthenticated share-page shape. It
// withholds the holder's documento and the administrative timestamps.
type PublicCertificationView struct {
	NomeCompleto  string       `json:"nome_completo"`
	Curso         string       `json:"curso"`
	Duracao       string       `json:"duracao"`
	CargaHoraria  string       `json:"carga_horaria"`
	DataConclusao string       `json:"data_conclusao"`
	Ano           string       `json:"ano"`
	Codigo        string       `json:"codigo"`
	Status        string       `json:"status"`
	Declaracao    string       `json:"declaracao,omitempty"`
	Foto          *string      `json:"foto"`
	ShareLink     *string      `json:"share_link"`
	Modulos       []ModuloView `json:"modulos"`
}

// Submission renders s for API responses.
func Submission(s *domain.Submission) SubmissionView {
	return SubmissionView{
		ID:        s.ID,
		Name:      s.Name,
		Email:     s.Email,
		Phone:     s.Phone,
		Service:   s.Service,
		Message:   s.Message,
		Consent:   s.Consent,
		CreatedAt: s.CreatedAt,
	}
}

// Certification renders c for administrative API responses.
//
// requestBase is the scheme://host of the incoming request ("" when
// unknown); publicBaseURL is the configured site base for share links (""
// falls back to a relative link).
func Certification(c *domain.Certification, requestBase, publicBaseURL string) CertificationView {
	return CertificationView{
		ID:            c.ID,
		NomeCompleto:  c.NomeCompleto,
		Documento:     c.Documento,
		Curso:         c.Curso,
		Duracao:       c.Duracao,
		CargaHoraria:  c.CargaHoraria,
		DataConclusao: c.DataConclusao.Format(validation.DateLayout),
		Ano:           c.Ano,
		Codigo:        c.Codigo,
		Status:        c.Status,
		Declaracao:    c.Declaracao,
		Foto:          FotoURL(c.Foto, requestBase),
		UniqueLink:    c.UniqueLink,
		ShareLink:     ShareLink(c.UniqueLink, publicBaseURL),
		TemModulos:    len(c.Modulos) > 0,
		Modulos:       Modulos(c.Modulos),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

// PublicCertification renders c for the unauthenticated share page.
func PublicCertification(c *domain.Certification, requestBase, publicBaseURL string) PublicCertificationView {
	return PublicCertificationView{
		NomeCompleto:  c.NomeCompleto,
		Curso:         c.Curso,
		Duracao:       c.Duracao,
		CargaHoraria:  c.CargaHoraria,
		DataConclusao: c.DataConclusao.Format(validation.DateLayout),
		Ano:           c.Ano,
		Codigo:        c.Codigo,
		Status:        c.Status,
		Declaracao:    c.Declaracao,
		Foto:          FotoURL(c.Foto, requestBase),
		ShareLink:     ShareLink(c.UniqueLink, publicBaseURL),
		Modulos:       Modulos(c.Modulos),
	}
}

// Modulos renders the owned modulo rows in their stored (insertion) order.
// Always returns a non-nil slice so clients see [] rather than null.
func Modulos(ms []domain.Modulo) []ModuloView {
	out := make([]ModuloView, 0, len(ms))
	for _, m := range ms {
		out = append(out, ModuloView{ID: m.ID, Nome: m.Nome})
	}
	return out
}

// FotoURL resolves a stored photo reference.
//
// Resolution order: already-absolute references pass through unchanged;
// with a known request base the relative media path is made absolute;
// otherwise the relative /media path is returned; an empty reference is nil.
func FotoURL(foto, requestBase string) *string {
	if foto == "" {
		return nil
	}
	if strings.HasPrefix(foto, "http://") || strings.HasPrefix(foto, "https://") {
		return &foto
	}
	rel := mediaPrefix + strings.TrimPrefix(foto, "/")
	if requestBase == "" {
		return &rel
	}
	abs := strings.TrimSuffix(requestBase, "/") + rel
	return &abs
}

// ShareLink computes the public share URL for an issued unique link.
// Returns nil when the link is unset, which post-issuance never happens.
func ShareLink(uniqueLink, publicBaseURL string) *string {
	if uniqueLink == "" {
		return nil
	}
	link := strings.TrimSuffix(publicBaseURL, "/") + PublicViewPath + uniqueLink
	return &link
}
