package presenter

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/cptec/go-academy-backend/internal/domain"
)

func sampleCert() *domain.Certification {
	return &domain.Certification{
		ID:            "11111111-1111-1111-1111-111111111111",
		NomeCompleto:  "João Macamo",
		Documento:     "110100123456A",
		Curso:         "Gestão de Projectos",
		Duracao:       "3 meses",
		CargaHoraria:  "120h",
		DataConclusao: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		Ano:           "2024",
		Codigo:        "CPT-001",
		Status:        domain.StatusAprovado,
		Foto:          "certificados/joao.jpg",
		UniqueLink:    "22222222-2222-2222-2222-222222222222",
		Modulos: []domain.Modulo{
			{ID: "m1", Nome: "Introdução", Position: 0},
			{ID: "m2", Nome: "Planeamento", Position: 1},
		},
	}
}

func TestCertification_View(t *testing.T) {
	v := Certification(sampleCert(), "https://api.example.com", "https://www.example.com")

	if v.DataConclusao != "2024-06-30" {
		t.Fatalf("date format: %q", v.DataConclusao)
	}
	if !v.TemModulos || len(v.Modulos) != 2 || v.Modulos[0].Nome != "Introdução" {
		t.Fatalf("modulos: %+v", v.Modulos)
	}
	if v.Foto == nil || *v.Foto != "https://api.example.com/media/certificados/joao.jpg" {
		t.Fatalf("foto: %v", v.Foto)
	}
	if v.ShareLink == nil || *v.ShareLink != "https://www.example.com/certificates/view/22222222-2222-2222-2222-222222222222" {
		t.Fatalf("share link: %v", v.ShareLink)
	}
}

func TestCertification_NoModulos(t *testing.T) {
	c := sampleCert()
	c.Modulos = nil
	c.Foto = ""

	v := Certification(c, "", "")
	if v.TemModulos {
		t.Fatal("tem_modulos should be false")
	}
	if v.Modulos == nil || len(v.Modulos) != 0 {
		t.Fatalf("modulos must render as [], got %v", v.Modulos)
	}
	if v.Foto != nil {
		t.Fatalf("empty foto must be null, got %v", v.Foto)
	}

	// JSON contract: [] not null.
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"modulos":[]`) {
		t.Fatalf("expected empty array in JSON: %s", raw)
	}
}

func TestPublicCertification_OmitsDocumento(t *testing.T) {
	v := PublicCertification(sampleCert(), "", "https://www.example.com")

	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(raw)
	if strings.Contains(s, "110100123456A") || strings.Contains(s, "documento") {
		t.Fatalf("public view leaked documento: %s", s)
	}
	if strings.Contains(s, "unique_link") || strings.Contains(s, `"id"`) {
		t.Fatalf("public view leaked administrative fields: %s", s)
	}
	if v.NomeCompleto != "João Macamo" || v.Codigo != "CPT-001" {
		t.Fatalf("public fields missing: %+v", v)
	}
}

func TestFotoURL(t *testing.T) {
	cases := []struct {
		name string
		foto string
		base string
		want string // "" means nil
	}{
		{"empty", "", "https://api.example.com", ""},
		{"absolute passthrough", "https://cdn.example.com/x.jpg", "https://api.example.com", "https://cdn.example.com/x.jpg"},
		{"relative with base", "certificados/x.jpg", "https://api.example.com", "https://api.example.com/media/certificados/x.jpg"},
		{"relative without base", "certificados/x.jpg", "", "/media/certificados/x.jpg"},
		{"leading slash stripped", "/certificados/x.jpg", "", "/media/certificados/x.jpg"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FotoURL(tc.foto, tc.base)
			if tc.want == "" {
				if got != nil {
					t.Fatalf("want nil, got %q", *got)
				}
				return
			}
			if got == nil || *got != tc.want {
				t.Fatalf("FotoURL(%q, %q) = %v, want %q", tc.foto, tc.base, got, tc.want)
			}
		})
	}
}

func TestShareLink(t *testing.T) {
	if got := ShareLink("", "https://www.example.com"); got != nil {
		t.Fatalf("unset link must be nil, got %q", *got)
	}
	got := ShareLink("abc", "")
	if got == nil || *got != "/certificates/view/abc" {
		t.Fatalf("relative fallback: %v", got)
	}
	got = ShareLink("abc", "https://www.example.com/")
	if got == nil || *got != "https://www.example.com/certificates/view/abc" {
		t.Fatalf("absolute link: %v", got)
	}
}

func TestSubmission_View(t *testing.T) {
	now := time.Now().UTC()
	s := &domain.Submission{
		ID: "s1", Name: "Maria", Email: "maria@example.com", Phone: "841234567",
		Service: "Consultoria", Message: "Olá", Consent: true, CreatedAt: now,
	}
	v := Submission(s)
	if v.ID != "s1" || v.Email != "maria@example.com" || !v.Consent || !v.CreatedAt.Equal(now) {
		t.Fatalf("unexpected view: %+v", v)
	}
}
