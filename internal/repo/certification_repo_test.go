package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cptec/go-academy-backend/internal/domain"
)

func newCertDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("cert_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := db.AutoMigrate(&domain.Certification{}, &domain.Modulo{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func sampleCert(codigo string, modulos ...string) *domain.Certification {
	c := &domain.Certification{
		NomeCompleto:  "João Macamo",
		Documento:     "110100123456A",
		Curso:         "Gestão de Projectos",
		Duracao:       "3 meses",
		CargaHoraria:  "120h",
		DataConclusao: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		Ano:           "2024",
		Codigo:        codigo,
		Status:        domain.StatusAprovado,
		UniqueLink:    uuid.NewString(),
	}
	for _, nome := range modulos {
		c.Modulos = append(c.Modulos, domain.Modulo{Nome: nome})
	}
	return c
}

func TestCreateCertification_AssignsModuloPositions(t *testing.T) {
	db := newCertDB(t)
	ctx := context.Background()

	c := sampleCert("CPT-001", "Introdução", "Planeamento", "Encerramento")
	if err := CreateCertification(ctx, db, c); err != nil {
		t.Fatalf("CreateCertification: %v", err)
	}
	if c.ID == "" {
		t.Fatal("certification ID not assigned")
	}

	got, err := GetCertification(ctx, db, c.ID)
	if err != nil {
		t.Fatalf("GetCertification: %v", err)
	}
	if len(got.Modulos) != 3 {
		t.Fatalf("expected 3 modulos, got %d", len(got.Modulos))
	}
	for i, want := range []string{"Introdução", "Planeamento", "Encerramento"} {
		m := got.Modulos[i]
		if m.Nome != want || m.Position != i || m.CertificationID != c.ID || m.ID == "" {
			t.Fatalf("modulo[%d] = %+v, want nome=%q position=%d", i, m, want, i)
		}
	}
}

func TestCreateCertification_CodigoUniqueViolation(t *testing.T) {
	db := newCertDB(t)
	ctx := context.Background()

	if err := CreateCertification(ctx, db, sampleCert("CPT-001")); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := CreateCertification(ctx, db, sampleCert("CPT-001"))
	if err == nil {
		t.Fatal("expected unique violation on codigo")
	}
	if !IsUniqueViolation(err, "codigo") {
		t.Fatalf("expected codigo classification, got %v", err)
	}
	if IsUniqueViolation(err, "unique_link") {
		t.Fatalf("misclassified as unique_link: %v", err)
	}
}

func TestCreateCertification_UniqueLinkViolation(t *testing.T) {
	db := newCertDB(t)
	ctx := context.Background()

	first := sampleCert("CPT-001")
	if err := CreateCertification(ctx, db, first); err != nil {
		t.Fatalf("first create: %v", err)
	}
	second := sampleCert("CPT-002")
	second.UniqueLink = first.UniqueLink
	err := CreateCertification(ctx, db, second)
	if err == nil {
		t.Fatal("expected unique violation on unique_link")
	}
	if !IsUniqueViolation(err, "unique_link") {
		t.Fatalf("expected unique_link classification, got %v", err)
	}
}

func TestGetCertificationByLinkAndCodigo(t *testing.T) {
	db := newCertDB(t)
	ctx := context.Background()

	c := sampleCert("CPT-001", "Introdução")
	if err := CreateCertification(ctx, db, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	byLink, err := GetCertificationByLink(ctx, db, c.UniqueLink)
	if err != nil || byLink.ID != c.ID {
		t.Fatalf("GetCertificationByLink: %v (%+v)", err, byLink)
	}
	if len(byLink.Modulos) != 1 {
		t.Fatalf("modulos not preloaded by link: %+v", byLink.Modulos)
	}

	byCodigo, err := GetCertificationByCodigo(ctx, db, "CPT-001")
	if err != nil || byCodigo.ID != c.ID {
		t.Fatalf("GetCertificationByCodigo: %v (%+v)", err, byCodigo)
	}

	if _, err := GetCertificationByLink(ctx, db, "missing"); err != ErrNotFound {
		t.Fatalf("unknown link: expected ErrNotFound, got %v", err)
	}
	if _, err := GetCertificationByCodigo(ctx, db, "NOPE"); err != ErrNotFound {
		t.Fatalf("unknown codigo: expected ErrNotFound, got %v", err)
	}
}

func TestCodigoTaken_ExactCaseSensitiveMatch(t *testing.T) {
	db := newCertDB(t)
	ctx := context.Background()

	c := sampleCert("CPT-001")
	if err := CreateCertification(ctx, db, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	taken, err := CodigoTaken(ctx, db, "CPT-001", "")
	if err != nil || !taken {
		t.Fatalf("CodigoTaken(exact) = %v, %v", taken, err)
	}
	// Different case must not match (no LIKE semantics).
	taken, err = CodigoTaken(ctx, db, "cpt-001", "")
	if err != nil || taken {
		t.Fatalf("CodigoTaken(case) = %v, %v", taken, err)
	}
	// Substring must not match.
	taken, err = CodigoTaken(ctx, db, "CPT-00", "")
	if err != nil || taken {
		t.Fatalf("CodigoTaken(prefix) = %v, %v", taken, err)
	}
	// Excluding the owner itself.
	taken, err = CodigoTaken(ctx, db, "CPT-001", c.ID)
	if err != nil || taken {
		t.Fatalf("CodigoTaken(exclude self) = %v, %v", taken, err)
	}
}

func TestUpdateCertification_PreservesUniqueLink(t *testing.T) {
	db := newCertDB(t)
	ctx := context.Background()

	c := sampleCert("CPT-001", "Introdução")
	if err := CreateCertification(ctx, db, c); err != nil {
		t.Fatalf("create: %v", err)
	}
	issued := c.UniqueLink

	c.Curso = "Gestão Avançada"
	c.UniqueLink = "attempted-overwrite"
	if err := UpdateCertification(ctx, db, c, false); err != nil {
		t.Fatalf("UpdateCertification: %v", err)
	}

	got, err := GetCertification(ctx, db, c.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Curso != "Gestão Avançada" {
		t.Fatalf("curso not updated: %q", got.Curso)
	}
	if got.UniqueLink != issued {
		t.Fatalf("unique_link changed on update: %q != %q", got.UniqueLink, issued)
	}
	// Modulos untouched when replaceModulos=false.
	if len(got.Modulos) != 1 || got.Modulos[0].Nome != "Introdução" {
		t.Fatalf("modulos should be untouched: %+v", got.Modulos)
	}
}

func TestUpdateCertification_ReplacesModuloSet(t *testing.T) {
	db := newCertDB(t)
	ctx := context.Background()

	c := sampleCert("CPT-001", "Antigo 1", "Antigo 2")
	if err := CreateCertification(ctx, db, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	c.Modulos = []domain.Modulo{{Nome: "Novo 1"}, {Nome: "Novo 2"}, {Nome: "Novo 3"}}
	if err := UpdateCertification(ctx, db, c, true); err != nil {
		t.Fatalf("UpdateCertification: %v", err)
	}

	got, err := GetCertification(ctx, db, c.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(got.Modulos) != 3 {
		t.Fatalf("expected replaced set of 3, got %d", len(got.Modulos))
	}
	for i, want := range []string{"Novo 1", "Novo 2", "Novo 3"} {
		if got.Modulos[i].Nome != want || got.Modulos[i].Position != i {
			t.Fatalf("modulo[%d] = %+v", i, got.Modulos[i])
		}
	}

	// Replacing with an empty set clears it.
	c.Modulos = nil
	if err := UpdateCertification(ctx, db, c, true); err != nil {
		t.Fatalf("UpdateCertification(clear): %v", err)
	}
	got, _ = GetCertification(ctx, db, c.ID)
	if len(got.Modulos) != 0 {
		t.Fatalf("expected empty set, got %+v", got.Modulos)
	}
}

func TestUpdateCertification_NotFound(t *testing.T) {
	db := newCertDB(t)
	c := sampleCert("CPT-001")
	c.ID = uuid.NewString()
	if err := UpdateCertification(context.Background(), db, c, false); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestDeleteCertification_RemovesModulos(t *testing.T) {
	db := newCertDB(t)
	ctx := context.Background()

	c := sampleCert("CPT-001", "Introdução", "Planeamento")
	if err := CreateCertification(ctx, db, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := DeleteCertification(ctx, db, c.ID); err != nil {
		t.Fatalf("DeleteCertification: %v", err)
	}
	if _, err := GetCertification(ctx, db, c.ID); err != ErrNotFound {
		t.Fatalf("expected parent gone, got %v", err)
	}

	var orphans int64
	if err := db.Model(&domain.Modulo{}).Where("certification_id = ?", c.ID).Count(&orphans).Error; err != nil {
		t.Fatalf("count modulos: %v", err)
	}
	if orphans != 0 {
		t.Fatalf("expected 0 modulo rows after delete, got %d", orphans)
	}

	if err := DeleteCertification(ctx, db, c.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListCertificationsPage_FilterAndPreload(t *testing.T) {
	db := newCertDB(t)
	ctx := context.Background()

	base := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		c := sampleCert(fmt.Sprintf("CPT-%03d", i), "Introdução")
		if i == 2 {
			c.Status = domain.StatusEmAndamento
			c.Ano = "2025"
		}
		if err := CreateCertification(ctx, db, c); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if err := db.Model(c).UpdateColumn("created_at", base.Add(time.Duration(i)*time.Hour)).Error; err != nil {
			t.Fatalf("set created_at: %v", err)
		}
	}

	total, err := CountCertifications(ctx, db, CertificationFilter{})
	if err != nil || total != 3 {
		t.Fatalf("CountCertifications = %d, %v", total, err)
	}

	page, err := ListCertificationsPage(ctx, db, CertificationFilter{}, 0, 2)
	if err != nil {
		t.Fatalf("ListCertificationsPage: %v", err)
	}
	if len(page) != 2 || page[0].Codigo != "CPT-002" {
		t.Fatalf("unexpected page: %+v", page)
	}
	if len(page[0].Modulos) != 1 {
		t.Fatalf("modulos not preloaded in listing")
	}

	andamento, err := ListCertificationsPage(ctx, db, CertificationFilter{Status: domain.StatusEmAndamento}, 0, 10)
	if err != nil || len(andamento) != 1 {
		t.Fatalf("status filter: %v (%d rows)", err, len(andamento))
	}

	bySearch, err := ListCertificationsPage(ctx, db, CertificationFilter{Search: "CPT-001"}, 0, 10)
	if err != nil || len(bySearch) != 1 {
		t.Fatalf("search filter: %v (%d rows)", err, len(bySearch))
	}
}

func TestCertificationsStats(t *testing.T) {
	db := newCertDB(t)
	ctx := context.Background()

	count, maxTS, err := CertificationsStats(ctx, db)
	if err != nil || count != 0 || maxTS != nil {
		t.Fatalf("empty stats: count=%d maxTS=%v err=%v", count, maxTS, err)
	}

	if err := CreateCertification(ctx, db, sampleCert("CPT-001")); err != nil {
		t.Fatalf("create: %v", err)
	}
	count, maxTS, err = CertificationsStats(ctx, db)
	if err != nil || count != 1 || maxTS == nil {
		t.Fatalf("stats: count=%d maxTS=%v err=%v", count, maxTS, err)
	}
}
