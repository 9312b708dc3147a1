package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cptec/go-academy-backend/internal/domain"
	"github.com/cptec/go-academy-backend/internal/repo"
	"github.com/cptec/go-academy-backend/internal/validation"
)

func newCertService(t *testing.T) *CertificationService {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("cert_svc_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.Certification{}, &domain.Modulo{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return NewCertificationService(db, validation.New())
}

func goodCertInput(codigo string) validation.CertificationInput {
	return validation.CertificationInput{
		NomeCompleto:  "João Macamo",
		Documento:     "110100123456A",
		Curso:         "Gestão de Projectos",
		Duracao:       "3 meses",
		CargaHoraria:  "120h",
		DataConclusao: "2024-06-30",
		Ano:           "2024",
		Codigo:        codigo,
	}
}

func TestCertificationService_Create_IssuesUniqueLink(t *testing.T) {
	svc := newCertService(t)
	in := goodCertInput("CPT-001")
	mods := []validation.ModuloInput{{Nome: "Introdução"}, {Nome: "Planeamento"}}
	in.Modulos = &mods

	cert, err := svc.Create(context.Background(), &in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if cert.UniqueLink == "" {
		t.Fatal("unique link not issued on create")
	}
	if _, err := uuid.Parse(cert.UniqueLink); err != nil {
		t.Fatalf("unique link is not a UUID: %q", cert.UniqueLink)
	}
	if cert.Status != domain.StatusAprovado {
		t.Fatalf("status not defaulted: %q", cert.Status)
	}
	if len(cert.Modulos) != 2 || cert.Modulos[0].Nome != "Introdução" {
		t.Fatalf("modulos not persisted in order: %+v", cert.Modulos)
	}
}

func TestCertificationService_Create_ValidationError(t *testing.T) {
	svc := newCertService(t)
	in := goodCertInput("CPT-001")
	in.DataConclusao = time.Now().UTC().AddDate(0, 0, 3).Format(validation.DateLayout)
	in.NomeCompleto = "Jo"

	_, err := svc.Create(context.Background(), &in)
	ve, isValidation := AsValidationError(err)
	if !isValidation {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if !ve.Fields.Has("data_conclusao") || !ve.Fields.Has("nome_completo") {
		t.Fatalf("expected all violations reported: %v", ve.Fields)
	}
}

func TestCertificationService_Create_CodigoTaken(t *testing.T) {
	svc := newCertService(t)
	ctx := context.Background()

	first := goodCertInput("CPT-001")
	if _, err := svc.Create(ctx, &first); err != nil {
		t.Fatalf("first create: %v", err)
	}

	second := goodCertInput("CPT-001")
	_, err := svc.Create(ctx, &second)
	ve, isValidation := AsValidationError(err)
	if !isValidation {
		t.Fatalf("expected *ValidationError on duplicate codigo, got %v", err)
	}
	if got := ve.Fields["codigo"]; len(got) == 0 || got[0] != validation.MsgCodigoTaken {
		t.Fatalf("expected codigo-taken message, got %v", ve.Fields)
	}
}

func TestCertificationService_Update_LinkImmutable(t *testing.T) {
	svc := newCertService(t)
	ctx := context.Background()

	in := goodCertInput("CPT-001")
	cert, err := svc.Create(ctx, &in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	issued := cert.UniqueLink

	upd := goodCertInput("CPT-001")
	upd.Curso = "Gestão Avançada de Projectos"
	got, err := svc.Update(ctx, cert.ID, &upd)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.UniqueLink != issued {
		t.Fatalf("unique link changed on update: %q != %q", got.UniqueLink, issued)
	}
	if got.Curso != "Gestão Avançada de Projectos" {
		t.Fatalf("curso not applied: %q", got.Curso)
	}
}

func TestCertificationService_Update_SameCodigoAllowed(t *testing.T) {
	svc := newCertService(t)
	ctx := context.Background()

	in := goodCertInput("CPT-001")
	cert, err := svc.Create(ctx, &in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Re-saving with its own codigo must not trip the uniqueness probe.
	upd := goodCertInput("CPT-001")
	if _, err := svc.Update(ctx, cert.ID, &upd); err != nil {
		t.Fatalf("Update with own codigo: %v", err)
	}
}

func TestCertificationService_Update_CodigoCollision(t *testing.T) {
	svc := newCertService(t)
	ctx := context.Background()

	a := goodCertInput("CPT-001")
	if _, err := svc.Create(ctx, &a); err != nil {
		t.Fatalf("create a: %v", err)
	}
	b := goodCertInput("CPT-002")
	certB, err := svc.Create(ctx, &b)
	if err != nil {
		t.Fatalf("create b: %v", err)
	}

	upd := goodCertInput("CPT-001") // already owned by a
	_, err = svc.Update(ctx, certB.ID, &upd)
	ve, isValidation := AsValidationError(err)
	if !isValidation || !ve.Fields.Has("codigo") {
		t.Fatalf("expected codigo validation error, got %v", err)
	}
}

func TestCertificationService_Update_ModuloSemantics(t *testing.T) {
	svc := newCertService(t)
	ctx := context.Background()

	in := goodCertInput("CPT-001")
	mods := []validation.ModuloInput{{Nome: "Antigo"}}
	in.Modulos = &mods
	cert, err := svc.Create(ctx, &in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Nil modulos: stored set untouched.
	upd := goodCertInput("CPT-001")
	got, err := svc.Update(ctx, cert.ID, &upd)
	if err != nil {
		t.Fatalf("update(nil modulos): %v", err)
	}
	if len(got.Modulos) != 1 || got.Modulos[0].Nome != "Antigo" {
		t.Fatalf("nil modulos should leave set untouched: %+v", got.Modulos)
	}

	// Non-nil modulos: whole set replaced.
	replacement := []validation.ModuloInput{{Nome: "Novo 1"}, {Nome: "Novo 2"}}
	upd2 := goodCertInput("CPT-001")
	upd2.Modulos = &replacement
	got, err = svc.Update(ctx, cert.ID, &upd2)
	if err != nil {
		t.Fatalf("update(replace): %v", err)
	}
	if len(got.Modulos) != 2 || got.Modulos[0].Nome != "Novo 1" || got.Modulos[1].Nome != "Novo 2" {
		t.Fatalf("set not replaced in order: %+v", got.Modulos)
	}

	// Empty non-nil set clears everything.
	empty := []validation.ModuloInput{}
	upd3 := goodCertInput("CPT-001")
	upd3.Modulos = &empty
	got, err = svc.Update(ctx, cert.ID, &upd3)
	if err != nil {
		t.Fatalf("update(clear): %v", err)
	}
	if len(got.Modulos) != 0 {
		t.Fatalf("empty set should clear modulos: %+v", got.Modulos)
	}
}

func TestCertificationService_Lookups(t *testing.T) {
	svc := newCertService(t)
	ctx := context.Background()

	in := goodCertInput("CPT-001")
	cert, err := svc.Create(ctx, &in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if got, err := svc.GetByLink(ctx, cert.UniqueLink); err != nil || got.ID != cert.ID {
		t.Fatalf("GetByLink: %v", err)
	}
	if got, err := svc.GetByCodigo(ctx, "CPT-001"); err != nil || got.ID != cert.ID {
		t.Fatalf("GetByCodigo: %v", err)
	}
	if _, err := svc.GetByLink(ctx, "never-issued"); err != ErrCertificationNotFound {
		t.Fatalf("unknown link: expected ErrCertificationNotFound, got %v", err)
	}
	if _, err := svc.Get(ctx, uuid.NewString()); err != ErrCertificationNotFound {
		t.Fatalf("unknown id: expected ErrCertificationNotFound, got %v", err)
	}
}

func TestCertificationService_Delete(t *testing.T) {
	svc := newCertService(t)
	ctx := context.Background()

	in := goodCertInput("CPT-001")
	mods := []validation.ModuloInput{{Nome: "Introdução"}}
	in.Modulos = &mods
	cert, err := svc.Create(ctx, &in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, cert.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, cert.ID); err != ErrCertificationNotFound {
		t.Fatalf("expected record gone, got %v", err)
	}

	var orphans int64
	if err := svc.DB.Model(&domain.Modulo{}).Where("certification_id = ?", cert.ID).Count(&orphans).Error; err != nil {
		t.Fatalf("count modulos: %v", err)
	}
	if orphans != 0 {
		t.Fatalf("modulo rows survived delete: %d", orphans)
	}

	if err := svc.Delete(ctx, cert.ID); err != ErrCertificationNotFound {
		t.Fatalf("second delete: expected ErrCertificationNotFound, got %v", err)
	}
}

func TestCertificationService_ListPage(t *testing.T) {
	svc := newCertService(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		in := goodCertInput(fmt.Sprintf("CPT-%03d", i))
		if i%2 == 1 {
			in.Status = domain.StatusReprovado
		}
		if _, err := svc.Create(ctx, &in); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	items, total, err := svc.ListPage(ctx, repo.CertificationFilter{}, 1, 3)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 4 || len(items) != 3 {
		t.Fatalf("pagination: total=%d len=%d", total, len(items))
	}

	reprovados, total, err := svc.ListPage(ctx, repo.CertificationFilter{Status: domain.StatusReprovado}, 1, 10)
	if err != nil || total != 2 || len(reprovados) != 2 {
		t.Fatalf("status filter: total=%d len=%d err=%v", total, len(reprovados), err)
	}
}
