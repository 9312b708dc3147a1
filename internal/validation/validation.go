// Package validation implements the untrusted-input checks for submissions
// and certifications.
//
// Structural rules (lengths, email shape, phone digit count) are expressed
// as go-playground/validator struct tags on the input DTOs and translated to
// canonical Portuguese messages. Cross-field and store-backed rules (consent,
// completion date against the server clock, codigo uniqueness) are applied
// afterwards and appended to the same field→messages map, so a single pass
// reports every violation at once.
package validation

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cptec/go-academy-backend/internal/domain"
	"github.com/cptec/go-academy-backend/internal/utils"
)

// DateLayout is the wire format for data_conclusao.
const DateLayout = "2006-01-02"

// Phone digit-count bounds. The historical revisions disagreed (9 vs 15);
// the canonical rule is: strip formatting, count digits, require 9..15.
const (
	PhoneMinDigits = 9
	PhoneMaxDigits = 15
)

// Canonical user-facing messages (Portuguese, matching the public site).
const (
	MsgRequired        = "Campo obrigatório."
	MsgConsent         = "É necessário autorizar para prosseguir."
	MsgNameMin         = "Nome deve ter pelo menos 2 caracteres."
	MsgNameMax         = "Nome muito longo (máximo 120 caracteres)."
	MsgEmailInvalid    = "Email inválido."
	MsgPhoneDigits     = "Número de telefone deve ter entre 9 e 15 dígitos."
	MsgServiceMin      = "Serviço deve ter pelo menos 2 caracteres."
	MsgMessageMin      = "Mensagem deve ter pelo menos 10 caracteres."
	MsgMessageMax      = "Mensagem muito longa (máximo 1000 caracteres)."
	MsgNomeCompletoMin = "Nome completo deve ter pelo menos 3 caracteres."
	MsgCursoMin        = "Curso deve ter pelo menos 3 caracteres."
	MsgCodigoMin       = "Código deve ter pelo menos 3 caracteres."
	MsgCodigoTaken     = "Código já está em uso."
	MsgDataInvalida    = "Data de conclusão inválida (use o formato AAAA-MM-DD)."
	MsgDataFutura      = "Data de conclusão não pode estar no futuro."
	MsgStatusInvalido  = "Status inválido."
	MsgModuloNome      = "Nome do módulo é obrigatório."
)

// SubmissionInput is the untrusted field map for the public contact form.
type SubmissionInput struct {
	Name    string `json:"name"    validate:"required,min=2,max=120"`
	Email   string `json:"email"   validate:"required,email"`
	Phone   string `json:"phone"   validate:"required,phonedigits"`
	Service string `json:"service" validate:"required,min=2"`
	Message string `json:"message" validate:"required,min=10,max=1000"`
	Consent bool   `json:"consent"`
}

// ModuloInput is one course unit inside a certification payload.
type ModuloInput struct {
	Nome string `json:"nome"`
}

// CertificationInput is the untrusted field map for certification
// create/update. Modulos is a pointer so an update can distinguish
// "replace the set" (non-nil) from "leave it untouched" (nil).
type CertificationInput struct {
	NomeCompleto  string         `json:"nome_completo" validate:"required,min=3"`
	Documento     string         `json:"documento"     validate:"required"`
	Curso         string         `json:"curso"         validate:"required,min=3"`
	Duracao       string         `json:"duracao"`
	CargaHoraria  string         `json:"carga_horaria"`
	DataConclusao string         `json:"data_conclusao" validate:"required"`
	Ano           string         `json:"ano"`
	Codigo        string         `json:"codigo"        validate:"required,min=3"`
	Status        string         `json:"status"`
	Declaracao    string         `json:"declaracao"`
	Foto          string         `json:"foto"`
	Modulos       *[]ModuloInput `json:"modulos"`
}

// CodigoChecker answers whether codigo already belongs to another
// certification, excluding excludeID (empty on create). Implemented by the
// repository; a non-nil error means the store could not be consulted and is
// surfaced as a system error, not a validation outcome.
type CodigoChecker func(ctx context.Context, codigo, excludeID string) (bool, error)

// Validator wraps a configured *validator.Validate instance. It is safe for
// concurrent use and is meant to be created once and shared.
type Validator struct {
	v *validator.Validate
}

// New builds a Validator with the custom phonedigits rule registered and
// json tag names reported in field errors.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// phonedigits: formatting characters are allowed, only the digit count
	// is constrained.
	_ = v.RegisterValidation("phonedigits", func(fl validator.FieldLevel) bool {
		n := utils.DigitCount(fl.Field().String())
		return n >= PhoneMinDigits && n <= PhoneMaxDigits
	})

	return &Validator{v: v}
}

// Submission normalizes in (in place) and returns every violated field.
// Consent is a hard business rule: consent=false always yields a dedicated
// "consent" error regardless of the other fields.
func (vd *Validator) Submission(in *SubmissionInput) Errors {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Service = strings.TrimSpace(in.Service)
	in.Message = strings.TrimSpace(in.Message)

	errs := vd.translate(vd.v.Struct(in))
	if !in.Consent {
		errs.Add("consent", MsgConsent)
	}
	return errs
}

// Certification normalizes in (in place), runs all structural, cross-field
// and uniqueness rules, and returns the aggregated violations together with
// the parsed completion date (zero when data_conclusao was invalid).
//
// The uniqueness probe runs through codigoTaken with excludeID so an update
// does not collide with itself. A storage failure during that probe is
// returned as err and must be treated as a system error by the caller.
func (vd *Validator) Certification(ctx context.Context, in *CertificationInput, excludeID string, codigoTaken CodigoChecker) (Errors, time.Time, error) {
	in.NomeCompleto = strings.TrimSpace(in.NomeCompleto)
	in.Documento = strings.TrimSpace(in.Documento)
	in.Curso = strings.TrimSpace(in.Curso)
	in.Codigo = strings.TrimSpace(in.Codigo)
	in.Status = strings.TrimSpace(in.Status)
	if in.Status == "" {
		in.Status = domain.StatusAprovado
	}

	errs := vd.translate(vd.v.Struct(in))

	// Completion date: parse and compare against the server clock, never a
	// client-supplied notion of "today".
	var date time.Time
	if in.DataConclusao != "" {
		parsed, err := time.Parse(DateLayout, in.DataConclusao)
		if err != nil {
			errs.Add("data_conclusao", MsgDataInvalida)
		} else if today := time.Now().UTC().Truncate(24 * time.Hour); parsed.After(today) {
			errs.Add("data_conclusao", MsgDataFutura)
		} else {
			date = parsed
		}
	}

	if !domain.ValidStatus(in.Status) {
		errs.Add("status", MsgStatusInvalido)
	}

	if in.Modulos != nil {
		for _, m := range *in.Modulos {
			if strings.TrimSpace(m.Nome) == "" {
				errs.Add("modulos", MsgModuloNome)
				break
			}
		}
	}

	// Codigo uniqueness against the store, excluding the record itself on
	// update. Skipped when codigo already failed a structural rule.
	if codigoTaken != nil && in.Codigo != "" && !errs.Has("codigo") {
		taken, err := codigoTaken(ctx, in.Codigo, excludeID)
		if err != nil {
			return errs, date, err
		}
		if taken {
			errs.Add("codigo", MsgCodigoTaken)
		}
	}

	return errs, date, nil
}

// translate converts a validator error into the field→messages map, using
// the canonical Portuguese message for each (field, tag) pair.
func (vd *Validator) translate(err error) Errors {
	errs := Errors{}
	if err == nil {
		return errs
	}
	var ferrs validator.ValidationErrors
	if !errors.As(err, &ferrs) {
		errs.Add("non_field_errors", "Dados inválidos.")
		return errs
	}
	for _, fe := range ferrs {
		errs.Add(fe.Field(), messageFor(fe.Field(), fe.Tag()))
	}
	return errs
}

// messageFor picks the canonical message for a (field, tag) violation.
func messageFor(field, tag string) string {
	if tag == "required" {
		return MsgRequired
	}
	switch field {
	case "name":
		if tag == "max" {
			return MsgNameMax
		}
		return MsgNameMin
	case "email":
		return MsgEmailInvalid
	case "phone":
		return MsgPhoneDigits
	case "service":
		return MsgServiceMin
	case "message":
		if tag == "max" {
			return MsgMessageMax
		}
		return MsgMessageMin
	case "nome_completo":
		return MsgNomeCompletoMin
	case "curso":
		return MsgCursoMin
	case "codigo":
		return MsgCodigoMin
	}
	return "Valor inválido."
}
