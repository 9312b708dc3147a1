// Package domain defines the persistence models for contact submissions,
// certifications, and course modules. These types are mapped with GORM and
// form the core data layer of the academy backend.
package domain

import (
	"time"
)

// Certification status values. Stored as plain strings, enforced by a DB
// check constraint and by the validation layer.
const (
	StatusAprovado    = "Aprovado"
	StatusReprovado   = "Reprovado"
	StatusEmAndamento = "Em Andamento"
)

// ValidStatus reports whether s is one of the accepted certification
// status values.
func ValidStatus(s string) bool {
	switch s {
	case StatusAprovado, StatusReprovado, StatusEmAndamento:
		return true
	}
	return false
}

// Submission represents a contact-form lead submitted through the public
// website. Submissions are immutable after creation: clients can only
// create them, administrators can list and delete them.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Name / Email / Phone / Service / Message: contact payload, already
//     normalized by the validation layer (trimmed, email lower-cased).
//   - Consent: always true for persisted rows; submissions without consent
//     are rejected before they reach the store.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Submission struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"       gorm:"type:varchar(120);not null"`
	Email     string    `json:"email"      gorm:"type:varchar(254);not null;index"`
	Phone     string    `json:"phone"      gorm:"type:varchar(20);not null"`
	Service   string    `json:"service"    gorm:"type:varchar(120);not null;index"`
	Message   string    `json:"message"    gorm:"type:text;not null"`
	Consent   bool      `json:"consent"    gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Submission.
func (Submission) TableName() string { return "submissions" }

// Certification is a course-completion record that can be shared publicly
// through its UniqueLink and verified manually through its Codigo.
//
// Invariants:
//   - Codigo is globally unique (case-sensitive exact match).
//   - UniqueLink is unique, assigned exactly once on first insert, and never
//     regenerated afterwards.
//   - DataConclusao is never in the future at validation time.
//
// A certification owns its Modulo children; deleting the parent removes
// every module row.
type Certification struct {
	ID            string    `json:"id"             gorm:"type:char(36);primaryKey"`
	NomeCompleto  string    `json:"nome_completo"  gorm:"type:varchar(200);not null"`
	Documento     string    `json:"documento"      gorm:"type:varchar(50);not null"`
	Curso         string    `json:"curso"          gorm:"type:varchar(200);not null;index"`
	Duracao       string    `json:"duracao"        gorm:"type:varchar(50)"`
	CargaHoraria  string    `json:"carga_horaria"  gorm:"type:varchar(50)"`
	DataConclusao time.Time `json:"data_conclusao" gorm:"type:date;not null"`
	Ano           string    `json:"ano"            gorm:"type:varchar(10);index"`
	Codigo        string    `json:"codigo"         gorm:"type:varchar(100);not null;uniqueIndex:ux_certifications_codigo"`
	Status        string    `json:"status"         gorm:"type:varchar(20);not null;default:'Aprovado';check:status IN ('Aprovado','Reprovado','Em Andamento')"`
	Declaracao    string    `json:"declaracao"     gorm:"type:text"`
	Foto          string    `json:"foto"           gorm:"type:varchar(255)"`
	UniqueLink    string    `json:"unique_link"    gorm:"type:char(36);not null;uniqueIndex:ux_certifications_unique_link"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Modulos are the named course units belonging to this certification,
	// kept in insertion order via Position.
	Modulos []Modulo `json:"modulos" gorm:"foreignKey:CertificationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Certification.
func (Certification) TableName() string { return "certifications" }

// Modulo is a named sub-unit of a course, owned by exactly one
// certification. Position preserves the order in which modules were sent
// at create/update time; listings always order by it.
type Modulo struct {
	ID              string    `json:"id"   gorm:"type:char(36);primaryKey"`
	CertificationID string    `json:"-"    gorm:"type:char(36);not null;index:idx_certification_modulos"`
	Nome            string    `json:"nome" gorm:"type:varchar(200);not null"`
	Position        int       `json:"-"    gorm:"not null;default:0"`
	CreatedAt       time.Time `json:"-"`
}

// TableName returns the database table name for Modulo.
func (Modulo) TableName() string { return "modulos" }
