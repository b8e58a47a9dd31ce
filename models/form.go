package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FieldType identifies how a submitted value for a form field is validated.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeEmail    FieldType = "email"
	FieldTypeNumber   FieldType = "number"
	FieldTypeDate     FieldType = "date"
	FieldTypeSelect   FieldType = "select"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeCheckbox FieldType = "checkbox"
)

// Field describes one input of a form. Options only apply to select fields.
type Field struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Label    string    `json:"label"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"`
}

// Form is a timed, capacity-bounded, paid registration template.
type Form struct {
	ID             uuid.UUID                  `gorm:"type:uuid;primaryKey" json:"id"`
	Title          string                     `gorm:"type:varchar(255);not null" json:"title"`
	Description    string                     `gorm:"type:text;not null" json:"description"`
	Fields         datatypes.JSONSlice[Field] `gorm:"type:jsonb;not null" json:"fields"`
	Amount         int64                      `gorm:"not null" json:"amount"` // minor units (paise/cents)
	StartDate      time.Time                  `gorm:"not null" json:"start_date"`
	EndDate        time.Time                  `gorm:"not null" json:"end_date"`
	IsActive       bool                       `gorm:"not null" json:"is_active"`
	MaxSubmissions *int                       `json:"max_submissions"` // nil = unlimited
	CreatedAt      time.Time                  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time                  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt             `gorm:"index" json:"-"`
}

// Validate checks the structural invariants of a form definition.
func (f *Form) Validate() error {
	if f.EndDate.Before(f.StartDate) {
		return errors.New("end_date must not be before start_date")
	}
	if f.Amount < 0 {
		return errors.New("amount must not be negative")
	}
	if f.MaxSubmissions != nil && *f.MaxSubmissions < 1 {
		return errors.New("max_submissions must be at least 1")
	}
	seen := make(map[string]bool, len(f.Fields))
	for _, field := range f.Fields {
		if field.Name == "" {
			return errors.New("field name is required")
		}
		if seen[field.Name] {
			return errors.New("duplicate field name " + field.Name)
		}
		seen[field.Name] = true
	}
	return nil
}
