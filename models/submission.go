package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SubmissionStatus is the registration state of a submission.
type SubmissionStatus string

const (
	SubmissionStatusPending   SubmissionStatus = "pending"
	SubmissionStatusCompleted SubmissionStatus = "completed"
)

// Submission is one user's single registration attempt for a form.
// (user_id, form_id) is unique.
type Submission struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_submission_user_form" json:"user_id"`
	FormID    uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_submission_user_form;index" json:"form_id"`
	Data      datatypes.JSONMap `gorm:"type:jsonb;not null" json:"data"`
	Status    SubmissionStatus  `gorm:"type:varchar(20);not null" json:"status"`
	Form      *Form             `gorm:"foreignKey:FormID" json:"form,omitempty"`
	Payments  []Payment         `gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE" json:"payments,omitempty"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsCompleted reports whether the submission has been paid for.
func (s *Submission) IsCompleted() bool {
	return s.Status == SubmissionStatusCompleted
}
