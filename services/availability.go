package services

import (
	"time"

	"registration-service/models"
)

// IsAvailable reports whether form accepts a new submission at now given how
// many submissions it already holds. Both window bounds are inclusive. A
// malformed form definition is never available.
func IsAvailable(form *models.Form, now time.Time, submissionCount int64) bool {
	if form == nil || !form.IsActive || form.Validate() != nil {
		return false
	}
	if now.Before(form.StartDate) || now.After(form.EndDate) {
		return false
	}
	if form.MaxSubmissions != nil && submissionCount >= int64(*form.MaxSubmissions) {
		return false
	}
	return true
}

// acceptsPayment is the weaker check applied when a payment is initiated for
// an existing submission. Capacity was consumed at submit time and is not
// re-evaluated. The start bound is irrelevant since the submission exists.
func acceptsPayment(form *models.Form, now time.Time) bool {
	return form != nil && form.IsActive && form.Validate() == nil && !now.After(form.EndDate)
}
