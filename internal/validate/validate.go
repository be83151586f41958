// Package validate runs policy checks on inbound notification requests.
// All policies are evaluated and every violation is reported at once.
package validate

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmarkin/timed-notifier/internal/schedule"
)

// MaxContentLength is the longest accepted notification content, in runes.
const MaxContentLength = 2000

// Request carries the caller-supplied fields checked by the validator.
// ScheduledTime is the raw string form; an empty string means "deliver now".
type Request struct {
	RecipientID   string
	Content       string
	Timezone      string
	ScheduledTime string
	Priority      int
}

// ValidationError aggregates every violated policy for a single request.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// Policy is a single independent validation rule.
type Policy interface {
	Validate(req Request, now time.Time) error
}

// Validator runs an ordered list of policies against a request.
type Validator struct {
	policies []Policy
}

// New returns a Validator with the standard policy chain.
func New() *Validator {
	return &Validator{
		policies: []Policy{
			TimezonePolicy{},
			TimeRangePolicy{},
			PriorityPolicy{},
			ContentPolicy{},
		},
	}
}

// Validate evaluates every policy and returns an aggregated
// *ValidationError listing each violation, or nil when all pass.
func (v *Validator) Validate(req Request, now time.Time) error {
	var violations []string

	for _, p := range v.policies {
		if err := p.Validate(req, now); err != nil {
			violations = append(violations, err.Error())
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}

	return nil
}

// TimezonePolicy requires a recognized IANA timezone name.
type TimezonePolicy struct{}

func (TimezonePolicy) Validate(req Request, _ time.Time) error {
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		return fmt.Errorf("invalid timezone provided: %s", req.Timezone)
	}
	return nil
}

// TimeRangePolicy requires a supplied scheduled time to parse in the
// request timezone and to not lie in the past.
type TimeRangePolicy struct{}

func (TimeRangePolicy) Validate(req Request, now time.Time) error {
	if req.ScheduledTime == "" {
		return nil
	}

	// A broken timezone is TimezonePolicy's finding; without a zone the
	// time itself cannot be judged.
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		return nil
	}

	at, err := schedule.ParseInZone(req.ScheduledTime, req.Timezone)
	if err != nil {
		return fmt.Errorf("invalid scheduled time: %s", req.ScheduledTime)
	}

	if at.Before(now) {
		return fmt.Errorf("scheduled time %s is in the past", req.ScheduledTime)
	}

	return nil
}

// PriorityPolicy requires a base priority in [1, 10].
type PriorityPolicy struct{}

func (PriorityPolicy) Validate(req Request, _ time.Time) error {
	if req.Priority < 1 || req.Priority > 10 {
		return fmt.Errorf("priority %d is out of range [1, 10]", req.Priority)
	}
	return nil
}

// ContentPolicy requires non-empty content of at most MaxContentLength runes.
type ContentPolicy struct{}

func (ContentPolicy) Validate(req Request, _ time.Time) error {
	if req.Content == "" {
		return fmt.Errorf("content must not be empty")
	}
	if utf8.RuneCountInString(req.Content) > MaxContentLength {
		return fmt.Errorf("content exceeds %d characters", MaxContentLength)
	}
	return nil
}
