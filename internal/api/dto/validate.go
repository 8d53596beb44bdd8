package dto

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spec-kit/task-service/pkg/util"
)

// fieldErrors accumulates validation failures for one request.
type fieldErrors []util.FieldError

func (e *fieldErrors) add(field, message string) {
	*e = append(*e, util.FieldError{Field: field, Message: message})
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(strings.TrimSpace(s))
	return err == nil && addr.Address == strings.TrimSpace(s)
}

func parseDueDate(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func validHours(v float64) bool {
	return v >= 0 && v <= 1000
}

func validateTags(errs *fieldErrors, tags []string) {
	for _, tag := range tags {
		if utf8.RuneCountInString(strings.TrimSpace(tag)) > 20 {
			errs.add("tags", "Each tag must be a string of max 20 characters")
			return
		}
	}
}
