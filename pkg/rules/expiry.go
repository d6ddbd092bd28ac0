package rules

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnparsableDate is returned when no known layout matches the printed
// expiry date.
var ErrUnparsableDate = errors.New("unparsable expiry date")

// expiryLayouts are tried in order. Month-only prints are common on Indian
// packaging; they parse to the first of the month.
var expiryLayouts = []string{
	"02/01/2006",
	"02-01-2006",
	"01/2006",
	"Jan 2006",
	"January 2006",
}

// expirySoonDays is the remaining-shelf-life window flagged as "expires soon".
const expirySoonDays = 30

// ExpiryResult is the verdict for one printed expiry date.
type ExpiryResult struct {
	Valid         bool      `json:"valid"`
	ExpiryDate    time.Time `json:"expiry_date"`
	DaysRemaining int       `json:"days_remaining"`
	Message       string    `json:"message"`
}

// VerifyExpiry parses a best-before/expiry string from the label and reports
// whether the product is still within date relative to now.
func VerifyExpiry(raw string, now time.Time) (ExpiryResult, error) {
	cleaned := stripExpiryPrefix(strings.TrimSpace(raw))

	var expiry time.Time
	parsed := false
	for _, layout := range expiryLayouts {
		t, err := time.Parse(layout, cleaned)
		if err != nil {
			continue
		}
		expiry = t
		parsed = true
		break
	}
	if !parsed {
		return ExpiryResult{}, fmt.Errorf("%w: %q", ErrUnparsableDate, raw)
	}

	days := int(expiry.Sub(now).Hours() / 24)
	res := ExpiryResult{
		Valid:         days >= 0,
		ExpiryDate:    expiry,
		DaysRemaining: days,
	}
	switch {
	case days < 0:
		res.Message = fmt.Sprintf("product expired %d days ago", -days)
	case days < expirySoonDays:
		res.Message = fmt.Sprintf("product expires soon (%d days remaining)", days)
	default:
		res.Message = fmt.Sprintf("product valid (%d days remaining)", days)
	}
	return res, nil
}

// stripExpiryPrefix removes the label wording in front of the date itself.
func stripExpiryPrefix(s string) string {
	low := strings.ToLower(s)
	for _, prefix := range []string{"best before", "expiry date", "exp. date", "exp date", "use by", "exp"} {
		if strings.HasPrefix(low, prefix) {
			s = s[len(prefix):]
			break
		}
	}
	return strings.TrimLeft(s, ":. ")
}
