package questionnaire

import (
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/mbolis/questionnaire/model"
)

const DirectiveAccountOlderThan = "account_older_than"

var cutoffLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// CheckEligibility evaluates the directives it knows against the respondent.
// A failed rule yields an *EligibilityError (errors.Is ErrNotEligible); a
// directive whose value cannot be understood yields a *SchemaError.
// Unknown directives are ignored.
func CheckEligibility(cfg Config, who model.Identity) error {
	if raw, ok := cfg[DirectiveAccountOlderThan]; ok {
		cutoff, err := parseCutoff(raw)
		if err != nil {
			return &SchemaError{Op: "config", Err: errors.Wrap(err, DirectiveAccountOlderThan)}
		}
		if who.CreatedUTC.After(cutoff) {
			return &EligibilityError{
				Directive: DirectiveAccountOlderThan,
				Reason:    "account created after " + cutoff.Format(time.RFC3339),
			}
		}
	}
	return nil
}

// parseCutoff accepts dates, timestamps and epoch seconds. Dates without a
// zone are taken as UTC.
func parseCutoff(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case int:
		return time.Unix(int64(v), 0).UTC(), nil
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case uint64:
		return time.Unix(int64(v), 0).UTC(), nil
	case float64:
		return time.Unix(int64(v), 0).UTC(), nil
	case string:
		for _, layout := range cutoffLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(epoch, 0).UTC(), nil
		}
		return time.Time{}, errors.Errorf("unrecognised date %q", v)
	}
	return time.Time{}, errors.Errorf("unsupported value %v (%T)", raw, raw)
}
