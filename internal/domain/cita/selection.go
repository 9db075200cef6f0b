package cita

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"slices"
	"time"

	"github.com/example/cita-scheduler/internal/internaltypes"
)

// DateLayout is the portal's date format (dd/mm/yyyy).
const DateLayout = "02/01/2006"

var labelDate = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)

// DateRange bounds acceptable appointment dates, inclusive. Zero bounds are open.
type DateRange struct {
	Min time.Time
	Max time.Time
}

func (r DateRange) IsZero() bool { return r.Min.IsZero() && r.Max.IsZero() }

func (r DateRange) Contains(d time.Time) bool {
	if !r.Min.IsZero() && d.Before(r.Min) {
		return false
	}
	if !r.Max.IsZero() && d.After(r.Max) {
		return false
	}
	return true
}

// TimeRange bounds acceptable slot times as zero-padded "HH:MM" text. Empty bounds are open.
type TimeRange struct {
	Min string
	Max string
}

// TooEarly reports whether t sorts before Min.
func (r TimeRange) TooEarly(t string) bool { return r.Min != "" && t < r.Min }

// TooLate reports whether t sorts after Max. Rows are time-ascending, so callers stop scanning.
func (r TimeRange) TooLate(t string) bool { return r.Max != "" && t > r.Max }

func (r TimeRange) validate() error {
	for _, v := range []string{r.Min, r.Max} {
		if v == "" {
			continue
		}
		if _, err := time.Parse("15:04", v); err != nil || len(v) != 5 {
			return fmt.Errorf("time %q must be zero-padded HH:MM", v)
		}
	}
	return nil
}

// ParseLabelDate extracts the first dd/mm/yyyy date found in a slot label.
func ParseLabelDate(label string) (time.Time, bool) {
	found := labelDate.FindString(label)
	if found == "" {
		return time.Time{}, false
	}
	d, err := time.Parse(DateLayout, found)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// BestOf returns the best label among candidates.
// Labels are sorted as text, not as dates. Without bounds the first sorted label wins; otherwise
// the first sorted label whose date lies within r. Labels without a parsable date are skipped
// when bounds are set.
func BestOf(labels []string, r DateRange) (string, bool) {
	if len(labels) == 0 {
		return "", false
	}
	sorted := slices.Clone(labels)
	slices.Sort(sorted)
	if r.IsZero() {
		return sorted[0], true
	}
	for _, l := range sorted {
		d, ok := ParseLabelDate(l)
		if !ok || !r.Contains(d) {
			continue
		}
		return l, true
	}
	return "", false
}

const randomOfficeTries = 5

// ChooseOffice picks the office to book at.
// Preferred values are tried in order against the live options; the first present wins. When
// none is present, single-office operations fail hard, others fall back to up to five random
// picks among non-placeholder options, skipping excluded values.
// intn may be nil, in which case math/rand/v2 is used.
func ChooseOffice(options []OfficeOption, preferred, excluded []string, singleOffice bool, intn func(int) int) (OfficeOption, error) {
	live := make([]OfficeOption, 0, len(options))
	for _, o := range options {
		if o.Value != "" {
			live = append(live, o)
		}
	}

	for _, p := range preferred {
		for _, o := range live {
			if o.Value == p {
				return o, nil
			}
		}
	}
	if len(preferred) > 0 && singleOffice {
		return OfficeOption{}, fmt.Errorf("office %v not offered: %w", preferred, internaltypes.ErrHardFailure)
	}
	if len(live) == 0 {
		return OfficeOption{}, fmt.Errorf("empty office list: %w", internaltypes.ErrStageFailure)
	}

	if intn == nil {
		intn = rand.IntN
	}
	for range randomOfficeTries {
		o := live[intn(len(live))]
		if !slices.Contains(excluded, o.Value) {
			return o, nil
		}
	}
	return OfficeOption{}, fmt.Errorf("only excluded offices picked: %w", internaltypes.ErrStageFailure)
}
