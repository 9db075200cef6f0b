package cita

import (
	"fmt"
	"strings"
	"time"
)

type DocType string

const (
	DocDNI      DocType = "dni"
	DocNIE      DocType = "nie"
	DocPassport DocType = "passport"
)

const DefaultReason = "solicitud de asilo"

// ClockMark is a (minute, second) pair of the wall clock used for exact-time rendezvous.
type ClockMark struct {
	Minute int
	Second int
}

// Intent is what the user wants booked. It is built once before a run and never mutated.
type Intent struct {
	Name        string
	DocType     DocType
	DocValue    string
	YearOfBirth string
	Country     string
	Phone       string
	Email       string

	Province  Province
	Operation OperationType

	// Preferred office values, earlier entries win.
	Offices       []string
	ExceptOffices []string

	Dates         DateRange
	Times         TimeRange
	WaitExactTime []ClockMark

	AutoOffice    bool
	AutoCaptcha   bool
	SaveArtifacts bool

	CaptchaAPIKey   string
	SMSWebhookToken string
	Reason          string
}

func (in Intent) Validate() error {
	if in.Name == "" {
		return fmt.Errorf("name required")
	}
	switch in.DocType {
	case DocDNI, DocNIE, DocPassport:
	default:
		return fmt.Errorf("doc_type must be one of dni, nie, passport (got %q)", in.DocType)
	}
	if in.DocValue == "" {
		return fmt.Errorf("doc_value required")
	}
	if in.Phone == "" {
		return fmt.Errorf("phone required")
	}
	if _, ok := LookupProvince(in.Province); !ok {
		return fmt.Errorf("unknown province %q", in.Province)
	}
	d, ok := Describe(in.Operation)
	if !ok {
		return fmt.Errorf("unsupported operation %q", in.Operation)
	}
	if d.SingleOffice && len(in.Offices) != 1 {
		return fmt.Errorf("operation %s requires exactly one office", d.Name)
	}
	for _, f := range d.Fields {
		if f == FieldYearOfBirth && in.YearOfBirth == "" {
			return fmt.Errorf("year_of_birth required for %s", d.Name)
		}
		if f == FieldCountry && in.Country == "" {
			return fmt.Errorf("country required for %s", d.Name)
		}
	}
	if !in.Dates.Min.IsZero() && !in.Dates.Max.IsZero() && in.Dates.Max.Before(in.Dates.Min) {
		return fmt.Errorf("max_date must not be before min_date")
	}
	if err := in.Times.validate(); err != nil {
		return err
	}
	for _, m := range in.WaitExactTime {
		if m.Minute < 0 || m.Minute > 59 || m.Second < 0 || m.Second > 59 {
			return fmt.Errorf("wait_exact_time entry %d:%d out of range", m.Minute, m.Second)
		}
	}
	if in.Email != "" && !strings.Contains(in.Email, "@") {
		return fmt.Errorf("email %q is not an address", in.Email)
	}
	return nil
}

// OfficeOption is one entry of the rendered office list.
type OfficeOption struct {
	Value string
	Label string
}

// Slot is a bookable unit read from the slot page. ID is empty on countdown pages.
type Slot struct {
	Date string
	Time string
	ID   string
}

// Outcome is the terminal result of a run.
type Outcome struct {
	RunID    string
	Success  bool
	Code     string
	Attempts int
	Started  time.Time
	Finished time.Time
}

type CaptchaKind string

const (
	CaptchaNone  CaptchaKind = ""
	CaptchaScore CaptchaKind = "score"
	CaptchaImage CaptchaKind = "image"
)

// AttemptRecord is one cycle as written to the attempt journal.
type AttemptRecord struct {
	RunID     string
	Attempt   int
	Province  Province
	Operation OperationType
	Status    string // booked | failed | timeout | error
	Detail    string
	Code      string
	StartedAt time.Time
	EndedAt   time.Time
}
