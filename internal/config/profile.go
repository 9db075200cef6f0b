package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/cita-scheduler/internal/domain/cita"
)

// Profile is the booking profile file. Offices may be given by name or by
// option value.
type Profile struct {
	Name        string `yaml:"name"`
	DocType     string `yaml:"doc_type"`
	DocValue    string `yaml:"doc_value"`
	YearOfBirth string `yaml:"year_of_birth"`
	Country     string `yaml:"country"`
	Phone       string `yaml:"phone"`
	Email       string `yaml:"email"`

	Province  string `yaml:"province"`
	Operation string `yaml:"operation"`

	Offices       []string `yaml:"offices"`
	ExceptOffices []string `yaml:"except_offices"`

	MinDate       string  `yaml:"min_date"` // dd/mm/yyyy
	MaxDate       string  `yaml:"max_date"`
	MinTime       string  `yaml:"min_time"` // hh:mm
	MaxTime       string  `yaml:"max_time"`
	WaitExactTime [][]int `yaml:"wait_exact_time"` // [[minute, second], ...]

	AutoOffice    *bool `yaml:"auto_office"`
	AutoCaptcha   *bool `yaml:"auto_captcha"`
	SaveArtifacts bool  `yaml:"save_artifacts"`

	AntiCaptchaAPIKey string `yaml:"anticaptcha_api_key"`
	SMSWebhookToken   string `yaml:"sms_webhook_token"`
	Reason            string `yaml:"reason"`
}

// LoadProfile reads a YAML profile and converts it into a validated intent.
func LoadProfile(path string) (cita.Intent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cita.Intent{}, err
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return cita.Intent{}, fmt.Errorf("%s: %w", path, err)
	}
	p.applyDefaults()
	in, err := p.Intent()
	if err != nil {
		return cita.Intent{}, fmt.Errorf("%s: %w", path, err)
	}
	return in, nil
}

func (p *Profile) applyDefaults() {
	if p.Province == "" {
		p.Province = "barcelona"
	}
	if p.Operation == "" {
		p.Operation = "toma_huellas"
	}
	if p.Country == "" {
		p.Country = "RUSIA"
	}
	if p.AutoOffice == nil {
		p.AutoOffice = ptr(true)
	}
	if p.AutoCaptcha == nil {
		p.AutoCaptcha = ptr(true)
	}
	if p.Reason == "" {
		p.Reason = cita.DefaultReason
	}
}

func (p Profile) Intent() (cita.Intent, error) {
	province, ok := cita.ParseProvince(p.Province)
	if !ok {
		return cita.Intent{}, fmt.Errorf("unknown province %q", p.Province)
	}
	op, ok := cita.ParseOperation(p.Operation)
	if !ok {
		return cita.Intent{}, fmt.Errorf("unknown operation %q", p.Operation)
	}

	in := cita.Intent{
		Name:            strings.TrimSpace(p.Name),
		DocType:         cita.DocType(strings.ToLower(strings.TrimSpace(p.DocType))),
		DocValue:        strings.TrimSpace(p.DocValue),
		YearOfBirth:     strings.TrimSpace(p.YearOfBirth),
		Country:         strings.TrimSpace(p.Country),
		Phone:           strings.TrimSpace(p.Phone),
		Email:           strings.TrimSpace(p.Email),
		Province:        province,
		Operation:       op,
		Offices:         officeValues(p.Offices),
		ExceptOffices:   officeValues(p.ExceptOffices),
		Times:           cita.TimeRange{Min: p.MinTime, Max: p.MaxTime},
		AutoOffice:      p.AutoOffice == nil || *p.AutoOffice,
		AutoCaptcha:     p.AutoCaptcha == nil || *p.AutoCaptcha,
		SaveArtifacts:   p.SaveArtifacts,
		CaptchaAPIKey:   strings.TrimSpace(p.AntiCaptchaAPIKey),
		SMSWebhookToken: strings.TrimSpace(p.SMSWebhookToken),
		Reason:          p.Reason,
	}

	var err error
	if in.Dates.Min, err = parseDate("min_date", p.MinDate); err != nil {
		return cita.Intent{}, err
	}
	if in.Dates.Max, err = parseDate("max_date", p.MaxDate); err != nil {
		return cita.Intent{}, err
	}
	for _, pair := range p.WaitExactTime {
		if len(pair) != 2 {
			return cita.Intent{}, fmt.Errorf("wait_exact_time entries are [minute, second] pairs (got %v)", pair)
		}
		in.WaitExactTime = append(in.WaitExactTime, cita.ClockMark{Minute: pair[0], Second: pair[1]})
	}

	if err := in.Validate(); err != nil {
		return cita.Intent{}, err
	}
	return in, nil
}

func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(cita.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s %q is not dd/mm/yyyy", field, s)
	}
	return t, nil
}

func officeValues(names []string) []string {
	var out []string
	for _, n := range names {
		if v := cita.OfficeValue(n); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func ptr[T any](v T) *T { return &v }
