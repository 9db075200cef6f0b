package portaltest

import (
	"github.com/example/cita-scheduler/internal/domain/cita"
)

const (
	Receipt      = "ABC123XYZ"
	SiteKey      = "6Lc-site-key"
	OfficeSelect = `<select id="idSede"><option value="">Seleccionar oficina</option>` +
		`<option value="16">CNP RAMBLA GUIPUSCOA</option>` +
		`<option value="14">CNP MALLORCA-GRANADOS</option></select>`
)

// Flow builds a portal that walks the happy path for in: entry, instructions,
// personal info, offices, contact, a countdown slot page with labels, and a
// confirmed answer carrying Receipt.
func Flow(base string, in cita.Intent, labels ...string) *Portal {
	d, _ := cita.Describe(in.Operation)
	personal := map[string]Element{
		cita.SelSendPersonal: {},
		d.Ready:              {},
	}
	for _, f := range d.Fields {
		switch f {
		case cita.FieldDocType:
			for _, t := range d.DocTypes {
				personal[cita.DocTypeRadio(t)] = Element{}
			}
		case cita.FieldDocValue:
			personal[cita.SelDocValue] = Element{}
		case cita.FieldName:
			personal[cita.SelName] = Element{}
		case cita.FieldYearOfBirth:
			personal[cita.SelYearOfBirth] = Element{}
		case cita.FieldCountry:
			personal[cita.SelCountry] = Element{}
		}
	}

	contact := map[string]Element{
		cita.SelPhone:  {},
		cita.SelEmail1: {},
		cita.SelEmail2: {},
	}
	if d.RequiresReason {
		contact[cita.SelReason] = Element{}
	}

	pages := map[string]Page{
		"blank": {},
		"entry": {Title: cita.MarkerPortalTitle},
		"instructions": {Elements: map[string]Element{
			cita.SelProvince: {},
			cita.SelEnter:    {},
		}},
		"personal": {Elements: personal},
		"request":  {Elements: map[string]Element{cita.SelRequest: {}}},
		"offices": {
			Body: "Paso 2. " + cita.MarkerOffices + ".",
			Elements: map[string]Element{
				cita.SelOffice:     {HTML: OfficeSelect},
				cita.SelOfficeNext: {},
			},
		},
		"contact": {Elements: contact},
		"slots": {
			Body: "Usted " + cita.MarkerCountdown + " para seleccionar su cita",
			Elements: map[string]Element{
				cita.SelSlotLabels:   {Texts: labels},
				cita.SelSlotRadios:   {},
				cita.SelScoreSiteKey: {Attrs: map[string]string{"value": SiteKey}},
				cita.SelScoreAction:  {Attrs: map[string]string{"value": "solicitud"}},
			},
		},
		"confirm": {
			Body: cita.MarkerConfirmRequired,
			Elements: map[string]Element{
				cita.SelConsentAll:  {},
				cita.SelConsentMail: {},
				cita.SelConfirm:     {},
			},
		},
		"done": {
			Body:     cita.MarkerConfirmed,
			Elements: map[string]Element{cita.SelReceipt: {Text: " " + Receipt + " "}},
		},
	}
	entryURL := cita.EntryURL(base, in.Province)
	ffURL := cita.FastForwardURL(base, in.Province, in.Operation)
	on := map[string]string{
		"navigate " + entryURL:                "entry",
		"navigate " + ffURL:                   "instructions",
		"submit " + cita.SelEnter:             "personal",
		"submit " + cita.SelSendPersonal:      "request",
		"exec " + cita.ScriptRequestOffices:   "offices",
		"submit " + cita.SelOfficeNext:        "contact",
		"exec " + cita.ScriptSendContact:      "slots",
		"confirm " + cita.ScriptPickCountdown: "confirm",
		"submit " + cita.SelConfirm:           "done",
	}
	return New(pages, on, "blank")
}

// StartAt positions the portal on the instructions page, as the scheduler
// leaves it before handing over to the booking flow.
func (p *Portal) StartAt(page string) *Portal {
	p.Current = page
	return p
}
