package cita

import "strings"

// Known Barcelona offices by their option value in the office list.
var officeValues = map[string]string{
	"badalona":           "18",
	"barcelona":          "16",
	"barcelona_mallorca": "14",
	"castelldefels":      "19",
	"cerdanyola":         "20",
	"cornella":           "43",
	"el_prat":            "28",
	"granollers":         "3",
	"hospitalet":         "29",
	"igualada":           "26",
	"manresa":            "2",
	"mataro":             "6",
	"montcada":           "44",
	"rubi":               "31",
	"sabadell":           "7",
	"santa_coloma":       "32",
	"terrassa":           "8",
	"vic":                "15",
}

// OfficeValue resolves an office name to its option value. Unknown names are
// returned unchanged so raw values can be configured directly.
func OfficeValue(nameOrValue string) string {
	s := strings.TrimSpace(nameOrValue)
	if v, ok := officeValues[strings.ToLower(s)]; ok {
		return v
	}
	return s
}
