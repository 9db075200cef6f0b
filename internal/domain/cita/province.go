package cita

import (
	"fmt"
	"slices"
	"strings"
)

// Province is the portal's province code ("8" for Barcelona).
type Province string

const DefaultPortalURL = "https://icp.administracionelectronica.gob.es"

const (
	ProvinceAlicante      Province = "3"
	ProvinceBarcelona     Province = "8"
	ProvinceIllesBalears  Province = "7"
	ProvinceLasPalmas     Province = "35"
	ProvinceMadrid        Province = "28"
	ProvinceMalaga        Province = "29"
	ProvinceMelilla       Province = "52"
	ProvinceSCruzTenerife Province = "38"
	ProvinceSevilla       Province = "41"
)

var provinceNames = map[Province]string{
	"15": "a_coruna", "2": "albacete", ProvinceAlicante: "alicante", "4": "almeria", "1": "araba",
	"33": "asturias", "5": "avila", "6": "badajoz", ProvinceBarcelona: "barcelona", "48": "bizkaia",
	"9": "burgos", "10": "caceres", "11": "cadiz", "39": "cantabria", "12": "castellon",
	"51": "ceuta", "13": "ciudad_real", "14": "cordoba", "16": "cuenca", "20": "gipuzkoa",
	"17": "girona", "18": "granada", "19": "guadalajara", "21": "huelva", "22": "huesca",
	ProvinceIllesBalears: "illes_balears", "23": "jaen", "26": "la_rioja", ProvinceLasPalmas: "las_palmas",
	"24": "leon", "25": "lleida", "27": "lugo", ProvinceMadrid: "madrid", ProvinceMalaga: "malaga",
	ProvinceMelilla: "melilla", "30": "murcia", "31": "navarra", "32": "ourense", "34": "palencia",
	"36": "pontevedra", "37": "salamanca", ProvinceSCruzTenerife: "s_cruz_tenerife", "40": "segovia",
	ProvinceSevilla: "sevilla", "42": "soria", "43": "tarragona", "44": "teruel", "45": "toledo",
	"46": "valencia", "47": "valladolid", "49": "zamora", "50": "zaragoza",
}

// LookupProvince returns the province name for a code.
func LookupProvince(p Province) (string, bool) {
	n, ok := provinceNames[p]
	return n, ok
}

// ParseProvince accepts a code ("8") or a name ("barcelona").
func ParseProvince(s string) (Province, bool) {
	s = strings.TrimSpace(s)
	if _, ok := provinceNames[Province(s)]; ok {
		return Province(s), true
	}
	for code, name := range provinceNames {
		if strings.EqualFold(name, s) {
			return code, true
		}
	}
	return "", false
}

// Provinces returns all codes ordered by name.
func Provinces() []Province {
	out := make([]Province, 0, len(provinceNames))
	for p := range provinceNames {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Province) int { return strings.Compare(provinceNames[a], provinceNames[b]) })
	return out
}

// Route is the portal application serving a province.
type Route struct {
	Category string
	Param    string
}

// RouteFor maps a province to its portal application and operation parameter.
func RouteFor(p Province) Route {
	switch p {
	case ProvinceBarcelona:
		return Route{Category: "icpplustieb", Param: "tramiteGrupo[0]"}
	case ProvinceAlicante, ProvinceIllesBalears, ProvinceLasPalmas, ProvinceSCruzTenerife:
		return Route{Category: "icpco", Param: "tramiteGrupo[1]"}
	case ProvinceMadrid:
		return Route{Category: "icpplustiem", Param: "tramiteGrupo[1]"}
	case ProvinceMalaga:
		return Route{Category: "icpco", Param: "tramiteGrupo[0]"}
	case ProvinceMelilla, ProvinceSevilla:
		return Route{Category: "icpplus", Param: "tramiteGrupo[0]"}
	}
	return Route{Category: "icpplus", Param: "tramiteGrupo[1]"}
}

// EntryURL is the province-selection page.
func EntryURL(base string, p Province) string {
	return fmt.Sprintf("%s/%s/citar?p=%s", strings.TrimRight(base, "/"), RouteFor(p).Category, p)
}

// FastForwardURL jumps straight to the operation's instructions page.
func FastForwardURL(base string, p Province, op OperationType) string {
	r := RouteFor(p)
	return fmt.Sprintf("%s/%s/acInfo?%s=%s", strings.TrimRight(base, "/"), r.Category, r.Param, op)
}
