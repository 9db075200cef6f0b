package cita

import (
	"slices"
	"strings"
)

// OperationType is the portal's procedure code (the "tramite").
type OperationType string

const (
	OpAsignacionNIE          OperationType = "4031"
	OpAutorizacionDeRegreso  OperationType = "20"
	OpBrexit                 OperationType = "4094"
	OpCartaInvitacion        OperationType = "4037"
	OpCertificadosNIE        OperationType = "4096"
	OpCertificadosNIENoComun OperationType = "4079"
	OpCertificadosResidencia OperationType = "4049"
	OpCertificadosUE         OperationType = "4038"
	OpRecogidaDeTarjeta      OperationType = "4036"
	OpSolicitudAsilo         OperationType = "4078"
	OpTomaHuellas            OperationType = "4010"
)

// FieldRole is one personal-info input the portal asks for.
type FieldRole int

const (
	FieldDocType FieldRole = iota
	FieldDocValue
	FieldName
	FieldYearOfBirth
	FieldCountry
)

func (f FieldRole) String() string {
	switch f {
	case FieldDocType:
		return "doc_type"
	case FieldDocValue:
		return "doc_value"
	case FieldName:
		return "name"
	case FieldYearOfBirth:
		return "year_of_birth"
	case FieldCountry:
		return "country"
	}
	return "unknown"
}

// OperationDescriptor declares what the personal-info form of an operation needs.
type OperationDescriptor struct {
	Name string
	Code OperationType
	// Ready is the element whose presence means the form has rendered.
	Ready string
	// DocTypes lists the doc-type radios this form offers. A doc type outside
	// the list is left for the portal default.
	DocTypes       []DocType
	Fields         []FieldRole
	RequiresReason bool
	SingleOffice   bool
}

// AcceptsDocType reports whether the form has a radio for t.
func (d OperationDescriptor) AcceptsDocType(t DocType) bool {
	return slices.Contains(d.DocTypes, t)
}

var (
	basicFields    = []FieldRole{FieldDocType, FieldDocValue, FieldName}
	extendedFields = []FieldRole{FieldDocType, FieldDocValue, FieldName, FieldYearOfBirth, FieldCountry}
	passportNIE    = []DocType{DocPassport, DocNIE}
)

var operations = map[OperationType]OperationDescriptor{
	OpTomaHuellas: {
		Name:     "toma_huellas",
		Ready:    SelCountry,
		DocTypes: passportNIE,
		Fields:   []FieldRole{FieldCountry, FieldDocType, FieldDocValue, FieldName},
	},
	OpRecogidaDeTarjeta: {
		Name:         "recogida_de_tarjeta",
		Ready:        SelDocValue,
		DocTypes:     passportNIE,
		Fields:       basicFields,
		SingleOffice: true,
	},
	OpSolicitudAsilo: {
		Name:           "solicitud_asilo",
		Ready:          SelDocValue,
		DocTypes:       passportNIE,
		Fields:         extendedFields,
		RequiresReason: true,
	},
	OpBrexit: {
		Name:     "brexit",
		Ready:    SelDocValue,
		DocTypes: passportNIE,
		Fields:   basicFields,
	},
	OpCartaInvitacion: {
		Name:     "carta_invitacion",
		Ready:    SelDocValue,
		DocTypes: []DocType{DocPassport, DocDNI},
		Fields:   basicFields,
	},
	OpCertificadosNIE:        certificados("certificados_nie"),
	OpCertificadosNIENoComun: certificados("certificados_nie_no_comun"),
	OpCertificadosResidencia: certificados("certificados_residencia"),
	OpCertificadosUE:         certificados("certificados_ue"),
	OpAutorizacionDeRegreso: {
		Name:     "autorizacion_de_regreso",
		Ready:    SelDocValue,
		DocTypes: passportNIE,
		Fields:   basicFields,
	},
	OpAsignacionNIE: {
		Name:     "asignacion_nie",
		Ready:    SelDocValue,
		DocTypes: []DocType{DocPassport},
		Fields:   extendedFields,
	},
}

func certificados(name string) OperationDescriptor {
	return OperationDescriptor{
		Name:     name,
		Ready:    SelDocValue,
		DocTypes: []DocType{DocPassport, DocNIE, DocDNI},
		Fields:   basicFields,
	}
}

// Describe returns the form descriptor for op.
func Describe(op OperationType) (OperationDescriptor, bool) {
	d, ok := operations[op]
	if !ok {
		return OperationDescriptor{}, false
	}
	d.Code = op
	return d, true
}

// Operations lists every known descriptor ordered by name.
func Operations() []OperationDescriptor {
	out := make([]OperationDescriptor, 0, len(operations))
	for code := range operations {
		d, _ := Describe(code)
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b OperationDescriptor) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// ParseOperation accepts either a code ("4010") or a descriptor name ("toma_huellas").
func ParseOperation(s string) (OperationType, bool) {
	s = strings.TrimSpace(s)
	if _, ok := operations[OperationType(s)]; ok {
		return OperationType(s), true
	}
	for code, d := range operations {
		if strings.EqualFold(d.Name, s) {
			return code, true
		}
	}
	return "", false
}
