package cita

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe_AllOperationsHaveForm(t *testing.T) {
	for _, d := range Operations() {
		t.Run(d.Name, func(t *testing.T) {
			assert.NotEmpty(t, d.Code)
			assert.NotEmpty(t, d.Ready)
			assert.NotEmpty(t, d.DocTypes)
			require.NotEmpty(t, d.Fields)
			assert.Contains(t, d.Fields, FieldDocValue)
			assert.Contains(t, d.Fields, FieldName)
			for _, dt := range d.DocTypes {
				assert.NotEmpty(t, DocTypeRadio(dt))
			}
		})
	}
}

func TestDescribe_Specifics(t *testing.T) {
	d, ok := Describe(OpTomaHuellas)
	require.True(t, ok)
	assert.Equal(t, SelCountry, d.Ready)
	assert.Equal(t, FieldCountry, d.Fields[0])

	d, ok = Describe(OpRecogidaDeTarjeta)
	require.True(t, ok)
	assert.True(t, d.SingleOffice)

	d, ok = Describe(OpSolicitudAsilo)
	require.True(t, ok)
	assert.True(t, d.RequiresReason)
	assert.Equal(t, []FieldRole{FieldDocType, FieldDocValue, FieldName, FieldYearOfBirth, FieldCountry}, d.Fields)

	d, ok = Describe(OpAsignacionNIE)
	require.True(t, ok)
	assert.True(t, d.AcceptsDocType(DocPassport))
	assert.False(t, d.AcceptsDocType(DocNIE))

	_, ok = Describe("9999")
	assert.False(t, ok)
}

func TestParseOperation(t *testing.T) {
	op, ok := ParseOperation("4010")
	require.True(t, ok)
	assert.Equal(t, OpTomaHuellas, op)

	op, ok = ParseOperation("Brexit")
	require.True(t, ok)
	assert.Equal(t, OpBrexit, op)

	_, ok = ParseOperation("nope")
	assert.False(t, ok)
}

func TestRoutes(t *testing.T) {
	tests := []struct {
		province Province
		entry    string
		forward  string
	}{
		{ProvinceBarcelona,
			"https://icp.administracionelectronica.gob.es/icpplustieb/citar?p=8",
			"https://icp.administracionelectronica.gob.es/icpplustieb/acInfo?tramiteGrupo[0]=4010"},
		{ProvinceMadrid,
			"https://icp.administracionelectronica.gob.es/icpplustiem/citar?p=28",
			"https://icp.administracionelectronica.gob.es/icpplustiem/acInfo?tramiteGrupo[1]=4010"},
		{ProvinceMalaga,
			"https://icp.administracionelectronica.gob.es/icpco/citar?p=29",
			"https://icp.administracionelectronica.gob.es/icpco/acInfo?tramiteGrupo[0]=4010"},
		{ProvinceLasPalmas,
			"https://icp.administracionelectronica.gob.es/icpco/citar?p=35",
			"https://icp.administracionelectronica.gob.es/icpco/acInfo?tramiteGrupo[1]=4010"},
		{ProvinceSevilla,
			"https://icp.administracionelectronica.gob.es/icpplus/citar?p=41",
			"https://icp.administracionelectronica.gob.es/icpplus/acInfo?tramiteGrupo[0]=4010"},
		{"46",
			"https://icp.administracionelectronica.gob.es/icpplus/citar?p=46",
			"https://icp.administracionelectronica.gob.es/icpplus/acInfo?tramiteGrupo[1]=4010"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.entry, EntryURL(DefaultPortalURL+"/", tt.province))
		assert.Equal(t, tt.forward, FastForwardURL(DefaultPortalURL, tt.province, OpTomaHuellas))
	}
}

func TestParseProvince(t *testing.T) {
	p, ok := ParseProvince("barcelona")
	require.True(t, ok)
	assert.Equal(t, ProvinceBarcelona, p)

	p, ok = ParseProvince("28")
	require.True(t, ok)
	assert.Equal(t, ProvinceMadrid, p)

	_, ok = ParseProvince("atlantis")
	assert.False(t, ok)
	assert.Len(t, Provinces(), 52)
}

func TestOfficeValue(t *testing.T) {
	assert.Equal(t, "14", OfficeValue("BARCELONA_MALLORCA"))
	assert.Equal(t, "99", OfficeValue(" 99 "))
}

func TestIntentValidate(t *testing.T) {
	valid := Intent{
		Name:      "BORIS JOHNSON",
		DocType:   DocPassport,
		DocValue:  "132435465",
		Phone:     "600000000",
		Email:     "a@b.es",
		Province:  ProvinceBarcelona,
		Operation: OpBrexit,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Intent)
	}{
		{"no name", func(in *Intent) { in.Name = "" }},
		{"bad doc type", func(in *Intent) { in.DocType = "visa" }},
		{"unknown province", func(in *Intent) { in.Province = "99" }},
		{"unknown operation", func(in *Intent) { in.Operation = "1" }},
		{"recogida needs one office", func(in *Intent) { in.Operation = OpRecogidaDeTarjeta }},
		{"asilo needs year", func(in *Intent) { in.Operation = OpSolicitudAsilo; in.Country = "RUSIA" }},
		{"inverted dates", func(in *Intent) { in.Dates = DateRange{Min: day("10/01/2024"), Max: day("01/01/2024")} }},
		{"unpadded time", func(in *Intent) { in.Times = TimeRange{Min: "9:30"} }},
		{"bad clock mark", func(in *Intent) { in.WaitExactTime = []ClockMark{{Minute: 60}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			assert.Error(t, in.Validate())
		})
	}
}
