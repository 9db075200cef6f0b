package pagehtml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/cita-scheduler/internal/domain/cita"
)

const officeSelect = `<select id="idSede" name="idSede">
  <option value="">Seleccionar oficina</option>
  <option value="16">CNP RAMBLA GUIPUSCOA, 74</option>
  <option value="14">CNP MALLORCA-GRANADOS,   Mallorca, 213</option>
</select>`

func TestParseOptions(t *testing.T) {
	opts, err := ParseOptions(officeSelect)
	require.NoError(t, err)
	assert.Equal(t, []cita.OfficeOption{
		{Value: "", Label: "Seleccionar oficina"},
		{Value: "16", Label: "CNP RAMBLA GUIPUSCOA, 74"},
		{Value: "14", Label: "CNP MALLORCA-GRANADOS, Mallorca, 213"},
	}, opts)

	_, err = ParseOptions(`<div>nothing</div>`)
	assert.Error(t, err)
}

const slotTable = `<table id="CitaMAP_HORAS">
<thead><tr><th></th>
  <th class="colFecha1">12/06/2024</th>
  <th class="colFecha2">05/06/2024</th>
  <th class="colFecha3">19/06/2024</th>
</tr></thead>
<tbody>
<tr><th>09:00</th><td><span id="HUECO1001">L</span></td><td>-</td><td>-</td></tr>
<tr><th>09:10</th><td><span id="HUECO1002">L</span></td><td><a id="HUECO2002">L</a></td><td>-</td></tr>
<tr><th>09:20</th><td>-</td><td><a id="HUECO2003">L</a></td><td><a id="HUECO3003">L</a></td></tr>
<tr><th>09:30</th><td><span id="HUECO1004">L</span></td><td>-</td><td><a id="HUECO3004">L</a></td></tr>
</tbody></table>`

func TestParseGrid(t *testing.T) {
	g, err := ParseGrid(slotTable)
	require.NoError(t, err)
	assert.Equal(t, []string{"12/06/2024", "05/06/2024", "19/06/2024"}, g.Dates)
	require.Len(t, g.Rows, 4)
	assert.Equal(t, Row{Time: "09:10", Cells: []string{"HUECO1002", "HUECO2002", ""}}, g.Rows[1])

	_, err = ParseGrid(`<table><tbody><tr><td>x</td></tr></tbody></table>`)
	assert.Error(t, err)
}

func TestGridFirstFree(t *testing.T) {
	g, err := ParseGrid(slotTable)
	require.NoError(t, err)

	tests := []struct {
		name  string
		times cita.TimeRange
		want  map[string]cita.Slot
	}{
		{
			name: "no bounds",
			want: map[string]cita.Slot{
				"12/06/2024": {Date: "12/06/2024", Time: "09:00", ID: "HUECO1001"},
				"05/06/2024": {Date: "05/06/2024", Time: "09:10", ID: "HUECO2002"},
				"19/06/2024": {Date: "19/06/2024", Time: "09:20", ID: "HUECO3003"},
			},
		},
		{
			name:  "min time skips early rows",
			times: cita.TimeRange{Min: "09:25"},
			want: map[string]cita.Slot{
				"12/06/2024": {Date: "12/06/2024", Time: "09:30", ID: "HUECO1004"},
				"19/06/2024": {Date: "19/06/2024", Time: "09:30", ID: "HUECO3004"},
			},
		},
		{
			name:  "max time stops scan",
			times: cita.TimeRange{Max: "09:05"},
			want: map[string]cita.Slot{
				"12/06/2024": {Date: "12/06/2024", Time: "09:00", ID: "HUECO1001"},
			},
		},
		{
			name:  "empty window",
			times: cita.TimeRange{Min: "10:00"},
			want:  map[string]cita.Slot{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.FirstFree(tt.times))
		})
	}
}
