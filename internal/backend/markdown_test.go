package backend

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func i32(v int32) *int32     { return &v }
func f32(v float32) *float32 { return &v }

func TestParseCSVNumbers(t *testing.T) {
	assert.Equal(t, []int{4, 3, 5}, parseCSVNumbers("4,3,5"))
	assert.Equal(t, []int{4, 5}, parseCSVNumbers("4, ,5"))
	assert.Nil(t, parseCSVNumbers(""))
	assert.Equal(t, []int{7}, parseCSVNumbers("x,7"))
}

func TestRenderScorecardEmpty(t *testing.T) {
	assert.Equal(t, "No scorecard information was found for that course.", renderScorecard(nil))
}

func TestRenderScorecardNoHoleData(t *testing.T) {
	out := renderScorecard([]scorecardRow{{MenParHole: "0,0,0"}})
	assert.Equal(t, "Scorecard data was found but no hole-by-hole values were populated.", out)
}

func TestRenderScorecard(t *testing.T) {
	out := renderScorecard([]scorecardRow{{
		MenParHole:    "4,3,5",
		MenHcpHole:    "7,17,1",
		WomenParHole:  "4,3,5",
		WomenHcpHole:  "5,15,3",
		MenParIn:      i32(36),
		MenParOut:     i32(35),
		MenParTotal:   i32(71),
		WomenParIn:    i32(37),
		WomenParOut:   i32(36),
		WomenParTotal: i32(73),
	}})

	lines := strings.Split(out, "\n")
	require.Equal(t, "### Scorecard Details", lines[0])
	assert.Equal(t, "| Holes | Men Par | Men Hcp | Women Par | Women Hcp |", lines[1])
	assert.Contains(t, out, "|  1 | 4 | 7  | 4 | 5  |")
	assert.Contains(t, out, "|  3 | 5 | 1  | 5 | 3  |")
	assert.Contains(t, out, "| **Par Total** | 71 |")

	// Three hole rows plus three footer rows.
	require.Len(t, lines, 9)
}

func TestRenderScorecardUsesFirstRowOnly(t *testing.T) {
	out := renderScorecard([]scorecardRow{
		{MenParHole: "4,4"},
		{MenParHole: "5,5,5,5"},
	})
	assert.Contains(t, out, "|  2 |")
	assert.NotContains(t, out, "|  3 |")
}

func TestRenderTeesEmpty(t *testing.T) {
	assert.Equal(t, "No tee details were found for that course.", renderTees(nil))
}

func TestRenderTeesUnparseable(t *testing.T) {
	out := renderTees([]teeRow{{TeeName: "Blue", YardsHole: ""}})
	assert.Equal(t, "Tee details were available but could not be parsed.", out)
}

func TestRenderTees(t *testing.T) {
	out := renderTees([]teeRow{
		{
			TeeName:     "Blue",
			YardsHole:   "410,180,520",
			YardsTotal:  i32(6800),
			RatingMen:   f32(72.5),
			SlopeMen:    i32(135),
			RatingWomen: f32(78.1),
			SlopeWomen:  i32(142),
		},
		{
			TeeName:    "Red",
			YardsHole:  "350,140,460",
			YardsTotal: i32(5900),
		},
	})

	assert.Contains(t, out, "### Tee Details")
	assert.Contains(t, out, "| Hole | Blue | Red |")
	assert.Contains(t, out, "|  1 | 410 | 350 |")
	assert.Contains(t, out, "| Total | 6800 | 5900 |")
	assert.Contains(t, out, "| Men CR/Slope | 72.5/135 | N/A/N/A |")
	assert.Contains(t, out, "| Women CR/Slope | 78.1/142 | N/A/N/A |")
}

func TestRenderTeesRaggedYardages(t *testing.T) {
	out := renderTees([]teeRow{
		{TeeName: "Blue", YardsHole: "400,410,420"},
		{TeeName: "Red", YardsHole: "350,360"},
	})
	assert.Contains(t, out, "|  3 | 420 |  |")
}

func TestRenderTeesUnnamed(t *testing.T) {
	out := renderTees([]teeRow{{YardsHole: "400"}})
	assert.Contains(t, out, "| Hole | Unnamed Tee |")
}
