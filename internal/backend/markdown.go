package backend

import (
	"fmt"
	"strconv"
	"strings"
)

// scorecardRow mirrors one scorecards table row. Hole columns hold
// comma-separated numbers, one value per hole.
type scorecardRow struct {
	TeeName       string
	MenParHole    string
	MenHcpHole    string
	WomenParHole  string
	WomenHcpHole  string
	MenParIn      *int32
	MenParOut     *int32
	MenParTotal   *int32
	WomenParIn    *int32
	WomenParOut   *int32
	WomenParTotal *int32
}

// teeRow mirrors one tee_details table row.
type teeRow struct {
	TeeName     string
	YardsHole   string
	YardsTotal  *int32
	RatingMen   *float32
	SlopeMen    *int32
	RatingWomen *float32
	SlopeWomen  *int32
}

// parseCSVNumbers parses a comma-separated number list, skipping blanks
// and unparseable fields.
func parseCSVNumbers(value string) []int {
	if value == "" {
		return nil
	}
	var out []int
	for _, field := range strings.Split(value, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

func countPositive(values []int) int {
	n := 0
	for _, v := range values {
		if v > 0 {
			n++
		}
	}
	return n
}

// padTo truncates or zero-pads values to n entries, as strings.
func padTo(values []int, n int) []string {
	out := make([]string, n)
	for i := range out {
		if i < len(values) {
			out[i] = strconv.Itoa(values[i])
		} else {
			out[i] = "0"
		}
	}
	return out
}

func maxWidth(values []string) int {
	w := 1
	for _, v := range values {
		if len(v) > w {
			w = len(v)
		}
	}
	return w
}

func ljust(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func int32String(v *int32) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(int(*v))
}

// renderScorecard produces the hole-by-hole markdown table for the first
// scorecard row found.
func renderScorecard(rows []scorecardRow) string {
	if len(rows) == 0 {
		return "No scorecard information was found for that course."
	}

	row := rows[0]
	menPar := parseCSVNumbers(row.MenParHole)
	menHcp := parseCSVNumbers(row.MenHcpHole)
	womenPar := parseCSVNumbers(row.WomenParHole)
	womenHcp := parseCSVNumbers(row.WomenHcpHole)

	numHoles := countPositive(menPar)
	for _, n := range []int{countPositive(womenPar), countPositive(menHcp), countPositive(womenHcp)} {
		if n > numHoles {
			numHoles = n
		}
	}
	if numHoles == 0 {
		return "Scorecard data was found but no hole-by-hole values were populated."
	}

	menParS := padTo(menPar, numHoles)
	menHcpS := padTo(menHcp, numHoles)
	womenParS := padTo(womenPar, numHoles)
	womenHcpS := padTo(womenHcp, numHoles)

	wMenPar := maxWidth(menParS)
	wMenHcp := maxWidth(menHcpS)
	wWmnPar := maxWidth(womenParS)
	wWmnHcp := maxWidth(womenHcpS)

	lines := []string{
		"### Scorecard Details",
		"| Holes | Men Par | Men Hcp | Women Par | Women Hcp |",
		"|-------|---------|---------|-----------|-----------|",
	}
	for i := 0; i < numHoles; i++ {
		lines = append(lines, fmt.Sprintf("| %2d | %s | %s | %s | %s |",
			i+1,
			ljust(menParS[i], wMenPar),
			ljust(menHcpS[i], wMenHcp),
			ljust(womenParS[i], wWmnPar),
			ljust(womenHcpS[i], wWmnHcp)))
	}

	footer := []struct {
		label string
		men   *int32
		women *int32
	}{
		{"Par In", row.MenParIn, row.WomenParIn},
		{"Par Out", row.MenParOut, row.WomenParOut},
		{"Par Total", row.MenParTotal, row.WomenParTotal},
	}
	for _, f := range footer {
		lines = append(lines, fmt.Sprintf("| **%s** | %s | %s | %s | %s |",
			f.label,
			ljust(int32String(f.men), wMenPar),
			strings.Repeat(" ", wMenHcp),
			ljust(int32String(f.women), wWmnPar),
			strings.Repeat(" ", wWmnHcp)))
	}

	return strings.Join(lines, "\n")
}

// renderTees produces the per-tee yardage and rating markdown table.
func renderTees(rows []teeRow) string {
	if len(rows) == 0 {
		return "No tee details were found for that course."
	}

	type tee struct {
		name     string
		yardages []int
		row      teeRow
	}
	var tees []tee
	numHoles := 0
	for _, r := range rows {
		yardages := parseCSVNumbers(r.YardsHole)
		if len(yardages) == 0 {
			continue
		}
		if len(yardages) > numHoles {
			numHoles = len(yardages)
		}
		name := r.TeeName
		if name == "" {
			name = "Unnamed Tee"
		}
		tees = append(tees, tee{name: name, yardages: yardages, row: r})
	}
	if len(tees) == 0 || numHoles == 0 {
		return "Tee details were available but could not be parsed."
	}

	names := make([]string, len(tees))
	for i, t := range tees {
		names[i] = t.name
	}

	lines := []string{
		"### Tee Details",
		"| Hole | " + strings.Join(names, " | ") + " |",
		"|------|" + strings.Repeat("------|", len(names)),
	}

	for i := 0; i < numHoles; i++ {
		cells := make([]string, len(tees))
		for j, t := range tees {
			if i < len(t.yardages) {
				cells[j] = strconv.Itoa(t.yardages[i])
			}
		}
		lines = append(lines, fmt.Sprintf("| %2d | %s |", i+1, strings.Join(cells, " | ")))
	}

	totals := make([]string, len(tees))
	menRatings := make([]string, len(tees))
	womenRatings := make([]string, len(tees))
	for j, t := range tees {
		totals[j] = int32String(t.row.YardsTotal)
		menRatings[j] = ratingSlope(t.row.RatingMen, t.row.SlopeMen)
		womenRatings[j] = ratingSlope(t.row.RatingWomen, t.row.SlopeWomen)
	}
	lines = append(lines,
		"| Total | "+strings.Join(totals, " | ")+" |",
		"| Men CR/Slope | "+strings.Join(menRatings, " | ")+" |",
		"| Women CR/Slope | "+strings.Join(womenRatings, " | ")+" |")

	return strings.Join(lines, "\n")
}

func ratingSlope(rating *float32, slope *int32) string {
	r := "N/A"
	if rating != nil && *rating != 0 {
		r = strconv.FormatFloat(float64(*rating), 'g', -1, 32)
	}
	s := "N/A"
	if slope != nil && *slope != 0 {
		s = strconv.Itoa(int(*slope))
	}
	return r + "/" + s
}
