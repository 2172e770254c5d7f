package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/golfguiders/caddie/internal/tools"
)

// CourseLookup is the input for the columnar catalog tools. The course
// identifier comes from the id_course values the course search surfaces.
type CourseLookup struct {
	CourseID string `json:"course_id" jsonschema:"Course identifier (id_course) from a course search result"`
	TeeName  string `json:"tee_name,omitempty" jsonschema:"Optional tee name to restrict the lookup to"`
}

// Columnar adapts the scorecard and tee detail catalog tables.
type Columnar struct {
	pool    *pgxpool.Pool
	timeout time.Duration
	logger  *slog.Logger
}

// NewColumnar creates the catalog adapter.
func NewColumnar(pool *pgxpool.Pool, timeout time.Duration, logger *slog.Logger) *Columnar {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Columnar{pool: pool, timeout: timeout, logger: logger}
}

// Register adds the catalog tools to the registry.
func (c *Columnar) Register(r *tools.Registry) error {
	err := tools.Register(r, "search_scorecards",
		"Retrieves scorecard hole information and par totals for a course: "+
			"hole-by-hole par and handicap for men and women. "+
			"Input is the course identifier (id_course).",
		NameColumnar, c.searchScorecards)
	if err != nil {
		return err
	}
	return tools.Register(r, "search_tee_details",
		"Lists tee colors, yardages, course ratings and slope ratings for a course. "+
			"Input is the course identifier (id_course), optionally with a tee name.",
		NameColumnar, c.searchTees)
}

func (c *Columnar) searchScorecards(ctx context.Context, in CourseLookup) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	sql := `SELECT tee_name,
	          men_par_hole, men_hcp_hole, wmn_par_hole, wmn_hcp_hole,
	          men_par_in, men_par_out, men_par_total,
	          wmn_par_in, wmn_par_out, wmn_par_total
	        FROM scorecards WHERE course_id = $1`
	args := []any{in.CourseID}
	if in.TeeName != "" {
		sql += ` AND tee_name = $2`
		args = append(args, in.TeeName)
	}

	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		return "", fmt.Errorf("scorecard lookup for %q: %w", in.CourseID, err)
	}
	defer rows.Close()

	var cards []scorecardRow
	for rows.Next() {
		var sc scorecardRow
		if err := rows.Scan(&sc.TeeName,
			&sc.MenParHole, &sc.MenHcpHole, &sc.WomenParHole, &sc.WomenHcpHole,
			&sc.MenParIn, &sc.MenParOut, &sc.MenParTotal,
			&sc.WomenParIn, &sc.WomenParOut, &sc.WomenParTotal); err != nil {
			return "", fmt.Errorf("scanning scorecard: %w", err)
		}
		cards = append(cards, sc)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("scorecard lookup for %q: %w", in.CourseID, err)
	}

	return renderScorecard(cards), nil
}

func (c *Columnar) searchTees(ctx context.Context, in CourseLookup) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	sql := `SELECT tee_name, yds_hole, yds_total,
	          rating_men, slope_men, rating_women, slope_women
	        FROM tee_details WHERE course_id = $1`
	args := []any{in.CourseID}
	if in.TeeName != "" {
		sql += ` AND tee_name = $2`
		args = append(args, in.TeeName)
	}

	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		return "", fmt.Errorf("tee lookup for %q: %w", in.CourseID, err)
	}
	defer rows.Close()

	var tees []teeRow
	for rows.Next() {
		var t teeRow
		if err := rows.Scan(&t.TeeName, &t.YardsHole, &t.YardsTotal,
			&t.RatingMen, &t.SlopeMen, &t.RatingWomen, &t.SlopeWomen); err != nil {
			return "", fmt.Errorf("scanning tee detail: %w", err)
		}
		tees = append(tees, t)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("tee lookup for %q: %w", in.CourseID, err)
	}

	return renderTees(tees), nil
}
