package backend

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golfguiders/caddie/internal/testutil"
)

func seedCatalog(t *testing.T, ctx context.Context, c *Columnar) {
	t.Helper()

	_, err := c.pool.Exec(ctx,
		`INSERT INTO scorecards (course_id, tee_name,
		   men_par_hole, men_hcp_hole, wmn_par_hole, wmn_hcp_hole,
		   men_par_in, men_par_out, men_par_total,
		   wmn_par_in, wmn_par_out, wmn_par_total)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		"c-100", "Blue",
		"4,4,3,5,4,4,3,5,4,4,4,3,5,4,4,3,5,4", "1,3,5,7,9,11,13,15,17,2,4,6,8,10,12,14,16,18",
		"4,4,3,5,4,4,3,5,4,4,4,3,5,4,4,3,5,4", "2,4,6,8,10,12,14,16,18,1,3,5,7,9,11,13,15,17",
		36, 36, 72, 36, 36, 72)
	require.NoError(t, err)

	_, err = c.pool.Exec(ctx,
		`INSERT INTO tee_details (course_id, tee_name, yds_hole, yds_total,
		   rating_men, slope_men, rating_women, slope_women)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		"c-100", "Blue",
		"410,385,175,520,400,390,180,540,415,420,405,170,530,395,385,185,515,410",
		6830, 72.4, 131, 77.8, 139)
	require.NoError(t, err)

	_, err = c.pool.Exec(ctx,
		`INSERT INTO tee_details (course_id, tee_name, yds_hole, yds_total)
		 VALUES ($1, $2, $3, $4)`,
		"c-100", "Red",
		"330,310,140,420,325,315,145,435,335,340,330,135,425,320,310,150,415,330",
		5400)
	require.NoError(t, err)
}

func TestColumnarScorecardLookup(t *testing.T) {
	pool := testutil.StartPostgres(t)
	c := NewColumnar(pool, 0, nil)
	ctx := context.Background()
	seedCatalog(t, ctx, c)

	out, err := c.searchScorecards(ctx, CourseLookup{CourseID: "c-100"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "### Scorecard Details"))
	assert.Contains(t, out, "**Total: 72**")

	out, err = c.searchScorecards(ctx, CourseLookup{CourseID: "c-100", TeeName: "Gold"})
	require.NoError(t, err)
	assert.Equal(t, "No scorecard information was found for that course.", out)
}

func TestColumnarTeeLookup(t *testing.T) {
	pool := testutil.StartPostgres(t)
	c := NewColumnar(pool, 0, nil)
	ctx := context.Background()
	seedCatalog(t, ctx, c)

	out, err := c.searchTees(ctx, CourseLookup{CourseID: "c-100"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "### Tee Details"))
	assert.Contains(t, out, "Blue")
	assert.Contains(t, out, "Red")
	assert.Contains(t, out, "6830")

	out, err = c.searchTees(ctx, CourseLookup{CourseID: "c-100", TeeName: "Blue"})
	require.NoError(t, err)
	assert.Contains(t, out, "Blue")
	assert.NotContains(t, out, "Red")

	out, err = c.searchTees(ctx, CourseLookup{CourseID: "missing"})
	require.NoError(t, err)
	assert.Equal(t, "No tee details were found for that course.", out)
}
