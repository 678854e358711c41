package search

import (
	"testing"

	"job-portal-go/internal/storage/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIndexFilterAlwaysRequiresActive(t *testing.T) {
	p := &Params{}
	p.normalize()

	filter := buildIndexFilter(p)

	assert.Equal(t, []string{"is_active = true"}, filter)
}

func TestBuildIndexFilterAllConditions(t *testing.T) {
	min, max := 4000.0, 8000.0
	p := &Params{City: "Berlin", Type: "full_time", SalaryMin: &min, SalaryMax: &max}
	p.normalize()

	filter := buildIndexFilter(p)

	assert.Equal(t, []string{
		"is_active = true",
		`location_city = "Berlin"`,
		`type = "full_time"`,
		"salary_max >= 4000",
		"salary_min <= 8000",
	}, filter)
}

func TestBuildIndexFilterEscapesQuotes(t *testing.T) {
	p := &Params{City: `Say "hi"`}
	p.normalize()

	filter := buildIndexFilter(p)

	assert.Contains(t, filter, `location_city = "Say \"hi\""`)
}

func TestBuildFallbackSQL(t *testing.T) {
	min := 5000.0
	p := &Params{Query: "go", City: "Berlin", Type: "full_time", SalaryMin: &min, Page: 2, PerPage: 10}
	p.normalize()

	idsSQL, idsArgs, countSQL, countArgs, err := buildFallbackSQL(p)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT job_id FROM jobs WHERE (is_active = ? AND (title LIKE ? OR description LIKE ?) AND location LIKE ? AND type = ? AND salary_max >= ?) ORDER BY posted_at DESC LIMIT 10 OFFSET 10",
		idsSQL)
	assert.Equal(t, []interface{}{true, "%go%", "%go%", "%Berlin%", "full_time", 5000.0}, idsArgs)

	assert.Equal(t,
		"SELECT COUNT(*) FROM jobs WHERE (is_active = ? AND (title LIKE ? OR description LIKE ?) AND location LIKE ? AND type = ? AND salary_max >= ?)",
		countSQL)
	assert.Equal(t, idsArgs, countArgs)
}

func TestBuildFallbackSQLWithoutFilters(t *testing.T) {
	p := &Params{}
	p.normalize()

	idsSQL, idsArgs, _, _, err := buildFallbackSQL(p)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT job_id FROM jobs WHERE (is_active = ?) ORDER BY posted_at DESC LIMIT 15 OFFSET 0",
		idsSQL)
	assert.Equal(t, []interface{}{true}, idsArgs)
}

func TestParamsNormalize(t *testing.T) {
	p := &Params{Page: 0, PerPage: 1000}
	p.normalize()

	assert.Equal(t, int64(1), p.Page)
	assert.Equal(t, int64(maxPerPage), p.PerPage)
}

func TestBuildPageEnvelopeEmpty(t *testing.T) {
	page := buildPage(nil, 1, 15, 0)

	assert.Equal(t, int64(1), page.CurrentPage)
	assert.Equal(t, int64(1), page.LastPage, "空结果last_page至少为1")
	assert.Equal(t, int64(0), page.Total)
	assert.Nil(t, page.From)
	assert.Nil(t, page.To)
	assert.NotNil(t, page.Data)
}

func TestBuildPageEnvelopeSecondPage(t *testing.T) {
	data := []models.Job{{JobID: "j16"}, {JobID: "j17"}}

	page := buildPage(data, 2, 15, 17)

	assert.Equal(t, int64(2), page.CurrentPage)
	assert.Equal(t, int64(2), page.LastPage)
	assert.Equal(t, int64(17), page.Total)
	require.NotNil(t, page.From)
	require.NotNil(t, page.To)
	assert.Equal(t, int64(16), *page.From)
	assert.Equal(t, int64(17), *page.To)
}
