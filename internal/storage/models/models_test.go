package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestRequirementList(t *testing.T) {
	job := &Job{Requirements: datatypes.JSON(`["go","mysql"]`)}
	assert.Equal(t, []string{"go", "mysql"}, job.RequirementList())

	empty := &Job{}
	assert.Empty(t, empty.RequirementList())

	malformed := &Job{Requirements: datatypes.JSON(`{"not":"a list"}`)}
	assert.Empty(t, malformed.RequirementList())
}

func TestResumeParsed(t *testing.T) {
	assert.False(t, (&Resume{}).Parsed())
	assert.True(t, (&Resume{ParsedProfile: datatypes.JSON(`{"skills":[]}`)}).Parsed())
}

func TestStringsToJSON(t *testing.T) {
	raw, err := StringsToJSON([]string{"a", "b"})
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(raw))

	raw, err = StringsToJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))
}
