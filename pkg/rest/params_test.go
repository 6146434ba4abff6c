package rest

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuerySpecSelect(t *testing.T) {
	spec, apiErr := parseQuerySpec(url.Values{"select": {"id, title ,body"}})
	require.Nil(t, apiErr)
	assert.True(t, spec.SelectGiven)
	assert.Equal(t, []string{"id", "title", "body"}, spec.Select)
}

func TestParseQuerySpecStarShortCircuits(t *testing.T) {
	spec, apiErr := parseQuerySpec(url.Values{"select": {"id,*"}})
	require.Nil(t, apiErr)
	assert.False(t, spec.SelectGiven)
	assert.Nil(t, spec.Select)
}

func TestParseQuerySpecInvalidIntegersFallBackToUnset(t *testing.T) {
	values := url.Values{
		"limit":  {"abc"},
		"offset": {"-3"},
		"page":   {"0"},
	}
	spec, apiErr := parseQuerySpec(values)
	require.Nil(t, apiErr)
	assert.Zero(t, spec.Limit)
	assert.Zero(t, spec.Offset)
	assert.Zero(t, spec.Page)
}

func TestParseQuerySpecMalformedWhereFails(t *testing.T) {
	_, apiErr := parseQuerySpec(url.Values{"where": {"{not json"}})
	require.NotNil(t, apiErr)
	assert.Equal(t, 400, apiErr.Status)
}

func TestParseQuerySpecMalformedOrderByFails(t *testing.T) {
	_, apiErr := parseQuerySpec(url.Values{"orderBy": {"[1,2]"}})
	require.NotNil(t, apiErr)
	assert.Equal(t, 400, apiErr.Status)
}

func TestEffectiveOffsetPageComputation(t *testing.T) {
	// limit=10&page=2 -> offset 10
	spec := querySpec{Limit: 10, Page: 2}
	assert.Equal(t, 10, spec.effectiveOffset())

	// explicit offset wins over page
	spec = querySpec{Limit: 10, Page: 2, Offset: 5}
	assert.Equal(t, 5, spec.effectiveOffset())

	// page without limit has no effect
	spec = querySpec{Page: 3}
	assert.Zero(t, spec.effectiveOffset())

	// page 1 means no offset
	spec = querySpec{Limit: 5, Page: 1}
	assert.Zero(t, spec.effectiveOffset())
}
