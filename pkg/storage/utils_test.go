package storage

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adfharrison1/go-tours/pkg/domain"
)

func TestMatchesFilter(t *testing.T) {
	doc := domain.Document{
		"title":     "Gorilla Trek",
		"days":      int64(4),
		"published": true,
		"tags":      []interface{}{"Wildlife", "Hiking"},
	}

	assert.True(t, MatchesFilter(doc, map[string]interface{}{"title": "gorilla trek"}))
	assert.True(t, MatchesFilter(doc, map[string]interface{}{"days": 4}))
	assert.True(t, MatchesFilter(doc, map[string]interface{}{"days": 4.0, "published": true}))
	assert.True(t, MatchesFilter(doc, map[string]interface{}{"tags": "hiking"}))
	assert.True(t, MatchesFilter(doc, map[string]interface{}{"missing": nil}))
	assert.False(t, MatchesFilter(doc, map[string]interface{}{"published": false}))
	assert.False(t, MatchesFilter(doc, map[string]interface{}{"tags": "beach"}))
	assert.False(t, MatchesFilter(doc, map[string]interface{}{"country": "Uganda"}))
}

func TestValuesMatch(t *testing.T) {
	assert.True(t, ValuesMatch("Kampala", "kampala")) // case-insensitive
	assert.True(t, ValuesMatch(42, 42.0))
	assert.True(t, ValuesMatch(int8(3), uint64(3)))
	assert.True(t, ValuesMatch(nil, nil))
	assert.True(t, ValuesMatch([]string{"a", "B"}, "b"))
	assert.False(t, ValuesMatch(nil, 1))
	assert.False(t, ValuesMatch("true", true))
	assert.False(t, ValuesMatch(map[string]interface{}{"a": 1}, "a"))
	assert.False(t, ValuesMatch("x", []interface{}{"x"}))
}

func TestToFloat64(t *testing.T) {
	cases := []struct {
		input    interface{}
		expected float64
		ok       bool
	}{
		{42, 42.0, true},
		{int8(-2), -2.0, true},
		{int32(7), 7.0, true},
		{int64(8), 8.0, true},
		{float32(3.5), 3.5, true},
		{float64(2.2), 2.2, true},
		{uint8(5), 5.0, true},
		{uint64(9), 9.0, true},
		{"not a number", 0, false},
		{true, 0, false},
	}
	for _, c := range cases {
		result, ok := ToFloat64(c.input)
		assert.Equal(t, c.ok, ok, "input %v", c.input)
		if c.ok {
			assert.Equal(t, c.expected, result)
		}
	}
}

func TestCompareValues(t *testing.T) {
	assert.Equal(t, -1, CompareValues(1, 2.5))
	assert.Equal(t, 0, CompareValues(int64(3), 3.0))
	assert.Equal(t, 1, CompareValues("b", "A"))
	assert.Equal(t, -1, CompareValues("2024-01-02T00:00:00Z", "2024-01-10T00:00:00Z"))
	assert.Equal(t, -1, CompareValues(false, true))
	assert.Equal(t, 1, CompareValues(nil, 1), "nil sorts last")
	assert.Equal(t, -1, CompareValues("x", nil))
	assert.Equal(t, -1, CompareValues(1, "1"), "numbers before strings")
}

func TestIntersectStringSlices(t *testing.T) {
	assert.Nil(t, IntersectStringSlices())
	assert.Equal(t, []string{"a"}, IntersectStringSlices([]string{"a"}))

	got := IntersectStringSlices([]string{"a", "b", "c"}, []string{"b", "c", "d"}, []string{"c", "b", "b"})
	sort.Strings(got)
	assert.Equal(t, []string{"b", "c"}, got)
}
