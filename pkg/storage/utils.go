package storage

import (
	"strings"
	"time"

	"github.com/adfharrison1/go-tours/pkg/domain"
)

// MatchesFilter checks if a document matches the given filter criteria
func MatchesFilter(doc domain.Document, filter map[string]interface{}) bool {
	for field, expectedValue := range filter {
		actualValue, exists := doc[field]
		if !exists {
			if expectedValue == nil {
				continue // a nil filter value matches a missing field
			}
			return false
		}

		if !ValuesMatch(actualValue, expectedValue) {
			return false
		}
	}
	return true
}

// ValuesMatch compares two values for equality, handling different types.
// A list matches when any of its elements matches.
func ValuesMatch(actual, expected interface{}) bool {
	// Handle nil values
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}

	switch list := actual.(type) {
	case []interface{}:
		for _, item := range list {
			if ValuesMatch(item, expected) {
				return true
			}
		}
		return false
	case []string:
		for _, item := range list {
			if ValuesMatch(item, expected) {
				return true
			}
		}
		return false
	}

	// Handle string comparison (case-insensitive for better UX)
	if actualStr, ok1 := actual.(string); ok1 {
		if expectedStr, ok2 := expected.(string); ok2 {
			return strings.EqualFold(actualStr, expectedStr)
		}
	}

	// Handle numeric comparison
	if actualNum, ok1 := ToFloat64(actual); ok1 {
		if expectedNum, ok2 := ToFloat64(expected); ok2 {
			return actualNum == expectedNum
		}
	}

	if actualBool, ok1 := actual.(bool); ok1 {
		if expectedBool, ok2 := expected.(bool); ok2 {
			return actualBool == expectedBool
		}
		return false
	}

	// Remaining comparable scalars; maps and slices never match here
	switch actual.(type) {
	case map[string]interface{}, domain.Document:
		return false
	}
	return actual == expected
}

// ToFloat64 converts various numeric types to float64 for comparison
func ToFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

// CompareValues orders two field values: numbers numerically, RFC3339
// timestamps chronologically, strings case-insensitively, false before true.
// Missing (nil) values sort after everything else.
func CompareValues(a, b interface{}) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return 1
		default:
			return -1
		}
	}

	if an, ok := ToFloat64(a); ok {
		if bn, ok := ToFloat64(b); ok {
			return compareFloat(an, bn)
		}
	}

	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			if at, err := time.Parse(time.RFC3339Nano, as); err == nil {
				if bt, err := time.Parse(time.RFC3339Nano, bs); err == nil {
					return at.Compare(bt)
				}
			}
			return strings.Compare(strings.ToLower(as), strings.ToLower(bs))
		}
	}

	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			default:
				return 1
			}
		}
	}

	// Mixed types: fall back to a stable ordering by type name
	return strings.Compare(typeRank(a), typeRank(b))
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func typeRank(v interface{}) string {
	switch v.(type) {
	case bool:
		return "0bool"
	case string:
		return "2string"
	case []interface{}, []string:
		return "3list"
	case map[string]interface{}, domain.Document:
		return "4map"
	default:
		if _, ok := ToFloat64(v); ok {
			return "1number"
		}
		return "5other"
	}
}

// IntersectStringSlices returns the intersection of multiple string slices
// This is used for index intersection in multi-field queries
func IntersectStringSlices(slices ...[]string) []string {
	if len(slices) == 0 {
		return nil
	}
	if len(slices) == 1 {
		return slices[0]
	}

	// Count occurrences of each ID across all slices
	countMap := make(map[string]int)
	for _, slice := range slices {
		seen := make(map[string]bool, len(slice))
		for _, id := range slice {
			if !seen[id] {
				seen[id] = true
				countMap[id]++
			}
		}
	}

	// Find IDs that appear in all slices (count equals number of slices)
	var result []string
	expectedCount := len(slices)
	for id, count := range countMap {
		if count == expectedCount {
			result = append(result, id)
		}
	}

	return result
}
