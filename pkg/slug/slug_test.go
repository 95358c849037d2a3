package slug

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestMake(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Gorilla Trekking in Bwindi", "gorilla-trekking-in-bwindi"},
		{"  Lake Bunyonyi & Café Tour  ", "lake-bunyonyi-and-cafe-tour"},
		{"Rock'n'Roll!!", "rock-n-roll"},
		{"Straße nach Zürich", "strasse-nach-zurich"},
		{"Ærøskøbing", "aeroskobing"},
		{"3 Days / 2 Nights", "3-days-2-nights"},
		{"---", ""},
		{"日本", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Make(tt.input))
		})
	}
}

func TestMake_Truncates(t *testing.T) {
	got := Make(strings.Repeat("safari ", 30))
	assert.LessOrEqual(t, len(got), MaxLength)
	assert.True(t, Valid(got))
	assert.False(t, strings.HasSuffix(got, "-"))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("gorilla-trek"))
	assert.True(t, Valid("day-3"))
	assert.False(t, Valid("Gorilla-Trek"))
	assert.False(t, Valid("double--dash"))
	assert.False(t, Valid("-leading"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("with space"))
}

func TestMake_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		input := rapid.String().Draw(t, "input")
		got := Make(input)
		if got != "" && !Valid(got) {
			t.Fatalf("Make(%q) = %q is not a valid slug", input, got)
		}
		if again := Make(got); again != got {
			t.Fatalf("Make is not idempotent: %q -> %q -> %q", input, got, again)
		}
	})
}
