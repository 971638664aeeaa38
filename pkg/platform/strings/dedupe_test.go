package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	assert.Equal(t, []string{"foo", "bar"}, DedupeAndTrim([]string{"  foo ", "bar", "foo", "", "  "}))
	assert.Empty(t, DedupeAndTrim(nil))
}

func TestDedupeAndTrimLower(t *testing.T) {
	assert.Equal(t, []string{"foo", "bar"}, DedupeAndTrimLower([]string{"  FOO ", "bar", "Foo"}))
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"UG", "PG", "Diploma"}, SplitCSV([]string{"UG", "PG, Diploma", "UG"}))
}

func TestTrimPtr(t *testing.T) {
	var nilPtr *string
	TrimPtr(nilPtr)
	s, u := "  hi ", "yo\t"
	TrimPtr(&s, nilPtr, &u)
	assert.Equal(t, "hi", s)
	assert.Equal(t, "yo", u)
}
