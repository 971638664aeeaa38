package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAndValidate(t *testing.T) {
	assert.Equal(t, "asha.rao@idb.in", Normalize("  Asha.Rao@IDB.in "))
	assert.True(t, IsValid("asha.rao@idb.in"))
	assert.False(t, IsValid("asha.rao"))
	assert.False(t, IsValid(""))
}

func TestDeriveName(t *testing.T) {
	first, last := DeriveNameFromEmail("asha.rao@idb.in")
	assert.Equal(t, "Asha", first)
	assert.Equal(t, "Rao", last)

	assert.Equal(t, "Asha Rao", DisplayName("asha.rao@idb.in"))
	assert.Equal(t, "Admin", DisplayName("admin@idb.in"))
	assert.Equal(t, "User", DisplayName("..."))
}
