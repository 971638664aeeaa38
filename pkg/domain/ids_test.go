package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "idbcrm/pkg/domain-errors"
)

// TestParseUUID_Invariants validates that ids parsed at trust boundaries are
// valid, non-empty, non-nil UUIDs.
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseLeadID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseLeadID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseBranchID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		got, err := ParsePartnerID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, PartnerID(valid), got)
	})
}

func TestJSONRoundTripUsesCanonicalForm(t *testing.T) {
	leadID := New[LeadID]()
	body, err := json.Marshal(map[string]LeadID{"lead_id": leadID})
	require.NoError(t, err)
	assert.Contains(t, string(body), leadID.String())

	var decoded map[string]LeadID
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, leadID, decoded["lead_id"])
}

func TestNullableScan(t *testing.T) {
	var n NullableScan[BranchID]
	require.NoError(t, n.Scan(nil))
	assert.Nil(t, n.Ptr())

	raw := uuid.New()
	require.NoError(t, n.Scan(raw.String()))
	require.NotNil(t, n.Ptr())
	assert.Equal(t, BranchID(raw), *n.Ptr())
}

func TestValueMapsNilToNull(t *testing.T) {
	assert.Nil(t, Value(BranchID{}))
	id := New[BranchID]()
	assert.Equal(t, id.String(), Value(id))
}
