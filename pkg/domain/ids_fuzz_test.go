package domain

import (
	"testing"
)

// FuzzParseLeadID checks that parsing never panics on arbitrary input and
// always returns either a usable id or an error.
func FuzzParseLeadID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE leads;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseLeadID(input)
		if err != nil {
			if !IsNil(id) {
				t.Fatalf("error returned with non-nil id for %q", input)
			}
			return
		}
		if IsNil(id) {
			t.Fatalf("nil id accepted for %q", input)
		}
		again, err := ParseLeadID(id.String())
		if err != nil || again != id {
			t.Fatalf("canonical form did not round-trip for %q", input)
		}
	})
}
