package codec

import (
	"errors"
	"strings"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	for _, v := range []int{1, 2, 3} {
		token := Encode(v)

		if !strings.HasPrefix(token, "FHE-") {
			t.Errorf("Encode(%d) = %q, expected an FHE- prefixed token", v, token)
		}

		got, err := Decode(token)
		if err != nil {
			t.Fatalf("Decode(Encode(%d)) returned error: %v", v, err)
		}
		if got != v {
			t.Errorf("Decode(Encode(%d)) = %d", v, got)
		}
	}
}

func TestDecode_LegacyPlainValue(t *testing.T) {
	got, err := Decode("2")
	if err != nil {
		t.Fatalf("Decode of a bare numeric string should succeed, got: %v", err)
	}
	if got != 2 {
		t.Errorf("Decode(\"2\") = %d, expected 2", got)
	}
}

func TestDecode_Malformed(t *testing.T) {
	cases := []string{"", "FHE-", "FHE-!!!", "not-a-number", "FHE-aGVsbG8="}
	for _, token := range cases {
		if _, err := Decode(token); !errors.Is(err, ErrMalformedToken) {
			t.Errorf("Decode(%q) expected ErrMalformedToken, got: %v", token, err)
		}
	}
}
