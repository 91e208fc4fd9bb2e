// Package codec implements the reversible token encoding used for role
// and room values. Tokens are opaque to the storage layer but are NOT
// encrypted: the encoding exists only to survive a round trip through a
// byte-oriented store, and provides no confidentiality guarantee.
package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const tokenPrefix = "FHE-"

// ErrMalformedToken is returned when a token is neither a product of
// Encode nor a bare numeric string.
var ErrMalformedToken = errors.New("malformed token")

// Encode produces an opaque token for a small non-negative integer.
func Encode(v int) string {
	return tokenPrefix + base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(v)))
}

// Decode recovers the integer behind a token. Bare numeric strings are
// accepted as a legacy fallback for values stored before the token
// format was introduced.
func Decode(token string) (int, error) {
	if strings.HasPrefix(token, tokenPrefix) {
		raw, err := base64.StdEncoding.DecodeString(token[len(tokenPrefix):])
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrMalformedToken, token)
		}
		v, err := strconv.Atoi(string(raw))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrMalformedToken, token)
		}
		return v, nil
	}

	// Legacy plain values.
	v, err := strconv.Atoi(strings.TrimSpace(token))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedToken, token)
	}
	return v, nil
}
