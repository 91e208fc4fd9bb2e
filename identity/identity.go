// Package identity abstracts the wallet of the calling player. The
// server binds a provider to each session once the client has
// introduced itself; the core only ever asks for the caller's address
// and, on the role-reveal path, a signature.
package identity

import "errors"

// ErrNoIdentity is returned by providers that have no connected wallet.
var ErrNoIdentity = errors.New("no caller identity available")

// Provider resolves the current caller.
type Provider interface {
	// Address returns the caller's wallet address, or false when no
	// wallet is connected.
	Address() (string, bool)

	// RequestSignature asks the wallet to sign a disclosure message.
	// It gates the self-role reveal path only; the signature is not
	// verified by the core.
	RequestSignature(message string) (string, error)
}

// Static is a fixed-address provider. Sessions use it once the client
// has sent its hello; the signature is echoed back by the remote
// wallet, so at this layer requesting one is a pass-through.
type Static struct {
	Addr string
	Sign func(message string) (string, error)
}

func (s *Static) Address() (string, bool) {
	if s == nil || s.Addr == "" {
		return "", false
	}
	return s.Addr, true
}

func (s *Static) RequestSignature(message string) (string, error) {
	if s == nil || s.Addr == "" {
		return "", ErrNoIdentity
	}
	if s.Sign == nil {
		return "", errors.New("identity cannot sign")
	}
	return s.Sign(message)
}

// Anonymous is a provider with no connected wallet.
var Anonymous Provider = (*Static)(nil)
