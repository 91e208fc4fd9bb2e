// game/errors.go
package game

import "errors"

// Validation errors are detected before any write; the persisted state
// is untouched when one is returned.
var (
	ErrIdentityRequired = errors.New("caller identity required")
	ErrNameRequired     = errors.New("player name required")
	ErrInvalidPhase     = errors.New("operation not allowed in current phase")
	ErrGameNotFound     = errors.New("game state not found")

	// ErrPersistence wraps gateway read/write failures. The engine
	// performs no retries beyond the version-conflict loop; every
	// operation is re-triable by re-issuing the command.
	ErrPersistence = errors.New("persistence failure")
)
