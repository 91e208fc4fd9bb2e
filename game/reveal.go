// game/reveal.go
package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/wfunc/tworooms/identity"
	"github.com/wfunc/tworooms/models"
	"github.com/wfunc/tworooms/roster"
)

// DisclosureParams are embedded in the message a player signs before
// their own role is revealed to them.
type DisclosureParams struct {
	PublicKey       string
	ContractAddress string
	ChainID         int
	StartTimestamp  int64
	DurationDays    int
}

// Message renders the canonical disclosure message.
func (p DisclosureParams) Message() string {
	start := p.StartTimestamp
	if start == 0 {
		start = time.Now().Unix()
	}
	return fmt.Sprintf("publickey:%s\ncontractAddresses:%s\ncontractsChainId:%d\nstartTimestamp:%d\ndurationDays:%d",
		p.PublicKey, p.ContractAddress, p.ChainID, start, p.DurationDays)
}

// RevealRole discloses the caller's own role and room. The caller must
// be a registered player and must sign the disclosure message first;
// other players' tokens are never decoded on this path.
func (e *Engine) RevealRole(caller identity.Provider, params DisclosureParams) (models.Role, models.RoomSide, error) {
	address, ok := caller.Address()
	if !ok {
		return 0, 0, ErrIdentityRequired
	}
	if !e.store.IsAvailable() {
		return 0, 0, persistErr(errors.New("store unavailable"))
	}

	players, err := roster.LoadAll(e.store)
	if err != nil {
		return 0, 0, persistErr(err)
	}

	player := roster.FindByAddress(players, address)
	if player == nil {
		return 0, 0, fmt.Errorf("%w: no player for address %s", roster.ErrPlayerNotFound, address)
	}

	if _, err := caller.RequestSignature(params.Message()); err != nil {
		return 0, 0, fmt.Errorf("disclosure signature refused: %w", err)
	}

	role, err := player.Role()
	if err != nil {
		return 0, 0, err
	}
	room, err := player.Room()
	if err != nil {
		return 0, 0, err
	}
	return role, room, nil
}
