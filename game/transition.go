// game/transition.go
//
// Pure transition functions for the game state machine. Each takes the
// current state and returns the next one, or an error leaving the input
// untouched. Persistence, identity, and broadcasting live in the
// engine; nothing here has side effects.
//
// States: lobby -> round1 -> round2 -> round3 -> ended. The only jump
// is the host-triggered advance from round3 straight to ended.
package game

import (
	"fmt"

	"github.com/wfunc/tworooms/models"
)

// Start moves the game out of the lobby into round 1.
func Start(st models.GameState) (models.GameState, error) {
	if st.Phase != models.PhaseLobby {
		return st, fmt.Errorf("%w: cannot start from %q", ErrInvalidPhase, st.Phase)
	}
	st.Phase = models.PhaseRound1
	st.CurrentRound = 1
	return st, nil
}

// ElectLeader records a room's leader for the current round.
//
// The player is not verified to belong to the claimed room, and leaders
// may be overwritten mid-round. Callers are trusted to sequence this;
// tightening it here would break the established command flow.
func ElectLeader(st models.GameState, side models.RoomSide, playerID string) (models.GameState, error) {
	if !st.InRound() {
		return st, fmt.Errorf("%w: cannot elect a leader during %q", ErrInvalidPhase, st.Phase)
	}
	switch side {
	case models.RoomBlue:
		st.BlueRoomLeader = playerID
	case models.RoomRed:
		st.RedRoomLeader = playerID
	default:
		return st, fmt.Errorf("unknown room side %d", side)
	}
	return st, nil
}

// SelectHostage records the player designated for cross-room exchange.
// Leader ordering is not enforced at this layer.
func SelectHostage(st models.GameState, playerID string) (models.GameState, error) {
	if !st.InRound() {
		return st, fmt.Errorf("%w: cannot select a hostage during %q", ErrInvalidPhase, st.Phase)
	}
	st.Hostage = playerID
	return st, nil
}

// AdvanceRound moves to the next round, clearing the per-round
// selections. From the final round it ends the game instead, computing
// the winner from the players' final placement.
func AdvanceRound(st models.GameState, players []*models.Player) (models.GameState, error) {
	if !st.InRound() {
		return st, fmt.Errorf("%w: cannot advance from %q", ErrInvalidPhase, st.Phase)
	}

	if st.CurrentRound == models.FinalRound {
		st.Phase = models.PhaseEnded
		st.Winner = Evaluate(players)
		return st, nil
	}

	st.CurrentRound++
	st.Phase = models.PhaseForRound(st.CurrentRound)
	st.BlueRoomLeader = ""
	st.RedRoomLeader = ""
	st.Hostage = ""
	return st, nil
}
