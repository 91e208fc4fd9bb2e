// models/models.go
package models

import (
	"fmt"

	"github.com/wfunc/tworooms/codec"
)

// Role is a player's hidden objective tag.
type Role int

const (
	RolePresident Role = 1
	RoleBomber    Role = 2
	RoleCivilian  Role = 3
)

// RoomSide is one of the two player groupings whose final composition
// decides the game.
type RoomSide int

const (
	RoomBlue RoomSide = 1
	RoomRed  RoomSide = 2
)

// Phase is the game's coarse-grained stage and doubles as the state
// machine's state tag.
type Phase string

const (
	PhaseLobby  Phase = "lobby"
	PhaseRound1 Phase = "round1"
	PhaseRound2 Phase = "round2"
	PhaseRound3 Phase = "round3"
	PhaseEnded  Phase = "ended"
)

// Winner identifies the winning team once the game has ended.
type Winner string

const (
	WinnerBlue Winner = "blue"
	WinnerRed  Winner = "red"
)

const FinalRound = 3

// PhaseForRound maps a round number back to its phase tag.
func PhaseForRound(round int) Phase {
	return Phase(fmt.Sprintf("round%d", round))
}

// Player 玩家数据模型. Role and room are stored as codec tokens; the
// decoded values never change once assigned.
type Player struct {
	ID            string `json:"-"`
	EncryptedRole string `json:"role"`
	EncryptedRoom string `json:"room"`
	IsHost        bool   `json:"isHost"`
	Address       string `json:"address"`
	Name          string `json:"name"`
}

// Role decodes the player's role token.
func (p *Player) Role() (Role, error) {
	v, err := codec.Decode(p.EncryptedRole)
	if err != nil {
		return 0, err
	}
	return Role(v), nil
}

// Room decodes the player's room token.
func (p *Player) Room() (RoomSide, error) {
	v, err := codec.Decode(p.EncryptedRoom)
	if err != nil {
		return 0, err
	}
	return RoomSide(v), nil
}

// GameState 游戏状态模型, persisted as a single JSON blob under the
// "game_state" key.
type GameState struct {
	Phase          Phase  `json:"phase"`
	CurrentRound   int    `json:"currentRound"`
	BlueRoomLeader string `json:"blueRoomLeader,omitempty"`
	RedRoomLeader  string `json:"redRoomLeader,omitempty"`
	Hostage        string `json:"hostage,omitempty"`
	Winner         Winner `json:"winner,omitempty"`
}

// NewGameState returns the initial lobby state.
func NewGameState() GameState {
	return GameState{Phase: PhaseLobby, CurrentRound: 0}
}

// InRound reports whether the game is in one of the playing rounds.
func (s GameState) InRound() bool {
	switch s.Phase {
	case PhaseRound1, PhaseRound2, PhaseRound3:
		return true
	}
	return false
}

// CheckInvariants verifies the phase/round coupling: lobby iff round 0,
// and a winner is set iff the game has ended.
func (s GameState) CheckInvariants() error {
	if (s.Phase == PhaseLobby) != (s.CurrentRound == 0) {
		return fmt.Errorf("phase %q inconsistent with round %d", s.Phase, s.CurrentRound)
	}
	if (s.Winner != "") != (s.Phase == PhaseEnded) {
		return fmt.Errorf("winner %q inconsistent with phase %q", s.Winner, s.Phase)
	}
	return nil
}
