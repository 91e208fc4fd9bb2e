// game/engine.go
package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/tworooms/codec"
	"github.com/wfunc/tworooms/identity"
	"github.com/wfunc/tworooms/models"
	"github.com/wfunc/tworooms/persistence"
	"github.com/wfunc/tworooms/roster"
)

// maxWriteAttempts bounds the version-conflict retry loop. A slow-paced
// casual game should never see more than one concurrent writer.
const maxWriteAttempts = 3

// Engine orchestrates all mutating game operations. Each operation
// loads the current state from the gateway, validates, computes the
// next state through the pure transition functions, and persists it.
// Nothing is cached between commands.
type Engine struct {
	store persistence.Store

	// OnConflict, when set, is invoked once per version conflict
	// detected during a read-modify-write cycle.
	OnConflict func()

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewEngine(store persistence.Store) *Engine {
	return &Engine{
		store: store,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func persistErr(err error) error {
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

// Join registers a new player. Joining is permitted in any phase;
// role and room are drawn at join time and never change afterwards.
func (e *Engine) Join(name string, caller identity.Provider) (*models.Player, error) {
	address, ok := caller.Address()
	if !ok {
		return nil, ErrIdentityRequired
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if !e.store.IsAvailable() {
		return nil, persistErr(errors.New("store unavailable"))
	}

	players, err := roster.LoadAll(e.store)
	if err != nil {
		return nil, persistErr(err)
	}

	e.rngMu.Lock()
	role := RoleForSlot(len(players), e.rng)
	room := RandomRoom(e.rng)
	e.rngMu.Unlock()

	player := &models.Player{
		ID:            uuid.New().String(),
		EncryptedRole: codec.Encode(int(role)),
		EncryptedRoom: codec.Encode(int(room)),
		IsHost:        len(players) == 0,
		Address:       address,
		Name:          name,
	}

	// Record first, then membership: a membership entry without a
	// record would poison every subsequent roster load.
	if err := roster.Save(e.store, player); err != nil {
		return nil, persistErr(err)
	}

	for attempt := 0; ; attempt++ {
		err := roster.AppendID(e.store, player.ID)
		if err == nil {
			return player, nil
		}
		if errors.Is(err, roster.ErrDuplicateID) {
			return nil, err
		}
		if !errors.Is(err, persistence.ErrVersionConflict) || attempt+1 >= maxWriteAttempts {
			return nil, persistErr(err)
		}
		e.conflict()
	}
}

// StartGame transitions the lobby into round 1.
func (e *Engine) StartGame(caller identity.Provider) (models.GameState, error) {
	if _, ok := caller.Address(); !ok {
		return models.GameState{}, ErrIdentityRequired
	}
	return e.updateState(false, func(st models.GameState) (models.GameState, error) {
		return Start(st)
	})
}

// ElectLeader sets a room's leader for the current round.
func (e *Engine) ElectLeader(side models.RoomSide, playerID string) (models.GameState, error) {
	return e.updateState(true, func(st models.GameState) (models.GameState, error) {
		return ElectLeader(st, side, playerID)
	})
}

// SelectHostage designates the player for cross-room exchange.
func (e *Engine) SelectHostage(playerID string) (models.GameState, error) {
	return e.updateState(true, func(st models.GameState) (models.GameState, error) {
		return SelectHostage(st, playerID)
	})
}

// AdvanceRound moves the game to the next round, or ends it from the
// final round, computing the winner from the persisted roster.
func (e *Engine) AdvanceRound() (models.GameState, error) {
	if !e.store.IsAvailable() {
		return models.GameState{}, persistErr(errors.New("store unavailable"))
	}
	players, err := roster.LoadAll(e.store)
	if err != nil {
		return models.GameState{}, persistErr(err)
	}
	return e.updateState(true, func(st models.GameState) (models.GameState, error) {
		return AdvanceRound(st, players)
	})
}

// Snapshot returns the current state and roster for rendering. When the
// gateway is unavailable the defaults are returned so a viewer still
// gets an (empty) lobby rather than an error page.
func (e *Engine) Snapshot() (models.GameState, []*models.Player, error) {
	if !e.store.IsAvailable() {
		return models.NewGameState(), nil, nil
	}

	players, err := roster.LoadAll(e.store)
	if err != nil {
		return models.GameState{}, nil, persistErr(err)
	}

	data, err := e.store.GetData(persistence.KeyGameState)
	if err != nil {
		return models.GameState{}, nil, persistErr(err)
	}
	st := models.NewGameState()
	if len(data) > 0 {
		if err := json.Unmarshal(data, &st); err != nil {
			return models.GameState{}, nil, fmt.Errorf("parsing game state: %w", err)
		}
	}
	return st, players, nil
}

// updateState runs one read-modify-write cycle against the game_state
// blob, retrying on version conflicts. When requireExisting is false a
// missing blob is treated as a fresh lobby state.
func (e *Engine) updateState(requireExisting bool, apply func(models.GameState) (models.GameState, error)) (models.GameState, error) {
	if !e.store.IsAvailable() {
		return models.GameState{}, persistErr(errors.New("store unavailable"))
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		data, version, err := e.store.GetVersioned(persistence.KeyGameState)
		if err != nil {
			return models.GameState{}, persistErr(err)
		}

		var st models.GameState
		if len(data) == 0 {
			if requireExisting {
				return models.GameState{}, ErrGameNotFound
			}
			st = models.NewGameState()
		} else if err := json.Unmarshal(data, &st); err != nil {
			return models.GameState{}, fmt.Errorf("parsing game state: %w", err)
		}

		next, err := apply(st)
		if err != nil {
			return models.GameState{}, err
		}

		payload, err := json.Marshal(next)
		if err != nil {
			return models.GameState{}, err
		}

		err = e.store.SetVersioned(persistence.KeyGameState, payload, version)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, persistence.ErrVersionConflict) {
			return models.GameState{}, persistErr(err)
		}
		e.conflict()
	}

	return models.GameState{}, persistErr(persistence.ErrVersionConflict)
}

func (e *Engine) conflict() {
	if e.OnConflict != nil {
		e.OnConflict()
	}
}
