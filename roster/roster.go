// Package roster is the player directory: the ordered membership list
// and the per-player records, both persisted through the blob gateway.
// In-process players are transient projections, reloaded before each
// decision and discarded afterwards.
package roster

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wfunc/tworooms/logger"
	"github.com/wfunc/tworooms/models"
	"github.com/wfunc/tworooms/persistence"
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrDuplicateID    = errors.New("duplicate player id")
)

// ListIDs returns the canonical ordered membership list.
func ListIDs(store persistence.Store) ([]string, error) {
	ids, _, err := listIDsVersioned(store)
	return ids, err
}

func listIDsVersioned(store persistence.Store) ([]string, int64, error) {
	data, version, err := store.GetVersioned(persistence.KeyPlayersList)
	if err != nil {
		return nil, 0, err
	}
	if len(data) == 0 {
		return nil, version, nil
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, 0, fmt.Errorf("parsing players list: %w", err)
	}
	return ids, version, nil
}

// AppendID appends a player id to the membership list. The write is
// versioned so two concurrent joins cannot drop each other's entry.
func AppendID(store persistence.Store, id string) error {
	ids, version, err := listIDsVersioned(store)
	if err != nil {
		return err
	}

	for _, existing := range ids {
		if existing == id {
			return fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
	}

	ids = append(ids, id)
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return store.SetVersioned(persistence.KeyPlayersList, data, version)
}

// Load reads a single player record.
func Load(store persistence.Store, id string) (*models.Player, error) {
	data, err := store.GetData(persistence.PlayerKey(id))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}

	var player models.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, fmt.Errorf("parsing player %s: %w", id, err)
	}
	player.ID = id
	return &player, nil
}

// Save writes a single player record.
func Save(store persistence.Store, player *models.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}
	return store.SetData(persistence.PlayerKey(player.ID), data)
}

// LoadAll reconstructs the roster from persisted records. Loading is
// best effort: a corrupt or missing record is skipped with a warning so
// one bad blob never blocks the rest of the roster.
func LoadAll(store persistence.Store) ([]*models.Player, error) {
	ids, err := ListIDs(store)
	if err != nil {
		return nil, err
	}

	players := make([]*models.Player, 0, len(ids))
	for _, id := range ids {
		player, err := Load(store, id)
		if err != nil {
			logger.Log.Warnf("Skipping unreadable player record %s: %v", id, err)
			continue
		}
		players = append(players, player)
	}
	return players, nil
}

// --- derived views (computed from decoded tokens, never stored) ---

// ByRoom filters players whose decoded room matches side. Records with
// undecodable room tokens are left out.
func ByRoom(players []*models.Player, side models.RoomSide) []*models.Player {
	var result []*models.Player
	for _, p := range players {
		room, err := p.Room()
		if err != nil {
			continue
		}
		if room == side {
			result = append(result, p)
		}
	}
	return result
}

// FindByAddress resolves the player belonging to a caller identity.
func FindByAddress(players []*models.Player, address string) *models.Player {
	for _, p := range players {
		if p.Address == address {
			return p
		}
	}
	return nil
}

// FindByRole locates the first player holding the given decoded role.
func FindByRole(players []*models.Player, role models.Role) *models.Player {
	for _, p := range players {
		r, err := p.Role()
		if err != nil {
			continue
		}
		if r == role {
			return p
		}
	}
	return nil
}
