// game/assign.go
package game

import (
	"math/rand"

	"github.com/wfunc/tworooms/models"
)

// RoleForSlot implements the priority-then-random assignment policy:
// the first joiner is always the President, the second always the
// Bomber. Every later joiner has a 30% chance of drawing one of the two
// special roles (50/50 between them) and is a Civilian otherwise.
func RoleForSlot(slot int, rng *rand.Rand) models.Role {
	switch slot {
	case 0:
		return models.RolePresident
	case 1:
		return models.RoleBomber
	}
	if rng.Float64() > 0.7 {
		if rng.Float64() > 0.5 {
			return models.RolePresident
		}
		return models.RoleBomber
	}
	return models.RoleCivilian
}

// RandomRoom assigns a room uniformly, independent of role.
func RandomRoom(rng *rand.Rand) models.RoomSide {
	if rng.Float64() > 0.5 {
		return models.RoomBlue
	}
	return models.RoomRed
}
