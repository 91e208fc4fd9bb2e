package game

import (
	"math/rand"
	"testing"

	"github.com/wfunc/tworooms/models"
)

func TestRoleForSlot_PrioritySlots(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	if got := RoleForSlot(0, rng); got != models.RolePresident {
		t.Errorf("Slot 0 role = %v, expected President", got)
	}
	if got := RoleForSlot(1, rng); got != models.RoleBomber {
		t.Errorf("Slot 1 role = %v, expected Bomber", got)
	}
}

func TestRoleForSlot_WeightedTail(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	const draws = 100000
	counts := make(map[models.Role]int)
	for i := 0; i < draws; i++ {
		counts[RoleForSlot(2, rng)]++
	}

	civilianRatio := float64(counts[models.RoleCivilian]) / draws
	if civilianRatio < 0.68 || civilianRatio > 0.72 {
		t.Errorf("Civilian ratio = %.3f, expected about 0.70", civilianRatio)
	}

	// The elevated 30% splits evenly between President and Bomber.
	presidentRatio := float64(counts[models.RolePresident]) / draws
	bomberRatio := float64(counts[models.RoleBomber]) / draws
	if presidentRatio < 0.13 || presidentRatio > 0.17 {
		t.Errorf("President ratio = %.3f, expected about 0.15", presidentRatio)
	}
	if bomberRatio < 0.13 || bomberRatio > 0.17 {
		t.Errorf("Bomber ratio = %.3f, expected about 0.15", bomberRatio)
	}
}

func TestRandomRoom_Uniform(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	const draws = 100000
	blue := 0
	for i := 0; i < draws; i++ {
		if RandomRoom(rng) == models.RoomBlue {
			blue++
		}
	}

	ratio := float64(blue) / draws
	if ratio < 0.48 || ratio > 0.52 {
		t.Errorf("Blue room ratio = %.3f, expected about 0.50", ratio)
	}
}
