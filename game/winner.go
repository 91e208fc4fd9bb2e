// game/winner.go
package game

import (
	"github.com/wfunc/tworooms/models"
	"github.com/wfunc/tworooms/roster"
)

// Evaluate computes the outcome from the final role and room placement.
// The red team wins when the Bomber ends up in the President's room.
// If either role is missing or unreadable, blue wins by default.
func Evaluate(players []*models.Player) models.Winner {
	president := roster.FindByRole(players, models.RolePresident)
	bomber := roster.FindByRole(players, models.RoleBomber)

	if president == nil || bomber == nil {
		return models.WinnerBlue
	}

	presidentRoom, err := president.Room()
	if err != nil {
		return models.WinnerBlue
	}
	bomberRoom, err := bomber.Room()
	if err != nil {
		return models.WinnerBlue
	}

	if presidentRoom == bomberRoom {
		return models.WinnerRed
	}
	return models.WinnerBlue
}
