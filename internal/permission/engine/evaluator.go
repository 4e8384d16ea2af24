package engine

import (
	"context"

	"planta-mantenimiento/client/internal/auth/domain"
)

// Decision holds the role-level asset capabilities of a user.
type Decision struct {
	// ManagePlantas, ManageAreas, ManageEquipos allow create/update/delete
	// at the respective hierarchy level.
	ManagePlantas bool
	ManageAreas   bool
	ManageEquipos bool
	// Unrestricted disables area/equipment scoping (superadministrador).
	Unrestricted bool
}

// Evaluator computes asset capabilities for a user. A nil user evaluates as
// a guest.
type Evaluator interface {
	Evaluate(ctx context.Context, user *domain.User) (Decision, error)
}
