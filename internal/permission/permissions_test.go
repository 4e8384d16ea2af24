package permission

import (
	"context"
	"errors"
	"testing"

	assetsdomain "planta-mantenimiento/client/internal/assets/domain"
	authdomain "planta-mantenimiento/client/internal/auth/domain"
	"planta-mantenimiento/client/internal/permission/engine"
)

type stubEvaluator struct {
	decision engine.Decision
	err      error
}

func (e stubEvaluator) Evaluate(context.Context, *authdomain.User) (engine.Decision, error) {
	return e.decision, e.err
}

func resolve(t *testing.T, decision engine.Decision, user *authdomain.User) *Permissions {
	t.Helper()
	p, err := Resolve(context.Background(), stubEvaluator{decision: decision}, user)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return p
}

var (
	areaOne   = &assetsdomain.Area{ID: 1, PlantaID: 10, Nombre: "Prensas"}
	areaTwo   = &assetsdomain.Area{ID: 2, PlantaID: 10, Nombre: "Hornos"}
	equipoIn1 = assetsdomain.Equipo{ID: 4, AreaID: 1, Nombre: "Prensa 4"}
	equipoIn2 = assetsdomain.Equipo{ID: 9, AreaID: 2, Nombre: "Horno 9"}
)

func TestResolve_EvaluatorError(t *testing.T) {
	boom := errors.New("policy error")
	_, err := Resolve(context.Background(), stubEvaluator{err: boom}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want the evaluator error", err)
	}
}

func TestPermissions_Superadmin(t *testing.T) {
	p := resolve(t, engine.Decision{ManagePlantas: true, ManageAreas: true, ManageEquipos: true, Unrestricted: true},
		&authdomain.User{Username: "root", Role: authdomain.RoleSuperAdmin})

	if !p.CanManagePlantas() || !p.CanManageAreas() || !p.CanManageEquipos() {
		t.Error("superadmin manages the whole hierarchy")
	}
	if !p.AreaAllowed(areaOne, nil) || !p.AreaAllowed(areaTwo, nil) {
		t.Error("superadmin reaches every area")
	}
	if !p.EquipoAllowed(&equipoIn2) {
		t.Error("superadmin reaches every equipment unit")
	}
	if !p.CanCreateArea(&assetsdomain.Planta{ID: 10}) || !p.CanCreateEquipo(areaOne) {
		t.Error("superadmin creates anywhere")
	}
}

func TestPermissions_AdminScopedToAreas(t *testing.T) {
	p := resolve(t, engine.Decision{ManageAreas: true, ManageEquipos: true},
		&authdomain.User{Username: "ana", Role: authdomain.RoleAdmin, Areas: []int{1}})

	if p.CanManagePlantas() {
		t.Error("admin must not manage plants")
	}
	if !p.AreaAllowed(areaOne, nil) {
		t.Error("admin reaches an assigned area")
	}
	if p.AreaAllowed(areaTwo, nil) {
		t.Error("admin must not reach an unassigned area")
	}
	if !p.EquipoAllowed(&equipoIn1) {
		t.Error("admin reaches equipment in an assigned area")
	}
	if p.EquipoAllowed(&equipoIn2) {
		t.Error("admin must not reach equipment in an unassigned area")
	}
	if p.CanCreateArea(&assetsdomain.Planta{ID: 10}) {
		t.Error("creating areas requires plant management")
	}
	if !p.CanCreateEquipo(areaOne) || p.CanCreateEquipo(areaTwo) {
		t.Error("admin creates equipment only in assigned areas")
	}
}

func TestPermissions_OperatorScopedToEquipos(t *testing.T) {
	p := resolve(t, engine.Decision{ManageEquipos: true},
		&authdomain.User{Username: "demo", Role: authdomain.RoleOperator, Equipos: []int{4}})

	equipos := []assetsdomain.Equipo{equipoIn1, equipoIn2}
	if !p.AreaAllowed(areaOne, equipos) {
		t.Error("operator reaches an area through an owned equipment unit")
	}
	if p.AreaAllowed(areaTwo, equipos) {
		t.Error("operator must not reach an area without owned equipment")
	}
	if !p.EquipoAllowed(&equipoIn1) || p.EquipoAllowed(&equipoIn2) {
		t.Error("operator reaches only owned equipment")
	}
	if p.CanCreateEquipo(areaOne) {
		t.Error("operator must not create equipment")
	}
	if !p.CanCreateSistema(areaOne, &equipoIn1) {
		t.Error("operator creates subsystems under owned equipment")
	}
	if p.CanCreateSistema(areaTwo, &equipoIn2) {
		t.Error("operator must not create subsystems under foreign equipment")
	}
}

func TestPermissions_SistemaAllowed(t *testing.T) {
	p := resolve(t, engine.Decision{ManageEquipos: true},
		&authdomain.User{Username: "demo", Role: authdomain.RoleOperator, Equipos: []int{4}})

	equipos := []assetsdomain.Equipo{equipoIn1, equipoIn2}
	owned := &assetsdomain.Sistema{ID: 100, EquipoID: 4, Nombre: "Hidraulico"}
	foreign := &assetsdomain.Sistema{ID: 101, EquipoID: 9, Nombre: "Quemador"}
	orphan := &assetsdomain.Sistema{ID: 102, EquipoID: 77, Nombre: "Fantasma"}

	if !p.SistemaAllowed(owned, equipos) {
		t.Error("subsystem under owned equipment is allowed")
	}
	if p.SistemaAllowed(foreign, equipos) {
		t.Error("subsystem under foreign equipment is not allowed")
	}
	if p.SistemaAllowed(orphan, equipos) {
		t.Error("subsystem with no resolvable parent is not allowed")
	}
}

func TestPermissions_GuestAndNilInputs(t *testing.T) {
	p := resolve(t, engine.Decision{}, &authdomain.User{Username: "guest", Role: authdomain.RoleGuest})

	if p.CanManagePlantas() || p.CanManageAreas() || p.CanManageEquipos() {
		t.Error("guest manages nothing")
	}
	if p.AreaAllowed(areaOne, nil) || p.EquipoAllowed(&equipoIn1) {
		t.Error("guest reaches nothing")
	}
	if p.AreaAllowed(nil, nil) || p.EquipoAllowed(nil) || p.SistemaAllowed(nil, nil) {
		t.Error("nil assets are never allowed")
	}
	if p.CanCreateArea(nil) || p.CanCreateEquipo(nil) || p.CanCreateSistema(nil, nil) {
		t.Error("nil parents are never allowed")
	}
}
