// Package permission decides which assets a user may see and manage. Role
// capabilities come from the Rego policy in the engine subpackage; per-asset
// scoping applies the user's allowed area/equipment id sets on top.
package permission

import (
	"context"
	"slices"

	assetsdomain "planta-mantenimiento/client/internal/assets/domain"
	authdomain "planta-mantenimiento/client/internal/auth/domain"
	"planta-mantenimiento/client/internal/permission/engine"
)

// Permissions are the resolved asset permissions of one user.
type Permissions struct {
	decision engine.Decision
	areas    []int // allowed area ids (administrador)
	equipos  []int // allowed equipment ids (maquinista)
	operator bool
	admin    bool
}

// Resolve evaluates the capabilities of user. A nil user resolves as a guest.
func Resolve(ctx context.Context, ev engine.Evaluator, user *authdomain.User) (*Permissions, error) {
	decision, err := ev.Evaluate(ctx, user)
	if err != nil {
		return nil, err
	}
	p := &Permissions{decision: decision}
	if user != nil {
		p.areas = user.Areas
		p.equipos = user.Equipos
		p.admin = user.Role == authdomain.RoleAdmin
		p.operator = user.Role == authdomain.RoleOperator
	}
	return p, nil
}

// CanManagePlantas reports whether the user may create/update/delete plants.
func (p *Permissions) CanManagePlantas() bool { return p.decision.ManagePlantas }

// CanManageAreas reports whether the user may create/update/delete areas.
func (p *Permissions) CanManageAreas() bool { return p.decision.ManageAreas }

// CanManageEquipos reports whether the user may create/update/delete
// equipment or subsystems.
func (p *Permissions) CanManageEquipos() bool { return p.decision.ManageEquipos }

// AreaAllowed reports whether the user may act on the area. Operators reach
// an area only through equipment of theirs inside it, so the area's
// equipment list is needed for that role.
func (p *Permissions) AreaAllowed(area *assetsdomain.Area, equipos []assetsdomain.Equipo) bool {
	if area == nil {
		return false
	}
	if p.decision.Unrestricted {
		return true
	}
	if p.admin {
		return slices.Contains(p.areas, area.ID)
	}
	if p.operator {
		for _, eq := range equipos {
			if eq.AreaID == area.ID && slices.Contains(p.equipos, eq.ID) {
				return true
			}
		}
	}
	return false
}

// EquipoAllowed reports whether the user may act on the equipment unit.
func (p *Permissions) EquipoAllowed(equipo *assetsdomain.Equipo) bool {
	if equipo == nil {
		return false
	}
	if p.decision.Unrestricted {
		return true
	}
	if p.admin {
		return slices.Contains(p.areas, equipo.AreaID)
	}
	if p.operator {
		return slices.Contains(p.equipos, equipo.ID)
	}
	return false
}

// SistemaAllowed reports whether the user may act on the subsystem, resolved
// through its parent equipment unit.
func (p *Permissions) SistemaAllowed(sistema *assetsdomain.Sistema, equipos []assetsdomain.Equipo) bool {
	if sistema == nil {
		return false
	}
	for i := range equipos {
		if equipos[i].ID == sistema.EquipoID {
			return p.EquipoAllowed(&equipos[i])
		}
	}
	return false
}

// CanCreateArea reports whether the user may create an area under the plant.
func (p *Permissions) CanCreateArea(planta *assetsdomain.Planta) bool {
	return planta != nil && p.CanManagePlantas()
}

// CanCreateEquipo reports whether the user may create equipment in the area.
func (p *Permissions) CanCreateEquipo(area *assetsdomain.Area) bool {
	if area == nil {
		return false
	}
	if p.decision.Unrestricted {
		return true
	}
	if p.admin {
		return p.AreaAllowed(area, nil)
	}
	return false
}

// CanCreateSistema reports whether the user may create a subsystem under the
// equipment unit in the area.
func (p *Permissions) CanCreateSistema(area *assetsdomain.Area, equipo *assetsdomain.Equipo) bool {
	if area == nil || equipo == nil {
		return false
	}
	if p.decision.Unrestricted {
		return true
	}
	if p.admin {
		return p.AreaAllowed(area, nil)
	}
	if p.operator {
		return p.EquipoAllowed(equipo)
	}
	return false
}
