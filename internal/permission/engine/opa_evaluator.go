package engine

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"planta-mantenimiento/client/internal/auth/domain"
)

// Rego policy encoding the role capabilities: superadministrador manages the
// whole hierarchy, administrador manages areas and below, maquinista manages
// equipment, invitado reads only.
const assetRegoPolicy = `package planta.assets

default manage_plantas = false
default manage_areas = false
default manage_equipos = false
default unrestricted = false

unrestricted if {
	input.user.role == "superadministrador"
}

manage_plantas if {
	unrestricted
}

manage_areas if {
	unrestricted
}

manage_areas if {
	input.user.role == "administrador"
}

manage_equipos if {
	manage_areas
}

manage_equipos if {
	input.user.role == "maquinista"
}
`

// OPAEvaluator evaluates asset capabilities using OPA Rego.
type OPAEvaluator struct {
	compiler *ast.Compiler
}

// NewOPAEvaluator compiles the asset policy and returns an evaluator.
func NewOPAEvaluator() (*OPAEvaluator, error) {
	compiler, err := ast.CompileModules(map[string]string{"assets.rego": assetRegoPolicy})
	if err != nil {
		return nil, fmt.Errorf("compile asset policy: %w", err)
	}
	return &OPAEvaluator{compiler: compiler}, nil
}

// Evaluate computes the role capabilities for user. A nil user is evaluated
// as a guest.
func (e *OPAEvaluator) Evaluate(ctx context.Context, user *domain.User) (Decision, error) {
	role := string(domain.RoleGuest)
	if user != nil {
		role = string(user.Role)
	}
	input := map[string]interface{}{
		"user": map[string]interface{}{"role": role},
	}

	q := rego.New(
		rego.Query("data.planta.assets"),
		rego.Compiler(e.compiler),
		rego.Input(input),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("eval asset policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return Decision{}, fmt.Errorf("asset policy returned no result")
	}
	doc, ok := rs[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{}, fmt.Errorf("unexpected asset policy result %T", rs[0].Expressions[0].Value)
	}
	return Decision{
		ManagePlantas: boolField(doc, "manage_plantas"),
		ManageAreas:   boolField(doc, "manage_areas"),
		ManageEquipos: boolField(doc, "manage_equipos"),
		Unrestricted:  boolField(doc, "unrestricted"),
	}, nil
}

func boolField(doc map[string]interface{}, key string) bool {
	v, ok := doc[key].(bool)
	return ok && v
}
