package client

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"planta-mantenimiento/client/internal/auth/domain"
)

// rawGrant enumerates the accepted response shapes of the auth endpoints.
// Deployed backend builds have disagreed on field names over time; this is
// the one place those variants are tolerated.
type rawGrant struct {
	Data         json.RawMessage `json:"data"` // optional envelope, one level
	Token        string          `json:"token"`
	AccessToken  string          `json:"access_token"`
	RefreshToken *string         `json:"refresh_token"`
	ExpiresIn    *int64          `json:"expires_in"` // seconds
	ExpiresAtMS  *int64          `json:"expiresAt"`  // absolute, ms since epoch
	User         json.RawMessage `json:"user"`
	Usuario      json.RawMessage `json:"usuario"`
}

type rawUser struct {
	Username string          `json:"username"`
	Usuario  string          `json:"usuario"`
	Role     json.RawMessage `json:"role"`
	Rol      json.RawMessage `json:"rol"`
	Perfil   json.RawMessage `json:"perfil"`
	Tipo     json.RawMessage `json:"tipo"`
	Areas    json.RawMessage `json:"areas"`
	AreaIDs1 json.RawMessage `json:"area_ids"`
	AreaIDs2 json.RawMessage `json:"areaIds"`
	Equipos  json.RawMessage `json:"equipos"`
	EquipIDs json.RawMessage `json:"equipo_ids"`
	EquipID2 json.RawMessage `json:"equipoIds"`
}

// normalizeGrant parses an auth response body into a canonical TokenGrant.
// fallbackUsername fills the user's name when the payload omits it (login
// only). requireUser makes a missing or unresolvable user an error; refresh
// responses may legitimately omit the user.
func normalizeGrant(body []byte, fallbackUsername string, requireUser bool) (*TokenGrant, error) {
	var raw rawGrant
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(raw.Data) > 0 {
		inner := rawGrant{}
		if err := json.Unmarshal(raw.Data, &inner); err != nil {
			return nil, fmt.Errorf("%w: data envelope: %v", ErrMalformedResponse, err)
		}
		raw = inner
	}

	token := raw.Token
	if token == "" {
		token = raw.AccessToken
	}
	if token == "" {
		return nil, fmt.Errorf("%w: no token", ErrMalformedResponse)
	}

	grant := &TokenGrant{Token: token}
	if raw.RefreshToken != nil {
		grant.RefreshToken = *raw.RefreshToken
	}
	if raw.ExpiresIn != nil && *raw.ExpiresIn > 0 {
		grant.ExpiresIn = time.Duration(*raw.ExpiresIn) * time.Second
	}
	if raw.ExpiresAtMS != nil {
		exp := time.UnixMilli(*raw.ExpiresAtMS)
		grant.ExpiresAt = &exp
	}

	userJSON := raw.User
	if len(userJSON) == 0 {
		userJSON = raw.Usuario
	}
	user, err := normalizeUser(userJSON, fallbackUsername)
	if err != nil {
		if requireUser {
			return nil, err
		}
		user = nil
	}
	if requireUser && user == nil {
		return nil, fmt.Errorf("%w: no user", ErrMalformedResponse)
	}
	grant.User = user
	return grant, nil
}

func normalizeUser(data json.RawMessage, fallbackUsername string) (*domain.User, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, fmt.Errorf("%w: no user", ErrMalformedResponse)
	}
	var raw rawUser
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: user: %v", ErrMalformedResponse, err)
	}

	role, ok := normalizeRole(firstPresent(raw.Role, raw.Rol, raw.Perfil, raw.Tipo))
	if !ok {
		return nil, fmt.Errorf("%w: no resolvable role", ErrMalformedResponse)
	}
	username := raw.Username
	if username == "" {
		username = raw.Usuario
	}
	if username == "" {
		username = fallbackUsername
	}
	if username == "" {
		return nil, fmt.Errorf("%w: no username", ErrMalformedResponse)
	}
	return &domain.User{
		Username: username,
		Role:     role,
		Areas:    toIntSlice(firstPresent(raw.Areas, raw.AreaIDs1, raw.AreaIDs2)),
		Equipos:  toIntSlice(firstPresent(raw.Equipos, raw.EquipIDs, raw.EquipID2)),
	}, nil
}

// roleSynonyms maps every accepted role spelling, including the numeric
// codes some backend builds return, to the canonical role.
var roleSynonyms = map[string]domain.Role{
	"superadmin":         domain.RoleSuperAdmin,
	"superadministrador": domain.RoleSuperAdmin,
	"1":                  domain.RoleSuperAdmin,
	"admin":              domain.RoleAdmin,
	"administrador":      domain.RoleAdmin,
	"admin-area":         domain.RoleAdmin,
	"2":                  domain.RoleAdmin,
	"maquinista":         domain.RoleOperator,
	"3":                  domain.RoleOperator,
	"invitado":           domain.RoleGuest,
	"guest":              domain.RoleGuest,
	"visitante":          domain.RoleGuest,
	"4":                  domain.RoleGuest,
}

// normalizeRole accepts a JSON string or number and maps it through the
// synonym table.
func normalizeRole(data json.RawMessage) (domain.Role, bool) {
	if len(data) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return "", false
		}
		s = n.String()
	}
	role, ok := roleSynonyms[strings.ToLower(strings.TrimSpace(s))]
	return role, ok
}

// toIntSlice accepts a JSON array of numbers or numeric strings; anything
// else yields nil.
func toIntSlice(data json.RawMessage) []int {
	if len(data) == 0 {
		return nil
	}
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	out := make([]int, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case float64:
			out = append(out, int(v))
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				out = append(out, n)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func firstPresent(candidates ...json.RawMessage) json.RawMessage {
	for _, c := range candidates {
		if len(c) > 0 && string(c) != "null" {
			return c
		}
	}
	return nil
}
