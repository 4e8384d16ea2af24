package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"planta-mantenimiento/client/internal/auth/domain"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, srv.Client(), zerolog.Nop())
}

func TestClient_Login(t *testing.T) {
	var gotBody map[string]string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Request-Id") == "" {
			t.Error("missing X-Request-Id header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"token": "tok-1",
			"refresh_token": "refresh-1",
			"expires_in": 60,
			"user": {"username": "demo", "role": "maquinista", "equipos": [4, 9]}
		}`))
	})

	grant, err := c.Login(context.Background(), "demo", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if gotBody["username"] != "demo" || gotBody["password"] != "secret" {
		t.Errorf("request body = %v", gotBody)
	}
	want := &TokenGrant{
		Token:        "tok-1",
		RefreshToken: "refresh-1",
		ExpiresIn:    60 * time.Second,
		User:         &domain.User{Username: "demo", Role: domain.RoleOperator, Equipos: []int{4, 9}},
	}
	if !reflect.DeepEqual(grant, want) {
		t.Errorf("grant = %+v, want %+v", grant, want)
	}
}

func TestClient_Login_ResponseVariants(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *TokenGrant
	}{
		{
			name: "access_token and data envelope",
			body: `{"data": {"access_token": "tok-1", "usuario": {"usuario": "demo", "rol": "administrador", "area_ids": [3]}}}`,
			want: &TokenGrant{
				Token: "tok-1",
				User:  &domain.User{Username: "demo", Role: domain.RoleAdmin, Areas: []int{3}},
			},
		},
		{
			name: "numeric role code",
			body: `{"token": "tok-1", "user": {"username": "root", "role": 1}}`,
			want: &TokenGrant{
				Token: "tok-1",
				User:  &domain.User{Username: "root", Role: domain.RoleSuperAdmin},
			},
		},
		{
			name: "string-number ids",
			body: `{"token": "tok-1", "user": {"username": "demo", "tipo": "maquinista", "equipoIds": ["4", "9"]}}`,
			want: &TokenGrant{
				Token: "tok-1",
				User:  &domain.User{Username: "demo", Role: domain.RoleOperator, Equipos: []int{4, 9}},
			},
		},
		{
			name: "username fallback from credentials",
			body: `{"token": "tok-1", "user": {"role": "invitado"}}`,
			want: &TokenGrant{
				Token: "tok-1",
				User:  &domain.User{Username: "demo", Role: domain.RoleGuest},
			},
		},
		{
			name: "absolute expiration",
			body: `{"token": "tok-1", "expiresAt": 1700000000000, "user": {"username": "demo", "role": "invitado"}}`,
			want: &TokenGrant{
				Token:     "tok-1",
				ExpiresAt: timePtr(time.UnixMilli(1_700_000_000_000)),
				User:      &domain.User{Username: "demo", Role: domain.RoleGuest},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			})
			grant, err := c.Login(context.Background(), "demo", "secret")
			if err != nil {
				t.Fatalf("Login: %v", err)
			}
			if !reflect.DeepEqual(grant, tt.want) {
				t.Errorf("grant = %+v, want %+v", grant, tt.want)
			}
		})
	}
}

func TestClient_Login_Rejected(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "credenciales incorrectas"}`))
	})

	_, err := c.Login(context.Background(), "demo", "wrong")
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
	if !strings.Contains(err.Error(), "credenciales incorrectas") {
		t.Errorf("error should carry the server message, got %q", err)
	}
}

func TestClient_Login_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no token", `{"user": {"username": "demo", "role": "invitado"}}`},
		{"no user", `{"token": "tok-1"}`},
		{"unknown role", `{"token": "tok-1", "user": {"username": "demo", "role": "wizard"}}`},
		{"not json", `<html>proxy error</html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			})
			_, err := c.Login(context.Background(), "demo", "secret")
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("err = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestClient_Refresh(t *testing.T) {
	var gotBody map[string]string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/refresh" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token": "tok-2", "refresh_token": "refresh-2", "expires_in": 120}`))
	})

	grant, err := c.Refresh(context.Background(), "refresh-1")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if gotBody["refresh_token"] != "refresh-1" {
		t.Errorf("request body = %v", gotBody)
	}
	// A refresh response without a user is legitimate.
	want := &TokenGrant{Token: "tok-2", RefreshToken: "refresh-2", ExpiresIn: 120 * time.Second}
	if !reflect.DeepEqual(grant, want) {
		t.Errorf("grant = %+v, want %+v", grant, want)
	}
}

func TestClient_Refresh_Rejected(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	_, err := c.Refresh(context.Background(), "refresh-1")
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
}

func TestClient_TransportError(t *testing.T) {
	c := New("http://127.0.0.1:0", nil, zerolog.Nop())
	_, err := c.Login(context.Background(), "demo", "secret")
	if err == nil {
		t.Fatal("expected transport error")
	}
	if errors.Is(err, ErrRejected) || errors.Is(err, ErrMalformedResponse) {
		t.Errorf("transport errors must not be classified, got %v", err)
	}
}

func timePtr(t time.Time) *time.Time { return &t }
