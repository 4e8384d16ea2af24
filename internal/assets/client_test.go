package assets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"planta-mantenimiento/client/internal/assets/domain"
	"planta-mantenimiento/client/internal/transport"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(transport.New(srv.URL, srv.Client(), nil, zerolog.Nop()))
}

func TestClient_Listings(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/plantas":
			w.Write([]byte(`[{"id": 10, "nombre": "Planta Norte"}]`))
		case "/plantas/10/areas":
			w.Write([]byte(`[{"id": 1, "nombre": "Prensas", "plantaId": 10}]`))
		case "/areas/1/equipos":
			w.Write([]byte(`[{"id": 4, "nombre": "Prensa 4", "areaId": 1}]`))
		case "/equipos/4/sistemas":
			w.Write([]byte(`[{"id": 100, "nombre": "Hidraulico", "equipoId": 4}]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	plantas, err := c.Plantas(ctx)
	if err != nil {
		t.Fatalf("Plantas: %v", err)
	}
	if want := []domain.Planta{{ID: 10, Nombre: "Planta Norte"}}; !reflect.DeepEqual(plantas, want) {
		t.Errorf("Plantas = %+v", plantas)
	}

	areas, err := c.Areas(ctx, 10)
	if err != nil {
		t.Fatalf("Areas: %v", err)
	}
	if want := []domain.Area{{ID: 1, Nombre: "Prensas", PlantaID: 10}}; !reflect.DeepEqual(areas, want) {
		t.Errorf("Areas = %+v", areas)
	}

	equipos, err := c.Equipos(ctx, 1)
	if err != nil {
		t.Fatalf("Equipos: %v", err)
	}
	if want := []domain.Equipo{{ID: 4, Nombre: "Prensa 4", AreaID: 1}}; !reflect.DeepEqual(equipos, want) {
		t.Errorf("Equipos = %+v", equipos)
	}

	sistemas, err := c.Sistemas(ctx, 4)
	if err != nil {
		t.Fatalf("Sistemas: %v", err)
	}
	if want := []domain.Sistema{{ID: 100, Nombre: "Hidraulico", EquipoID: 4}}; !reflect.DeepEqual(sistemas, want) {
		t.Errorf("Sistemas = %+v", sistemas)
	}
}

func TestClient_CreateUpdateDelete(t *testing.T) {
	type call struct {
		method, path string
	}
	var calls []call
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, call{r.Method, r.URL.Path})
		var payload domain.NamePayload
		if r.Method != http.MethodDelete {
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("decode payload: %v", err)
			}
		}
		switch r.Method {
		case http.MethodPost:
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id": 2, "nombre": "` + payload.Nombre + `", "plantaId": 10}`))
		case http.MethodPut:
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id": 2, "nombre": "` + payload.Nombre + `", "plantaId": 10}`))
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()

	created, err := c.CreateArea(ctx, 10, domain.NamePayload{Nombre: "Hornos"})
	if err != nil {
		t.Fatalf("CreateArea: %v", err)
	}
	if created.ID != 2 || created.Nombre != "Hornos" || created.PlantaID != 10 {
		t.Errorf("created = %+v", created)
	}

	updated, err := c.UpdateArea(ctx, 2, domain.NamePayload{Nombre: "Hornos B"})
	if err != nil {
		t.Fatalf("UpdateArea: %v", err)
	}
	if updated.Nombre != "Hornos B" {
		t.Errorf("updated = %+v", updated)
	}

	if err := c.DeleteArea(ctx, 2); err != nil {
		t.Fatalf("DeleteArea: %v", err)
	}

	want := []call{
		{http.MethodPost, "/plantas/10/areas"},
		{http.MethodPut, "/areas/2"},
		{http.MethodDelete, "/areas/2"},
	}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}
