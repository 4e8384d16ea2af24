// Package assets is the REST client for the asset hierarchy.
package assets

import (
	"context"
	"fmt"
	"net/http"

	"planta-mantenimiento/client/internal/assets/domain"
	"planta-mantenimiento/client/internal/transport"
)

// Client covers the CRUD surface of the asset hierarchy endpoints.
type Client struct {
	api *transport.Client
}

// NewClient returns a Client using api for every request.
func NewClient(api *transport.Client) *Client {
	return &Client{api: api}
}

func (c *Client) Plantas(ctx context.Context) ([]domain.Planta, error) {
	var out []domain.Planta
	if err := c.api.Get(ctx, "/plantas", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreatePlanta(ctx context.Context, payload domain.NamePayload) (*domain.Planta, error) {
	var out domain.Planta
	if err := c.api.Do(ctx, http.MethodPost, "/plantas", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdatePlanta(ctx context.Context, id int, payload domain.NamePayload) (*domain.Planta, error) {
	var out domain.Planta
	if err := c.api.Do(ctx, http.MethodPut, fmt.Sprintf("/plantas/%d", id), payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeletePlanta(ctx context.Context, id int) error {
	return c.api.Do(ctx, http.MethodDelete, fmt.Sprintf("/plantas/%d", id), nil, nil)
}

func (c *Client) Areas(ctx context.Context, plantaID int) ([]domain.Area, error) {
	var out []domain.Area
	if err := c.api.Get(ctx, fmt.Sprintf("/plantas/%d/areas", plantaID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateArea(ctx context.Context, plantaID int, payload domain.NamePayload) (*domain.Area, error) {
	var out domain.Area
	if err := c.api.Do(ctx, http.MethodPost, fmt.Sprintf("/plantas/%d/areas", plantaID), payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateArea(ctx context.Context, id int, payload domain.NamePayload) (*domain.Area, error) {
	var out domain.Area
	if err := c.api.Do(ctx, http.MethodPut, fmt.Sprintf("/areas/%d", id), payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteArea(ctx context.Context, id int) error {
	return c.api.Do(ctx, http.MethodDelete, fmt.Sprintf("/areas/%d", id), nil, nil)
}

func (c *Client) Equipos(ctx context.Context, areaID int) ([]domain.Equipo, error) {
	var out []domain.Equipo
	if err := c.api.Get(ctx, fmt.Sprintf("/areas/%d/equipos", areaID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateEquipo(ctx context.Context, areaID int, payload domain.NamePayload) (*domain.Equipo, error) {
	var out domain.Equipo
	if err := c.api.Do(ctx, http.MethodPost, fmt.Sprintf("/areas/%d/equipos", areaID), payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateEquipo(ctx context.Context, id int, payload domain.NamePayload) (*domain.Equipo, error) {
	var out domain.Equipo
	if err := c.api.Do(ctx, http.MethodPut, fmt.Sprintf("/equipos/%d", id), payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteEquipo(ctx context.Context, id int) error {
	return c.api.Do(ctx, http.MethodDelete, fmt.Sprintf("/equipos/%d", id), nil, nil)
}

func (c *Client) Sistemas(ctx context.Context, equipoID int) ([]domain.Sistema, error) {
	var out []domain.Sistema
	if err := c.api.Get(ctx, fmt.Sprintf("/equipos/%d/sistemas", equipoID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateSistema(ctx context.Context, equipoID int, payload domain.NamePayload) (*domain.Sistema, error) {
	var out domain.Sistema
	if err := c.api.Do(ctx, http.MethodPost, fmt.Sprintf("/equipos/%d/sistemas", equipoID), payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateSistema(ctx context.Context, id int, payload domain.NamePayload) (*domain.Sistema, error) {
	var out domain.Sistema
	if err := c.api.Do(ctx, http.MethodPut, fmt.Sprintf("/sistemas/%d", id), payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSistema(ctx context.Context, id int) error {
	return c.api.Do(ctx, http.MethodDelete, fmt.Sprintf("/sistemas/%d", id), nil, nil)
}
