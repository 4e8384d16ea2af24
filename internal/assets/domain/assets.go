// Package domain holds the asset hierarchy entities: plants contain areas,
// areas contain equipment units, equipment units contain subsystems.
package domain

// Planta is a plant, the hierarchy root.
type Planta struct {
	ID     int    `json:"id"`
	Nombre string `json:"nombre"`
}

// Area belongs to a plant.
type Area struct {
	ID       int    `json:"id"`
	Nombre   string `json:"nombre"`
	PlantaID int    `json:"plantaId"`
}

// Equipo is an equipment unit inside an area.
type Equipo struct {
	ID     int    `json:"id"`
	Nombre string `json:"nombre"`
	AreaID int    `json:"areaId"`
}

// Sistema is a subsystem of an equipment unit.
type Sistema struct {
	ID       int    `json:"id"`
	Nombre   string `json:"nombre"`
	EquipoID int    `json:"equipoId"`
}

// NamePayload is the create/update body for every hierarchy level.
type NamePayload struct {
	Nombre string `json:"nombre"`
}
