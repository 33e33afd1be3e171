package requirements

import "encoding/json"

// Process is the top-level grouping produced by one analysis run.
// JSON keys follow the contract shared with the model prompt and the web client.
type Process struct {
	ID           int64        `json:"id_proceso"`
	Name         string       `json:"nombre"`
	Description  string       `json:"descripcion"`
	Subprocesses []Subprocess `json:"subprocesos"`
}

// Subprocess refines a Process into a smaller unit of work.
type Subprocess struct {
	ID          int64     `json:"id_subproceso"`
	ProcessID   int64     `json:"id_proceso"`
	Name        string    `json:"nombre"`
	Description string    `json:"descripcion"`
	UseCases    []UseCase `json:"casos_uso"`
}

// UseCase is a concrete behaviour with actor, conditions and acceptance criteria.
type UseCase struct {
	ID                 int64       `json:"id_caso_uso"`
	SubprocessID       int64       `json:"id_subproceso"`
	Name               string      `json:"nombre"`
	Description        string      `json:"descripcion"`
	Actor              string      `json:"actor_principal"`
	Kind               UseCaseKind `json:"tipo_caso_uso"`
	Preconditions      string      `json:"precondiciones"`
	Postconditions     string      `json:"postcondiciones"`
	AcceptanceCriteria string      `json:"criterios_de_aceptacion"`
}

// MarshalJSON adds the human label of the kind next to its numeric value.
func (u UseCase) MarshalJSON() ([]byte, error) {
	type plain UseCase
	return json.Marshal(struct {
		plain
		KindLabel string `json:"tipo_caso_uso_label"`
	}{plain: plain(u), KindLabel: u.Kind.Label()})
}

// Counts totals the entities of a tree per level.
type Counts struct {
	Processes    int `json:"procesos"`
	Subprocesses int `json:"subprocesos"`
	UseCases     int `json:"casos_uso"`
}

// Count walks the tree once.
func Count(processes []Process) Counts {
	c := Counts{Processes: len(processes)}
	for _, p := range processes {
		c.Subprocesses += len(p.Subprocesses)
		for _, s := range p.Subprocesses {
			c.UseCases += len(s.UseCases)
		}
	}
	return c
}
