package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// Column roles a layout can declare.
const (
	RoleOwner   = "owner"
	RoleStage   = "stage"
	RoleCreated = "created"
	RoleClosed  = "closed"
	RoleAmount  = "amount"
	RoleDate    = "date"
	RoleClient  = "client"
	RoleSubject = "subject"
	RoleStatus  = "status"
)

var knownRoles = map[string]bool{
	RoleOwner: true, RoleStage: true, RoleCreated: true, RoleClosed: true, RoleAmount: true,
	RoleDate: true, RoleClient: true, RoleSubject: true, RoleStatus: true,
}

// RoleSpec: keyword fragments that identify a column. Order inside a layout
// is priority order when one header cell matches several roles.
type RoleSpec struct {
	Role     string   `yaml:"role"`
	Keywords []string `yaml:"keywords"`
	Exclude  []string `yaml:"exclude"`
	Weight   int      `yaml:"weight"`
}

type Layout struct {
	Roles     []RoleSpec `yaml:"roles"`
	Mandatory []string   `yaml:"mandatory"`

	// rol -> letra de columna (B, J, M...) usada solo si la heurística no encuentra el rol
	FallbackColumns map[string]string `yaml:"fallback_columns"`
	SheetHints      []string          `yaml:"sheet_hints"`
}

type AggregateMarkers struct {
	Prefixes []string `yaml:"prefixes"`
	Contains []string `yaml:"contains"`
	Tokens   []string `yaml:"tokens"`
}

type Heuristics struct {
	Roster           []string          `yaml:"roster"`
	Aliases          map[string]string `yaml:"aliases"`
	Unresolved       string            `yaml:"unresolved"`
	FuzzyThreshold   float64           `yaml:"fuzzy_threshold"`
	ScanRows         int               `yaml:"scan_rows"`
	AggregateMarkers AggregateMarkers  `yaml:"aggregate_markers"`
	PipelineStages   []string          `yaml:"pipeline_stages"`
	Layouts          map[string]Layout `yaml:"layouts"`
}

var ownerKeys = []string{"propietario", "owner", "comercial", "vendedor", "ejecutivo"}

// DefaultHeuristics returns a fresh copy of the built-in tables.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		Roster: []string{
			"CLAUDIA RODRIGUEZ RODRIGUEZ",
			"HERNAN ROLDAN",
			"JHOAN ORTIZ",
			"JUAN GARZÓN LINARES",
			"KAREN CARRILLO",
			"LIZETH MARTINEZ",
			"PABLO RODRIGUEZ RODRIGUEZ",
		},
		Aliases: map[string]string{
			"claudia patricia rodriguez":           "CLAUDIA RODRIGUEZ RODRIGUEZ",
			"claudia patricia rodriguez rodriguez": "CLAUDIA RODRIGUEZ RODRIGUEZ",
			"claudia rodriguez":                    "CLAUDIA RODRIGUEZ RODRIGUEZ",
			"hernan benancio roldan":               "HERNAN ROLDAN",
			"hernan b roldan":                      "HERNAN ROLDAN",
			"jhoan sebastian ortiz":                "JHOAN ORTIZ",
			"johan ortiz":                          "JHOAN ORTIZ",
			"juan garzon":                          "JUAN GARZÓN LINARES",
			"juan sebastian garzon linares":        "JUAN GARZÓN LINARES",
			"karen ariana carrillo":                "KAREN CARRILLO",
			"lizeth natalia martinez":              "LIZETH MARTINEZ",
			"pablo cesar rodriguez":                "PABLO RODRIGUEZ RODRIGUEZ",
			"pablo rodriguez":                      "PABLO RODRIGUEZ RODRIGUEZ",
		},
		Unresolved:     "(Sin comercial)",
		FuzzyThreshold: 0.5,
		ScanRows:       40,
		AggregateMarkers: AggregateMarkers{
			Prefixes: []string{"subtotal", "total"},
			Contains: []string{"recuento", "suma de"},
			Tokens:   []string{"count"},
		},
		PipelineStages: []string{
			"qualification", "needs", "needs analysis", "proposal", "negotiation",
			"value proposition", "perception analysis", "id decision makers", "prospect",
			"calificacion", "propuesta", "negociacion", "prospeccion",
		},
		Layouts: map[string]Layout{
			"detail": {
				Roles: []RoleSpec{
					{Role: RoleOwner, Keywords: ownerKeys, Weight: 3},
					{Role: RoleStage, Keywords: []string{"etapa", "stage", "estado"}, Weight: 1},
					{Role: RoleCreated, Keywords: []string{"fecha de creacion", "fecha creacion", "created date", "created"}, Exclude: []string{"created by", "creado por"}, Weight: 2},
					{Role: RoleClosed, Keywords: []string{"fecha de cierre", "fecha cierre", "close date", "closed date"}, Weight: 2},
					{Role: RoleAmount, Keywords: []string{"importe", "monto", "valor", "precio total", "amount", "total"}, Exclude: []string{"recuento", "count"}, Weight: 1},
				},
				Mandatory:  []string{RoleOwner},
				SheetHints: []string{"detalle", "detail", "oportunidades", "opportunities"},
			},
			"visits": {
				Roles: []RoleSpec{
					{Role: RoleOwner, Keywords: append([]string{"creado por", "created by", "asignado"}, ownerKeys...), Weight: 2},
					{Role: RoleSubject, Keywords: []string{"asunto", "subject", "tema"}, Weight: 1},
					{Role: RoleDate, Keywords: []string{"fecha de visita", "fecha visita", "fecha", "date", "created", "evento"}, Weight: 1},
					{Role: RoleClient, Keywords: []string{"cliente", "account", "empresa", "compania", "company"}, Weight: 1},
				},
				Mandatory:       []string{RoleOwner, RoleSubject},
				FallbackColumns: map[string]string{RoleOwner: "B", RoleSubject: "J"},
				SheetHints:      []string{"visita", "visit", "evento", "event"},
			},
			"activities": {
				Roles: []RoleSpec{
					{Role: RoleOwner, Keywords: append([]string{"creado por", "created by", "asignado", "assigned"}, ownerKeys...), Weight: 2},
					{Role: RoleStatus, Keywords: []string{"estado", "status"}, Weight: 1},
					{Role: RoleDate, Keywords: []string{"fecha de vencimiento", "vencimiento", "due", "fecha", "date"}, Weight: 1},
					{Role: RoleSubject, Keywords: []string{"asunto", "subject", "tema"}, Weight: 1},
				},
				Mandatory:       []string{RoleOwner, RoleStatus},
				FallbackColumns: map[string]string{RoleOwner: "B", RoleDate: "D", RoleStatus: "M"},
				SheetHints:      []string{"actividad", "activit", "tarea", "task"},
			},
			"pivot": {
				Roles: []RoleSpec{
					{Role: RoleOwner, Keywords: append([]string{"etiquetas de fila", "row labels"}, ownerKeys...), Weight: 2},
					{Role: RoleStage, Keywords: []string{"etapa", "stage"}, Weight: 1},
				},
				Mandatory:  []string{RoleOwner},
				SheetHints: []string{"resumen", "summary", "pivot", "dinamica"},
			},
		},
	}
}

// LoadHeuristics overlays the YAML file at path on DefaultHeuristics. Scalar
// and list keys replace the default; aliases merge; a layout given for a kind
// replaces that kind's default layout. An empty path returns the defaults.
func LoadHeuristics(path string) (Heuristics, error) {
	h := DefaultHeuristics()
	if path == "" {
		return h, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Heuristics{}, fmt.Errorf("read heuristics: %w", err)
	}
	if err := yaml.Unmarshal(data, &h); err != nil {
		return Heuristics{}, fmt.Errorf("parse heuristics %s: %w", path, err)
	}
	if err := h.Validate(); err != nil {
		return Heuristics{}, fmt.Errorf("heuristics %s: %w", path, err)
	}
	return h, nil
}

// Validate rejects unknown roles and bad fallback columns and fills defaults.
func (h *Heuristics) Validate() error {
	if len(h.Roster) == 0 {
		return fmt.Errorf("empty roster")
	}
	if h.ScanRows <= 0 {
		h.ScanRows = 40
	}
	if h.FuzzyThreshold <= 0 || h.FuzzyThreshold > 1 {
		h.FuzzyThreshold = 0.5
	}
	if strings.TrimSpace(h.Unresolved) == "" {
		h.Unresolved = "(Sin comercial)"
	}
	for kind, l := range h.Layouts {
		if len(l.Roles) == 0 {
			return fmt.Errorf("layout %q: no roles", kind)
		}
		for i, r := range l.Roles {
			if !knownRoles[r.Role] {
				return fmt.Errorf("layout %q: unknown role %q", kind, r.Role)
			}
			if len(r.Keywords) == 0 {
				return fmt.Errorf("layout %q: role %q has no keywords", kind, r.Role)
			}
			if r.Weight <= 0 {
				l.Roles[i].Weight = 1
			}
		}
		for _, m := range l.Mandatory {
			if !knownRoles[m] {
				return fmt.Errorf("layout %q: unknown mandatory role %q", kind, m)
			}
		}
		for role, col := range l.FallbackColumns {
			if !knownRoles[role] {
				return fmt.Errorf("layout %q: unknown fallback role %q", kind, role)
			}
			if _, err := excelize.ColumnNameToNumber(col); err != nil {
				return fmt.Errorf("layout %q: fallback column %q: %w", kind, col, err)
			}
		}
	}
	return nil
}

// FallbackIndex returns the zero-based column for role, or -1.
func (l Layout) FallbackIndex(role string) int {
	col, ok := l.FallbackColumns[role]
	if !ok {
		return -1
	}
	n, err := excelize.ColumnNameToNumber(strings.TrimSpace(col))
	if err != nil {
		return -1
	}
	return n - 1
}
