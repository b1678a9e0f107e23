// Package metadata holds the static per-type soft-delete policy table.
// The registry is built once at start-up and only consulted afterwards.
package metadata

import (
	"errors"
	"fmt"
	"sort"

	"paranoid/internal/core/entity"
)

// Policy defines whether delete/restore propagates to dependents.
type Policy string

const (
	// PolicyNone keeps delete/restore local to the record.
	PolicyNone Policy = "NONE"
	// PolicyCascade propagates delete/restore along the type's relations, transitively.
	PolicyCascade Policy = "CASCADE"
)

// MarkerStyle identifies how the soft-delete marker is stored.
type MarkerStyle string

const (
	MarkerUnknown   MarkerStyle = ""
	MarkerTimestamp MarkerStyle = "timestamp" // deleted_at
	MarkerCascade   MarkerStyle = "cascade"   // deleted + deleted_by_cascade
)

// Column returns the marker column.
func (s MarkerStyle) Column() string {
	switch s {
	case MarkerTimestamp:
		return entity.ColumnDeletedAt
	case MarkerCascade:
		return entity.ColumnDeleted
	}
	return ""
}

// CascadeColumn returns the by-cascade flag column, or "" when the style has none.
func (s MarkerStyle) CascadeColumn() string {
	if s == MarkerCascade {
		return entity.ColumnDeletedByCascade
	}
	return ""
}

// FieldType defines the data type of a field.
type FieldType string

const (
	TypeString    FieldType = "string"
	TypeInteger   FieldType = "integer"
	TypeNumber    FieldType = "number"
	TypeBoolean   FieldType = "boolean"
	TypeDate      FieldType = "date"
	TypeReference FieldType = "reference"
)

// EntityDef describes a soft-deletable entity type.
type EntityDef struct {
	Name      string        `json:"name"`
	Label     string        `json:"label,omitempty"`
	Table     string        `json:"table"`
	Policy    Policy        `json:"policy"`
	Marker    MarkerStyle   `json:"marker"`
	Fields    []FieldDef    `json:"fields"`
	Relations []RelationDef `json:"relations,omitempty"`
}

// MarkerColumn returns the column whose non-null value means "deleted".
func (d EntityDef) MarkerColumn() string {
	return d.Marker.Column()
}

// IsMarkerColumn reports whether col belongs to the marker.
func (d EntityDef) IsMarkerColumn(col string) bool {
	return col != "" && (col == d.Marker.Column() || col == d.Marker.CascadeColumn())
}

// HasColumn reports whether the entity stores column col.
func (d EntityDef) HasColumn(col string) bool {
	for _, f := range d.Fields {
		if f.Column == col {
			return true
		}
	}
	return false
}

// Cascades reports whether delete/restore of this type walks its relations.
func (d EntityDef) Cascades() bool {
	return d.Policy == PolicyCascade
}

// FieldDef describes a field.
type FieldDef struct {
	Name          string    `json:"name"`
	Column        string    `json:"column,omitempty"`
	Label         string    `json:"label,omitempty"`
	Type          FieldType `json:"type"`
	ReferenceType string    `json:"referenceType,omitempty"`
	Required      bool      `json:"required,omitempty"`
	ReadOnly      bool      `json:"readOnly,omitempty"`
}

// RelationDef is an outgoing parent -> dependent edge.
// The dependent holds a required many-to-one reference in ForeignKey.
type RelationDef struct {
	Name       string `json:"name"`
	Dependent  string `json:"dependent"`
	ForeignKey string `json:"foreignKey"`
}

// Edge is a relation with both ends resolved.
type Edge struct {
	Relation  RelationDef
	Parent    EntityDef
	Dependent EntityDef
}

// Registry stores entity definitions.
type Registry struct {
	entities map[string]EntityDef
}

func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]EntityDef),
	}
}

func (r *Registry) Register(def EntityDef) {
	if def.Policy == "" {
		def.Policy = PolicyNone
	}
	r.entities[def.Name] = def
}

func (r *Registry) Get(name string) (EntityDef, bool) {
	d, ok := r.entities[name]
	return d, ok
}

// MustGet returns the definition or panics. Use for names fixed at compile time.
func (r *Registry) MustGet(name string) EntityDef {
	d, ok := r.entities[name]
	if !ok {
		panic(fmt.Sprintf("metadata: entity %q is not registered", name))
	}
	return d
}

// List returns all definitions sorted by name.
func (r *Registry) List() []EntityDef {
	list := make([]EntityDef, 0, len(r.entities))
	for _, def := range r.entities {
		list = append(list, def)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Relations returns every outgoing edge of name regardless of policy.
func (r *Registry) Relations(name string) []Edge {
	parent, ok := r.entities[name]
	if !ok {
		return nil
	}
	edges := make([]Edge, 0, len(parent.Relations))
	for _, rel := range parent.Relations {
		dep, ok := r.entities[rel.Dependent]
		if !ok {
			continue
		}
		edges = append(edges, Edge{Relation: rel, Parent: parent, Dependent: dep})
	}
	return edges
}

// CascadeEdges returns the edges delete/restore must walk from name.
// Empty for PolicyNone types.
func (r *Registry) CascadeEdges(name string) []Edge {
	parent, ok := r.entities[name]
	if !ok || !parent.Cascades() {
		return nil
	}
	return r.Relations(name)
}

// Relation looks up the named outgoing relation of parent.
func (r *Registry) Relation(parent, relation string) (Edge, bool) {
	for _, e := range r.Relations(parent) {
		if e.Relation.Name == relation {
			return e, true
		}
	}
	return Edge{}, false
}

// ParentsOf returns every edge whose dependent is name.
func (r *Registry) ParentsOf(name string) []Edge {
	var edges []Edge
	for _, parent := range r.List() {
		for _, e := range r.Relations(parent.Name) {
			if e.Dependent.Name == name {
				edges = append(edges, e)
			}
		}
	}
	return edges
}

// Validate checks the table for dangling or inconsistent declarations.
func (r *Registry) Validate() error {
	var errs []error
	tables := make(map[string]string, len(r.entities))

	for _, def := range r.List() {
		if def.Table == "" {
			errs = append(errs, fmt.Errorf("%s: table is empty", def.Name))
		} else if other, dup := tables[def.Table]; dup {
			errs = append(errs, fmt.Errorf("%s: table %q already used by %s", def.Name, def.Table, other))
		} else {
			tables[def.Table] = def.Name
		}

		switch def.Policy {
		case PolicyNone, PolicyCascade:
		default:
			errs = append(errs, fmt.Errorf("%s: unknown policy %q", def.Name, def.Policy))
		}

		if def.Marker.Column() == "" {
			errs = append(errs, fmt.Errorf("%s: no soft-delete marker", def.Name))
		}

		seen := make(map[string]bool, len(def.Relations))
		for _, rel := range def.Relations {
			if seen[rel.Name] {
				errs = append(errs, fmt.Errorf("%s: duplicate relation %q", def.Name, rel.Name))
			}
			seen[rel.Name] = true

			dep, ok := r.entities[rel.Dependent]
			if !ok {
				errs = append(errs, fmt.Errorf("%s.%s: dependent %q is not registered", def.Name, rel.Name, rel.Dependent))
				continue
			}
			if rel.ForeignKey == "" || !dep.HasColumn(rel.ForeignKey) {
				errs = append(errs, fmt.Errorf("%s.%s: %s has no foreign key column %q", def.Name, rel.Name, dep.Name, rel.ForeignKey))
			}
			if def.Cascades() && dep.Marker.CascadeColumn() == "" {
				errs = append(errs, fmt.Errorf("%s.%s: cascade dependent %s must use the cascade marker", def.Name, rel.Name, dep.Name))
			}
		}
	}

	return errors.Join(errs...)
}
