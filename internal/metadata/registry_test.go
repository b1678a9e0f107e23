package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paranoid/internal/core/entity"
	"paranoid/internal/core/id"
)

type owner struct {
	entity.BaseEntity
	entity.CascadeMark
	Name string `db:"name" json:"name" validate:"required"`
}

type pet struct {
	entity.BaseEntity
	entity.CascadeMark
	OwnerID id.ID  `db:"owner_id" json:"ownerId" validate:"required"`
	Nick    string `db:"nick" json:"nick"`
	Scratch string `json:"scratch"`
}

type note struct {
	entity.BaseEntity
	entity.TimestampMark
	OwnerID id.ID `db:"owner_id" json:"ownerId"`
}

func buildRegistry(ownerPolicy Policy) *Registry {
	r := NewRegistry()

	o := Inspect(&owner{}, "Owner")
	o.Table = "owners"
	o.Policy = ownerPolicy
	o.Relations = []RelationDef{{Name: "pets", Dependent: "Pet", ForeignKey: "owner_id"}}
	r.Register(o)

	p := Inspect(pet{}, "Pet")
	p.Table = "pets"
	p.Policy = ownerPolicy
	r.Register(p)

	return r
}

func TestInspectDetectsMarkerAndColumns(t *testing.T) {
	def := Inspect(&pet{}, "")

	assert.Equal(t, "pet", def.Name)
	assert.Equal(t, MarkerCascade, def.Marker)
	assert.Equal(t, "deleted", def.MarkerColumn())
	assert.True(t, def.HasColumn("owner_id"))
	assert.True(t, def.HasColumn("deleted_by_cascade"))
	assert.False(t, def.HasColumn("scratch"))

	var ref FieldDef
	for _, f := range def.Fields {
		if f.Column == "owner_id" {
			ref = f
		}
	}
	assert.Equal(t, TypeReference, ref.Type)
	assert.Equal(t, "owner", ref.ReferenceType)
	assert.Equal(t, "Owner ID", ref.Label)
	assert.True(t, ref.Required)

	assert.Equal(t, MarkerTimestamp, Inspect(note{}, "Note").Marker)
	assert.Equal(t, "deleted_at", Inspect(note{}, "Note").MarkerColumn())
}

func TestRegistryEdges(t *testing.T) {
	r := buildRegistry(PolicyCascade)
	require.NoError(t, r.Validate())

	edges := r.CascadeEdges("Owner")
	require.Len(t, edges, 1)
	assert.Equal(t, "Pet", edges[0].Dependent.Name)
	assert.Equal(t, "owner_id", edges[0].Relation.ForeignKey)

	parents := r.ParentsOf("Pet")
	require.Len(t, parents, 1)
	assert.Equal(t, "Owner", parents[0].Parent.Name)

	e, ok := r.Relation("Owner", "pets")
	require.True(t, ok)
	assert.Equal(t, "pets", e.Dependent.Table)

	_, ok = r.Relation("Owner", "toys")
	assert.False(t, ok)
}

func TestNonePolicyHasNoCascadeEdges(t *testing.T) {
	r := buildRegistry(PolicyNone)
	require.NoError(t, r.Validate())

	assert.Empty(t, r.CascadeEdges("Owner"))
	assert.Len(t, r.Relations("Owner"), 1)
}

func TestValidateRejectsBadDeclarations(t *testing.T) {
	r := buildRegistry(PolicyCascade)

	n := Inspect(note{}, "Note")
	n.Table = "pets"
	r.Register(n)

	o := r.MustGet("Owner")
	o.Relations = append(o.Relations,
		RelationDef{Name: "notes", Dependent: "Note", ForeignKey: "owner_id"},
		RelationDef{Name: "ghosts", Dependent: "Ghost", ForeignKey: "owner_id"},
		RelationDef{Name: "pets", Dependent: "Pet", ForeignKey: "missing"},
	)
	r.Register(o)

	err := r.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `table "pets" already used`)
	assert.Contains(t, err.Error(), "cascade dependent Note must use the cascade marker")
	assert.Contains(t, err.Error(), `dependent "Ghost" is not registered`)
	assert.Contains(t, err.Error(), `duplicate relation "pets"`)
	assert.Contains(t, err.Error(), `no foreign key column "missing"`)
}

func TestListIsSorted(t *testing.T) {
	r := buildRegistry(PolicyNone)

	names := []string{}
	for _, d := range r.List() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"Owner", "Pet"}, names)
	assert.Panics(t, func() { r.MustGet("Nope") })
}
