package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"paranoid/internal/core/entity"
	"paranoid/internal/core/id"
	"paranoid/internal/metadata"
)

type owner struct {
	entity.BaseEntity
	entity.CascadeMark
	Name string `db:"name" json:"name"`
	Age  *int   `db:"age" json:"age"`
}

type pet struct {
	entity.BaseEntity
	entity.CascadeMark
	OwnerID id.ID  `db:"owner_id" json:"ownerId"`
	Nick    string `db:"nick" json:"nick"`
}

type note struct {
	entity.BaseEntity
	entity.TimestampMark
	OwnerID id.ID  `db:"owner_id" json:"ownerId"`
	Body    string `db:"body" json:"body"`
}

func testRegistry(t *testing.T) *metadata.Registry {
	t.Helper()
	r := metadata.NewRegistry()

	o := metadata.Inspect(owner{}, "Owner")
	o.Table = "owners"
	o.Policy = metadata.PolicyCascade
	o.Relations = []metadata.RelationDef{{Name: "pets", Dependent: "Pet", ForeignKey: "owner_id"}}
	r.Register(o)

	p := metadata.Inspect(pet{}, "Pet")
	p.Table = "pets"
	p.Policy = metadata.PolicyCascade
	r.Register(p)

	n := metadata.Inspect(note{}, "Note")
	n.Table = "notes"
	r.Register(n)

	require.NoError(t, r.Validate())
	return r
}

type fixture struct {
	db     *DB
	owners *Repo[*owner]
	pets   *Repo[*pet]
	notes  *Repo[*note]
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	reg := testRegistry(t)
	db := New(reg)
	return fixture{
		db:     db,
		owners: NewRepo[*owner](db, reg.MustGet("Owner")),
		pets:   NewRepo[*pet](db, reg.MustGet("Pet")),
		notes:  NewRepo[*note](db, reg.MustGet("Note")),
	}
}

func (f fixture) owner(t *testing.T, name string) *owner {
	t.Helper()
	o := &owner{BaseEntity: entity.NewBaseEntity(), Name: name}
	require.NoError(t, f.owners.Create(context.Background(), o))
	return o
}

func (f fixture) pet(t *testing.T, ownerID id.ID, nick string) *pet {
	t.Helper()
	p := &pet{BaseEntity: entity.NewBaseEntity(), OwnerID: ownerID, Nick: nick}
	require.NoError(t, f.pets.Create(context.Background(), p))
	return p
}
