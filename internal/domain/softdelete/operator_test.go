package softdelete_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paranoid/internal/core/apperror"
	"paranoid/internal/core/entity"
	"paranoid/internal/core/id"
	"paranoid/internal/domain"
	"paranoid/internal/domain/softdelete"
	"paranoid/internal/infrastructure/storage/memory"
	"paranoid/internal/metadata"
	"paranoid/pkg/logger"
)

type owner struct {
	entity.BaseEntity
	entity.CascadeMark
	Name string `db:"name" json:"name"`
}

type pet struct {
	entity.BaseEntity
	entity.CascadeMark
	OwnerID  id.ID  `db:"owner_id" json:"ownerId"`
	FosterID id.ID  `db:"foster_id" json:"fosterId"`
	Nick     string `db:"nick" json:"nick"`
}

type toy struct {
	entity.BaseEntity
	entity.CascadeMark
	PetID id.ID `db:"pet_id" json:"petId"`
}

type diary struct {
	entity.BaseEntity
	entity.TimestampMark
	Title string `db:"title" json:"title"`
}

type page struct {
	entity.BaseEntity
	entity.TimestampMark
	DiaryID id.ID `db:"diary_id" json:"diaryId"`
}

func TestMain(m *testing.M) {
	logger.SetDefault(logger.NewNop())
	os.Exit(m.Run())
}

func testRegistry(t *testing.T) *metadata.Registry {
	t.Helper()
	r := metadata.NewRegistry()

	register := func(record any, name, table string, policy metadata.Policy, rels ...metadata.RelationDef) {
		def := metadata.Inspect(record, name)
		def.Table = table
		def.Policy = policy
		def.Relations = rels
		r.Register(def)
	}

	register(owner{}, "Owner", "owners", metadata.PolicyCascade,
		metadata.RelationDef{Name: "pets", Dependent: "Pet", ForeignKey: "owner_id"},
		metadata.RelationDef{Name: "fosters", Dependent: "Pet", ForeignKey: "foster_id"})
	register(pet{}, "Pet", "pets", metadata.PolicyCascade,
		metadata.RelationDef{Name: "toys", Dependent: "Toy", ForeignKey: "pet_id"})
	register(toy{}, "Toy", "toys", metadata.PolicyCascade)
	register(diary{}, "Diary", "diaries", metadata.PolicyNone,
		metadata.RelationDef{Name: "pages", Dependent: "Page", ForeignKey: "diary_id"})
	register(page{}, "Page", "pages", metadata.PolicyNone)

	require.NoError(t, r.Validate())
	return r
}

// stepClock returns a clock that advances one second per call.
func stepClock() func() time.Time {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

type env struct {
	db     *memory.DB
	store  softdelete.Store
	op     *softdelete.Operator
	owners *memory.Repo[*owner]
	pets   *memory.Repo[*pet]
	toys   *memory.Repo[*toy]
	diary  *memory.Repo[*diary]
	pages  *memory.Repo[*page]
}

func newEnv(t *testing.T, wrap ...func(softdelete.Store) softdelete.Store) *env {
	t.Helper()
	reg := testRegistry(t)
	db := memory.New(reg)

	var store softdelete.Store = memory.NewMarkerStore(db)
	for _, w := range wrap {
		store = w(store)
	}

	return &env{
		db:     db,
		store:  store,
		op:     softdelete.NewOperator(reg, store, db, softdelete.WithClock(stepClock())),
		owners: memory.NewRepo[*owner](db, reg.MustGet("Owner")),
		pets:   memory.NewRepo[*pet](db, reg.MustGet("Pet")),
		toys:   memory.NewRepo[*toy](db, reg.MustGet("Toy")),
		diary:  memory.NewRepo[*diary](db, reg.MustGet("Diary")),
		pages:  memory.NewRepo[*page](db, reg.MustGet("Page")),
	}
}

func (e *env) owner(t *testing.T) *owner {
	t.Helper()
	o := &owner{BaseEntity: entity.NewBaseEntity(), Name: "o"}
	require.NoError(t, e.owners.Create(context.Background(), o))
	return o
}

func (e *env) pet(t *testing.T, ownerID, fosterID id.ID) *pet {
	t.Helper()
	p := &pet{BaseEntity: entity.NewBaseEntity(), OwnerID: ownerID, FosterID: fosterID}
	require.NoError(t, e.pets.Create(context.Background(), p))
	return p
}

func (e *env) toy(t *testing.T, petID id.ID) *toy {
	t.Helper()
	x := &toy{BaseEntity: entity.NewBaseEntity(), PetID: petID}
	require.NoError(t, e.toys.Create(context.Background(), x))
	return x
}

func (e *env) marker(t *testing.T, typ string, recordID id.ID) entity.MarkerState {
	t.Helper()
	m, err := e.store.Marker(context.Background(), e.db.Registry().MustGet(typ), recordID)
	require.NoError(t, err)
	return m
}

func count[T entity.Record](t *testing.T, r *memory.Repo[T]) int64 {
	t.Helper()
	n, err := r.Count(context.Background(), domain.VisibleOnly, nil)
	require.NoError(t, err)
	return n
}

// family is an owner with two pets, each holding one toy; a second owner fosters both pets.
type family struct {
	owner, foster *owner
	pets          []*pet
	toys          []*toy
}

func (e *env) family(t *testing.T) family {
	f := family{owner: e.owner(t), foster: e.owner(t)}
	for i := 0; i < 2; i++ {
		p := e.pet(t, f.owner.ID, f.foster.ID)
		f.pets = append(f.pets, p)
		f.toys = append(f.toys, e.toy(t, p.ID))
	}
	return f
}

func TestUnknownTypeAndMissingRecord(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.op.Delete(ctx, "Nope", id.New())
	assert.True(t, apperror.IsValidation(err))

	missing := id.New()
	res, err := e.op.Delete(ctx, "Owner", missing)
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, softdelete.Ref{Type: "Owner", ID: missing}, res.Root)

	_, err = e.op.Restore(ctx, "Owner", missing)
	assert.True(t, apperror.IsNotFound(err))
}

func TestNonePolicyKeepsDependentsVisible(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	d := &diary{BaseEntity: entity.NewBaseEntity(), Title: "d"}
	require.NoError(t, e.diary.Create(ctx, d))
	require.NoError(t, e.pages.Create(ctx, &page{BaseEntity: entity.NewBaseEntity(), DiaryID: d.ID}))

	res, err := e.op.Delete(ctx, "Diary", d.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Cascaded)
	require.NotNil(t, res.Stamp)

	_, err = e.diary.GetByID(ctx, domain.VisibleOnly, d.ID)
	assert.True(t, apperror.IsNotFound(err))

	stored, err := e.diary.GetByID(ctx, domain.IncludeDeleted, d.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.DeletedAt)
	assert.True(t, stored.DeletedAt.Equal(*res.Stamp))

	assert.Equal(t, int64(1), count(t, e.pages), "page stays visible with its diary hidden")
}

func TestCascadeDeleteClosure(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	f := e.family(t)

	require.Equal(t, int64(2), count(t, e.pets))

	res, err := e.op.Delete(ctx, "Owner", f.owner.ID)
	require.NoError(t, err)
	require.False(t, res.NoOp)
	stamp := *res.Stamp

	assert.Equal(t, []softdelete.Ref{
		{Type: "Pet", ID: f.pets[0].ID},
		{Type: "Pet", ID: f.pets[1].ID},
		{Type: "Toy", ID: f.toys[0].ID},
		{Type: "Toy", ID: f.toys[1].ID},
	}, res.Cascaded, "breadth-first, each record once")

	root := e.marker(t, "Owner", f.owner.ID)
	assert.True(t, root.StampedAt(stamp))
	assert.False(t, root.ByCascade)

	for _, p := range f.pets {
		m := e.marker(t, "Pet", p.ID)
		assert.True(t, m.StampedAt(stamp))
		assert.True(t, m.ByCascade)
	}
	for _, x := range f.toys {
		assert.True(t, e.marker(t, "Toy", x.ID).StampedAt(stamp))
	}

	assert.Equal(t, int64(0), count(t, e.pets), "pet count drops by exactly 2")
	assert.Equal(t, int64(0), count(t, e.toys))
	assert.Equal(t, int64(1), count(t, e.owners), "foster owner untouched")
}

func TestClosureVisitsEachRecordOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	o := e.owner(t)
	p := e.pet(t, o.ID, o.ID)
	x := e.toy(t, p.ID)

	res, err := e.op.Delete(ctx, "Owner", o.ID)
	require.NoError(t, err)
	assert.Equal(t, []softdelete.Ref{
		{Type: "Pet", ID: p.ID},
		{Type: "Toy", ID: x.ID},
	}, res.Cascaded, "a pet reached through both relations is stamped once")

	res, err = e.op.Restore(ctx, "Owner", o.ID)
	require.NoError(t, err)
	assert.Len(t, res.Cascaded, 2)
	assert.False(t, e.marker(t, "Pet", p.ID).IsDeleted())
}

func TestCascadeRestoreInverse(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	f := e.family(t)

	before := []int64{count(t, e.owners), count(t, e.pets), count(t, e.toys)}

	_, err := e.op.Delete(ctx, "Owner", f.owner.ID)
	require.NoError(t, err)

	res, err := e.op.Restore(ctx, "Owner", f.owner.ID)
	require.NoError(t, err)
	assert.Len(t, res.Cascaded, 4)

	assert.Equal(t, before, []int64{count(t, e.owners), count(t, e.pets), count(t, e.toys)})
	for _, p := range f.pets {
		m := e.marker(t, "Pet", p.ID)
		assert.False(t, m.IsDeleted())
		assert.False(t, m.ByCascade, "flag is cleared with the stamp")
	}
}

func TestDirectDeleteIsNotCascadeRestored(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	f := e.family(t)

	direct, err := e.op.Delete(ctx, "Pet", f.pets[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []softdelete.Ref{{Type: "Toy", ID: f.toys[0].ID}}, direct.Cascaded)

	res, err := e.op.Delete(ctx, "Owner", f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, []softdelete.Ref{
		{Type: "Pet", ID: f.pets[1].ID},
		{Type: "Toy", ID: f.toys[1].ID},
	}, res.Cascaded, "already deleted dependents are not re-stamped")

	_, err = e.op.Restore(ctx, "Owner", f.owner.ID)
	require.NoError(t, err)

	first := e.marker(t, "Pet", f.pets[0].ID)
	assert.True(t, first.StampedAt(*direct.Stamp), "directly deleted pet keeps its own stamp")
	assert.False(t, first.ByCascade)
	assert.True(t, e.marker(t, "Toy", f.toys[0].ID).IsDeleted(), "its toy stays with it")

	assert.False(t, e.marker(t, "Pet", f.pets[1].ID).IsDeleted())
	assert.False(t, e.marker(t, "Toy", f.toys[1].ID).IsDeleted())
}

func TestRestoreDependentDirectly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	f := e.family(t)

	_, err := e.op.Delete(ctx, "Owner", f.owner.ID)
	require.NoError(t, err)

	res, err := e.op.Restore(ctx, "Pet", f.pets[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []softdelete.Ref{{Type: "Toy", ID: f.toys[0].ID}}, res.Cascaded)

	assert.True(t, e.marker(t, "Owner", f.owner.ID).IsDeleted())
	assert.False(t, e.marker(t, "Pet", f.pets[0].ID).IsDeleted())
	assert.True(t, e.marker(t, "Pet", f.pets[1].ID).IsDeleted())
}

func TestCascadesOnStalledClockStayDistinct(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e.op = softdelete.NewOperator(e.db.Registry(), e.store, e.db,
		softdelete.WithClock(func() time.Time { return fixed }))

	o := e.owner(t)
	f := e.owner(t)
	p := e.pet(t, o.ID, f.ID)

	first, err := e.op.Delete(ctx, "Owner", o.ID)
	require.NoError(t, err)
	require.Len(t, first.Cascaded, 1)

	second, err := e.op.Delete(ctx, "Owner", f.ID)
	require.NoError(t, err)
	assert.Empty(t, second.Cascaded)
	assert.True(t, second.Stamp.After(*first.Stamp))

	_, err = e.op.Restore(ctx, "Owner", f.ID)
	require.NoError(t, err)
	assert.True(t, e.marker(t, "Pet", p.ID).StampedAt(*first.Stamp), "pet belongs to the owner's cascade")

	_, err = e.op.Restore(ctx, "Owner", o.ID)
	require.NoError(t, err)
	assert.False(t, e.marker(t, "Pet", p.ID).IsDeleted())
}

func TestIdempotence(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	f := e.family(t)

	res, err := e.op.Restore(ctx, "Owner", f.owner.ID)
	require.NoError(t, err)
	assert.True(t, res.NoOp)
	assert.Equal(t, int64(2), count(t, e.owners))

	first, err := e.op.Delete(ctx, "Owner", f.owner.ID)
	require.NoError(t, err)

	again, err := e.op.Delete(ctx, "Owner", f.owner.ID)
	require.NoError(t, err)
	assert.True(t, again.NoOp)
	assert.Empty(t, again.Cascaded)
	assert.True(t, again.Stamp.Equal(*first.Stamp), "second delete keeps the original stamp")
	assert.True(t, e.marker(t, "Owner", f.owner.ID).StampedAt(*first.Stamp))
}

// failingStore fails the n-th call of the named method.
type failingStore struct {
	softdelete.Store
	method string
	n      int
	calls  int
}

var errInjected = errors.New("injected failure")

func (s *failingStore) hit(method string) error {
	if method != s.method {
		return nil
	}
	s.calls++
	if s.calls == s.n {
		return errInjected
	}
	return nil
}

func (s *failingStore) DependentIDs(ctx context.Context, edge metadata.Edge, parentIDs []id.ID, sel softdelete.Selector) ([]id.ID, error) {
	if err := s.hit("DependentIDs"); err != nil {
		return nil, err
	}
	return s.Store.DependentIDs(ctx, edge, parentIDs, sel)
}

func (s *failingStore) SetMarkers(ctx context.Context, def metadata.EntityDef, ids []id.ID, state entity.MarkerState) error {
	if err := s.hit("SetMarkers"); err != nil {
		return err
	}
	return s.Store.SetMarkers(ctx, def, ids, state)
}

func failOn(method string, n int) func(softdelete.Store) softdelete.Store {
	return func(inner softdelete.Store) softdelete.Store {
		return &failingStore{Store: inner, method: method, n: n}
	}
}

func TestFailedDeleteLeavesNoPartialMarks(t *testing.T) {
	for _, tc := range []struct {
		name   string
		method string
		n      int
	}{
		{"first write", "SetMarkers", 1},
		{"dependent write", "SetMarkers", 3},
		{"traversal", "DependentIDs", 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t, failOn(tc.method, tc.n))
			ctx := context.Background()
			f := e.family(t)

			res, err := e.op.Delete(ctx, "Owner", f.owner.ID)
			require.Error(t, err)
			assert.True(t, apperror.IsOperationFailed(err))
			assert.ErrorIs(t, err, errInjected)
			assert.Empty(t, res.Cascaded)

			assert.False(t, e.marker(t, "Owner", f.owner.ID).IsDeleted())
			for _, p := range f.pets {
				assert.False(t, e.marker(t, "Pet", p.ID).IsDeleted())
			}
			for _, x := range f.toys {
				assert.False(t, e.marker(t, "Toy", x.ID).IsDeleted())
			}
		})
	}
}

func TestFailedRestoreLeavesEverythingDeleted(t *testing.T) {
	// Delete performs 3 SetMarkers calls (owner, pets, toys); fail the restore's second.
	e := newEnv(t, failOn("SetMarkers", 5))
	ctx := context.Background()
	f := e.family(t)

	_, err := e.op.Delete(ctx, "Owner", f.owner.ID)
	require.NoError(t, err)

	_, err = e.op.Restore(ctx, "Owner", f.owner.ID)
	assert.True(t, apperror.IsOperationFailed(err))

	assert.True(t, e.marker(t, "Owner", f.owner.ID).IsDeleted())
	for _, p := range f.pets {
		assert.True(t, e.marker(t, "Pet", p.ID).IsDeleted())
	}
}
