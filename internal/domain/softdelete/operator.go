package softdelete

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"paranoid/internal/core/apperror"
	appctx "paranoid/internal/core/context"
	"paranoid/internal/core/entity"
	"paranoid/internal/core/id"
	"paranoid/internal/core/tx"
	"paranoid/internal/metadata"
	"paranoid/pkg/logger"
	"paranoid/pkg/metrics"
)

var tracer = otel.Tracer("paranoid/softdelete")

// Operation names.
const (
	OpDelete  = "delete"
	OpRestore = "restore"
)

// Ref identifies one record of one entity type.
type Ref struct {
	Type string
	ID   id.ID
}

func (r Ref) String() string {
	return r.Type + "/" + r.ID.String()
}

// Result describes what a committed delete/restore changed.
type Result struct {
	Root Ref
	// Stamp is the root's marker after delete, or the cleared stamp after restore.
	Stamp *time.Time
	// Cascaded lists dependents whose marker changed, breadth-first from the root.
	Cascaded []Ref
	// NoOp is set when the root was already in the requested state.
	NoOp bool
}

// Operator applies delete and restore within one transaction per call.
type Operator struct {
	registry *metadata.Registry
	store    Store
	txm      tx.Manager
	now      func() time.Time

	stampMu   sync.Mutex
	lastStamp time.Time
}

// Option configures an Operator.
type Option func(*Operator)

// WithClock replaces time.Now as the source of deletion stamps.
func WithClock(now func() time.Time) Option {
	return func(o *Operator) {
		o.now = now
	}
}

// NewOperator creates an operator over the given policy table and storage.
func NewOperator(registry *metadata.Registry, store Store, txm tx.Manager, opts ...Option) *Operator {
	o := &Operator{
		registry: registry,
		store:    store,
		txm:      txm,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Registry returns the policy table the operator consults.
func (o *Operator) Registry() *metadata.Registry {
	return o.registry
}

// Delete marks the record deleted. For a CASCADE type every currently visible
// dependent reachable through CASCADE relations is marked with the same stamp.
// Deleting an already deleted record keeps its stamp and reports NoOp.
func (o *Operator) Delete(ctx context.Context, typeName string, recordID id.ID) (Result, error) {
	return o.run(ctx, OpDelete, typeName, recordID)
}

// Restore clears the record's marker together with the dependents that its
// own cascading delete marked. Dependents deleted directly stay deleted.
// Restoring a record that is not deleted reports NoOp.
func (o *Operator) Restore(ctx context.Context, typeName string, recordID id.ID) (Result, error) {
	return o.run(ctx, OpRestore, typeName, recordID)
}

func (o *Operator) run(ctx context.Context, op, typeName string, recordID id.ID) (Result, error) {
	def, ok := o.registry.Get(typeName)
	if !ok {
		return Result{}, apperror.NewValidation("unknown entity type").WithDetail("entity", typeName)
	}

	ctx = appctx.EnsureTrace(ctx, op)
	ctx, span := tracer.Start(ctx, "softdelete."+op,
		trace.WithAttributes(
			attribute.String("entity", def.Name),
			attribute.String("id", recordID.String()),
			attribute.String("policy", string(def.Policy)),
		))
	defer span.End()

	start := time.Now()
	var res Result
	err := o.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		if op == OpDelete {
			res, err = o.delete(ctx, def, recordID)
		} else {
			res, err = o.restore(ctx, def, recordID)
		}
		return err
	})

	outcome := metrics.OutcomeApplied
	switch {
	case err != nil:
		res = Result{Root: Ref{Type: def.Name, ID: recordID}}
		err = o.normalizeErr(op, def, recordID, err)
		outcome = metrics.OutcomeFailed
		if apperror.IsNotFound(err) {
			outcome = metrics.OutcomeNotFound
			logger.Debug(ctx, "soft "+op+" target not found", "entity", def.Name, "id", recordID)
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error(ctx, "soft "+op+" failed", "entity", def.Name, "id", recordID, "error", err)
		}
	case res.NoOp:
		outcome = metrics.OutcomeNoop
		logger.Debug(ctx, "soft "+op+" skipped", "entity", def.Name, "id", recordID)
	default:
		span.SetAttributes(attribute.Int("cascaded", len(res.Cascaded)))
		logger.Info(ctx, "soft "+op+" applied",
			"entity", def.Name,
			"id", recordID,
			"cascaded", len(res.Cascaded),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	metrics.ObserveOperation(def.Name, op, outcome, len(res.Cascaded), time.Since(start))
	return res, err
}

func (o *Operator) delete(ctx context.Context, def metadata.EntityDef, rootID id.ID) (Result, error) {
	res := Result{Root: Ref{Type: def.Name, ID: rootID}}

	state, err := o.store.Marker(ctx, def, rootID)
	if err != nil {
		return res, err
	}
	if state.IsDeleted() {
		res.NoOp = true
		res.Stamp = state.DeletedAt
		return res, nil
	}

	// The closure is read before any marker is written.
	groups, err := o.closure(ctx, def, rootID, Active())
	if err != nil {
		return res, failed(OpDelete, def, rootID, err)
	}

	stamp := o.nextStamp()
	if err := o.store.SetMarkers(ctx, def, []id.ID{rootID}, entity.DeletedState(stamp, false)); err != nil {
		return res, failed(OpDelete, def, rootID, err)
	}
	for _, g := range groups {
		if err := o.store.SetMarkers(ctx, g.def, g.ids, entity.DeletedState(stamp, true)); err != nil {
			return res, failed(OpDelete, def, rootID, err)
		}
	}

	res.Stamp = &stamp
	res.Cascaded = refs(groups)
	return res, nil
}

// nextStamp returns a stamp strictly later than any this operator issued
// before. Restore tells cascades apart by stamp, so two deletes must never
// share one even when the clock does not advance between them.
func (o *Operator) nextStamp() time.Time {
	o.stampMu.Lock()
	defer o.stampMu.Unlock()

	stamp := entity.Truncate(o.now())
	if !stamp.After(o.lastStamp) {
		stamp = o.lastStamp.Add(time.Microsecond)
	}
	o.lastStamp = stamp
	return stamp
}

func (o *Operator) restore(ctx context.Context, def metadata.EntityDef, rootID id.ID) (Result, error) {
	res := Result{Root: Ref{Type: def.Name, ID: rootID}}

	state, err := o.store.Marker(ctx, def, rootID)
	if err != nil {
		return res, err
	}
	if !state.IsDeleted() {
		res.NoOp = true
		return res, nil
	}

	stamp := *state.DeletedAt
	groups, err := o.closure(ctx, def, rootID, CascadedAt(stamp))
	if err != nil {
		return res, failed(OpRestore, def, rootID, err)
	}

	if err := o.store.SetMarkers(ctx, def, []id.ID{rootID}, entity.Active()); err != nil {
		return res, failed(OpRestore, def, rootID, err)
	}
	for _, g := range groups {
		if err := o.store.SetMarkers(ctx, g.def, g.ids, entity.Active()); err != nil {
			return res, failed(OpRestore, def, rootID, err)
		}
	}

	res.Stamp = &stamp
	res.Cascaded = refs(groups)
	return res, nil
}

// group is one level's worth of dependents of a single type.
type group struct {
	def metadata.EntityDef
	ids []id.ID
}

// closure walks CASCADE relations breadth-first from the root and returns the
// dependents selected by sel. Each record is visited at most once, so cyclic
// declarations terminate.
func (o *Operator) closure(ctx context.Context, def metadata.EntityDef, rootID id.ID, sel Selector) ([]group, error) {
	visited := map[Ref]bool{{Type: def.Name, ID: rootID}: true}
	frontier := []group{{def: def, ids: []id.ID{rootID}}}
	var out []group

	for len(frontier) > 0 {
		var next []group
		for _, g := range frontier {
			for _, edge := range o.registry.CascadeEdges(g.def.Name) {
				ids, err := o.store.DependentIDs(ctx, edge, g.ids, sel)
				if err != nil {
					return nil, fmt.Errorf("load %s.%s: %w", g.def.Name, edge.Relation.Name, err)
				}

				fresh := make([]id.ID, 0, len(ids))
				for _, depID := range ids {
					ref := Ref{Type: edge.Dependent.Name, ID: depID}
					if visited[ref] {
						continue
					}
					visited[ref] = true
					fresh = append(fresh, depID)
				}
				if len(fresh) > 0 {
					next = append(next, group{def: edge.Dependent, ids: fresh})
				}
			}
		}
		out = append(out, next...)
		frontier = next
	}

	return out, nil
}

func refs(groups []group) []Ref {
	var out []Ref
	for _, g := range groups {
		for _, gid := range g.ids {
			out = append(out, Ref{Type: g.def.Name, ID: gid})
		}
	}
	return out
}

// failed wraps a traversal or write error as OperationFailed. A NotFound from
// SetMarkers means a row vanished after the closure was read and is wrapped too.
func failed(op string, def metadata.EntityDef, rootID id.ID, err error) error {
	return apperror.NewOperationFailed(op, def.Name, rootID.String()).WithCause(err)
}

// normalizeErr keeps NotFound for the root and validation errors as they are;
// everything else becomes OperationFailed.
func (o *Operator) normalizeErr(op string, def metadata.EntityDef, rootID id.ID, err error) error {
	if appErr, ok := apperror.AsAppError(err); ok {
		switch appErr.Code {
		case apperror.CodeNotFound:
			return apperror.NewNotFound(def.Name, rootID.String())
		case apperror.CodeOperationFailed, apperror.CodeValidation:
			return err
		}
	}
	return apperror.NewOperationFailed(op, def.Name, rootID.String()).WithCause(err)
}
