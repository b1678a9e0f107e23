package app

import (
	"context"
	"sort"

	"paranoid/internal/core/entity"
	"paranoid/internal/core/id"
	"paranoid/internal/domain"
	"paranoid/internal/domain/softdelete"
)

// Entity is a type-erased view of one entity service, keyed by type name.
type Entity struct {
	Name    string
	Count   func(ctx context.Context, vis domain.Visibility) (int64, error)
	List    func(ctx context.Context, vis domain.Visibility, f domain.ListFilter) ([]entity.Record, error)
	Get     func(ctx context.Context, vis domain.Visibility, recordID id.ID) (entity.Record, error)
	Delete  func(ctx context.Context, recordID id.ID) (softdelete.Result, error)
	Restore func(ctx context.Context, recordID id.ID) (softdelete.Result, error)
}

// Entities returns every entity service by type name.
func (a *App) Entities() map[string]Entity {
	all := []Entity{
		erase(a.Articles.Articles),
		erase(a.Articles.Comments),
		erase(a.Accounts.Users),
		erase(a.Accounts.Logins),
		erase(a.Posts.Posts),
		erase(a.Posts.Comments),
	}
	out := make(map[string]Entity, len(all))
	for _, e := range all {
		out[e.Name] = e
	}
	return out
}

// EntityNames returns the type names accepted by Entities, sorted.
func (a *App) EntityNames() []string {
	names := make([]string, 0, 6)
	for name := range a.Entities() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func erase[T entity.Record](s *domain.EntityService[T]) Entity {
	return Entity{
		Name: s.Def().Name,
		Count: func(ctx context.Context, vis domain.Visibility) (int64, error) {
			if vis == domain.IncludeDeleted {
				return s.CountWithDeleted(ctx)
			}
			return s.Count(ctx)
		},
		List: func(ctx context.Context, vis domain.Visibility, f domain.ListFilter) ([]entity.Record, error) {
			var (
				items []T
				err   error
			)
			if vis == domain.IncludeDeleted {
				items, err = s.ListWithDeleted(ctx, f)
			} else {
				items, err = s.List(ctx, f)
			}
			if err != nil {
				return nil, err
			}
			out := make([]entity.Record, 0, len(items))
			for _, it := range items {
				out = append(out, it)
			}
			return out, nil
		},
		Get: func(ctx context.Context, vis domain.Visibility, recordID id.ID) (entity.Record, error) {
			if vis == domain.IncludeDeleted {
				return s.GetByIDWithDeleted(ctx, recordID)
			}
			return s.GetByID(ctx, recordID)
		},
		Delete:  s.DeleteByID,
		Restore: s.RestoreByID,
	}
}
