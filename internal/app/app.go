// Package app wires a storage backend into the entity services.
package app

import (
	"paranoid/internal/core/entity"
	"paranoid/internal/core/tx"
	"paranoid/internal/domain"
	"paranoid/internal/domain/accounts"
	"paranoid/internal/domain/articles"
	"paranoid/internal/domain/posts"
	"paranoid/internal/domain/softdelete"
	"paranoid/internal/infrastructure/storage/memory"
	"paranoid/internal/infrastructure/storage/postgres"
	"paranoid/internal/infrastructure/storage/postgres/entity_repo"
	"paranoid/internal/metadata"
)

// App exposes the services of one backend.
type App struct {
	Registry  *metadata.Registry
	Operator  *softdelete.Operator
	TxManager tx.Manager

	Articles *articles.Service
	Accounts *accounts.Service
	Posts    *posts.Service
}

type repos struct {
	articles       domain.Repository[*articles.Article]
	articleComment domain.Repository[*articles.Comment]
	users          domain.Repository[*accounts.User]
	logins         domain.Repository[*accounts.UserLogin]
	posts          domain.Repository[*posts.Post]
	postComments   domain.Repository[*posts.Comment]
}

// NewMemory builds the services over a fresh in-memory database.
func NewMemory(reg *metadata.Registry, opts ...softdelete.Option) (*App, *memory.DB) {
	db := memory.New(reg)

	r := repos{
		articles:       memRepo[*articles.Article](db, articles.EntityArticle),
		articleComment: memRepo[*articles.Comment](db, articles.EntityComment),
		users:          memRepo[*accounts.User](db, accounts.EntityUser),
		logins:         memRepo[*accounts.UserLogin](db, accounts.EntityLogin),
		posts:          memRepo[*posts.Post](db, posts.EntityPost),
		postComments:   memRepo[*posts.Comment](db, posts.EntityComment),
	}

	return assemble(reg, memory.NewMarkerStore(db), db, r, opts), db
}

// NewPostgres builds the services over PostgreSQL.
func NewPostgres(txm *postgres.TxManager, reg *metadata.Registry, opts ...softdelete.Option) *App {
	r := repos{
		articles:       pgRepo[articles.Article](txm, reg, articles.EntityArticle),
		articleComment: pgRepo[articles.Comment](txm, reg, articles.EntityComment),
		users:          pgRepo[accounts.User](txm, reg, accounts.EntityUser),
		logins:         pgRepo[accounts.UserLogin](txm, reg, accounts.EntityLogin),
		posts:          pgRepo[posts.Post](txm, reg, posts.EntityPost),
		postComments:   pgRepo[posts.Comment](txm, reg, posts.EntityComment),
	}

	return assemble(reg, entity_repo.NewMarkerStore(txm), txm, r, opts)
}

func assemble(reg *metadata.Registry, store softdelete.Store, txm tx.Manager, r repos, opts []softdelete.Option) *App {
	op := softdelete.NewOperator(reg, store, txm, opts...)

	return &App{
		Registry:  reg,
		Operator:  op,
		TxManager: txm,
		Articles:  articles.NewService(r.articles, r.articleComment, op, txm),
		Accounts:  accounts.NewService(r.users, r.logins, op, txm),
		Posts:     posts.NewService(r.posts, r.postComments, op, txm),
	}
}

func memRepo[T entity.Record](db *memory.DB, name string) domain.Repository[T] {
	return memory.NewRepo[T](db, db.Registry().MustGet(name))
}

func pgRepo[E any, T interface {
	*E
	entity.Record
}](txm *postgres.TxManager, reg *metadata.Registry, name string) domain.Repository[T] {
	return entity_repo.NewRepo[T](txm, reg.MustGet(name), func() T { return T(new(E)) })
}
