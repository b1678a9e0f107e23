// Package schema declares the soft-deletable entity types, their tables,
// policies and relationships.
package schema

import (
	"fmt"

	"paranoid/internal/domain/accounts"
	"paranoid/internal/domain/articles"
	"paranoid/internal/domain/posts"
	"paranoid/internal/metadata"
)

// Override replaces the policy of one registered type.
type Override struct {
	Entity string
	Policy metadata.Policy
}

// Registry builds the validated registry of all entity types.
func Registry() *metadata.Registry {
	reg, err := RegistryWith()
	if err != nil {
		panic(err)
	}
	return reg
}

// RegistryWith builds the registry with policy overrides applied, e.g. the
// Article/Comment pair switched to CASCADE.
func RegistryWith(overrides ...Override) (*metadata.Registry, error) {
	policies := make(map[string]metadata.Policy, len(overrides))
	for _, o := range overrides {
		policies[o.Entity] = o.Policy
	}

	reg := metadata.NewRegistry()

	register := func(record any, name, table string, policy metadata.Policy, relations ...metadata.RelationDef) {
		def := metadata.Inspect(record, name)
		def.Table = table
		def.Policy = policy
		if p, ok := policies[name]; ok {
			def.Policy = p
			delete(policies, name)
		}
		def.Relations = relations
		reg.Register(def)
	}

	// --- Articles ---
	register(articles.Article{}, articles.EntityArticle, "articles", metadata.PolicyNone,
		metadata.RelationDef{Name: articles.RelationComments, Dependent: articles.EntityComment, ForeignKey: "article_id"})
	register(articles.Comment{}, articles.EntityComment, "article_comments", metadata.PolicyNone)

	// --- Accounts ---
	register(accounts.User{}, accounts.EntityUser, "users", metadata.PolicyCascade,
		metadata.RelationDef{Name: accounts.RelationLogins, Dependent: accounts.EntityLogin, ForeignKey: "user_id"})
	register(accounts.UserLogin{}, accounts.EntityLogin, "user_logins", metadata.PolicyCascade)

	// --- Posts ---
	register(posts.Post{}, posts.EntityPost, "posts", metadata.PolicyNone,
		metadata.RelationDef{Name: posts.RelationComments, Dependent: posts.EntityComment, ForeignKey: "post_id"})
	register(posts.Comment{}, posts.EntityComment, "post_comments", metadata.PolicyNone)

	for name := range policies {
		return nil, fmt.Errorf("schema: override for unknown entity %q", name)
	}

	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return reg, nil
}
