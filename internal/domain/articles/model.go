// Package articles provides the Article / Comment pair. Neither type cascades:
// deleting an article leaves its comments visible.
package articles

import (
	"context"

	"paranoid/internal/core/entity"
	"paranoid/internal/core/id"
)

// Entity type names as registered in the schema.
const (
	EntityArticle = "Article"
	EntityComment = "ArticleComment"

	// RelationComments links Article to ArticleComment.article_id.
	RelationComments = "comments"
)

// Article is a titled text.
type Article struct {
	entity.BaseEntity
	entity.CascadeMark

	Title   string `db:"title" json:"title" validate:"required,max=100"`
	Content string `db:"content" json:"content"`
}

// NewArticle creates a new Article.
func NewArticle(title, content string) *Article {
	return &Article{
		BaseEntity: entity.NewBaseEntity(),
		Title:      title,
		Content:    content,
	}
}

// Validate implements entity.Validatable interface.
func (a *Article) Validate(ctx context.Context) error {
	return entity.ValidateStruct(a)
}

// Comment belongs to exactly one Article.
type Comment struct {
	entity.BaseEntity
	entity.CascadeMark

	ArticleID id.ID  `db:"article_id" json:"articleId" validate:"required"`
	Text      string `db:"text" json:"text"`
}

// NewComment creates a comment for the given article.
func NewComment(articleID id.ID, text string) *Comment {
	return &Comment{
		BaseEntity: entity.NewBaseEntity(),
		ArticleID:  articleID,
		Text:       text,
	}
}

// Validate implements entity.Validatable interface.
func (c *Comment) Validate(ctx context.Context) error {
	return entity.ValidateStruct(c)
}
