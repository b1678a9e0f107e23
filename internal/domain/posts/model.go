// Package posts provides the Post / Comment pair stored with the paranoid
// style marker (a single deleted_at column).
package posts

import (
	"context"

	"paranoid/internal/core/entity"
	"paranoid/internal/core/id"
)

const (
	EntityPost    = "Post"
	EntityComment = "PostComment"

	// RelationComments links Post to PostComment.post_id.
	RelationComments = "comments"
)

// Post is a titled entry with a short description.
type Post struct {
	entity.BaseEntity
	entity.TimestampMark

	Title       string `db:"title" json:"title" validate:"required,max=255"`
	Description string `db:"description" json:"description" validate:"max=500"`
}

// NewPost creates a new Post.
func NewPost(title, description string) *Post {
	return &Post{
		BaseEntity:  entity.NewBaseEntity(),
		Title:       title,
		Description: description,
	}
}

// Validate implements entity.Validatable interface.
func (p *Post) Validate(ctx context.Context) error {
	return entity.ValidateStruct(p)
}

// Comment belongs to exactly one Post. Text is optional.
type Comment struct {
	entity.BaseEntity
	entity.TimestampMark

	PostID id.ID   `db:"post_id" json:"postId" validate:"required"`
	Text   *string `db:"text" json:"text,omitempty"`
}

// NewComment creates a comment for the given post.
func NewComment(postID id.ID, text string) *Comment {
	return &Comment{
		BaseEntity: entity.NewBaseEntity(),
		PostID:     postID,
		Text:       &text,
	}
}

// Validate implements entity.Validatable interface.
func (c *Comment) Validate(ctx context.Context) error {
	return entity.ValidateStruct(c)
}
