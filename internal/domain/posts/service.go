package posts

import (
	"context"

	"paranoid/internal/core/tx"
	"paranoid/internal/domain"
	"paranoid/internal/domain/softdelete"
)

// Service bundles the post and comment entity services.
type Service struct {
	Posts    *domain.EntityService[*Post]
	Comments *domain.EntityService[*Comment]
}

// NewService creates the posts service.
func NewService(
	postRepo domain.Repository[*Post],
	commentRepo domain.Repository[*Comment],
	operator *softdelete.Operator,
	txm tx.Manager,
) *Service {
	return &Service{
		Posts: domain.NewEntityService(domain.EntityServiceConfig[*Post]{
			EntityName: EntityPost,
			Repo:       postRepo,
			Operator:   operator,
			TxManager:  txm,
		}),
		Comments: domain.NewEntityService(domain.EntityServiceConfig[*Comment]{
			EntityName: EntityComment,
			Repo:       commentRepo,
			Operator:   operator,
			TxManager:  txm,
		}),
	}
}

// CommentsOf returns the visible comments of a post.
func (s *Service) CommentsOf(ctx context.Context, p *Post) ([]*Comment, error) {
	return s.Comments.DependentsOf(ctx, EntityPost, RelationComments, p.ID)
}

// CommentsOfWithDeleted returns every comment of a post.
func (s *Service) CommentsOfWithDeleted(ctx context.Context, p *Post) ([]*Comment, error) {
	return s.Comments.DependentsOfWithDeleted(ctx, EntityPost, RelationComments, p.ID)
}
