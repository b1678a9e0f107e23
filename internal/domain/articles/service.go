package articles

import (
	"context"

	"paranoid/internal/core/apperror"
	"paranoid/internal/core/tx"
	"paranoid/internal/domain"
	"paranoid/internal/domain/filter"
	"paranoid/internal/domain/softdelete"
)

// Service bundles the article and comment entity services.
type Service struct {
	Articles *domain.EntityService[*Article]
	Comments *domain.EntityService[*Comment]
}

// NewService creates the articles service.
func NewService(
	articleRepo domain.Repository[*Article],
	commentRepo domain.Repository[*Comment],
	operator *softdelete.Operator,
	txm tx.Manager,
) *Service {
	return &Service{
		Articles: domain.NewEntityService(domain.EntityServiceConfig[*Article]{
			EntityName: EntityArticle,
			Repo:       articleRepo,
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

// CommentsOf returns the visible comments of an article. The article itself
// may be deleted.
func (s *Service) CommentsOf(ctx context.Context, a *Article) ([]*Comment, error) {
	return s.Comments.DependentsOf(ctx, EntityArticle, RelationComments, a.ID)
}

// CommentsOfWithDeleted returns every comment of an article.
func (s *Service) CommentsOfWithDeleted(ctx context.Context, a *Article) ([]*Comment, error) {
	return s.Comments.DependentsOfWithDeleted(ctx, EntityArticle, RelationComments, a.ID)
}

// CommentCountFor counts the article's visible comments. The article's own
// marker is not consulted, so the count survives deleting the article.
func (s *Service) CommentCountFor(ctx context.Context, a *Article) (int64, error) {
	return s.Comments.Count(ctx, filter.Eq("article_id", a.ID))
}

// CommentByArticleTitle returns the first visible comment whose article has
// the given title. The article is resolved in any marker state.
func (s *Service) CommentByArticleTitle(ctx context.Context, title string) (*Comment, error) {
	parents, err := s.Articles.AllWithDeleted(ctx, filter.Eq("title", title))
	if err != nil {
		return nil, err
	}
	if len(parents) == 0 {
		return nil, apperror.NewNotFound(EntityComment, nil).WithDetail("articleTitle", title)
	}

	ids := make([]any, 0, len(parents))
	for _, p := range parents {
		ids = append(ids, p.ID)
	}
	c, err := s.Comments.Get(ctx, filter.In("article_id", ids))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound(EntityComment, nil).WithDetail("articleTitle", title)
		}
		return nil, err
	}
	return c, nil
}
