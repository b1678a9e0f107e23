package accounts

import (
	"context"

	"paranoid/internal/core/tx"
	"paranoid/internal/domain"
	"paranoid/internal/domain/softdelete"
)

// Service bundles the user and login entity services.
type Service struct {
	Users  *domain.EntityService[*User]
	Logins *domain.EntityService[*UserLogin]
}

// NewService creates the accounts service.
func NewService(
	userRepo domain.Repository[*User],
	loginRepo domain.Repository[*UserLogin],
	operator *softdelete.Operator,
	txm tx.Manager,
) *Service {
	svc := &Service{
		Users: domain.NewEntityService(domain.EntityServiceConfig[*User]{
			EntityName: EntityUser,
			Repo:       userRepo,
			Operator:   operator,
			TxManager:  txm,
		}),
		Logins: domain.NewEntityService(domain.EntityServiceConfig[*UserLogin]{
			EntityName: EntityLogin,
			Repo:       loginRepo,
			Operator:   operator,
			TxManager:  txm,
		}),
	}

	svc.Logins.Hooks().OnBeforeCreate(svc.stampLoginTime)

	return svc
}

// stampLoginTime fills LoginTime when the caller left it zero.
func (s *Service) stampLoginTime(ctx context.Context, l *UserLogin) error {
	if l.LoginTime.IsZero() {
		l.LoginTime = l.CreatedAt
	}
	return nil
}

// LoginsOf returns the visible logins of a user.
func (s *Service) LoginsOf(ctx context.Context, u *User) ([]*UserLogin, error) {
	return s.Logins.DependentsOf(ctx, EntityUser, RelationLogins, u.ID)
}

// LoginsOfWithDeleted returns every login of a user.
func (s *Service) LoginsOfWithDeleted(ctx context.Context, u *User) ([]*UserLogin, error) {
	return s.Logins.DependentsOfWithDeleted(ctx, EntityUser, RelationLogins, u.ID)
}

// Delete soft-deletes the user together with its visible logins.
func (s *Service) Delete(ctx context.Context, u *User) (softdelete.Result, error) {
	return s.Users.Delete(ctx, u)
}

// Undelete restores the user and the logins removed by its deletion.
func (s *Service) Undelete(ctx context.Context, u *User) (softdelete.Result, error) {
	return s.Users.Restore(ctx, u)
}
