// Package accounts provides the User / UserLogin pair. Both types use the
// CASCADE policy: deleting a user deletes its logins, and restoring the user
// brings back exactly those logins.
package accounts

import (
	"context"
	"time"

	"paranoid/internal/core/entity"
	"paranoid/internal/core/id"
)

const (
	EntityUser  = "User"
	EntityLogin = "UserLogin"

	// RelationLogins links User to UserLogin.user_id.
	RelationLogins = "logins"
)

// User is an account holder.
type User struct {
	entity.BaseEntity
	entity.CascadeMark

	FullName string `db:"full_name" json:"fullName" validate:"required,max=100"`
	Email    string `db:"email" json:"email" validate:"required,max=100"`
}

// NewUser creates a new User.
func NewUser(fullName, email string) *User {
	return &User{
		BaseEntity: entity.NewBaseEntity(),
		FullName:   fullName,
		Email:      email,
	}
}

// Validate implements entity.Validatable interface.
func (u *User) Validate(ctx context.Context) error {
	return entity.ValidateStruct(u)
}

// UserLogin records one login of a user.
type UserLogin struct {
	entity.BaseEntity
	entity.CascadeMark

	UserID    id.ID     `db:"user_id" json:"userId" validate:"required"`
	LoginTime time.Time `db:"login_time" json:"loginTime"`
}

// NewUserLogin creates a login stamped with the current time.
func NewUserLogin(userID id.ID) *UserLogin {
	return &UserLogin{
		BaseEntity: entity.NewBaseEntity(),
		UserID:     userID,
		LoginTime:  entity.Now(),
	}
}

// Validate implements entity.Validatable interface.
func (l *UserLogin) Validate(ctx context.Context) error {
	return entity.ValidateStruct(l)
}
