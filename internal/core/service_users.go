package core

import (
	"context"
	"eats/pkg/domain"
	"errors"
	"fmt"
	"strconv"
)

// ErrUnknownUser is returned when a username resolves to no stored user.
var ErrUnknownUser = errors.New("unknown user")

// CreateUser stores a new user.
func (s *Service) CreateUser(ctx context.Context, user domain.User) (domain.User, Result, error) {
	var created domain.User
	res, err := s.run(ctx, opCreateUser, func(tx Transaction) (string, error) {
		var err error
		created, err = tx.CreateUser(user)
		return strconv.FormatInt(int64(created.ID), 10), err
	})
	return created, res, err
}

// UpdateUser mutates a user using the provided mutator.
func (s *Service) UpdateUser(ctx context.Context, id ID, mutator func(*domain.User) error) (domain.User, Result, error) {
	var updated domain.User
	res, err := s.run(ctx, opUpdateUser, func(tx Transaction) (string, error) {
		var err error
		updated, err = tx.UpdateUser(id, mutator)
		return strconv.FormatInt(int64(id), 10), err
	})
	return updated, res, err
}

// FindUser looks a user up by username.
func (s *Service) FindUser(ctx context.Context, username string) (domain.User, error) {
	var (
		user domain.User
		ok   bool
	)
	if err := s.view(ctx, "find_user", func(view TransactionView) error {
		user, ok = view.FindUserByName(username)
		return nil
	}); err != nil {
		return domain.User{}, err
	}
	if !ok {
		return domain.User{}, fmt.Errorf("%w: %q", ErrUnknownUser, username)
	}
	return user, nil
}
