package store

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"

	"github.com/nileshj/vibelink/pkg/model"
)

func (s *Scylla) SaveUser(ctx context.Context, u model.User) error {
	q := `INSERT INTO users (user_id, username, full_name, profile_picture) VALUES (?, ?, ?, ?)`
	if err := s.session.Query(q, u.ID, u.Username, u.FullName, u.ProfilePicture).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *Scylla) UserByID(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := s.session.Query(
		`SELECT user_id, username, full_name, profile_picture FROM users WHERE user_id = ?`,
		id).WithContext(ctx).Scan(&u.ID, &u.Username, &u.FullName, &u.ProfilePicture)
	if err == gocql.ErrNotFound {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("read user: %w", err)
	}
	return u, nil
}
