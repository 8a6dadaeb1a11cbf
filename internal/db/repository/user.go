package repository

import (
	"context"
	"database/sql"

	"gridbase/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, created_on FROM users WHERE username = ?`, username,
	).Scan(&u.ID, &u.Username, &u.CreatedOn)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, username string) (*domain.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username) VALUES (?)`, username)
	if err != nil {
		return nil, mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.getByID(ctx, id)
}

func (r *UserRepo) getByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, created_on FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Username, &u.CreatedOn)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &u, nil
}
