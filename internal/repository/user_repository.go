package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agentdesk/internal/model"
)

// UserRepository stores dashboard users (crm_users).
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO crm_users (id, auth_id, full_name, role, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		user.ID,
		user.AuthID,
		user.FullName,
		user.Role,
		user.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByAuthID(ctx context.Context, authID string) (*model.User, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT id, auth_id, full_name, role, created_at
		 FROM crm_users
		 WHERE auth_id = ?`,
		authID,
	)
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT id, auth_id, full_name, role, created_at
		 FROM crm_users
		 WHERE id = ?`,
		id,
	)
	return scanUser(row)
}

func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, auth_id, full_name, role, created_at
		 FROM crm_users
		 ORDER BY full_name, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		user, scanErr := scanUser(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func scanUser(s scanner) (*model.User, error) {
	var user model.User
	var createdAt string
	if err := s.Scan(&user.ID, &user.AuthID, &user.FullName, &user.Role, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	parsedCreatedAt, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse user created_at: %w", err)
	}
	user.CreatedAt = parsedCreatedAt
	return &user, nil
}
