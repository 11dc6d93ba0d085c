package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agentdesk/internal/model"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO accounts (id, email, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.CreatedAt.UTC().Format(time.RFC3339Nano),
		account.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT id, email, password_hash, created_at, updated_at
		 FROM accounts
		 WHERE email = ?`,
		email,
	)
	return scanAccount(row)
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*model.Account, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT id, email, password_hash, created_at, updated_at
		 FROM accounts
		 WHERE id = ?`,
		id,
	)
	return scanAccount(row)
}

func scanAccount(s scanner) (*model.Account, error) {
	var account model.Account
	var createdAt string
	var updatedAt string
	if err := s.Scan(&account.ID, &account.Email, &account.PasswordHash, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	parsedCreatedAt, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse account created_at: %w", err)
	}
	parsedUpdatedAt, err := parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse account updated_at: %w", err)
	}
	account.CreatedAt = parsedCreatedAt
	account.UpdatedAt = parsedUpdatedAt

	return &account, nil
}
