package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/entity"
)

const userSelectColumns = `id, name, email, password_hash, is_verified, last_login,
		       nickname, description, phone, website, github_url, location, birth_date,
		       created_at, updated_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, is_verified, last_login, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.IsVerified,
		user.LastLogin,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return translateError(err)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `
		SELECT ` + userSelectColumns + `
		FROM users WHERE email = ?
	`
	return r.findOne(ctx, query, email)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	query := `
		SELECT ` + userSelectColumns + `
		FROM users WHERE id = ?
	`
	return r.findOne(ctx, query, id)
}

func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	query := `
		UPDATE users SET
			name = ?,
			email = ?,
			password_hash = ?,
			is_verified = ?,
			nickname = ?,
			description = ?,
			phone = ?,
			website = ?,
			github_url = ?,
			location = ?,
			birth_date = ?,
			updated_at = ?
		WHERE id = ?
	`
	user.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.IsVerified,
		user.Nickname,
		user.Description,
		user.Phone,
		user.Website,
		user.GithubURL,
		user.Location,
		user.BirthDate,
		user.UpdatedAt,
		user.ID,
	)
	return translateError(err)
}

func (r *UserRepository) UpdateVerified(ctx context.Context, id string, verified bool) error {
	query := `UPDATE users SET is_verified = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, verified, time.Now(), id)
	return err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, passwordHash, time.Now(), id)
	return err
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, lastLogin time.Time) error {
	query := `UPDATE users SET last_login = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, lastLogin, id)
	return err
}

func (r *UserRepository) Delete(ctx context.Context, id string) (int64, error) {
	query := `DELETE FROM users WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.User, error) {
	user := &entity.User{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.IsVerified,
		&user.LastLogin,
		&user.Nickname,
		&user.Description,
		&user.Phone,
		&user.Website,
		&user.GithubURL,
		&user.Location,
		&user.BirthDate,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
