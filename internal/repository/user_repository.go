package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/smart-attendance/internal/models"
)

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

// UserRepository provides database access for users and their cards.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE email = ? LIMIT 1`)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, strings.ToLower(email)); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ? LIMIT 1`)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	baseQuery := `FROM users WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Role != nil {
		conditions = append(conditions, "role = ?")
		args = append(args, *filter.Role)
	}
	if filter.Search != "" {
		conditions = append(conditions, `(LOWER(email) LIKE ? ESCAPE '\' OR LOWER(name) LIKE ? ESCAPE '\')`)
		pattern := containsPattern(filter.Search)
		args = append(args, pattern, pattern)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := r.db.Rebind(fmt.Sprintf("SELECT %s %s ORDER BY name ASC, id ASC LIMIT %d OFFSET %d", userColumns, baseQuery, pageSize, offset))
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) "+baseQuery), args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	return users, total, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.Email = strings.ToLower(user.Email)

	const query = `INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at) VALUES (:id, :name, :email, :password_hash, :role, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return translateWriteErr("create user", err)
	}
	return nil
}

// UpdateRole changes the role of a user, the only mutable attribute.
func (r *UserRepository) UpdateRole(ctx context.Context, id string, role models.UserRole) error {
	query := r.db.Rebind(`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, role, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AssignCard binds a card to a user, replacing any card the user held before.
func (r *UserRepository) AssignCard(ctx context.Context, card *models.UserCard) error {
	if card.AssignedAt.IsZero() {
		card.AssignedAt = time.Now().UTC()
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assign card: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM user_cards WHERE user_id = ?`), card.UserID); err != nil {
		return fmt.Errorf("release previous card: %w", err)
	}
	const insert = `INSERT INTO user_cards (card_id, user_id, assigned_at) VALUES (:card_id, :user_id, :assigned_at)`
	if _, err := tx.NamedExecContext(ctx, insert, card); err != nil {
		return translateWriteErr("assign card", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assign card: %w", err)
	}
	commit = true
	return nil
}

// FindUserIDByCard resolves a card identifier to its owner.
func (r *UserRepository) FindUserIDByCard(ctx context.Context, cardID string) (string, error) {
	query := r.db.Rebind(`SELECT user_id FROM user_cards WHERE card_id = ?`)
	var userID string
	if err := r.db.GetContext(ctx, &userID, query, cardID); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("find card owner: %w", err)
	}
	return userID, nil
}
