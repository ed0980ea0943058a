package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smart-attendance/internal/dto"
	"github.com/noah-isme/smart-attendance/internal/models"
	"github.com/noah-isme/smart-attendance/internal/repository"
	appErrors "github.com/noah-isme/smart-attendance/pkg/errors"
)

type mockUserRepo struct {
	users      map[string]*models.User
	cards      map[string]string
	lastFilter models.UserFilter
}

func (m *mockUserRepo) List(_ context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.lastFilter = filter
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) UpdateRole(_ context.Context, id string, role models.UserRole) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Role = role
	return nil
}

func (m *mockUserRepo) AssignCard(_ context.Context, card *models.UserCard) error {
	if owner, ok := m.cards[card.CardID]; ok && owner != card.UserID {
		return fmt.Errorf("assign card: %w", repository.ErrDuplicate)
	}
	for id, owner := range m.cards {
		if owner == card.UserID {
			delete(m.cards, id)
		}
	}
	m.cards[card.CardID] = card.UserID
	return nil
}

func (m *mockUserRepo) FindUserIDByCard(_ context.Context, cardID string) (string, error) {
	if owner, ok := m.cards[cardID]; ok {
		return owner, nil
	}
	return "", sql.ErrNoRows
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users: map[string]*models.User{
			"u-amit":  {ID: "u-amit", Name: "Amit", Role: models.RoleStudent},
			"u-priya": {ID: "u-priya", Name: "Priya", Role: models.RoleStudent},
		},
		cards: map[string]string{},
	}
}

func TestUserServiceListClampsPaging(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, nil, nil)

	users, pagination, err := svc.List(context.Background(), models.UserFilter{PageSize: 1000})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, repo.lastFilter.PageSize)

	bad := models.UserRole("janitor")
	_, _, err = svc.List(context.Background(), models.UserFilter{Role: &bad})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestUserServiceUpdateRole(t *testing.T) {
	svc := NewUserService(newMockUserRepo(), nil, nil)

	user, err := svc.UpdateRole(context.Background(), "u-amit", dto.UpdateRoleRequest{Role: models.RoleTeacher})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, user.Role)

	_, err = svc.UpdateRole(context.Background(), "ghost", dto.UpdateRoleRequest{Role: models.RoleTeacher})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.UpdateRole(context.Background(), "u-amit", dto.UpdateRoleRequest{Role: "root"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestUserServiceCards(t *testing.T) {
	svc := NewUserService(newMockUserRepo(), nil, nil)

	_, err := svc.AssignCard(context.Background(), "u-amit", dto.AssignCardRequest{CardID: " 04:A2:19 "})
	require.NoError(t, err)

	owner, err := svc.ResolveCard(context.Background(), "04:A2:19")
	require.NoError(t, err)
	assert.Equal(t, "u-amit", owner)

	_, err = svc.AssignCard(context.Background(), "u-priya", dto.AssignCardRequest{CardID: "04:A2:19"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	owner, err = svc.ResolveCard(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Empty(t, owner)

	_, err = svc.AssignCard(context.Background(), "ghost", dto.AssignCardRequest{CardID: "X"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
