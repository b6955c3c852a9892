package inmemdb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/user"
)

var userOrdering = map[string]comparator[user.User]{
	"name":       func(a, b user.User) int { return cmpFold(a.Name, b.Name) },
	"is_active":  func(a, b user.User) int { return cmpBool(a.Active(), b.Active()) },
	"username":   func(a, b user.User) int { return cmpString(a.Username, b.Username) },
	"email":      func(a, b user.User) int { return cmpString(a.Email, b.Email) },
	"created_at": func(a, b user.User) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	"updated_at": func(a, b user.User) int { return cmpTime(a.UpdatedAt, b.UpdatedAt) },
	"last_login": func(a, b user.User) int { return cmpTime(a.LastLogin, b.LastLogin) },
}

type userRepository struct {
	db *DB
}

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func copyUser(usr user.User) user.User {
	usr.Roles = copyStrings(usr.Roles)
	if usr.PasswordHash != nil {
		usr.PasswordHash = append([]byte(nil), usr.PasswordHash...)
	}
	if usr.IsActive != nil {
		usr.SetActive(*usr.IsActive)
	}
	return usr
}

func isExcluded(usr user.User, excludedUsers []user.User) bool {
	for _, excl := range excludedUsers {
		if excl.ID == usr.ID {
			return true
		}
	}
	return false
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excludedUsers []user.User) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.db.tables.users {
		if isExcluded(usr, excludedUsers) {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if usr.ID == "" {
		usr.ID = uuid.NewString()
	}
	repo.db.tables.users[usr.ID] = copyUser(usr)
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter == nil {
		filter = &user.QueryFilter{}
	}
	users := make([]user.User, 0)
	for _, usr := range repo.db.tables.users {
		if filter.IDs != nil && !core.ContainsString(filter.IDs, usr.ID) {
			continue
		}
		if !matches(filter.Search, usr.Name, usr.Username, usr.Email) {
			continue
		}
		if filter.IsActive != nil && usr.Active() != *filter.IsActive {
			continue
		}
		if len(filter.Roles) > 0 && !hasRolePrefix(usr.Roles, filter.Roles) {
			continue
		}
		if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom.UTC()) {
			continue
		}
		if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo.UTC()) {
			continue
		}
		users = append(users, copyUser(usr))
	}
	orderBy(users, ordering, userOrdering, core.DBOrdering{Field: "created_at"})
	return users, nil
}

func hasRolePrefix(roles, prefixes []string) bool {
	for _, role := range roles {
		for _, prefix := range prefixes {
			if strings.HasPrefix(role, prefix) {
				return true
			}
		}
	}
	return false
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.tables.users[filter.ID]; ok {
			return copyUser(usr), nil
		}
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.db.tables.users {
		switch {
		case filter.Username != "" && usr.Username == filter.Username,
			filter.Email != "" && usr.Email == filter.Email,
			filter.UsernameOrEmail != "" && (usr.Username == filter.UsernameOrEmail || usr.Email == filter.UsernameOrEmail):
			return copyUser(usr), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tables.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.tables.users[usr.ID] = copyUser(usr)
	return usr, nil
}

// UpdateOrCreateUser updates the user having the same username (or email when it has none), or creates it.
func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	for id, existing := range repo.db.tables.users {
		if (usr.Username != "" && existing.Username == usr.Username) || (usr.Username == "" && usr.Email != "" && existing.Email == usr.Email) {
			usr.ID = id
			usr.CreatedAt = existing.CreatedAt
			repo.db.tables.users[id] = copyUser(usr)
			repo.db.mutex.Unlock()
			return usr, nil
		}
	}
	repo.db.mutex.Unlock()
	return repo.CreateUser(ctx, usr)
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids []string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.tables.users[id]; ok {
			delete(repo.db.tables.users, id)
			n++
		}
	}
	return n, nil
}
