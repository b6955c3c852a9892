package pgrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/user"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/storage/database"
)

var (
	userColumns = []string{
		"id", "name", "username", "email", "is_active", "roles", "password_hash", "created_at", "updated_at", "last_login",
	}
	userOrdering = map[string]string{
		"name":       "lower(name)",
		"username":   "username",
		"email":      "email",
		"is_active":  "is_active",
		"created_at": "created_at",
		"updated_at": "updated_at",
		"last_login": "last_login",
	}
)

type userRow struct {
	ID           string     `db:"id"`
	Name         string     `db:"name"`
	Username     string     `db:"username"`
	Email        string     `db:"email"`
	IsActive     bool       `db:"is_active"`
	Roles        []string   `db:"roles"`
	PasswordHash []byte     `db:"password_hash"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	LastLogin    *time.Time `db:"last_login"`
}

func (r userRow) toUser() user.User {
	usr := user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username,
		Email:        r.Email,
		Roles:        r.Roles,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if usr.Roles == nil {
		usr.Roles = []string{}
	}
	if r.LastLogin != nil {
		usr.LastLogin = r.LastLogin.UTC()
	}
	usr.SetActive(r.IsActive)
	return usr
}

func lastLogin(usr user.User) *time.Time {
	if usr.LastLogin.IsZero() {
		return nil
	}
	return core.TimePtr(usr.LastLogin)
}

func nonNilRoles(roles []string) []string {
	if roles == nil {
		return []string{}
	}
	return roles
}

type userRepository struct {
	db database.Querier
}

func NewUserRepository(db database.Querier) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User) error {
	or := sq.Or{}
	if username != "" {
		or = append(or, sq.Eq{"username": username})
	}
	if email != "" {
		or = append(or, sq.Eq{"email": email})
	}
	if len(or) == 0 {
		return nil
	}
	qb := psql.Select("username", "email").From("users").Where(or).Limit(1)
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		qb = qb.Where(sq.NotEq{"id": ids})
	}

	var rows []struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	if err := selectAll(ctx, repo.db, &rows, qb); err != nil {
		return errors.Wrap(err, "checking uniqueness")
	}
	if len(rows) == 0 {
		return nil
	}
	switch {
	case username != "" && rows[0].Username == username:
		return user.ErrUsernameExists
	case email != "" && rows[0].Email == email:
		return user.ErrEmailExists
	default:
		return user.ErrUserExists
	}
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.NewString()
	}
	qb := psql.Insert("users").Columns(userColumns...).Values(
		usr.ID, usr.Name, usr.Username, usr.Email, usr.Active(), nonNilRoles(usr.Roles), usr.PasswordHash,
		usr.CreatedAt, usr.UpdatedAt, lastLogin(usr),
	)
	if _, err := exec(ctx, repo.db, qb); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUserExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	qb := psql.Select(userColumns...).From("users")
	if filter != nil {
		if filter.IDs != nil {
			qb = qb.Where(sq.Eq{"id": filter.IDs})
		}
		if filter.Search != "" {
			qb = qb.Where(ilike(filter.Search, "name", "username", "email"))
		}
		if filter.IsActive != nil {
			qb = qb.Where(sq.Eq{"is_active": *filter.IsActive})
		}
		if len(filter.Roles) > 0 {
			or := make(sq.Or, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				or = append(or, sq.Expr("EXISTS (SELECT 1 FROM unnest(roles) r WHERE r LIKE ?)", escapeLike(role)+"%"))
			}
			qb = qb.Where(or)
		}
		if !filter.CreatedFrom.IsZero() {
			qb = qb.Where(sq.GtOrEq{"created_at": filter.CreatedFrom.UTC()})
		}
		if !filter.CreatedTo.IsZero() {
			qb = qb.Where(sq.LtOrEq{"created_at": filter.CreatedTo.UTC()})
		}
	}
	qb = qb.OrderBy(orderClauses(ordering, userOrdering, core.DBOrdering{Field: "created_at"})...)

	var rows []userRow
	if err := selectAll(ctx, repo.db, &rows, qb); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	qb := psql.Select(userColumns...).From("users").Limit(1)
	switch {
	case filter.ID != "":
		if !isUUID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		qb = qb.Where(sq.Eq{"id": filter.ID})
	case filter.Username != "":
		qb = qb.Where(sq.Eq{"username": filter.Username})
	case filter.Email != "":
		qb = qb.Where(sq.Eq{"email": filter.Email})
	case filter.UsernameOrEmail != "":
		qb = qb.Where(sq.Or{sq.Eq{"username": filter.UsernameOrEmail}, sq.Eq{"email": filter.UsernameOrEmail}})
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := getOne(ctx, repo.db, &row, qb, user.ErrNotFound); err != nil {
		return user.User{}, err
	}
	return row.toUser(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	qb := psql.Update("users").SetMap(map[string]interface{}{
		"name":          usr.Name,
		"username":      usr.Username,
		"email":         usr.Email,
		"is_active":     usr.Active(),
		"roles":         nonNilRoles(usr.Roles),
		"password_hash": usr.PasswordHash,
		"updated_at":    usr.UpdatedAt,
		"last_login":    lastLogin(usr),
	}).Where(sq.Eq{"id": usr.ID})
	if err := execOne(ctx, repo.db, qb, user.ErrNotFound); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUserExists
		}
		return user.User{}, err
	}
	return usr, nil
}

// UpdateOrCreateUser upserts on the username, or on the email when the user has no username.
func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	filter := user.GetFilter{Username: usr.Username}
	if usr.Username == "" {
		filter = user.GetFilter{Email: usr.Email}
	}
	existing, err := repo.GetUser(ctx, filter)
	switch {
	case err == nil:
		usr.ID = existing.ID
		usr.CreatedAt = existing.CreatedAt
		return repo.UpdateUser(ctx, usr)
	case core.IsNotFound(err):
		return repo.CreateUser(ctx, usr)
	default:
		return user.User{}, err
	}
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids []string) (int, error) {
	n, err := exec(ctx, repo.db, psql.Delete("users").Where(sq.Eq{"id": ids}))
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(n), nil
}
