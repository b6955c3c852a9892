// Package pgrepos implements the repositories on Postgres with pgx, scany & squirrel.
package pgrepos

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/storage/database"
)

const (
	// Postgres error codes
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
	codeCheckViolation      = "23514"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// orderClauses maps ordering onto `columns` (api field -> column); unknown fields are ignored.
func orderClauses(ordering []core.DBOrdering, columns map[string]string, fallback ...core.DBOrdering) []string {
	clauses := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		col, ok := columns[ord.Field]
		if !ok {
			continue
		}
		clauses = append(clauses, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(clauses) == 0 {
		for _, ord := range fallback {
			if col, ok := columns[ord.Field]; ok {
				clauses = append(clauses, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
			}
		}
	}
	return clauses
}

func paginate(qb sq.SelectBuilder, page core.Pagination) sq.SelectBuilder {
	if page.IsZero() {
		return qb
	}
	return qb.Limit(uint64(page.Limit())).Offset(uint64(page.Offset()))
}

// ilike matches `search` case-insensitively against any of columns.
func ilike(search string, columns ...string) sq.Or {
	pattern := "%" + escapeLike(search) + "%"
	or := make(sq.Or, 0, len(columns))
	for _, col := range columns {
		or = append(or, sq.ILike{col: pattern})
	}
	return or
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// isUUID guards lookups by id: Postgres rejects malformed uuids instead of finding nothing.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func selectAll(ctx context.Context, db database.Querier, dst interface{}, qb sq.Sqlizer) error {
	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return pgxscan.Select(ctx, database.Conn(ctx, db), dst, query, args...)
}

// getOne scans a single row into dst, returning notFound when there is none.
func getOne(ctx context.Context, db database.Querier, dst interface{}, qb sq.Sqlizer, notFound error) error {
	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if err = pgxscan.Get(ctx, database.Conn(ctx, db), dst, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return notFound
		}
		return err
	}
	return nil
}

// exec runs qb and returns the number of affected rows.
func exec(ctx context.Context, db database.Querier, qb sq.Sqlizer) (int64, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	tag, err := database.Conn(ctx, db).Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// execOne runs qb and returns notFound if no row was affected.
func execOne(ctx context.Context, db database.Querier, qb sq.Sqlizer, notFound error) error {
	n, err := exec(ctx, db, qb)
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func count(ctx context.Context, db database.Querier, qb sq.SelectBuilder) (int, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	var n int
	err = database.Conn(ctx, db).QueryRow(ctx, query, args...).Scan(&n)
	return n, err
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isForeignKeyViolation(err error) bool { return pgErrorCode(err) == codeForeignKeyViolation }

func isUniqueViolation(err error) bool { return pgErrorCode(err) == codeUniqueViolation }

func isCheckViolation(err error) bool { return pgErrorCode(err) == codeCheckViolation }

// withinTx runs fn in the transaction carried by ctx, or in a new one.
func withinTx(ctx context.Context, db database.Querier, fn func(ctx context.Context) error) error {
	return database.NewTransactor(db).WithinTx(ctx, fn)
}
