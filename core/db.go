package core

import (
	"context"
	"sync"
)

// Transactor runs fn inside a database transaction.
// The transaction travels in the context given to fn; repositories pick it up from there.
// The transaction is rolled back if fn returns an error, committed otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type (
	commitHooksKey struct{}

	// CommitHooks holds the functions deferred by AfterCommit during one transaction.
	CommitHooks struct {
		mu  sync.Mutex
		fns []func()
	}
)

// WithCommitHooks returns a context in which AfterCommit defers to the returned hooks.
// Transactor implementations call it when beginning the outermost transaction and Run the hooks once it commits.
func WithCommitHooks(ctx context.Context) (context.Context, *CommitHooks) {
	hooks := &CommitHooks{}
	return context.WithValue(ctx, commitHooksKey{}, hooks), hooks
}

// Run calls the deferred functions in the order they were added.
func (h *CommitHooks) Run() {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// AfterCommit runs fn once the transaction carried by ctx commits, and never if it rolls back.
// Outside of a transaction fn runs right away.
func AfterCommit(ctx context.Context, fn func()) {
	hooks, ok := ctx.Value(commitHooksKey{}).(*CommitHooks)
	if !ok {
		fn()
		return
	}
	hooks.mu.Lock()
	hooks.fns = append(hooks.fns, fn)
	hooks.mu.Unlock()
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// Page limits
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Pagination is a 1-based page request. A zero value means "no pagination".
type Pagination struct {
	Page     int
	PageSize int
}

func (p Pagination) IsZero() bool { return p.Page == 0 && p.PageSize == 0 }

func (p Pagination) Limit() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

func (p Pagination) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Paginate returns the page of items described by p.
func Paginate[T any](items []T, p Pagination) []T {
	if p.IsZero() {
		return items
	}
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.Limit()
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
