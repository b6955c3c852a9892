package inmemdb

import (
	"context"
	"sync"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/billing"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/course"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/enrollment"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/lms"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/notification"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/pricing"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/program"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/user"
)

type (
	// DB is an in-memory store holding every table. All repositories of a DB share its lock.
	DB struct {
		mutex  sync.RWMutex
		txLock sync.Mutex
		tables tables
	}

	tables struct {
		users         map[string]user.User
		programs      map[string]program.Program
		majors        map[string]program.Major
		courses       map[string]course.Course
		classes       map[string]course.Class
		enrollments   map[string]enrollment.Enrollment
		fees          map[string]pricing.Fee
		invoices      map[string]billing.Invoice
		payments      map[string]billing.Payment
		invoiceSeqs   map[int]int
		modules       map[string]lms.Module
		sections      map[string]lms.Section
		contents      map[string]lms.Content
		submissions   map[string]lms.Submission
		notifications map[string]notification.Notification
	}

	txKey struct{}

	transactor struct {
		db *DB
	}
)

func Open() *DB {
	return &DB{tables: newTables()}
}

func newTables() tables {
	return tables{
		users:         make(map[string]user.User),
		programs:      make(map[string]program.Program),
		majors:        make(map[string]program.Major),
		courses:       make(map[string]course.Course),
		classes:       make(map[string]course.Class),
		enrollments:   make(map[string]enrollment.Enrollment),
		fees:          make(map[string]pricing.Fee),
		invoices:      make(map[string]billing.Invoice),
		payments:      make(map[string]billing.Payment),
		invoiceSeqs:   make(map[int]int),
		modules:       make(map[string]lms.Module),
		sections:      make(map[string]lms.Section),
		contents:      make(map[string]lms.Content),
		submissions:   make(map[string]lms.Submission),
		notifications: make(map[string]notification.Notification),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// snapshot copies the tables. Stored values are never mutated in place, so copying the maps suffices.
func (t tables) snapshot() tables {
	return tables{
		users:         cloneMap(t.users),
		programs:      cloneMap(t.programs),
		majors:        cloneMap(t.majors),
		courses:       cloneMap(t.courses),
		classes:       cloneMap(t.classes),
		enrollments:   cloneMap(t.enrollments),
		fees:          cloneMap(t.fees),
		invoices:      cloneMap(t.invoices),
		payments:      cloneMap(t.payments),
		invoiceSeqs:   cloneMap(t.invoiceSeqs),
		modules:       cloneMap(t.modules),
		sections:      cloneMap(t.sections),
		contents:      cloneMap(t.contents),
		submissions:   cloneMap(t.submissions),
		notifications: cloneMap(t.notifications),
	}
}

// Flush empties every table.
func (db *DB) Flush() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.tables = newTables()
}

func NewTransactor(db *DB) core.Transactor {
	return &transactor{db: db}
}

// WithinTx serializes transactions and restores the tables as they were before fn if fn fails.
// The functions given to core.AfterCommit run once fn succeeds.
// Nested calls join the running transaction.
func (tx *transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	txCtx, hooks := core.WithCommitHooks(context.WithValue(ctx, txKey{}, true))
	if err := tx.run(txCtx, fn); err != nil {
		return err
	}
	hooks.Run()
	return nil
}

func (tx *transactor) run(ctx context.Context, fn func(ctx context.Context) error) error {
	tx.db.txLock.Lock()
	defer tx.db.txLock.Unlock()

	tx.db.mutex.RLock()
	saved := tx.db.tables.snapshot()
	tx.db.mutex.RUnlock()

	if err := fn(ctx); err != nil {
		tx.db.mutex.Lock()
		tx.db.tables = saved
		tx.db.mutex.Unlock()
		return err
	}
	return nil
}

func copyStrings(ss []string) []string {
	if ss == nil {
		return nil
	}
	return append([]string(nil), ss...)
}

func containsAny(ss []string, values []string) bool {
	for _, v := range values {
		if core.ContainsString(ss, v) {
			return true
		}
	}
	return false
}
