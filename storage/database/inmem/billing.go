package inmemdb

import (
	"context"
	"sort"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/billing"
)

var invoiceOrdering = map[string]comparator[billing.Invoice]{
	"number":    func(a, b billing.Invoice) int { return cmpString(a.Number, b.Number) },
	"total":     func(a, b billing.Invoice) int { return cmpInt(a.Total, b.Total) },
	"status":    func(a, b billing.Invoice) int { return cmpString(a.Status, b.Status) },
	"due_date":  func(a, b billing.Invoice) int { return cmpTime(a.DueDate, b.DueDate) },
	"issued_at": func(a, b billing.Invoice) int { return cmpTime(a.IssuedAt, b.IssuedAt) },
}

type billingRepository struct {
	db *DB
}

func NewBillingRepository(db *DB) billing.Repository {
	return &billingRepository{db: db}
}

func copyInvoice(inv billing.Invoice) billing.Invoice {
	inv.Lines = append([]billing.InvoiceLine{}, inv.Lines...)
	if inv.EnrollmentID != nil {
		id := *inv.EnrollmentID
		inv.EnrollmentID = &id
	}
	return inv
}

func (repo *billingRepository) NextInvoiceSeq(_ context.Context, year int) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.tables.invoiceSeqs[year]++
	return repo.db.tables.invoiceSeqs[year], nil
}

func (repo *billingRepository) CreateInvoice(_ context.Context, inv billing.Invoice) (billing.Invoice, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	inv = copyInvoice(inv)
	repo.db.tables.invoices[inv.ID] = inv
	return copyInvoice(inv), nil
}

func (repo *billingRepository) QueryInvoices(_ context.Context, filter billing.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]billing.Invoice, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	invs := make([]billing.Invoice, 0)
	for _, inv := range repo.db.tables.invoices {
		if filter.StudentID != "" && inv.StudentID != filter.StudentID {
			continue
		}
		if filter.EnrollmentID != "" && (inv.EnrollmentID == nil || *inv.EnrollmentID != filter.EnrollmentID) {
			continue
		}
		if len(filter.Statuses) > 0 && !core.ContainsString(filter.Statuses, inv.Status) {
			continue
		}
		if filter.DueBefore != nil && !inv.IsOverdue(*filter.DueBefore) {
			continue
		}
		invs = append(invs, copyInvoice(inv))
	}
	orderBy(invs, ordering, invoiceOrdering, core.DBOrdering{Field: "issued_at"}, core.DBOrdering{Field: "number"})
	return core.Paginate(invs, page), nil
}

func (repo *billingRepository) GetInvoice(_ context.Context, id string) (billing.Invoice, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if inv, ok := repo.db.tables.invoices[id]; ok {
		return copyInvoice(inv), nil
	}
	return billing.Invoice{}, billing.ErrNotFound
}

// GetInvoiceForUpdate needs no lock: the in-memory transactor already serializes transactions.
func (repo *billingRepository) GetInvoiceForUpdate(ctx context.Context, id string) (billing.Invoice, error) {
	return repo.GetInvoice(ctx, id)
}

func (repo *billingRepository) UpdateInvoice(_ context.Context, inv billing.Invoice) (billing.Invoice, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.tables.invoices[inv.ID]
	if !ok {
		return billing.Invoice{}, billing.ErrNotFound
	}
	if inv.AmountPaid < 0 || inv.AmountPaid > orig.Total {
		return billing.Invoice{}, billing.ErrOverpayment
	}
	orig.Status = inv.Status
	orig.AmountPaid = inv.AmountPaid
	orig.UpdatedAt = inv.UpdatedAt
	repo.db.tables.invoices[inv.ID] = orig
	return copyInvoice(orig), nil
}

func (repo *billingRepository) CreatePayment(_ context.Context, p billing.Payment) (billing.Payment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tables.invoices[p.InvoiceID]; !ok {
		return billing.Payment{}, billing.ErrNotFound
	}
	repo.db.tables.payments[p.ID] = p
	return p, nil
}

func (repo *billingRepository) QueryPayments(_ context.Context, invoiceID string) ([]billing.Payment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	pmts := make([]billing.Payment, 0)
	for _, p := range repo.db.tables.payments {
		if p.InvoiceID == invoiceID {
			pmts = append(pmts, p)
		}
	}
	sort.SliceStable(pmts, func(i, j int) bool { return pmts[i].PaidAt.Before(pmts[j].PaidAt) })
	return pmts, nil
}
