package pgrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/billing"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/storage/database"
)

var (
	invoiceColumns = []string{
		"id", "number", "student_id", "enrollment_id", "currency", "total", "amount_paid", "status", "due_date", "issued_at", "updated_at",
	}
	invoiceLineColumns = []string{"id", "invoice_id", "position", "description", "quantity", "unit_amount", "amount"}
	invoiceOrdering    = map[string]string{
		"number":    "number",
		"total":     "total",
		"status":    "status",
		"due_date":  "due_date",
		"issued_at": "issued_at",
	}
	paymentColumns = []string{"id", "invoice_id", "amount", "method", "reference", "recorded_by", "paid_at"}
)

type billingRepository struct {
	db database.Querier
}

func NewBillingRepository(db database.Querier) billing.Repository {
	return &billingRepository{db: db}
}

func (repo *billingRepository) NextInvoiceSeq(ctx context.Context, year int) (int, error) {
	query, args, err := psql.Insert("invoice_sequences").Columns("year", "last_seq").Values(year, 1).
		Suffix("ON CONFLICT (year) DO UPDATE SET last_seq = invoice_sequences.last_seq + 1 RETURNING last_seq").
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	var seq int
	if err = database.Conn(ctx, repo.db).QueryRow(ctx, query, args...).Scan(&seq); err != nil {
		return 0, errors.Wrap(err, "incrementing invoice sequence")
	}
	return seq, nil
}

func (repo *billingRepository) CreateInvoice(ctx context.Context, inv billing.Invoice) (billing.Invoice, error) {
	err := withinTx(ctx, repo.db, func(ctx context.Context) error {
		qb := psql.Insert("invoices").Columns(invoiceColumns...).Values(
			inv.ID, inv.Number, inv.StudentID, inv.EnrollmentID, inv.Currency, inv.Total, inv.AmountPaid,
			inv.Status, inv.DueDate, inv.IssuedAt, inv.UpdatedAt,
		)
		if _, err := exec(ctx, repo.db, qb); err != nil {
			return errors.Wrap(err, "inserting invoice")
		}
		if len(inv.Lines) == 0 {
			return nil
		}
		ins := psql.Insert("invoice_lines").Columns(invoiceLineColumns...)
		for _, l := range inv.Lines {
			ins = ins.Values(l.ID, inv.ID, l.Position, l.Description, l.Quantity, l.UnitAmount, l.Amount)
		}
		_, err := exec(ctx, repo.db, ins)
		return errors.Wrap(err, "inserting invoice lines")
	})
	if err != nil {
		return billing.Invoice{}, err
	}
	return inv, nil
}

// withLines loads the lines of invs.
func (repo *billingRepository) withLines(ctx context.Context, invs []billing.Invoice) error {
	if len(invs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(invs))
	for _, inv := range invs {
		ids = append(ids, inv.ID)
	}
	var lines []billing.InvoiceLine
	qb := psql.Select(invoiceLineColumns...).From("invoice_lines").
		Where(sq.Eq{"invoice_id": ids}).
		OrderBy("invoice_id", "position")
	if err := selectAll(ctx, repo.db, &lines, qb); err != nil {
		return errors.Wrap(err, "querying invoice lines")
	}

	byInvoice := make(map[string][]billing.InvoiceLine, len(invs))
	for _, l := range lines {
		byInvoice[l.InvoiceID] = append(byInvoice[l.InvoiceID], l)
	}
	for i := range invs {
		invs[i].Lines = byInvoice[invs[i].ID]
		if invs[i].Lines == nil {
			invs[i].Lines = []billing.InvoiceLine{}
		}
	}
	return nil
}

func (repo *billingRepository) QueryInvoices(ctx context.Context, filter billing.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]billing.Invoice, error) {
	qb := psql.Select(invoiceColumns...).From("invoices")
	if filter.StudentID != "" {
		qb = qb.Where(sq.Eq{"student_id": filter.StudentID})
	}
	if filter.EnrollmentID != "" {
		qb = qb.Where(sq.Eq{"enrollment_id": filter.EnrollmentID})
	}
	if len(filter.Statuses) > 0 {
		qb = qb.Where(sq.Eq{"status": filter.Statuses})
	}
	if filter.DueBefore != nil {
		qb = qb.Where(sq.Eq{"status": billing.UnpaidStatuses}).Where(sq.Lt{"due_date": *filter.DueBefore})
	}
	qb = qb.OrderBy(orderClauses(ordering, invoiceOrdering, core.DBOrdering{Field: "issued_at"}, core.DBOrdering{Field: "number"})...)

	invs := make([]billing.Invoice, 0)
	if err := selectAll(ctx, repo.db, &invs, paginate(qb, page)); err != nil {
		return nil, errors.Wrap(err, "querying invoices")
	}
	if err := repo.withLines(ctx, invs); err != nil {
		return nil, err
	}
	return invs, nil
}

func (repo *billingRepository) GetInvoice(ctx context.Context, id string) (billing.Invoice, error) {
	if !isUUID(id) {
		return billing.Invoice{}, billing.ErrNotFound
	}
	var inv billing.Invoice
	qb := psql.Select(invoiceColumns...).From("invoices").Where(sq.Eq{"id": id})
	if err := getOne(ctx, repo.db, &inv, qb, billing.ErrNotFound); err != nil {
		return billing.Invoice{}, err
	}
	invs := []billing.Invoice{inv}
	if err := repo.withLines(ctx, invs); err != nil {
		return billing.Invoice{}, err
	}
	return invs[0], nil
}

func (repo *billingRepository) GetInvoiceForUpdate(ctx context.Context, id string) (billing.Invoice, error) {
	if !isUUID(id) {
		return billing.Invoice{}, billing.ErrNotFound
	}
	var inv billing.Invoice
	qb := psql.Select(invoiceColumns...).From("invoices").Where(sq.Eq{"id": id}).Suffix("FOR UPDATE")
	if err := getOne(ctx, repo.db, &inv, qb, billing.ErrNotFound); err != nil {
		return billing.Invoice{}, err
	}
	invs := []billing.Invoice{inv}
	if err := repo.withLines(ctx, invs); err != nil {
		return billing.Invoice{}, err
	}
	return invs[0], nil
}

// UpdateInvoice only updates the settlement of the invoice: status, amount paid & update time.
func (repo *billingRepository) UpdateInvoice(ctx context.Context, inv billing.Invoice) (billing.Invoice, error) {
	qb := psql.Update("invoices").SetMap(map[string]interface{}{
		"status":      inv.Status,
		"amount_paid": inv.AmountPaid,
		"updated_at":  inv.UpdatedAt,
	}).Where(sq.Eq{"id": inv.ID})
	if err := execOne(ctx, repo.db, qb, billing.ErrNotFound); err != nil {
		if isCheckViolation(err) {
			return billing.Invoice{}, billing.ErrOverpayment
		}
		return billing.Invoice{}, err
	}
	return repo.GetInvoice(ctx, inv.ID)
}

func (repo *billingRepository) CreatePayment(ctx context.Context, p billing.Payment) (billing.Payment, error) {
	qb := psql.Insert("payments").Columns(paymentColumns...).Values(
		p.ID, p.InvoiceID, p.Amount, p.Method, p.Reference, p.RecordedBy, p.PaidAt,
	)
	if _, err := exec(ctx, repo.db, qb); err != nil {
		if isForeignKeyViolation(err) {
			return billing.Payment{}, billing.ErrNotFound
		}
		return billing.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return p, nil
}

func (repo *billingRepository) QueryPayments(ctx context.Context, invoiceID string) ([]billing.Payment, error) {
	pmts := make([]billing.Payment, 0)
	if !isUUID(invoiceID) {
		return pmts, nil
	}
	qb := psql.Select(paymentColumns...).From("payments").Where(sq.Eq{"invoice_id": invoiceID}).OrderBy("paid_at")
	if err := selectAll(ctx, repo.db, &pmts, qb); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	return pmts, nil
}
