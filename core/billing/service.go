package billing

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/notification"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/user"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("invoice not found")
	ErrInvoiceVoid        = core.NewConflictError("invoice is void")
	ErrInvoicePaid        = core.NewConflictError("invoice is already paid")
	ErrInvoiceHasPayments = core.NewConflictError("invoice has payments")
	ErrOverpayment        = errors.New("amount exceeds the invoice balance")
	errNegativeTotal      = errors.New("invoice total cannot be negative")
	errInvalidStudent     = errors.New("user is not a student")
)

type (
	Repository interface {
		// NextInvoiceSeq returns the next invoice sequence number of year.
		NextInvoiceSeq(ctx context.Context, year int) (int, error)
		// CreateInvoice stores the invoice along with its lines.
		CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
		QueryInvoices(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Invoice, error)
		GetInvoice(ctx context.Context, id string) (Invoice, error)
		// GetInvoiceForUpdate locks the invoice until the transaction carried by ctx ends.
		GetInvoiceForUpdate(ctx context.Context, id string) (Invoice, error)
		// UpdateInvoice saves the invoice status & amount paid.
		// It returns ErrOverpayment when the amount paid would exceed the total.
		UpdateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
		CreatePayment(ctx context.Context, p Payment) (Payment, error)
		QueryPayments(ctx context.Context, invoiceID string) ([]Payment, error)
	}

	Service interface {
		IssueInvoice(ctx context.Context, ni NewInvoice) (Invoice, error)
		QueryInvoices(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Invoice, error)
		GetInvoice(ctx context.Context, id string) (Invoice, error)
		RecordPayment(ctx context.Context, invoiceID string, np NewPayment, recordedBy string) (Payment, error)
		QueryPayments(ctx context.Context, invoiceID string) ([]Payment, error)
		VoidInvoice(ctx context.Context, id string) (Invoice, error)
		StudentBalance(ctx context.Context, studentID string) (Balance, error)
		// RemindOverdue notifies every student with unpaid invoices due before now and returns how many were notified.
		// The emails carry a CSV statement of the overdue invoices.
		RemindOverdue(ctx context.Context, now time.Time) (int, error)
	}

	service struct {
		repo     Repository
		tx       core.Transactor
		users    user.Service
		notifier notification.Service
		conf     *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, tx core.Transactor, users user.Service, notifier notification.Service, conf *core.Config) Service {
	return &service{repo: repo, tx: tx, users: users, notifier: notifier, conf: conf}
}

func invoiceNumber(year, seq int) string {
	return fmt.Sprintf("INV-%d-%06d", year, seq)
}

func (svc *service) IssueInvoice(ctx context.Context, ni NewInvoice) (Invoice, error) {
	student, err := svc.users.GetByID(ctx, ni.StudentID)
	if err != nil {
		if core.IsNotFound(err) {
			return Invoice{}, core.NewValidationError(errInvalidStudent, core.FieldError{Field: "student_id", Error: errInvalidStudent.Error()})
		}
		return Invoice{}, errors.Wrap(err, "getting student")
	}
	if !student.IsStudent() {
		return Invoice{}, core.NewValidationError(errInvalidStudent, core.FieldError{Field: "student_id", Error: errInvalidStudent.Error()})
	}

	now := core.NowFunc()
	inv := Invoice{
		ID:           uuid.NewString(),
		StudentID:    ni.StudentID,
		EnrollmentID: ni.EnrollmentID,
		Currency:     ni.Currency,
		Lines:        make([]InvoiceLine, 0, len(ni.Lines)),
		Status:       StatusOpen,
		DueDate:      now.Add(svc.conf.InvoiceDueDelta),
		IssuedAt:     now,
		UpdatedAt:    now,
	}
	if inv.Currency == "" {
		inv.Currency = svc.conf.Currency
	}
	for i, nl := range ni.Lines {
		line := InvoiceLine{
			ID:          uuid.NewString(),
			InvoiceID:   inv.ID,
			Position:    i + 1,
			Description: nl.Description,
			Quantity:    nl.Quantity,
			UnitAmount:  nl.UnitAmount,
			Amount:      nl.UnitAmount * int64(nl.Quantity),
		}
		inv.Lines = append(inv.Lines, line)
		inv.Total += line.Amount
	}
	if inv.Total < 0 {
		return Invoice{}, core.NewValidationError(errNegativeTotal, core.FieldError{Field: "lines", Error: errNegativeTotal.Error()})
	}
	if inv.Total == 0 {
		inv.Status = StatusPaid
	}

	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		seq, err := svc.repo.NextInvoiceSeq(ctx, now.Year())
		if err != nil {
			return errors.Wrap(err, "getting invoice sequence")
		}
		inv.Number = invoiceNumber(now.Year(), seq)
		inv, err = svc.repo.CreateInvoice(ctx, inv)
		return err
	})
	if err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

func (svc *service) QueryInvoices(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Invoice, error) {
	return svc.repo.QueryInvoices(ctx, filter, ordering, page)
}

func (svc *service) GetInvoice(ctx context.Context, id string) (Invoice, error) {
	return svc.repo.GetInvoice(ctx, id)
}

// RecordPayment records a manual payment of at most the invoice balance and settles the invoice.
func (svc *service) RecordPayment(ctx context.Context, invoiceID string, np NewPayment, recordedBy string) (Payment, error) {
	var (
		pmt Payment
		inv Invoice
	)
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if inv, err = svc.repo.GetInvoiceForUpdate(ctx, invoiceID); err != nil {
			return err
		}
		switch inv.Status {
		case StatusVoid:
			return ErrInvoiceVoid
		case StatusPaid:
			return ErrInvoicePaid
		}
		if np.Amount > inv.Balance() {
			return core.NewValidationError(ErrOverpayment, core.FieldError{Field: "amount", Error: ErrOverpayment.Error()})
		}

		now := core.NowFunc()
		paidAt := now
		if np.PaidAt != nil {
			paidAt = np.PaidAt.UTC()
		}
		pmt, err = svc.repo.CreatePayment(ctx, Payment{
			ID:         uuid.NewString(),
			InvoiceID:  inv.ID,
			Amount:     np.Amount,
			Method:     np.Method,
			Reference:  np.Reference,
			RecordedBy: recordedBy,
			PaidAt:     paidAt,
		})
		if err != nil {
			return errors.Wrap(err, "creating payment")
		}

		inv.AmountPaid += np.Amount
		inv.settle()
		inv.UpdatedAt = now
		if inv, err = svc.repo.UpdateInvoice(ctx, inv); err != nil {
			if err == ErrOverpayment {
				return core.NewValidationError(ErrOverpayment, core.FieldError{Field: "amount", Error: ErrOverpayment.Error()})
			}
			return errors.Wrap(err, "updating invoice")
		}

		_, err = svc.notifier.Notify(ctx, notification.NewNotification{
			UserIDs: []string{inv.StudentID},
			Kind:    notification.KindBilling,
			Title:   fmt.Sprintf("Payment received for %s", inv.Number),
			Body:    fmt.Sprintf("A payment of %s %s was recorded. Remaining balance: %s %s.", FormatAmount(np.Amount), inv.Currency, FormatAmount(inv.Balance()), inv.Currency),
			Link:    "/billing/invoices/" + inv.ID,
		})
		return errors.Wrap(err, "notifying student")
	})
	if err != nil {
		return Payment{}, err
	}
	return pmt, nil
}

func (svc *service) QueryPayments(ctx context.Context, invoiceID string) ([]Payment, error) {
	if _, err := svc.repo.GetInvoice(ctx, invoiceID); err != nil {
		return nil, err
	}
	return svc.repo.QueryPayments(ctx, invoiceID)
}

// VoidInvoice cancels an invoice that has not received any payment.
func (svc *service) VoidInvoice(ctx context.Context, id string) (Invoice, error) {
	var inv Invoice
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if inv, err = svc.repo.GetInvoiceForUpdate(ctx, id); err != nil {
			return err
		}
		if inv.Status == StatusVoid {
			return ErrInvoiceVoid
		}
		if inv.AmountPaid > 0 {
			return ErrInvoiceHasPayments
		}
		inv.Status = StatusVoid
		inv.UpdatedAt = core.NowFunc()
		inv, err = svc.repo.UpdateInvoice(ctx, inv)
		return err
	})
	if err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// StudentBalance sums the non-void invoices of studentID billed in the configured currency.
func (svc *service) StudentBalance(ctx context.Context, studentID string) (Balance, error) {
	if _, err := svc.users.GetByID(ctx, studentID); err != nil {
		return Balance{}, err
	}
	invoices, err := svc.repo.QueryInvoices(ctx, QueryFilter{
		StudentID: studentID,
		Statuses:  []string{StatusOpen, StatusPartiallyPaid, StatusPaid},
	}, nil, core.Pagination{})
	if err != nil {
		return Balance{}, errors.Wrap(err, "querying invoices")
	}

	now := core.NowFunc()
	bal := Balance{StudentID: studentID, Currency: svc.conf.Currency}
	for _, inv := range invoices {
		if inv.Currency != bal.Currency {
			continue
		}
		bal.TotalBilled += inv.Total
		bal.TotalPaid += inv.AmountPaid
		if inv.IsOverdue(now) {
			bal.OverdueInvoices++
		}
	}
	bal.Outstanding = bal.TotalBilled - bal.TotalPaid
	return bal, nil
}

func (svc *service) RemindOverdue(ctx context.Context, now time.Time) (int, error) {
	invoices, err := svc.repo.QueryInvoices(ctx, QueryFilter{DueBefore: &now}, nil, core.Pagination{})
	if err != nil {
		return 0, errors.Wrap(err, "querying overdue invoices")
	}

	byStudent := make(map[string][]Invoice)
	var students []string
	for _, inv := range invoices {
		if _, ok := byStudent[inv.StudentID]; !ok {
			students = append(students, inv.StudentID)
		}
		byStudent[inv.StudentID] = append(byStudent[inv.StudentID], inv)
	}

	var count int
	for _, studentID := range students {
		invs := byStudent[studentID]
		statement, err := overdueStatement(invs)
		if err != nil {
			return count, errors.Wrap(err, "writing overdue statement")
		}
		notifs, err := svc.notifier.Notify(ctx, notification.NewNotification{
			UserIDs:   []string{studentID},
			Kind:      notification.KindBilling,
			Title:     "Overdue invoices",
			Body:      fmt.Sprintf("You have %d overdue invoice(s) with an outstanding balance of %s.", len(invs), outstandingByCurrency(invs)),
			Link:      "/billing/invoices",
			SendEmail: true,
			Attachments: []notification.File{
				{Filename: "overdue-invoices.csv", ContentType: "text/csv", Content: statement},
			},
		})
		if err != nil {
			return count, errors.Wrap(err, "notifying student")
		}
		if len(notifs) > 0 {
			count++
		}
	}
	return count, nil
}

// outstandingByCurrency sums the balances of invs per currency, e.g. "15.00 PHP, 0.99 USD".
func outstandingByCurrency(invs []Invoice) string {
	sums := make(map[string]int64)
	var currencies []string
	for _, inv := range invs {
		if _, ok := sums[inv.Currency]; !ok {
			currencies = append(currencies, inv.Currency)
		}
		sums[inv.Currency] += inv.Balance()
	}
	sort.Strings(currencies)

	parts := make([]string, 0, len(currencies))
	for _, cur := range currencies {
		parts = append(parts, FormatAmount(sums[cur])+" "+cur)
	}
	return strings.Join(parts, ", ")
}

var statementHeader = []string{"number", "issued_at", "due_date", "currency", "total", "amount_paid", "balance"}

func overdueStatement(invs []Invoice) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(statementHeader); err != nil {
		return nil, err
	}
	for _, inv := range invs {
		err := w.Write([]string{
			inv.Number,
			inv.IssuedAt.Format("2006-01-02"),
			inv.DueDate.Format("2006-01-02"),
			inv.Currency,
			FormatAmount(inv.Total),
			FormatAmount(inv.AmountPaid),
			FormatAmount(inv.Balance()),
		})
		if err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// FormatAmount renders minor units with two decimals.
func FormatAmount(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}
