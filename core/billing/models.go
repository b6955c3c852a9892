package billing

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
)

// Invoice statuses
const (
	StatusOpen          = "open"
	StatusPartiallyPaid = "partially_paid"
	StatusPaid          = "paid"
	StatusVoid          = "void"
)

// Payment methods
const (
	MethodCash         = "cash"
	MethodBankTransfer = "bank_transfer"
	MethodCard         = "card"
	MethodMobileMoney  = "mobile_money"
)

var (
	Statuses       = []string{StatusOpen, StatusPartiallyPaid, StatusPaid, StatusVoid}
	UnpaidStatuses = []string{StatusOpen, StatusPartiallyPaid}
	Methods        = []string{MethodCash, MethodBankTransfer, MethodCard, MethodMobileMoney}

	methodTag  = "paymentmethod"
	methodText = "payment method must be one of: cash, bank_transfer, card, mobile_money"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterOneOf(validate, translator, methodTag, methodText, Methods...)
}

type InvoiceLine struct {
	ID          string `json:"id"`
	InvoiceID   string `json:"-"`
	Position    int    `json:"position"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitAmount  int64  `json:"unit_amount"`
	Amount      int64  `json:"amount"`
}

type Invoice struct {
	ID           string        `json:"id"`
	Number       string        `json:"number"`
	StudentID    string        `json:"student_id"`
	EnrollmentID *string       `json:"enrollment_id"`
	Currency     string        `json:"currency"`
	Lines        []InvoiceLine `json:"lines"`
	Total        int64         `json:"total"`
	AmountPaid   int64         `json:"amount_paid"`
	Status       string        `json:"status"`
	DueDate      time.Time     `json:"due_date"`
	IssuedAt     time.Time     `json:"issued_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (inv Invoice) Balance() int64 { return inv.Total - inv.AmountPaid }

func (inv Invoice) IsUnpaid() bool { return core.ContainsString(UnpaidStatuses, inv.Status) }

func (inv Invoice) IsOverdue(now time.Time) bool {
	return inv.IsUnpaid() && now.After(inv.DueDate)
}

// settle updates the status from the amount paid.
func (inv *Invoice) settle() {
	switch {
	case inv.Status == StatusVoid:
	case inv.AmountPaid >= inv.Total:
		inv.Status = StatusPaid
	case inv.AmountPaid > 0:
		inv.Status = StatusPartiallyPaid
	default:
		inv.Status = StatusOpen
	}
}

type Payment struct {
	ID         string    `json:"id"`
	InvoiceID  string    `json:"invoice_id"`
	Amount     int64     `json:"amount"`
	Method     string    `json:"method"`
	Reference  string    `json:"reference"`
	RecordedBy string    `json:"recorded_by"`
	PaidAt     time.Time `json:"paid_at"`
}

type Balance struct {
	StudentID       string `json:"student_id"`
	Currency        string `json:"currency"`
	TotalBilled     int64  `json:"total_billed"`
	TotalPaid       int64  `json:"total_paid"`
	Outstanding     int64  `json:"outstanding"`
	OverdueInvoices int    `json:"overdue_invoices"`
}

type NewInvoiceLine struct {
	Description string `json:"description" validate:"required,max=300"`
	Quantity    int    `json:"quantity" validate:"min=1"`
	UnitAmount  int64  `json:"unit_amount" validate:"min=0"`
}

type NewInvoice struct {
	StudentID    string           `json:"student_id" validate:"required,uuid"`
	EnrollmentID *string          `json:"enrollment_id" validate:"omitempty,uuid"`
	Currency     string           `json:"currency" validate:"omitempty,currency"`
	Lines        []NewInvoiceLine `json:"lines" validate:"required,min=1,dive"`
}

func (ni *NewInvoice) Validate(validate *validator.Validate) error {
	ni.Currency = core.CleanCode(ni.Currency)
	for i := range ni.Lines {
		ni.Lines[i].Description = core.CleanString(ni.Lines[i].Description)
	}
	return validate.Struct(ni)
}

type NewPayment struct {
	Amount    int64      `json:"amount" validate:"gt=0"`
	Method    string     `json:"method" validate:"required,paymentmethod"`
	Reference string     `json:"reference" validate:"max=100"`
	PaidAt    *time.Time `json:"paid_at"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.Method = core.CleanString(np.Method, true /* lower */)
	np.Reference = core.CleanString(np.Reference)
	return validate.Struct(np)
}

type QueryFilter struct {
	StudentID    string
	EnrollmentID string
	Statuses     []string
	// DueBefore matches unpaid invoices due before the given time.
	DueBefore *time.Time
}
