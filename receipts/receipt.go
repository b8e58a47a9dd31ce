package receipts

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"registration-service/models"
)

// Receipt is everything printed on a payment receipt.
type Receipt struct {
	Payment   models.Payment
	FormTitle string
	IssuedAt  time.Time
}

// Emitter renders a receipt and stores it, returning its durable storage key.
type Emitter interface {
	Emit(ctx context.Context, receipt *Receipt) (string, error)
}

// Linker turns a storage key into a link the payer can open. Links may
// expire; keys do not.
type Linker interface {
	Link(ctx context.Context, key string) (string, error)
}

// Store is an Emitter that can also link what it stored.
type Store interface {
	Emitter
	Linker
}

var receiptTemplate = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"money": FormatAmount,
	"date":  formatDate,
}).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Receipt {{.Payment.ReceiptNumber}}</title></head>
<body>
<h1>Payment Receipt</h1>
<table>
<tr><th>Receipt number</th><td>{{.Payment.ReceiptNumber}}</td></tr>
<tr><th>Registration</th><td>{{.FormTitle}}</td></tr>
<tr><th>Submission</th><td>{{.Payment.SubmissionID}}</td></tr>
<tr><th>Amount</th><td>{{money .Payment.Amount .Payment.Currency}}</td></tr>
<tr><th>Gateway</th><td>{{.Payment.Gateway}}</td></tr>
<tr><th>Order</th><td>{{.Payment.OrderID}}</td></tr>
{{with .Payment.ProviderPaymentID}}<tr><th>Transaction</th><td>{{.}}</td></tr>{{end}}
<tr><th>Paid at</th><td>{{date .Payment.PaidAt}}</td></tr>
</table>
</body>
</html>
`))

// Render returns the receipt as an HTML document.
func Render(receipt *Receipt) ([]byte, error) {
	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, receipt); err != nil {
		return nil, fmt.Errorf("render receipt %s: %w", receipt.Payment.ReceiptNumber, err)
	}
	return buf.Bytes(), nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("02 Jan 2006 15:04 MST")
}

// FormatAmount prints minor units as a decimal amount, e.g. 50000 INR as
// "INR 500.00".
func FormatAmount(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s %s%d.%02d", currency, sign, amount/100, amount%100)
}
