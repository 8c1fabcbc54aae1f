// Package notify delivers best-effort operator notifications for sales and
// purchases over Pushover and Discord.
package notify

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message is a single notification.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Line is one cart line in a sale summary.
type Line struct {
	Name     string
	Quantity int
}

// SaleSummary describes a committed sale.
type SaleSummary struct {
	SaleID       int64
	Total        float64
	PaymentType  string
	CustomerID   int64
	CustomerName string
	Lines        []Line
}

// PurchaseSummary describes a recorded purchase.
type PurchaseSummary struct {
	ItemName      string
	Quantity      int
	PurchasePrice float64
	Vendor        string
}

// Formatter renders summaries into messages with grouped amounts.
type Formatter struct {
	currency string
	printer  *message.Printer
}

// NewFormatter builds a Formatter for the given currency code.
func NewFormatter(currency string) *Formatter {
	if currency == "" {
		currency = "IQD"
	}
	return &Formatter{currency: currency, printer: message.NewPrinter(language.English)}
}

// Amount formats v with thousands separators followed by the currency code.
func (f *Formatter) Amount(v float64) string {
	if v == math.Trunc(v) {
		return f.printer.Sprintf("%d %s", int64(v), f.currency)
	}
	return f.printer.Sprintf("%.2f %s", v, f.currency)
}

// Sale renders a sale notification.
func (f *Formatter) Sale(s SaleSummary) Message {
	var b strings.Builder
	b.WriteString("Total: ")
	b.WriteString(f.Amount(s.Total))
	if s.PaymentType == "debt" {
		b.WriteString("\nPayment: debt")
	}
	if s.CustomerName != "" {
		b.WriteString("\nCustomer: " + s.CustomerName + " (#" + strconv.FormatInt(s.CustomerID, 10) + ")")
	}
	b.WriteString("\n")
	for _, l := range s.Lines {
		b.WriteString(f.printer.Sprintf("\n%d x %s", l.Quantity, l.Name))
	}
	return Message{Title: "New sale recorded", Body: b.String()}
}

// Purchase renders a purchase notification.
func (f *Formatter) Purchase(p PurchaseSummary) Message {
	vendor := p.Vendor
	if strings.TrimSpace(vendor) == "" {
		vendor = "Unknown"
	}
	body := f.printer.Sprintf("Item: %s\nQuantity: %d\nPurchase price: %s\nVendor: %s",
		p.ItemName, p.Quantity, f.Amount(p.PurchasePrice), vendor)
	return Message{Title: "New purchase recorded", Body: body}
}
