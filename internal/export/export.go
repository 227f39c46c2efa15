// Package export renders bill summaries for download. Amounts are written
// as strings with exactly two decimal places.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/calculator"
)

// Format selects the export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ErrUnknownFormat is returned for formats other than csv and json.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat accepts "csv" and "json". An empty string means csv.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType is the MIME type served for f.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// Money formats an amount for presentation.
func Money(d decimal.Decimal) string {
	return d.StringFixed(calculator.CentPlaces)
}

// Document is the JSON export of a bill summary.
type Document struct {
	BillID         string         `json:"bill_id"`
	Title          string         `json:"title"`
	Revision       int64          `json:"revision"`
	GeneratedAt    time.Time      `json:"generated_at"`
	Participants   []Participant  `json:"participants"`
	Orphaned       []Orphan       `json:"orphaned"`
	Reconciliation Reconciliation `json:"reconciliation"`
}

type Participant struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
	Owed  string `json:"owed"`
	Items []Item `json:"items"`
}

type Item struct {
	Product string `json:"product"`
	Amount  string `json:"amount"`
}

type Orphan struct {
	Product string `json:"product"`
	Amount  string `json:"amount"`
	Reason  string `json:"reason"`
}

type Reconciliation struct {
	StatedTotal      string `json:"stated_total"`
	ComputedTotal    string `json:"computed_total"`
	AllocatedTotal   string `json:"allocated_total"`
	OrphanedAmount   string `json:"orphaned_amount"`
	StatedDifference string `json:"stated_difference"`
	Balanced         bool   `json:"balanced"`
	MatchesStated    bool   `json:"matches_stated"`
}

// NewDocument converts a summary into its export form.
func NewDocument(title string, sum *calculator.Summary, generatedAt time.Time) *Document {
	doc := &Document{
		BillID:       sum.BillID,
		Title:        title,
		Revision:     sum.Revision,
		GeneratedAt:  generatedAt.UTC(),
		Participants: make([]Participant, 0, len(sum.Participants)),
		Orphaned:     make([]Orphan, 0, len(sum.Orphaned)),
	}

	for _, p := range sum.Participants {
		items := make([]Item, 0, len(p.Items))
		for _, it := range p.Items {
			items = append(items, Item{Product: it.ProductName, Amount: Money(it.Amount)})
		}
		doc.Participants = append(doc.Participants, Participant{
			Name:  p.Name,
			Color: p.Color,
			Owed:  Money(p.Owed),
			Items: items,
		})
	}
	for _, o := range sum.Orphaned {
		doc.Orphaned = append(doc.Orphaned, Orphan{Product: o.Name, Amount: Money(o.Amount), Reason: o.Reason})
	}

	r := sum.Reconciliation
	doc.Reconciliation = Reconciliation{
		StatedTotal:      Money(r.StatedTotal),
		ComputedTotal:    Money(r.ComputedTotal),
		AllocatedTotal:   Money(r.AllocatedTotal),
		OrphanedAmount:   Money(r.OrphanedAmount),
		StatedDifference: Money(r.StatedDifference),
		Balanced:         r.Balanced(),
		MatchesStated:    r.MatchesStated(),
	}
	return doc
}

// Write encodes doc to w in the given format.
func Write(w io.Writer, format Format, doc *Document) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatCSV:
		return writeCSV(w, doc)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// CSV columns: section, participant, product, amount, note.
func writeCSV(w io.Writer, doc *Document) error {
	cw := csv.NewWriter(w)
	rows := [][]string{{"section", "participant", "product", "amount", "note"}}

	for _, p := range doc.Participants {
		for _, it := range p.Items {
			rows = append(rows, []string{"item", p.Name, it.Product, it.Amount, ""})
		}
		rows = append(rows, []string{"total", p.Name, "", p.Owed, ""})
	}
	for _, o := range doc.Orphaned {
		rows = append(rows, []string{"orphaned", "", o.Product, o.Amount, o.Reason})
	}

	r := doc.Reconciliation
	rows = append(rows,
		[]string{"reconciliation", "", "stated_total", r.StatedTotal, ""},
		[]string{"reconciliation", "", "computed_total", r.ComputedTotal, ""},
		[]string{"reconciliation", "", "allocated_total", r.AllocatedTotal, ""},
		[]string{"reconciliation", "", "orphaned_amount", r.OrphanedAmount, ""},
		[]string{"reconciliation", "", "stated_difference", r.StatedDifference, ""},
	)

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// FileName builds a download name from the bill title.
func FileName(title string, format Format) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')
			lastDash = true
		}
	}
	name := strings.TrimSuffix(b.String(), "-")
	if name == "" {
		name = "bill"
	}
	return name + "." + string(format)
}
