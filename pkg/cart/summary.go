package cart

import "github.com/shopspring/decimal"

// Line is a cart entry with its subtotal.
type Line struct {
	Product
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Summary totals a cart.
type Summary struct {
	Lines []Line          `json:"lines"`
	Size  int             `json:"size"`
	Total decimal.Decimal `json:"total"`
}

// Summarize computes per-item subtotals and the cart total, rounded to cents.
// Size counts distinct products.
func Summarize(items []Product) Summary {
	sum := Summary{Lines: make([]Line, 0, len(items)), Size: len(items), Total: decimal.Zero}
	for _, p := range items {
		sub := decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(p.Amount))).Round(2)
		sum.Lines = append(sum.Lines, Line{Product: p, Subtotal: sub})
		sum.Total = sum.Total.Add(sub)
	}
	return sum
}
