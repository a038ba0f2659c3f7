package dataset

import (
	"time"

	"github.com/shopspring/decimal"
)

// RevenuePoint is the revenue of one calendar month, labelled by its last day
type RevenuePoint struct {
	InvoiceDate time.Time       `json:"invoice_date"`
	TotalAmount float64         `json:"total_amount"`
	Sum         decimal.Decimal `json:"-"`
}

// MonthlyRevenue sums TotalAmount per calendar month from the first to the
// last month present. Months without orders are reported with zero
func MonthlyRevenue(orders *Orders) []RevenuePoint {
	if orders == nil || len(orders.Rows) == 0 {
		return []RevenuePoint{}
	}

	sums := make(map[time.Time]decimal.Decimal)
	first, last := monthStart(orders.Rows[0].InvoiceDate), monthStart(orders.Rows[0].InvoiceDate)
	for _, o := range orders.Rows {
		m := monthStart(o.InvoiceDate)
		sums[m] = sums[m].Add(o.TotalAmount)
		if m.Before(first) {
			first = m
		}
		if m.After(last) {
			last = m
		}
	}

	var out []RevenuePoint
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		sum := sums[m]
		out = append(out, RevenuePoint{
			InvoiceDate: monthEnd(m),
			TotalAmount: sum.InexactFloat64(),
			Sum:         sum,
		})
	}
	return out
}

// TotalRevenue sums every order amount
func TotalRevenue(orders *Orders) decimal.Decimal {
	total := decimal.Zero
	if orders == nil {
		return total
	}
	for _, o := range orders.Rows {
		total = total.Add(o.TotalAmount)
	}
	return total
}

func monthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func monthEnd(start time.Time) time.Time {
	return start.AddDate(0, 1, -1)
}

// monthsBetween counts whole calendar months from a to b
func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()-a.Month())
}
