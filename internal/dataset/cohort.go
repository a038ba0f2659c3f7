package dataset

import (
	"math"
	"sort"
	"time"
)

// Cohort groups customers by the month of their first purchase
type Cohort struct {
	Month     time.Time `json:"month"`
	Customers int       `json:"customers"`
	// Active[k] counts cohort members who ordered k months after joining
	Active []int `json:"active"`
	// Retention[k] is Active[k] as a percentage of Customers, two decimals
	Retention []float64 `json:"retention"`
}

// Cohorts builds first-purchase month cohorts. It returns nil when the orders
// carry no CustomerID column. Rows with an empty id are ignored
func Cohorts(orders *Orders) []Cohort {
	if orders == nil || !orders.HasCustomer {
		return nil
	}

	firstMonth := make(map[string]time.Time)
	for _, o := range orders.Rows {
		if o.CustomerID == "" {
			continue
		}
		m := monthStart(o.InvoiceDate)
		if cur, ok := firstMonth[o.CustomerID]; !ok || m.Before(cur) {
			firstMonth[o.CustomerID] = m
		}
	}
	if len(firstMonth) == 0 {
		return []Cohort{}
	}

	var last time.Time
	active := make(map[time.Time]map[int]map[string]struct{})
	for _, o := range orders.Rows {
		if o.CustomerID == "" {
			continue
		}
		cohort := firstMonth[o.CustomerID]
		m := monthStart(o.InvoiceDate)
		if m.After(last) {
			last = m
		}
		offset := monthsBetween(cohort, m)
		if active[cohort] == nil {
			active[cohort] = make(map[int]map[string]struct{})
		}
		if active[cohort][offset] == nil {
			active[cohort][offset] = make(map[string]struct{})
		}
		active[cohort][offset][o.CustomerID] = struct{}{}
	}

	months := make([]time.Time, 0, len(active))
	for m := range active {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	out := make([]Cohort, 0, len(months))
	for _, m := range months {
		span := monthsBetween(m, last) + 1
		c := Cohort{
			Month:     m,
			Customers: len(active[m][0]),
			Active:    make([]int, span),
			Retention: make([]float64, span),
		}
		for k := 0; k < span; k++ {
			c.Active[k] = len(active[m][k])
			if c.Customers > 0 {
				c.Retention[k] = math.Round(float64(c.Active[k])/float64(c.Customers)*10000) / 100
			}
		}
		out = append(out, c)
	}
	return out
}
