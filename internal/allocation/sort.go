package allocation

import (
	"fmt"
	"sort"
	"strings"
)

// SortKey orders allocation listings.
type SortKey string

const (
	SortByDate         SortKey = "date"
	SortByAmount       SortKey = "amount"
	SortByCounterparty SortKey = "counterparty"
	SortByAccount      SortKey = "account"
)

// ParseSortKey validates a sort key from the command line or the worker.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case SortByDate, SortByAmount, SortByCounterparty, SortByAccount:
		return k, nil
	case "":
		return SortByDate, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// Sort orders allocs by key, falling back to date and then id.
func Sort(allocs []Allocation, key SortKey) {
	type row struct {
		a            Allocation
		date         string
		counterparty string
		account      string
	}
	rows := make([]row, len(allocs))
	for i, a := range allocs {
		e := a.Entry()
		rows[i] = row{a: a, date: e.Date().String(), account: e.Allocated().Code}
		if key == SortByCounterparty {
			rows[i].counterparty = strings.ToLower(a.counterparty())
		}
	}

	less := func(x, y row) bool {
		if x.date != y.date {
			return x.date < y.date
		}
		return x.a.ID() < y.a.ID()
	}
	sort.SliceStable(rows, func(i, j int) bool {
		x, y := rows[i], rows[j]
		switch key {
		case SortByAmount:
			xv, yv := x.a.Amount().Value(), y.a.Amount().Value()
			if !xv.Equal(yv) {
				return xv.LessThan(yv)
			}
		case SortByCounterparty:
			if x.counterparty != y.counterparty {
				return x.counterparty < y.counterparty
			}
		case SortByAccount:
			if x.account != y.account {
				return x.account < y.account
			}
		}
		return less(x, y)
	})
	for i := range rows {
		allocs[i] = rows[i].a
	}
}
