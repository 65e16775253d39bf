// Package transform enriches validated frames with derived columns before
// export. The derivation applied is selected by the file's dataset key; the
// reference date for age-style calculations comes from the drop directory
// layout (.../YYYY-MM-DD/HH/<dataset>.<ext>), falling back to the current day
// when the path does not carry one.
package transform

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/nexabank/bankfeed/errors"
	"github.com/nexabank/bankfeed/frame"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"

	// Per-day late fee on credit card bills.
	lateFinePerDay = 5.15
	// Flat plus proportional transaction fee.
	transactionFlatFee = 0.50
	transactionFeeRate = 0.001
	// Annual loan cost: 20% of utilization plus a base fee.
	loanCostRate = 0.20
	loanBaseFee  = 1000.0
)

type transformFunc func(fr *frame.Frame, ref time.Time) error

var transforms = map[string]transformFunc{
	"customer_profiles":    customerProfiles,
	"support_tickets":      supportTickets,
	"credit_cards_billing": creditCardsBilling,
	"transactions":         transactions,
	"loans":                loans,
}

// Apply runs the transformation for the file's dataset key, mutating fr in
// place. An unsupported dataset key is an error.
func Apply(fr *frame.Frame, path string) error {
	key := datasetKey(path)
	fn, ok := transforms[key]
	if !ok {
		return errors.Wrapf(errors.ErrUnknownDataset, "no transformer for %q", key)
	}
	return fn(fr, refDate(path))
}

func datasetKey(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return strings.ToLower(base)
}

// refDate extracts the drop date from a .../YYYY-MM-DD/HH/file path.
func refDate(path string) time.Time {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) >= 3 {
		if t, err := time.Parse(dateLayout, parts[len(parts)-3]); err == nil {
			return t
		}
	}
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// customerProfiles adds tenure (whole years since account opening) and a
// customer_segment classification derived from it.
func customerProfiles(fr *frame.Frame, ref time.Time) error {
	opened, err := fr.Column("account_open_date")
	if err != nil {
		return err
	}

	tenure := make([]any, len(opened))
	segment := make([]any, len(opened))
	for i, v := range opened {
		years := int64(0)
		if t, ok := parseDate(v); ok {
			years = int64(daysBetween(t, ref) / 365.25)
		}
		tenure[i] = years

		switch {
		case years > 5:
			segment[i] = "Loyal"
		case years < 1:
			segment[i] = "Newcomer"
		default:
			segment[i] = "Normal"
		}
	}

	if err := fr.AppendColumn("tenure", tenure); err != nil {
		return err
	}
	return fr.AppendColumn("customer_segment", segment)
}

// supportTickets adds the ticket age in days since the complaint date.
func supportTickets(fr *frame.Frame, ref time.Time) error {
	complaints, err := fr.Column("complaint_date")
	if err != nil {
		return err
	}

	age := make([]any, len(complaints))
	for i, v := range complaints {
		days := int64(0)
		if t, ok := parseDate(v); ok {
			days = int64(daysBetween(t, ref))
		}
		age[i] = days
	}
	return fr.AppendColumn("age", age)
}

// creditCardsBilling adds settlement state and late-payment charges:
// fully_paid, debt, late_days, fine and total_amount.
func creditCardsBilling(fr *frame.Frame, _ time.Time) error {
	due, err := fr.Column("amount_due")
	if err != nil {
		return err
	}
	paid, err := fr.Column("amount_paid")
	if err != nil {
		return err
	}
	months, err := fr.Column("month")
	if err != nil {
		return err
	}
	payDates, err := fr.Column("payment_date")
	if err != nil {
		return err
	}

	n := len(due)
	fullyPaid := make([]any, n)
	debt := make([]any, n)
	lateDays := make([]any, n)
	fine := make([]any, n)
	total := make([]any, n)

	for i := 0; i < n; i++ {
		dueAmt, _ := asFloat(due[i])
		paidAmt, _ := asFloat(paid[i])

		fullyPaid[i] = dueAmt <= paidAmt
		owed := int64(dueAmt - paidAmt)
		if owed < 0 {
			owed = 0
		}
		debt[i] = owed

		late := int64(0)
		if dueDate, ok := parseMonth(months[i]); ok {
			if payDate, ok := parseDate(payDates[i]); ok {
				late = int64(daysBetween(dueDate, payDate))
			}
		}
		lateDays[i] = late

		charged := 0.0
		if late > 0 {
			charged = float64(late) * lateFinePerDay
		}
		fine[i] = charged
		total[i] = dueAmt + charged
	}

	for _, col := range []struct {
		name   string
		values []any
	}{
		{"fully_paid", fullyPaid},
		{"debt", debt},
		{"late_days", lateDays},
		{"fine", fine},
		{"total_amount", total},
	} {
		if err := fr.AppendColumn(col.name, col.values); err != nil {
			return err
		}
	}
	return nil
}

// transactions adds the processing cost and the grossed-up total.
func transactions(fr *frame.Frame, _ time.Time) error {
	amounts, err := fr.Column("transaction_amount")
	if err != nil {
		return err
	}

	cost := make([]any, len(amounts))
	total := make([]any, len(amounts))
	for i, v := range amounts {
		amount, _ := asFloat(v)
		fee := transactionFlatFee + transactionFeeRate*amount
		cost[i] = fee
		total[i] = amount + fee
	}

	if err := fr.AppendColumn("cost", cost); err != nil {
		return err
	}
	return fr.AppendColumn("total_amount", total)
}

// loans adds the loan age in days and the annual total cost.
func loans(fr *frame.Frame, ref time.Time) error {
	utilized, err := fr.Column("utilization_date")
	if err != nil {
		return err
	}
	amounts, err := fr.Column("amount_utilized")
	if err != nil {
		return err
	}

	age := make([]any, len(utilized))
	total := make([]any, len(amounts))
	for i := range utilized {
		days := int64(0)
		if t, ok := parseDate(utilized[i]); ok {
			days = int64(daysBetween(t, ref))
		}
		age[i] = days

		amount, _ := asFloat(amounts[i])
		total[i] = amount*loanCostRate + loanBaseFee
	}

	if err := fr.AppendColumn("age", age); err != nil {
		return err
	}
	return fr.AppendColumn("total_cost", total)
}

func parseDate(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func parseMonth(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func daysBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
