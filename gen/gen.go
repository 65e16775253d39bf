// Package gen produces synthetic dataset drops for local development and
// pipeline rehearsal. One invocation writes a full drop directory
// (<root>/<date>/<hour>) containing every tracked dataset in its native
// format: CSV for profiles, tickets and billing, JSON for transactions and
// pipe-delimited text for loans. Output is deterministic for a fixed seed.
package gen

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/nexabank/bankfeed/errors"
	"github.com/nexabank/bankfeed/logger"
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Options sizes one generated drop.
type Options struct {
	Profiles      int   // customer profile rows
	Tickets       int   // support ticket rows; capped at Profiles
	BillingMonths int   // billing records per customer
	Loans         int   // loan rows
	Seed          int64 // 0 seeds from the clock
}

// DefaultOptions returns drop sizes suitable for local runs.
func DefaultOptions() Options {
	return Options{
		Profiles:      1000,
		Tickets:       150,
		BillingMonths: 2,
		Loans:         100,
	}
}

var (
	firstNames = []string{"Omar", "Layla", "Hassan", "Nour", "Karim", "Dina", "Tariq", "Mona", "Sami", "Rania"}
	lastNames  = []string{"Haddad", "Nasser", "Farouk", "Saleh", "Khalil", "Mansour", "Aziz", "Fahmy", "Barakat", "Zidan"}
	cities     = []string{"Cairo", "Alexandria", "Giza", "Luxor", "Aswan", "Mansoura", "Tanta", "Suez"}

	genders       = []string{"Male", "Female"}
	productTypes  = []string{"Savings", "Checking", "Credit Card", "Loan"}
	customerTiers = []string{"Basic", "Silver", "Gold", "Platinum"}
	complaints    = []string{"Billing Dispute", "ATM Issue", "Card Lost", "App Crash", "Loan Inquiry"}
	loanTypes     = []string{"Personal", "Mortgage", "Auto", "Education", "Business"}
	loanReasons   = []string{
		"Home renovation", "Medical expenses", "Business expansion",
		"Debt consolidation", "Education fees", "Car purchase", "Wedding",
	}
)

// Generator writes one synthetic drop at a time.
type Generator struct {
	opts Options
	rng  *rand.Rand

	// customer ids from the profiles file, referenced by every other dataset
	customers []string
}

// New creates a generator with the given options.
func New(opts Options) *Generator {
	if opts.Profiles <= 0 {
		opts.Profiles = DefaultOptions().Profiles
	}
	if opts.Tickets > opts.Profiles {
		opts.Tickets = opts.Profiles
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{opts: opts, rng: rand.New(rand.NewSource(seed))}
}

// Generate writes every dataset into <root>/<date>/<hour>. The date must be
// YYYY-MM-DD and the hour 0-23.
func (g *Generator) Generate(root, date string, hour int) error {
	if !dateRe.MatchString(date) || hour < 0 || hour > 23 {
		return errors.Newf("cannot generate drop for date=%q hour=%d", date, hour)
	}

	dir := filepath.Join(root, date, fmt.Sprintf("%02d", hour))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating drop directory %s", dir)
	}

	steps := []struct {
		name string
		fn   func(dir string) error
	}{
		{"customer_profiles.csv", g.customerProfiles},
		{"support_tickets.csv", g.supportTickets},
		{"credit_cards_billing.csv", g.creditCardsBilling},
		{"transactions.json", g.transactions},
		{"loans.txt", g.loans},
	}
	for _, step := range steps {
		if err := step.fn(dir); err != nil {
			return errors.Wrapf(err, "generating %s", step.name)
		}
		logger.Infow("Generated dataset", "file", filepath.Join(dir, step.name))
	}
	return nil
}

func (g *Generator) customerProfiles(dir string) error {
	g.customers = make([]string, g.opts.Profiles)

	rows := make([][]string, 0, g.opts.Profiles)
	for i := 1; i <= g.opts.Profiles; i++ {
		id := fmt.Sprintf("CUST%06d", i)
		g.customers[i-1] = id
		rows = append(rows, []string{
			id,
			g.pick(firstNames) + " " + g.pick(lastNames),
			g.pick(genders),
			strconv.Itoa(18 + g.rng.Intn(83)),
			g.pick(cities),
			g.dateBetween(-10*365, -365),
			g.pick(productTypes),
			g.pick(customerTiers),
		})
	}

	header := []string{"customer_id", "name", "gender", "age", "city",
		"account_open_date", "product_type", "customer_tier"}
	return writeCSV(filepath.Join(dir, "customer_profiles.csv"), header, rows)
}

func (g *Generator) supportTickets(dir string) error {
	rows := make([][]string, 0, g.opts.Tickets)
	for i, cust := range g.sample(g.opts.Tickets) {
		rows = append(rows, []string{
			fmt.Sprintf("TKT%06d", i+1),
			cust,
			g.pick(complaints),
			g.dateBetween(-365, 0),
			strconv.Itoa(g.rng.Intn(11)),
		})
	}

	header := []string{"ticket_id", "customer_id", "complaint_category",
		"complaint_date", "severity"}
	return writeCSV(filepath.Join(dir, "support_tickets.csv"), header, rows)
}

func (g *Generator) creditCardsBilling(dir string) error {
	delays := []int{0, 0, 0, 1, 2, 5, 7}
	start := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

	rows := make([][]string, 0, len(g.customers)*g.opts.BillingMonths)
	for _, cust := range g.customers {
		for m := 0; m < g.opts.BillingMonths; m++ {
			billMonth := start.AddDate(0, m, 0)
			due := 10 + g.rng.Float64()*290
			delay := delays[g.rng.Intn(len(delays))]
			paid := due
			if delay > 5 {
				paid = due * (0.8 + g.rng.Float64()*0.2)
			}

			rows = append(rows, []string{
				fmt.Sprintf("BILL%07d", 1000000+g.rng.Intn(9000000)),
				cust,
				billMonth.Format("2006-01"),
				fmt.Sprintf("%.2f", due),
				fmt.Sprintf("%.2f", paid),
				billMonth.AddDate(0, 0, delay).Format("2006-01-02"),
			})
		}
	}

	header := []string{"bill_id", "customer_id", "month", "amount_due",
		"amount_paid", "payment_date"}
	return writeCSV(filepath.Join(dir, "credit_cards_billing.csv"), header, rows)
}

func (g *Generator) transactions(dir string) error {
	type transaction struct {
		Sender          string `json:"sender"`
		Receiver        string `json:"receiver"`
		Amount          int    `json:"transaction_amount"`
		TransactionDate string `json:"transaction_date"`
	}

	records := make([]transaction, 0, len(g.customers))
	for _, cust := range g.customers {
		records = append(records, transaction{
			Sender:          cust,
			Receiver:        g.pick(g.customers),
			Amount:          1 + g.rng.Intn(100),
			TransactionDate: g.dateBetween(-365, 0),
		})
	}

	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "transactions.json"), data, 0o644)
}

func (g *Generator) loans(dir string) error {
	f, err := os.Create(filepath.Join(dir, "loans.txt"))
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, "customer_id|loan_type|amount_utilized|utilization_date|loan_reason"); err != nil {
		return err
	}
	for i := 0; i < g.opts.Loans; i++ {
		_, err := fmt.Fprintf(f, "%s|%s|%d|%s|%s\n",
			g.pick(g.customers),
			g.pick(loanTypes),
			(10+g.rng.Intn(991))*1000,
			g.dateBetween(-365, 0),
			g.pick(loanReasons),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// pick returns one uniformly chosen element.
func (g *Generator) pick(values []string) string {
	return values[g.rng.Intn(len(values))]
}

// sample returns n distinct customer ids.
func (g *Generator) sample(n int) []string {
	idx := g.rng.Perm(len(g.customers))[:n]
	out := make([]string, n)
	for i, j := range idx {
		out[i] = g.customers[j]
	}
	return out
}

// dateBetween formats a uniformly chosen date between now+fromDays and
// now+toDays.
func (g *Generator) dateBetween(fromDays, toDays int) string {
	days := fromDays + g.rng.Intn(toDays-fromDays+1)
	return time.Now().UTC().AddDate(0, 0, days).Format("2006-01-02")
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
