// Package validate checks decoded frames against the compiled schema.
//
// Validation runs in two phases. The header phase selects exactly the declared
// columns from a read-only view (extra columns are dropped, a missing column
// is a hard failure) and checks each column's inferred scalar kind against the
// rule's declared type; any mismatch aborts the whole validation before row
// checks run. The row phase applies, per column and in this order: the
// foreign-resolved rule's checks, range, enum, pattern, named predicate. Later
// checks overwrite earlier messages for the same column, so a cell failing
// both range and enum reports the enum failure.
package validate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nexabank/bankfeed/errors"
	"github.com/nexabank/bankfeed/frame"
	"github.com/nexabank/bankfeed/schema"
)

// Report maps row index -> column -> the last failing check's message.
// Rows with no failing column are absent.
type Report map[int]map[string]string

// Result is the outcome of validating one frame.
type Result struct {
	OK            bool
	HeaderFailure string       // set when the header/type phase failed; Rows is empty then
	Rows          Report       // per-row violations
	Frame         *frame.Frame // schema-ordered view of the input; nil on header failure
}

// Validator validates frames against a compiled ruleset.
type Validator struct {
	rules *schema.Ruleset
}

// New creates a validator for the given ruleset.
func New(rules *schema.Ruleset) *Validator {
	return &Validator{rules: rules}
}

// Validate checks a frame against the dataset's schema entry. The error is
// non-nil only for an unknown dataset key; validation failures are expressed
// through the result. The input frame is never mutated.
func (v *Validator) Validate(dataset string, fr *frame.Frame) (*Result, error) {
	if !v.rules.Has(dataset) {
		return nil, errors.Wrapf(errors.ErrUnknownDataset, "%q", dataset)
	}

	view, headerFailure := v.checkHeader(dataset, fr)
	if headerFailure != "" {
		return &Result{OK: false, HeaderFailure: headerFailure, Rows: Report{}}, nil
	}

	rows := Report{}
	for r := 0; r < view.Len(); r++ {
		rowErrors := map[string]string{}
		for _, column := range v.rules.Columns(dataset) {
			value, _ := view.Value(r, column)
			v.checkCell(v.rules.Rule(dataset, column), column, value, rowErrors)
		}
		if len(rowErrors) > 0 {
			rows[r] = rowErrors
		}
	}

	return &Result{OK: len(rows) == 0, Rows: rows, Frame: view}, nil
}

// checkHeader selects the declared columns and verifies their scalar kinds.
// Returns the reordered view and an empty string on success.
func (v *Validator) checkHeader(dataset string, fr *frame.Frame) (*frame.Frame, string) {
	declared := v.rules.Columns(dataset)

	view, err := fr.Select(declared)
	if err != nil {
		return nil, err.Error()
	}
	if view.Len() == 0 {
		return view, ""
	}

	for _, column := range declared {
		rule, err := v.rules.Resolve(v.rules.Rule(dataset, column))
		if err != nil {
			return nil, err.Error()
		}

		var expected frame.Kind
		switch rule.Type {
		case "int":
			expected = frame.KindInt
		case "float":
			expected = frame.KindFloat
		default:
			// Unconstrained text: any kind passes.
			continue
		}

		if got := view.Kind(column); got != expected {
			return nil, fmt.Sprintf("column %q has incorrect datatype (expected %s, got %s)",
				column, expected, got)
		}
	}
	return view, ""
}

// checkCell applies one rule to one cell, writing the message of the last
// failing check into rowErrors. A foreign reference applies the resolved
// rule's checks first, then the referencing rule's own checks.
func (v *Validator) checkCell(rule *schema.Rule, column string, value any, rowErrors map[string]string) {
	if rule == nil {
		return
	}

	if rule.Foreign != "" {
		// Chains are verified at compile time; a resolution error here means
		// the ruleset was built without Compile and is a programmer mistake.
		resolved, err := v.rules.Resolve(rule)
		if err != nil {
			rowErrors[column] = err.Error()
			return
		}
		v.checkCell(resolved, column, value, rowErrors)
	}

	if rule.Range != nil && !rule.Range.Contains(value) {
		rowErrors[column] = fmt.Sprintf("is out of range [%d, %d]", rule.Range.Min, rule.Range.Max)
	}

	if rule.Enum != nil {
		if _, ok := rule.Enum[valueString(value)]; !ok {
			rowErrors[column] = "is an invalid choice"
		}
	}

	if rule.Pattern != nil {
		s, ok := value.(string)
		if !ok || !rule.Pattern.MatchString(s) {
			rowErrors[column] = fmt.Sprintf("has an invalid format (%s)", rule.Format)
		}
	}

	if rule.Func != "" {
		if fn, ok := Lookup(rule.Func); ok {
			if valid, msg := fn(value, rule); !valid {
				rowErrors[column] = msg
			}
		} else {
			rowErrors[column] = fmt.Sprintf("validation function %q not found", rule.Func)
		}
	}
}

// FormatReport renders a result into the human-readable report mailed to
// operators: one block per failing row, one line per failing column with the
// offending value.
func FormatReport(fr *frame.Frame, res *Result) string {
	if res.HeaderFailure != "" {
		return "Header validation failed: " + res.HeaderFailure
	}

	indices := make([]int, 0, len(res.Rows))
	for idx := range res.Rows {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var b strings.Builder
	for _, idx := range indices {
		fmt.Fprintf(&b, "\nRow (%d)\n", idx+1)

		columns := make([]string, 0, len(res.Rows[idx]))
		for column := range res.Rows[idx] {
			columns = append(columns, column)
		}
		sort.Strings(columns)

		for _, column := range columns {
			value, _ := fr.Value(idx, column)
			fmt.Fprintf(&b, "  - %s: %q %s.\n", column, valueString(value), res.Rows[idx][column])
		}
	}
	return b.String()
}

func valueString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
