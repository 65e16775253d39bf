// Package schema loads the declarative YAML validation schema and compiles it
// into an efficient form: enums become sets, ranges become inclusive bounds,
// patterns become compiled regexps. Foreign references ("dataset.column") are
// kept as references and followed at validation time; Compile verifies up
// front that every chain terminates and every predicate name is known, so a
// misconfigured schema aborts startup instead of surfacing per file.
package schema

import (
	"regexp"
	"sort"

	"github.com/nexabank/bankfeed/errors"
)

// Range is a closed numeric interval with inclusive bounds.
type Range struct {
	Min int64
	Max int64
}

// Contains reports whether a numeric value falls inside the range.
// Non-integral floats never match, mirroring integer-range membership.
func (r *Range) Contains(value any) bool {
	switch v := value.(type) {
	case int64:
		return v >= r.Min && v <= r.Max
	case float64:
		if v != float64(int64(v)) {
			return false
		}
		return int64(v) >= r.Min && int64(v) <= r.Max
	default:
		return false
	}
}

// Rule is the compiled constraint set for one column.
type Rule struct {
	Dataset string
	Column  string

	Type    string              // "int", "float", anything else = unconstrained text
	Range   *Range              // optional inclusive numeric range
	Enum    map[string]struct{} // optional allowed-value set
	Pattern *regexp.Regexp      // optional full-match pattern
	Format  string              // human-readable pattern label; also the layout for check_date
	Func    string              // optional named predicate
	Foreign string              // optional "dataset.column" delegation
}

// Ruleset is the compiled schema: dataset key -> column -> rule, with the
// declared column order preserved per dataset.
type Ruleset struct {
	rules map[string]map[string]*Rule
	order map[string][]string
}

// Datasets returns all dataset keys in sorted order.
func (rs *Ruleset) Datasets() []string {
	keys := make([]string, 0, len(rs.rules))
	for k := range rs.rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether the dataset key exists in the schema.
func (rs *Ruleset) Has(dataset string) bool {
	_, ok := rs.rules[dataset]
	return ok
}

// Columns returns the declared column order for a dataset.
func (rs *Ruleset) Columns(dataset string) []string {
	return append([]string(nil), rs.order[dataset]...)
}

// Rule returns the compiled rule for one column, or nil if absent.
func (rs *Ruleset) Rule(dataset, column string) *Rule {
	cols, ok := rs.rules[dataset]
	if !ok {
		return nil
	}
	return cols[column]
}

// Resolve follows a rule's foreign-reference chain until a terminal rule (one
// without a Foreign field) is found. A visited set guards against cycles, so a
// cyclic schema yields a configuration error rather than unbounded recursion.
func (rs *Ruleset) Resolve(rule *Rule) (*Rule, error) {
	visited := make(map[string]struct{})
	cur := rule
	for cur.Foreign != "" {
		key := cur.Dataset + "." + cur.Column
		if _, seen := visited[key]; seen {
			return nil, errors.NewSchemaConfigError("cyclic foreign reference at %s", key)
		}
		visited[key] = struct{}{}

		next, err := rs.lookupForeign(cur.Foreign)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func (rs *Ruleset) lookupForeign(ref string) (*Rule, error) {
	dataset, column, ok := splitForeign(ref)
	if !ok {
		return nil, errors.NewSchemaConfigError("malformed foreign reference %q", ref)
	}
	target := rs.Rule(dataset, column)
	if target == nil {
		return nil, errors.NewSchemaConfigError("foreign reference %q does not exist", ref)
	}
	return target, nil
}

func splitForeign(ref string) (dataset, column string, ok bool) {
	for i := 0; i < len(ref); i++ {
		if ref[i] == '.' {
			if i == 0 || i == len(ref)-1 {
				return "", "", false
			}
			return ref[:i], ref[i+1:], true
		}
	}
	return "", "", false
}
