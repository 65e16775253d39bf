package validate

import (
	"sync"
	"time"

	"github.com/nexabank/bankfeed/schema"
)

// Func is a named predicate a schema rule can reference. It receives the cell
// value and the rule that named it, and returns whether the value is valid
// plus a message used when it is not.
type Func func(value any, rule *schema.Rule) (bool, string)

var (
	funcsMu sync.RWMutex
	funcs   = map[string]Func{
		"check_date":  checkDate,
		"is_positive": isPositive,
	}
)

// Register adds a predicate under the given name, overwriting any existing
// entry. Call before schema compilation so the name check sees it.
func Register(name string, fn Func) {
	funcsMu.Lock()
	defer funcsMu.Unlock()
	funcs[name] = fn
}

// Lookup returns the predicate registered under name.
func Lookup(name string) (Func, bool) {
	funcsMu.RLock()
	defer funcsMu.RUnlock()
	fn, ok := funcs[name]
	return fn, ok
}

// FuncNames returns the set of registered predicate names, in the shape
// schema.Compile expects for its configuration check.
func FuncNames() map[string]struct{} {
	funcsMu.RLock()
	defer funcsMu.RUnlock()
	names := make(map[string]struct{}, len(funcs))
	for name := range funcs {
		names[name] = struct{}{}
	}
	return names
}

// checkDate validates that a text value parses with the rule's Format layout.
func checkDate(value any, rule *schema.Rule) (bool, string) {
	s, ok := value.(string)
	if !ok {
		return false, "is an invalid date"
	}
	layout := rule.Format
	if layout == "" {
		layout = "2006-01-02"
	}
	if _, err := time.Parse(layout, s); err != nil {
		return false, "is an invalid date"
	}
	return true, ""
}

// isPositive validates that a numeric value is zero or greater.
func isPositive(value any, _ *schema.Rule) (bool, string) {
	switch v := value.(type) {
	case int64:
		if v >= 0 {
			return true, ""
		}
	case float64:
		if v >= 0 {
			return true, ""
		}
	default:
		return false, "is not a number"
	}
	return false, "is a negative number"
}
