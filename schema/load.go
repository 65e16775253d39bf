package schema

import (
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nexabank/bankfeed/errors"
)

// rawRule mirrors one column entry of the YAML schema file.
type rawRule struct {
	Type    string   `yaml:"type"`
	Range   []int64  `yaml:"range"`
	Enum    []string `yaml:"enum"`
	Regex   string   `yaml:"regex"`
	Format  string   `yaml:"format"`
	Func    string   `yaml:"func"`
	Foreign string   `yaml:"foreign"`
}

// Load reads and compiles the schema file. knownFuncs is the set of predicate
// names the validator can dispatch to; referencing any other name is a
// configuration error.
func Load(path string, knownFuncs map[string]struct{}) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading schema %s", path)
	}
	return Compile(data, knownFuncs)
}

// Compile parses the raw YAML schema and builds the compiled ruleset.
// The document is walked as a yaml.Node tree so the declared column order
// survives; plain map decoding would lose it.
func Compile(data []byte, knownFuncs map[string]struct{}) (*Ruleset, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrSchemaConfig, err.Error())
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.NewSchemaConfigError("schema root must be a mapping of dataset keys")
	}

	rs := &Ruleset{
		rules: make(map[string]map[string]*Rule),
		order: make(map[string][]string),
	}

	root := doc.Content[0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		dataset := strings.ToLower(root.Content[i].Value)
		dsNode := root.Content[i+1]
		if dsNode.Kind != yaml.MappingNode {
			return nil, errors.NewSchemaConfigError("dataset %q must map columns to rules", dataset)
		}

		cols := make(map[string]*Rule)
		for j := 0; j+1 < len(dsNode.Content); j += 2 {
			column := dsNode.Content[j].Value

			var raw rawRule
			if err := dsNode.Content[j+1].Decode(&raw); err != nil {
				return nil, errors.NewSchemaConfigError("column %s.%s: %v", dataset, column, err)
			}

			rule, err := compileRule(dataset, column, raw)
			if err != nil {
				return nil, err
			}
			cols[column] = rule
			rs.order[dataset] = append(rs.order[dataset], column)
		}
		rs.rules[dataset] = cols
	}

	if err := rs.check(knownFuncs); err != nil {
		return nil, err
	}
	return rs, nil
}

func compileRule(dataset, column string, raw rawRule) (*Rule, error) {
	rule := &Rule{
		Dataset: dataset,
		Column:  column,
		Type:    raw.Type,
		Format:  raw.Format,
		Func:    raw.Func,
		Foreign: raw.Foreign,
	}

	if raw.Range != nil {
		if len(raw.Range) != 2 || raw.Range[0] > raw.Range[1] {
			return nil, errors.NewSchemaConfigError("column %s.%s has malformed range %v", dataset, column, raw.Range)
		}
		rule.Range = &Range{Min: raw.Range[0], Max: raw.Range[1]}
	}

	if len(raw.Enum) > 0 {
		rule.Enum = make(map[string]struct{}, len(raw.Enum))
		for _, v := range raw.Enum {
			rule.Enum[v] = struct{}{}
		}
	}

	if raw.Regex != "" {
		pattern, err := regexp.Compile("^(?:" + raw.Regex + ")$")
		if err != nil {
			return nil, errors.NewSchemaConfigError("column %s.%s has invalid regex: %v", dataset, column, err)
		}
		rule.Pattern = pattern
	}

	return rule, nil
}

// check verifies the cross-cutting invariants Compile cannot see per rule:
// every foreign chain must terminate and every predicate name must be known.
func (rs *Ruleset) check(knownFuncs map[string]struct{}) error {
	for dataset, cols := range rs.rules {
		for column, rule := range cols {
			if rule.Func != "" && knownFuncs != nil {
				if _, ok := knownFuncs[rule.Func]; !ok {
					return errors.NewSchemaConfigError("column %s.%s references unknown function %q", dataset, column, rule.Func)
				}
			}
			if rule.Foreign != "" {
				if _, err := rs.Resolve(rule); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
