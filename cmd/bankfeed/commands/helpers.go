package commands

import (
	"github.com/spf13/cobra"

	"github.com/nexabank/bankfeed/config"
	"github.com/nexabank/bankfeed/schema"
	"github.com/nexabank/bankfeed/validate"
)

// loadConfig resolves the effective configuration, honoring --config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		return cfg, cfg.Validate()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// loadRules compiles the schema named by the config. Schema configuration
// errors (unknown predicate, cyclic foreign reference) abort here, before any
// file is touched.
func loadRules(cfg *config.Config) (*schema.Ruleset, error) {
	return schema.Load(cfg.Watch.SchemaPath, validate.FuncNames())
}
