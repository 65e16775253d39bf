package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/nexabank/bankfeed/decode"
	"github.com/nexabank/bankfeed/errors"
	"github.com/nexabank/bankfeed/status"
	"github.com/nexabank/bankfeed/validate"
)

// ValidateCmd checks one file against the schema without touching the status
// store or the warehouse.
var ValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a single file against the schema and print the report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		rules, err := loadRules(cfg)
		if err != nil {
			return err
		}

		path := args[0]
		ok, fr := decode.Decode(path)
		if !ok {
			pterm.Error.Printf("Cannot decode %s (missing, empty, or malformed)\n", path)
			return errors.Newf("decode failed for %s", path)
		}

		res, err := validate.New(rules).Validate(status.Key(path), fr)
		if err != nil {
			return err
		}

		if res.OK {
			pterm.Success.Printf("%s: %d rows valid\n", path, fr.Len())
			return nil
		}

		if res.HeaderFailure != "" {
			pterm.Error.Printf("Header validation failed: %s\n", res.HeaderFailure)
		} else {
			pterm.Error.Printf("%d of %d rows failed validation\n", len(res.Rows), fr.Len())
			pterm.Println(validate.FormatReport(res.Frame, res))
		}
		return errors.Newf("validation failed for %s", path)
	},
}
