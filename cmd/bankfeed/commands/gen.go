package commands

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/nexabank/bankfeed/gen"
)

// GenCmd writes a synthetic data drop into the watched root.
var GenCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate a synthetic data drop for local testing",
	Long: `Write one synthetic drop directory (<root>/<date>/<hour>) containing every
tracked dataset: customer profiles, support tickets and billing as CSV,
transactions as JSON and loans as pipe-delimited text.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		root, _ := cmd.Flags().GetString("root")
		if root == "" {
			root = cfg.Watch.Root
		}
		date, _ := cmd.Flags().GetString("date")
		hour, _ := cmd.Flags().GetInt("hour")

		opts := gen.DefaultOptions()
		opts.Profiles, _ = cmd.Flags().GetInt("profiles")
		opts.Seed, _ = cmd.Flags().GetInt64("seed")

		if err := gen.New(opts).Generate(root, date, hour); err != nil {
			return err
		}
		pterm.Success.Printf("Drop written to %s/%s/%02d\n", root, date, hour)
		return nil
	},
}

func init() {
	now := time.Now()
	GenCmd.Flags().String("root", "", "Target root directory (default: watch.root)")
	GenCmd.Flags().String("date", now.Format("2006-01-02"), "Drop date (YYYY-MM-DD)")
	GenCmd.Flags().Int("hour", now.Hour(), "Drop hour (0-23)")
	GenCmd.Flags().Int("profiles", gen.DefaultOptions().Profiles, "Number of customer profiles")
	GenCmd.Flags().Int64("seed", 0, "Random seed (0 = from clock)")
}
