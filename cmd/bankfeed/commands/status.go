package commands

import (
	"path/filepath"
	"sort"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/nexabank/bankfeed/status"
)

// StatusCmd prints the processing record of one drop directory.
var StatusCmd = &cobra.Command{
	Use:   "status <directory>",
	Short: "Show the processing status of a drop directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		dir := args[0]
		store := status.NewStore(cfg.Watch.Datasets)
		snapshot := store.Snapshot(filepath.Join(dir, status.FileName))

		keys := make([]string, 0, len(snapshot))
		for key := range snapshot {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		pterm.Printf("%s\n", dir)
		for _, key := range keys {
			rec := snapshot[key]
			switch {
			case rec.Valid == nil:
				pterm.Printf("  %s %-22s pending\n", pterm.Gray("→"), key)
			case !*rec.Valid:
				pterm.Printf("  %s %-22s invalid\n", pterm.Red("✗"), key)
			case rec.Exported:
				pterm.Printf("  %s %-22s valid, exported\n", pterm.LightGreen("✓"), key)
			default:
				pterm.Printf("  %s %-22s valid, awaiting export\n", pterm.Yellow("•"), key)
			}
		}
		return nil
	},
}
