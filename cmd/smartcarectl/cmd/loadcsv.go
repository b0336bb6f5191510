package cmd

import (
	"fmt"
	"os"

	"github.com/Bezalel011/Smartcare/etl"
	"github.com/spf13/cobra"
)

var loadFacility string

var loadCSVCmd = &cobra.Command{
	Use:   "load-csv <file>",
	Short: "Import a daily export with visit counts, weather and <item>_used columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()

		st, pool, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		stats, err := etl.Loader{DefaultFacility: loadFacility}.Load(cmd.Context(), f, st)
		if stats != nil && jsonOut {
			if perr := printJSON(cmd.OutOrStdout(), stats); perr != nil {
				return perr
			}
		} else if stats != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d rows: %d visit rows, %d demand rows, items %v\n",
				stats.Rows, stats.Visits, stats.DemandRows, stats.Items)
		}
		return err
	},
}

func init() {
	loadCSVCmd.Flags().StringVar(&loadFacility, "facility", "", "facility for rows without a facility_id column")
	rootCmd.AddCommand(loadCSVCmd)
}
