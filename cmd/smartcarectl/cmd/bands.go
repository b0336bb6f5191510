package cmd

import (
	"github.com/Bezalel011/Smartcare/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var bandsFacility string

var bandsCmd = &cobra.Command{
	Use:   "bands",
	Short: "Print the status and reorder bands in force for a facility",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadBands(cfg.BandsFile)
		if err != nil {
			return err
		}
		c := reg.For(bandsFacility)
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), c)
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(c)
	},
}

func init() {
	bandsCmd.Flags().StringVar(&bandsFacility, "facility", "", "facility id (default bands when empty)")
	rootCmd.AddCommand(bandsCmd)
}
