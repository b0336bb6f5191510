package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Bezalel011/Smartcare/config"
	"github.com/Bezalel011/Smartcare/internal/daemon"
	"github.com/Bezalel011/Smartcare/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var (
	jsonOut bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "smartcarectl",
	Short: "SmartCare operations tool",
	Long: `smartcarectl runs one-off SmartCare jobs against the configured database.

Commands:
  migrate    create or update the schema
  load-csv   import a historical daily export
  forecast   run the forecaster for one day
  evaluate   score a closed day's forecasts
  bands      print the effective status and reorder bands`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadConfig()
		if err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "JSON output")
}

// openStore connects to Postgres; the caller closes the pool.
func openStore(ctx context.Context) (*store.Postgres, *pgxpool.Pool, error) {
	pool, err := daemon.ConnectDB(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return store.NewPostgres(pool), pool, nil
}

// parseDay reads a YYYY-MM-DD flag, defaulting to fallback when empty.
func parseDay(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", s)
	}
	return d, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
