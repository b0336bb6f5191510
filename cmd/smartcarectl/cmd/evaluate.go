package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/Bezalel011/Smartcare/accuracy"
	"github.com/Bezalel011/Smartcare/pipeline"
	"github.com/spf13/cobra"
)

var evaluateDate string

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score a closed day's forecasts against actuals (default: today minus the evaluation lag)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		def := cfg.Clinic.Today(time.Now()).AddDate(0, 0, -cfg.Schedule.EvaluationLagDays)
		date, err := parseDay(evaluateDate, def)
		if err != nil {
			return err
		}

		st, pool, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		ev, err := pipeline.NewEvaluator(st, accuracy.DefaultMetrics(), cfg.Forecast.Workers)
		if err != nil {
			return err
		}
		rep, err := ev.RunDate(ctx, date)
		if err != nil {
			return err
		}

		failed := make([]string, 0, len(rep.Failed))
		for id := range rep.Failed {
			failed = append(failed, id)
		}
		sort.Strings(failed)

		if jsonOut {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"date":     rep.Date.Format(time.DateOnly),
				"stored":   rep.Stored,
				"deferred": rep.Deferred,
				"failed":   failed,
			})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d metric rows stored, deferred %v, failed %v\n",
			rep.Date.Format(time.DateOnly), rep.Stored, rep.Deferred, failed)
		return nil
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateDate, "date", "", "day to evaluate, YYYY-MM-DD")
	rootCmd.AddCommand(evaluateCmd)
}
