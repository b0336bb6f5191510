package cmd

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/Bezalel011/Smartcare/config"
	"github.com/Bezalel011/Smartcare/internal/daemon"
	"github.com/Bezalel011/Smartcare/pipeline"
	"github.com/spf13/cobra"
)

var (
	forecastFacility string
	forecastDate     string
	forecastPublish  bool
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast visits and demand starting at a day (default: today)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		forDate, err := parseDay(forecastDate, cfg.Clinic.Today(time.Now()))
		if err != nil {
			return err
		}
		bands, err := config.LoadBands(cfg.BandsFile)
		if err != nil {
			return err
		}

		st, pool, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		pub := pipeline.RedisPublisher(nil)
		if forecastPublish {
			if client := daemon.ConnectRedis(ctx, cfg.Redis); client != nil {
				defer client.Close()
				pub = pipeline.RedisPublisher(client)
			}
		}

		fc := cfg.Forecast
		runner := pipeline.NewRunner(st, bands, pub, pipeline.Options{
			LookbackDays:  fc.LookbackDays,
			HorizonDays:   fc.HorizonDays,
			NaiveFallback: fc.NaiveFallback,
			Workers:       fc.Workers,
			ModelVersion:  fc.ModelVersion,
			VolumeParams:  fc.VolumeParams(),
			DemandParams:  fc.DemandParams(),
		})

		var reports []*pipeline.FacilityReport
		if forecastFacility != "" {
			rep, err := runner.RunFacility(ctx, forecastFacility, forDate)
			if err != nil {
				return err
			}
			reports = append(reports, rep)
		} else {
			reports, err = runner.RunAll(ctx, forDate)
			if err != nil {
				return err
			}
		}

		if jsonOut {
			return printJSON(cmd.OutOrStdout(), reportViews(reports))
		}
		for _, rep := range reports {
			printReport(cmd, rep)
		}
		return nil
	},
}

func init() {
	forecastCmd.Flags().StringVar(&forecastFacility, "facility", "", "forecast only this facility")
	forecastCmd.Flags().StringVar(&forecastDate, "date", "", "first forecast day, YYYY-MM-DD")
	forecastCmd.Flags().BoolVar(&forecastPublish, "publish", false, "publish alerts and forecasts to Redis")
	rootCmd.AddCommand(forecastCmd)
}

// reportView is the JSON shape of a report; errors become strings.
type reportView struct {
	*pipeline.FacilityReport
	Failures map[string]string `json:"Failures,omitempty"`
}

func reportViews(reports []*pipeline.FacilityReport) []reportView {
	out := make([]reportView, 0, len(reports))
	for _, rep := range reports {
		v := reportView{FacilityReport: rep}
		if len(rep.Failures) > 0 {
			v.Failures = make(map[string]string, len(rep.Failures))
			for k, err := range rep.Failures {
				v.Failures[k] = err.Error()
			}
		}
		out = append(out, v)
	}
	return out
}

func printReport(cmd *cobra.Command, rep *pipeline.FacilityReport) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "facility %s from %s (run %s)\n", rep.FacilityID, rep.ForDate.Format(time.DateOnly), rep.RunID)
	if rep.Status != nil {
		fmt.Fprintf(w, "  status %s: %s\n", rep.Status.Level, rep.Status.Reason)
	}
	for _, v := range rep.Volume {
		fmt.Fprintf(w, "  %s visits %.1f [%.1f, %.1f] %s\n", v.Date.Format(time.DateOnly), v.Yhat, v.P10, v.P90, v.StatusLevel)
	}
	fmt.Fprintf(w, "  demand rows %d, naive %d, clamped %d\n", len(rep.Demand), rep.Naive, rep.Clamped)
	for _, a := range rep.Alerts {
		fmt.Fprintf(w, "  %s %s %s\n", a.Severity, a.Type, a.Message)
	}
	keys := make([]string, 0, len(rep.Failures))
	for k := range rep.Failures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  failed %s: %v\n", k, rep.Failures[k])
		log.Printf("facility=%s entity=%s failed: %v", rep.FacilityID, k, rep.Failures[k])
	}
}
