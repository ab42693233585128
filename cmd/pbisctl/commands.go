package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/pbis-api/internal/bootstrap"
	"github.com/noah-isme/pbis-api/internal/models"
	"github.com/noah-isme/pbis-api/pkg/config"
	"github.com/noah-isme/pbis-api/pkg/logger"
)

type options struct {
	output string
	year   int
	month  int
	date   string
	from   string
	to     string
	out    string
}

type runner func(ctx context.Context, app *bootstrap.Container, opts *options, w io.Writer) error

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "pbisctl",
		Short:         "Operator CLI for the PBIS tier support engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "json", "output format: json or yaml")

	now := time.Now()
	monthFlags := func(cmd *cobra.Command) {
		cmd.Flags().IntVar(&opts.year, "year", now.Year(), "year")
		cmd.Flags().IntVar(&opts.month, "month", int(now.Month()), "month")
	}

	meeting := &cobra.Command{
		Use:   "meeting",
		Short: "Four-week team meeting triage",
		RunE:  withApp(opts, runMeeting),
	}
	meeting.Flags().StringVar(&opts.date, "date", "", "reference date YYYY-MM-DD (default today)")

	tier3 := &cobra.Command{
		Use:   "tier3",
		Short: "Tier3 caseload review",
		RunE:  withApp(opts, runTier3),
	}
	tier3.Flags().StringVar(&opts.from, "from", "", "start date YYYY-MM-DD")
	tier3.Flags().StringVar(&opts.to, "to", "", "end date YYYY-MM-DD")

	cicoReview := &cobra.Command{
		Use:   "cico-review",
		Short: "Monthly CICO review",
		RunE:  withApp(opts, runCICOReview),
	}
	monthFlags(cicoReview)

	businessDays := &cobra.Command{
		Use:   "business-days",
		Short: "List the school days of a month",
		RunE:  withApp(opts, runBusinessDays),
	}
	monthFlags(businessDays)

	exportCICO := &cobra.Command{
		Use:   "export-cico",
		Short: "Write a month's CICO grid to an XLSX file",
		RunE:  withApp(opts, runExportCICO),
	}
	monthFlags(exportCICO)
	exportCICO.Flags().StringVar(&opts.out, "out", "", "output file (default cico-YYYY-MM.xlsx)")

	root.AddCommand(meeting, tier3, cicoReview, businessDays, exportCICO)
	return root
}

func withApp(opts *options, run runner) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logr, err := logger.New(cfg)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer logr.Sync() //nolint:errcheck

		app, err := bootstrap.New(cmd.Context(), cfg, logr.WithOptions(zap.IncreaseLevel(zap.WarnLevel)))
		if err != nil {
			return err
		}
		defer app.Close()
		return run(cmd.Context(), app, opts, cmd.OutOrStdout())
	}
}

func parseOptionalDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, ok := models.ParseDate(raw)
	if !ok {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return &d, nil
}

func render(w io.Writer, format string, v interface{}) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func runMeeting(ctx context.Context, app *bootstrap.Container, opts *options, w io.Writer) error {
	ref, err := parseOptionalDate(opts.date)
	if err != nil {
		return err
	}
	report, err := app.Triage.Meeting(ctx, ref)
	if err != nil {
		return err
	}
	return render(w, opts.output, report)
}

func runTier3(ctx context.Context, app *bootstrap.Container, opts *options, w io.Writer) error {
	from, err := parseOptionalDate(opts.from)
	if err != nil {
		return err
	}
	to, err := parseOptionalDate(opts.to)
	if err != nil {
		return err
	}
	report, err := app.Triage.Tier3(ctx, models.DateRange{From: from, To: to})
	if err != nil {
		return err
	}
	return render(w, opts.output, report)
}

func runCICOReview(ctx context.Context, app *bootstrap.Container, opts *options, w io.Writer) error {
	report, err := app.Triage.CICO(ctx, models.MonthKey{Year: opts.year, Month: opts.month})
	if err != nil {
		return err
	}
	return render(w, opts.output, report)
}

func runBusinessDays(ctx context.Context, app *bootstrap.Container, opts *options, w io.Writer) error {
	days, _, err := app.CICO.BusinessDays(ctx, models.MonthKey{Year: opts.year, Month: opts.month})
	if err != nil {
		return err
	}
	return render(w, opts.output, businessDayLabels(days))
}

func businessDayLabels(days []time.Time) []string {
	labels := make([]string, 0, len(days))
	for _, d := range days {
		labels = append(labels, d.Format(models.DateLayout))
	}
	return labels
}

func runExportCICO(ctx context.Context, app *bootstrap.Container, opts *options, w io.Writer) error {
	result, err := app.Exports.CICOGrid(ctx, models.MonthKey{Year: opts.year, Month: opts.month})
	if err != nil {
		return err
	}
	path := opts.out
	if path == "" {
		path = result.Filename
	}
	if err := os.WriteFile(path, result.Payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	_, err = fmt.Fprintf(w, "wrote %s (%d bytes)\n", path, len(result.Payload))
	return err
}
