package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/leave-register/generic"
	"github.com/warp/leave-register/ledger"
	"github.com/warp/leave-register/report"
	"github.com/warp/leave-register/timeoff"
	"go.uber.org/zap"
)

// ledgerSource is the --ledger / --user pair shared by classify and report.
type ledgerSource struct {
	file string
	user string
}

func (s *ledgerSource) flags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.file, "ledger", "", "Exported ledger file")
	cmd.Flags().StringVar(&s.user, "user", "", "Read the ledger of this user from the store")
	cmd.MarkFlagsMutuallyExclusive("ledger", "user")
}

// load returns the ledger; with neither flag set it is nil (holidays only).
func (s *ledgerSource) load(ctx context.Context) (*ledger.Ledger, error) {
	switch {
	case s.file != "":
		f, err := os.Open(s.file)
		if err != nil {
			return nil, fmt.Errorf("failed to open ledger: %w", err)
		}
		defer f.Close()
		l, rep, err := ledger.Import(f)
		if err != nil {
			return nil, err
		}
		if !rep.Clean() {
			logger.Warn("ledger entries skipped", zap.Strings("skipped", rep.Skipped), zap.Int("migrated", rep.Migrated))
		}
		return l, nil

	case s.user != "":
		a, err := newApp(ctx)
		if err != nil {
			return nil, err
		}
		defer a.Close()
		snap, err := a.service.Load(ctx, timeoff.NewSession(generic.Username(s.user), cfg.Report.Locale))
		if err != nil {
			return nil, err
		}
		return snap.Ledger, nil
	}
	return nil, nil
}

func monthFlags(cmd *cobra.Command, year, month *int) {
	now := time.Now()
	cmd.Flags().IntVar(year, "year", now.Year(), "Year")
	cmd.Flags().IntVar(month, "month", int(now.Month()), "Month (1-12)")
}

func checkMonth(month int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d", generic.ErrInvalidInput, month)
	}
	return nil
}

// =============================================================================
// CLASSIFY
// =============================================================================

func classifyCmd() *cobra.Command {
	var (
		src         ledgerSource
		year, month int
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Print a month's weekdays as workday, holiday or leave",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkMonth(month); err != nil {
				return err
			}
			d, err := newDomain()
			if err != nil {
				return err
			}
			l, err := src.load(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, day := range d.engine.Classify(year, time.Month(month), l) {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", day.Date, day.Date.Weekday().String()[:3], day.Kind)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			s := d.engine.MonthSummary(year, time.Month(month), l)
			fmt.Fprintf(out, "\n%d workdays (%s h), %d holidays, %d leave\n", s.Workdays, s.Hours, s.Holidays, s.Leave)
			return nil
		},
	}
	src.flags(cmd)
	monthFlags(cmd, &year, &month)
	return cmd
}

// =============================================================================
// REPORT
// =============================================================================

func reportCmd() *cobra.Command {
	var (
		src          ledgerSource
		year, month  int
		templatePath string
		outPath      string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Fill the attendance form for a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkMonth(month); err != nil {
				return err
			}
			if templatePath == "" {
				templatePath = cfg.Report.Template
			}
			if templatePath == "" {
				return fmt.Errorf("%w: --template or report.template is required", generic.ErrInvalidTemplate)
			}
			tpl, err := loadTemplate(templatePath)
			if err != nil {
				return err
			}
			d, err := newDomain()
			if err != nil {
				return err
			}
			l, err := src.load(cmd.Context())
			if err != nil {
				return err
			}

			var profile ledger.Profile
			if l != nil {
				profile = l.Profile
			}
			m := time.Month(month)
			doc, err := d.compiler.Fill(tpl, d.engine.Classify(year, m, l), report.NewHeader(year, m, d.locale, profile))
			if err != nil {
				return err
			}
			doc.Filename = report.Filename(m, d.locale, "pdf")

			data, err := doc.Encode()
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = report.Filename(m, d.locale, "json")
			}
			if outPath == "-" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d filled slots)\n", outPath, len(doc.Values()))
			return nil
		},
	}
	src.flags(cmd)
	monthFlags(cmd, &year, &month)
	cmd.Flags().StringVar(&templatePath, "template", "", "Slot list JSON (overrides report.template)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file, '-' for stdout (default MONTH_report.json)")
	return cmd
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func holidaysCmd() *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "List the regional holidays of a year",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := cfg.Ruleset()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s) %d\n", rules.Region(), rules.Version(), year)
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, h := range rules.Holidays(year) {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", h.Date, h.Date.Weekday().String()[:3], h.Name)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "Year")
	return cmd
}
