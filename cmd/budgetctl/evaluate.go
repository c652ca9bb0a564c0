package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"famledger/internal/app"
	"famledger/internal/notify"
	"famledger/internal/period"
)

func newEvaluateCommand() *cobra.Command {
	var (
		familyID   string
		periodName string
		year       int
		month      int
		notifyUser string
	)

	now := time.Now().UTC()

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Print the budget alerts of a family for one period",
		Long: "Evaluate every active budget of a family against its alert threshold.\n" +
			"With --notify-user the alerts that user has not been sent this period\n" +
			"are stored and published as notifications.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := uuid.Parse(familyID); err != nil {
				return fmt.Errorf("invalid --family: %w", err)
			}
			p, err := period.Parse(periodName)
			if err != nil {
				return err
			}
			window, _, err := period.Resolve(p, year, month)
			if err != nil {
				return err
			}

			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			var publisher notify.Publisher = notify.LogPublisher{}
			if notifyUser != "" {
				if publisher, err = app.NewPublisher(rt.cfg); err != nil {
					return err
				}
				defer publisher.Close()
			}
			svc := rt.services(publisher)

			alerts, err := svc.Alerts.EvaluateFamily(familyID, p, year, month)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s budgets %s to %s\n", p, window.Start.Format(time.DateOnly), window.End.Format(time.DateOnly))
			if len(alerts) == 0 {
				fmt.Fprintln(out, "no alerts")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SEVERITY\tCATEGORY\tSPENT\tCEILING\tRATE\tMESSAGE")
			for _, a := range alerts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s%%\t%s\n",
					a.Severity, a.CategoryName, a.Spent.StringFixed(2), a.Ceiling.StringFixed(2),
					a.UtilizationRate.StringFixed(2), a.Message)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if notifyUser == "" {
				return nil
			}
			fresh, err := svc.Alerts.Dedupe(notifyUser, window.Start, alerts)
			if err != nil {
				return err
			}
			created := svc.Alerts.Persist(cmd.Context(), notifyUser, fresh)
			fmt.Fprintf(out, "%d new notification(s) for user %s\n", len(created), notifyUser)
			return nil
		},
	}

	cmd.Flags().StringVar(&familyID, "family", "", "family ID (required)")
	_ = cmd.MarkFlagRequired("family")
	cmd.Flags().StringVar(&periodName, "period", "monthly", "monthly, quarterly or yearly")
	cmd.Flags().IntVar(&year, "year", now.Year(), "year of the period")
	cmd.Flags().IntVar(&month, "month", int(now.Month()), "any month inside the period")
	cmd.Flags().StringVar(&notifyUser, "notify-user", "", "store and publish new alerts for this user ID")

	return cmd
}
