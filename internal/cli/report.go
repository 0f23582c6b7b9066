package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seon-creator/SSG-EDU-Project/internal/models"
	"github.com/seon-creator/SSG-EDU-Project/internal/service"
)

var (
	reportUser   string
	reportsUser  string
	reportsStart string
	reportsEnd   string
)

var reportCmd = &cobra.Command{
	Use:   "report <date>",
	Short: "Get or generate the daily clinical report for a date",
	Long: `Get the daily clinical report for a user and date (YYYY-MM-DD).

If no report exists yet, the user's messages from that day are summarized
into one. Running the command twice returns the same report.

Examples:
  medichat report 2025-03-14 --user patient-7
  medichat report 2025-03-14`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List daily reports for a user",
	Args:  cobra.NoArgs,
	RunE:  runReports,
}

func init() {
	reportCmd.Flags().StringVarP(&reportUser, "user", "u", "cli", "user id")

	reportsCmd.Flags().StringVarP(&reportsUser, "user", "u", "cli", "user id")
	reportsCmd.Flags().StringVar(&reportsStart, "from", "", "start date (YYYY-MM-DD)")
	reportsCmd.Flags().StringVar(&reportsEnd, "to", "", "end date (YYYY-MM-DD)")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc, err := getReportService(ctx)
	if err != nil {
		return err
	}

	report, generated, err := svc.GetOrCreateDailyReport(ctx, reportUser, args[0])
	if err != nil {
		if errors.Is(err, service.ErrExtraction) {
			return fmt.Errorf("the model did not produce a usable report, try again: %w", err)
		}
		return fmt.Errorf("daily report: %w", err)
	}
	if report == nil {
		fmt.Printf("No messages recorded for %s on %s.\n", reportUser, args[0])
		return nil
	}

	if generated {
		fmt.Println("Generated new report:")
	}
	printReport(report)
	return nil
}

func runReports(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc, err := getReportService(ctx)
	if err != nil {
		return err
	}

	reports, err := svc.ListReports(ctx, reportsUser, reportsStart, reportsEnd)
	if err != nil {
		return fmt.Errorf("list reports: %w", err)
	}

	if len(reports) == 0 {
		fmt.Println("No reports found.")
		return nil
	}

	for i := range reports {
		printReport(&reports[i])
		fmt.Println()
	}
	return nil
}

func printReport(r *models.DailyReport) {
	fmt.Printf("Date:      %s\n", r.ReportDate)
	fmt.Printf("Severity:  %s\n", r.Severity)
	fmt.Printf("Diagnosis: %s\n", r.Diagnosis)
	fmt.Printf("Symptoms:\n")
	for _, s := range r.Symptoms {
		fmt.Printf("  - %s\n", s)
	}
	fmt.Printf("Advice:\n")
	for _, a := range r.Advice {
		fmt.Printf("  - %s\n", a)
	}
}
