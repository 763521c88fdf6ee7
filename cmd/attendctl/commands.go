package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"staffattend/internal/attendance"
	"staffattend/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if a.DB == nil {
			return fmt.Errorf("migrate needs STORE_BACKEND=postgres")
		}
		if err := a.Migrate(cmd.Context()); err != nil {
			return err
		}
		v, err := store.MigrationVersion(cmd.Context(), a.DB.Client)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", v)
		return nil
	},
}

var timelineCmd = &cobra.Command{
	Use:   "timeline <employee-code>",
	Short: "Print an employee's reconstructed attendance, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		view, err := a.Reports.EmployeeTimeline(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(cmd, view)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (%s) from %s [%s] to %s\n", view.Employee.Name, view.Employee.Code,
			view.Timeline.Start, view.Timeline.StartSource, view.Timeline.End)
		fmt.Fprintf(out, "last %d days: %d present, %d absent\n\n",
			view.Recent.Days(), view.RecentPresent, view.RecentAbsent)
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tSTATUS\tCHECK-IN")
		for _, e := range view.Timeline.Descending() {
			checkIn := "-"
			if e.Record != nil && e.Record.Time != nil {
				checkIn = e.Record.Time.String()
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Date, e.Status, checkIn)
		}
		return tw.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print attendance statistics for the trailing days",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		days, _ := cmd.Flags().GetInt("days")
		department, _ := cmd.Flags().GetString("department")
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		sum, err := a.Reports.Window(cmd.Context(), days, department)
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(cmd, sum)
		}
		printSummary(cmd, sum)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write an attendance workbook (.xlsx)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		days, _ := cmd.Flags().GetInt("days")
		path, _ := cmd.Flags().GetString("out")
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if path == "" {
			path = fmt.Sprintf("attendance-%s.xlsx", a.Attendance.Today())
		}
		f, err := os.Create(filepath.Clean(path))
		if err != nil {
			return err
		}
		if err := a.Reports.Export(cmd.Context(), f, days); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

var enrollCmd = &cobra.Command{
	Use:   "enroll <employee-code>",
	Short: "Extract descriptors from an employee's photo now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Employees.Enroll(cmd.Context(), args[0], a.Face); err != nil {
			return err
		}
		e, err := a.Employees.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s enrolled with %d descriptor(s)\n", e.Code, e.DescriptorCount)
		return nil
	},
}

func init() {
	statsCmd.Flags().Int("days", 7, "Trailing days to aggregate")
	statsCmd.Flags().String("department", "", "Only employees of this department")
	exportCmd.Flags().Int("days", 30, "Trailing days to export")
	exportCmd.Flags().StringP("out", "o", "", "Output file (default attendance-<today>.xlsx)")

	rootCmd.AddCommand(migrateCmd, timelineCmd, statsCmd, exportCmd, enrollCmd)
}

func printSummary(cmd *cobra.Command, sum attendance.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s to %s: %d employees, %d present, %d absent (%d%%)\n\n",
		sum.Window.From, sum.Window.To, sum.TotalEmployees, sum.PresentCount, sum.AbsentCount, sum.Percent)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tPRESENT\tABSENT")
	for _, b := range sum.DailyBuckets {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", b.Date, b.Present, b.Absent)
	}
	_ = tw.Flush()
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
