package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lihkab/internal/core"
	"lihkab/internal/report"
	"lihkab/internal/services"
)

// RootCmd assembles lihkabctl.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lihkabctl",
		Short: "Administer the LİHKAB office data",
		Long: `lihkabctl exports payment reports, adds users and manages table
snapshots. It reads the same environment (and .env) as the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(ExportCmd(), UserCmd(), SnapshotCmd())
	return root
}

func withRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	ctx, cancel := context.WithTimeout(ctx, rt.cfg.GatewayTimeout)
	defer cancel()
	return fn(ctx, rt)
}

func ok(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", color.New(color.FgGreen).Sprint("✓"), fmt.Sprintf(format, args...))
}

// ExportCmd writes the payment reports to files.
func ExportCmd() *cobra.Command {
	var (
		out      string
		year     int
		month    string
		customer string
	)
	filter := func() core.Filter {
		return core.Filter{Year: year, Month: monthNumber(month), Customer: customer}
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export payment reports",
	}
	exportCmd.PersistentFlags().StringVarP(&out, "out", "o", "", "output file (default: the report's standard name)")
	exportCmd.PersistentFlags().IntVar(&year, "year", 0, "only jobs of this year")
	exportCmd.PersistentFlags().StringVar(&month, "month", "", "only jobs of this month (number or Turkish name)")
	exportCmd.PersistentFlags().StringVar(&customer, "customer", "", "only jobs of this customer")

	pdfCmd := &cobra.Command{
		Use:   "pdf",
		Short: "Export pending payments as PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
				v, err := rt.jobs.Payments(ctx, filter())
				if err != nil {
					return err
				}
				path := orDefault(out, report.PendingPDFName)
				if err := writeFile(path, func(w io.Writer) error {
					return report.PendingPDF(w, v.Pending, time.Now())
				}); err != nil {
					return err
				}
				ok(cmd.OutOrStdout(), "Wrote %s (%d pending, %s)", path, len(v.Pending), core.FormatTL(v.Summary.PendingFees))
				return nil
			})
		},
	}

	xlsxCmd := &cobra.Command{
		Use:   "xlsx",
		Short: "Export the filtered jobs as an Excel workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
				v, err := rt.jobs.Payments(ctx, filter())
				if err != nil {
					return err
				}
				path := orDefault(out, report.JobsXLSXName)
				if err := writeFile(path, func(w io.Writer) error {
					return report.JobsXLSX(w, v.Jobs)
				}); err != nil {
					return err
				}
				ok(cmd.OutOrStdout(), "Wrote %s (%d jobs)", path, len(v.Jobs))
				return nil
			})
		},
	}

	exportCmd.AddCommand(pdfCmd, xlsxCmd)
	return exportCmd
}

// UserCmd manages the users table.
func UserCmd() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var password, role string
	addCmd := &cobra.Command{
		Use:   "add [username]",
		Short: "Add a user (the password is stored as a bcrypt hash)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
				in := services.UserInput{Username: args[0], Password: password, Role: core.Role(role)}
				if err := rt.users.CreateUser(ctx, in); err != nil {
					return err
				}
				ok(cmd.OutOrStdout(), "Added user %s (%s)", core.NormalizeUser(core.User{Username: args[0]}).Username, role)
				return nil
			})
		},
	}
	addCmd.Flags().StringVarP(&password, "password", "p", "", "password (required)")
	addCmd.Flags().StringVarP(&role, "role", "r", string(core.RoleUser), "user or admin")
	_ = addCmd.MarkFlagRequired("password")

	userCmd.AddCommand(addCmd)
	return userCmd
}

// SnapshotCmd lists, takes and restores table snapshots.
func SnapshotCmd() *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage table snapshots",
	}

	var table string
	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
				if _, err := rt.snapshots(); err != nil {
					return err
				}
				snaps, err := rt.repo.ListSnapshots(ctx, table, limit)
				if err != nil {
					return err
				}
				if len(snaps) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No snapshots.")
					return nil
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTABLE\tREVISION\tROWS\tCREATED")
				for _, s := range snaps {
					fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n",
						s.ID, s.Table, s.Revision, s.Rows, s.CreatedAt.Local().Format("2006-01-02 15:04:05"))
				}
				return w.Flush()
			})
		},
	}
	listCmd.Flags().StringVarP(&table, "table", "t", "", "only this table")
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of snapshots (0 for all)")

	takeCmd := &cobra.Command{
		Use:   "take",
		Short: "Snapshot every table now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
				sw, err := rt.snapshots()
				if err != nil {
					return err
				}
				if err := sw.SnapshotAll(ctx); err != nil {
					return err
				}
				st := sw.Stats()
				ok(cmd.OutOrStdout(), "%d new, %d unchanged", st.Saved, st.Unchanged)
				return nil
			})
		},
	}

	var yes bool
	restoreCmd := &cobra.Command{
		Use:   "restore [id]",
		Short: "Overwrite a table with one of its snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid snapshot id %q", args[0])
			}
			if !yes {
				return fmt.Errorf("restoring overwrites the table; rerun with --yes to confirm")
			}
			return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
				sw, err := rt.snapshots()
				if err != nil {
					return err
				}
				// Keep the current state so the restore itself can be undone.
				if err := sw.SnapshotAll(ctx); err != nil {
					return err
				}
				snap, err := sw.Restore(ctx, rt.backend.Gateway, id)
				if err != nil {
					return err
				}
				ok(cmd.OutOrStdout(), "Restored %s to snapshot %d (%d rows)", snap.Table, snap.ID, snap.Rows)
				return nil
			})
		},
	}
	restoreCmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the overwrite")

	snapshotCmd.AddCommand(listCmd, takeCmd, restoreCmd)
	return snapshotCmd
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// writeFile renders into path, removing the file when rendering fails.
func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// monthNumber accepts 1-12 or a Turkish month name.
func monthNumber(s string) int {
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 12 {
		return n
	}
	for i, name := range core.MonthNames {
		if name == s {
			return i + 1
		}
	}
	return 0
}
