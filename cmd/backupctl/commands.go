// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/hardstore/internal/backup"
)

// backupService is the part of backup.Service the CLI drives.
type backupService interface {
	CreateBackup(ctx context.Context, opts backup.CreateOptions) (*backup.Entry, error)
	ListBackups(ctx context.Context) ([]backup.Entry, error)
	Info(ctx context.Context) (backup.CatalogInfo, error)
	Details(ctx context.Context, fileName string) (*backup.Entry, error)
	Verify(ctx context.Context, fileName string) (*backup.VerificationResult, error)
	Restore(ctx context.Context, fileName, confirmation string) (*backup.RestoreResult, error)
	PurgeOlderThan(ctx context.Context, days int) (*backup.PurgeResult, error)
	DeleteBackup(ctx context.Context, fileName string) error
	RetentionDays() int
}

// opener opens the service for one command. The returned func releases it.
type opener func(ctx context.Context, configPath string) (backupService, func(), error)

// Exit codes. Scripts branch on these rather than parsing messages.
const (
	exitFailure            = 1
	exitValidation         = 2
	exitNotFound           = 3
	exitInProgress         = 4
	exitManualIntervention = 5
)

func exitCode(err error) int {
	switch backup.KindOf(err) {
	case backup.KindValidationFailed:
		return exitValidation
	case backup.KindNotFound:
		return exitNotFound
	case backup.KindOperationInProgress:
		return exitInProgress
	case backup.KindManualInterventionRequired:
		return exitManualIntervention
	default:
		return exitFailure
	}
}

type cli struct {
	open       opener
	configPath string
	jsonOutput bool
}

// withService opens the service, runs fn and closes it again.
func (c *cli) withService(cmd *cobra.Command, fn func(ctx context.Context, svc backupService) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, closeFn, err := c.open(ctx, c.configPath)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, svc)
}

// print writes v as JSON, or runs table when --json is not set.
func (c *cli) print(w io.Writer, v interface{}, table func(tw *tabwriter.Writer)) error {
	if c.jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

func newRootCmd(open opener) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:          "backupctl",
		Short:        "Manage Hardstore database backups",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to config.yaml (default: CONFIG_PATH or search list)")
	root.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "print JSON instead of a table")

	root.AddCommand(
		c.listCmd(),
		c.infoCmd(),
		c.detailsCmd(),
		c.verifyCmd(),
		c.createCmd(),
		c.restoreCmd(),
		c.purgeCmd(),
		c.deleteCmd(),
	)
	return root
}

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withService(cmd, func(ctx context.Context, svc backupService) error {
				entries, err := svc.ListBackups(ctx)
				if err != nil {
					return err
				}
				return c.print(cmd.OutOrStdout(), entries, func(tw *tabwriter.Writer) {
					fmt.Fprintln(tw, "FILE\tCREATED\tSIZE\tAUTO\tSTATUS")
					for _, e := range entries {
						status := string(e.VerificationStatus)
						if e.CreationFailed {
							status += " (failed creation)"
						}
						fmt.Fprintf(tw, "%s\t%s\t%d\t%t\t%s\n",
							e.FileName, e.CreatedAt.Format(time.RFC3339), e.SizeBytes, e.IsAutomatic, status)
					}
				})
			})
		},
	}
}

func (c *cli) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Summarise the backup catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withService(cmd, func(ctx context.Context, svc backupService) error {
				info, err := svc.Info(ctx)
				if err != nil {
					return err
				}
				return c.print(cmd.OutOrStdout(), info, func(tw *tabwriter.Writer) {
					fmt.Fprintf(tw, "Count:\t%d\n", info.Count)
					fmt.Fprintf(tw, "Total size:\t%d bytes\n", info.TotalSizeBytes)
					fmt.Fprintf(tw, "Oldest:\t%s\n", formatOptionalTime(info.Oldest))
					fmt.Fprintf(tw, "Newest:\t%s\n", formatOptionalTime(info.Newest))
				})
			})
		},
	}
}

func (c *cli) detailsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "details <file>",
		Short: "Show one backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc backupService) error {
				entry, err := svc.Details(ctx, args[0])
				if err != nil {
					return err
				}
				return c.print(cmd.OutOrStdout(), entry, func(tw *tabwriter.Writer) {
					printEntry(tw, entry)
				})
			})
		},
	}
}

func (c *cli) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Check that a backup is restorable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc backupService) error {
				result, err := svc.Verify(ctx, args[0])
				if err != nil {
					return err
				}
				if err := c.print(cmd.OutOrStdout(), result, func(tw *tabwriter.Writer) {
					fmt.Fprintf(tw, "File:\t%s\n", result.FileName)
					fmt.Fprintf(tw, "Valid:\t%t\n", result.Valid)
					fmt.Fprintf(tw, "Message:\t%s\n", result.Message)
					if result.Checksum != "" {
						fmt.Fprintf(tw, "SHA-256:\t%s\n", result.Checksum)
					}
				}); err != nil {
					return err
				}
				if !result.Valid {
					return errors.New("backup is not valid")
				}
				return nil
			})
		},
	}
}

func (c *cli) createCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a backup of the live database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withService(cmd, func(ctx context.Context, svc backupService) error {
				entry, err := svc.CreateBackup(ctx, backup.CreateOptions{NameHint: name})
				if err != nil {
					return err
				}
				return c.print(cmd.OutOrStdout(), entry, func(tw *tabwriter.Writer) {
					printEntry(tw, entry)
				})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "backup file name (default: <database>_<timestamp>.bak)")
	return cmd
}

func (c *cli) restoreCmd() *cobra.Command {
	var confirm string
	cmd := &cobra.Command{
		Use:   "restore <file> --confirm <file>",
		Short: "Replace the live database with a backup",
		Long: "Replace the live database with a backup. This is destructive and cannot be undone;\n" +
			"--confirm must repeat the backup file name.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc backupService) error {
				result, err := svc.Restore(ctx, args[0], confirm)
				if err != nil {
					return err
				}
				return c.print(cmd.OutOrStdout(), result, func(tw *tabwriter.Writer) {
					fmt.Fprintf(tw, "Restored:\t%s\n", result.FileName)
					fmt.Fprintf(tw, "Duration:\t%s\n", result.Duration.Round(time.Millisecond))
					fmt.Fprintf(tw, "Verified:\t%t\n", result.Verified)
					if result.SafetyBackupFile != "" {
						fmt.Fprintf(tw, "Safety backup:\t%s\n", result.SafetyBackupFile)
					}
					for _, w := range result.Warnings {
						fmt.Fprintf(tw, "Warning:\t%s\n", w)
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&confirm, "confirm", "", "repeat the backup file name to confirm")
	return cmd
}

func (c *cli) purgeCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete backups older than --days (the newest backup is always kept)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withService(cmd, func(ctx context.Context, svc backupService) error {
				if !cmd.Flags().Changed("days") {
					days = svc.RetentionDays()
				}
				result, err := svc.PurgeOlderThan(ctx, days)
				if err != nil {
					return err
				}
				if err := c.print(cmd.OutOrStdout(), result, func(tw *tabwriter.Writer) {
					fmt.Fprintf(tw, "Cutoff:\t%s\n", result.Cutoff.Format(time.RFC3339))
					for _, f := range result.Deleted {
						fmt.Fprintf(tw, "deleted\t%s\n", f)
					}
					for _, f := range result.Kept {
						fmt.Fprintf(tw, "kept\t%s\n", f)
					}
					for _, f := range result.Failed {
						fmt.Fprintf(tw, "failed\t%s\t%s\n", f.FileName, f.Error)
					}
				}); err != nil {
					return err
				}
				if len(result.Failed) > 0 {
					return fmt.Errorf("%d backup(s) could not be deleted", len(result.Failed))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "age threshold in days (default: configured retention)")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <file>",
		Short: "Delete one backup regardless of its age",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc backupService) error {
				if err := svc.DeleteBackup(ctx, args[0]); err != nil {
					return err
				}
				if c.jsonOutput {
					return c.print(cmd.OutOrStdout(), map[string]string{"deleted": args[0]}, nil)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func printEntry(tw *tabwriter.Writer, e *backup.Entry) {
	fmt.Fprintf(tw, "File:\t%s\n", e.FileName)
	fmt.Fprintf(tw, "Created:\t%s\n", e.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "Size:\t%s bytes\n", strconv.FormatInt(e.SizeBytes, 10))
	fmt.Fprintf(tw, "Automatic:\t%t\n", e.IsAutomatic)
	fmt.Fprintf(tw, "Verification:\t%s\n", e.VerificationStatus)
	if e.Checksum != "" {
		fmt.Fprintf(tw, "SHA-256:\t%s\n", e.Checksum)
	}
	if e.CreationFailed {
		fmt.Fprintf(tw, "Creation failed:\t%s\n", e.FailureReason)
	}
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
