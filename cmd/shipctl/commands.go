package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/shiptrack/internal/auth"
	"github.com/sakif/shiptrack/internal/config"
	"github.com/sakif/shiptrack/internal/model"
	"github.com/sakif/shiptrack/internal/server"
)

// withDeps loads config, wires the dependencies and hands them to fn. The
// context is cancelled on SIGINT/SIGTERM.
func withDeps(cmd *cobra.Command, fn func(ctx context.Context, deps *server.Deps) error) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	logger := cfg.Log.NewLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := server.Wire(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.DB.Close()
	return fn(ctx, deps)
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one tracking pass over every onboarded user",
		Long: `Fetch each onboarded user's recent posts, classify them against the
user's project, update streaks and send notification emails.

Prints the run summary as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, func(ctx context.Context, deps *server.Deps) error {
				sum, err := deps.Engine.Run(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), sum)
			})
		},
	}
}

func notifyTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notify-test",
		Short: "Send every email template to every user with an email address",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, func(ctx context.Context, deps *server.Deps) error {
				results, err := deps.Notifications.SendTestNotifications(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), results)
			})
		},
	}
}

func leaderboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the top users by total ships",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			asJSON, _ := cmd.Flags().GetBool("json")
			return withDeps(cmd, func(ctx context.Context, deps *server.Deps) error {
				entries, err := deps.Users.Leaderboard(ctx, limit)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), entries)
				}
				return printLeaderboard(cmd.OutOrStdout(), entries)
			})
		},
	}
	cmd.Flags().IntP("limit", "n", 10, "Maximum entries")
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	return cmd
}

func hashSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-secret [secret]",
		Short: "Print the bcrypt hash to use as CRON_SECRET_HASH",
		Long: `Hash a cron secret for auth.cronSecretHash / CRON_SECRET_HASH.

The secret is read from the argument or, when omitted, from stdin so it
stays out of shell history.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cost, _ := cmd.Flags().GetInt("cost")

			var secret string
			if len(args) == 1 {
				secret = args[0]
			} else {
				b, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 1024))
				if err != nil {
					return fmt.Errorf("reading secret: %w", err)
				}
				secret = strings.TrimRight(string(b), "\r\n")
			}

			hash, err := auth.HashSecret(secret, cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printLeaderboard(w io.Writer, entries []model.LeaderboardEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No one has shipped yet.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tHANDLE\tSHIPS\tSTREAK\tSTARS\tLEVEL")
	for i, e := range entries {
		fmt.Fprintf(tw, "%d\t@%s\t%d\t%d\t%d\t%s\n",
			i+1, e.TwitterHandle, e.TotalShips, e.StreakCount, e.Stars, e.CommitmentLevel)
	}
	return tw.Flush()
}

