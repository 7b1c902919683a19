package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"revsite/internal/app"
	"revsite/internal/config"
	"revsite/internal/site"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the REVSITE_* environment and
// the common command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}

	cacheDir, _ := cmd.Flags().GetString("cache-dir")
	databaseURL, _ := cmd.Flags().GetString("database-url")

	cfg, err := app.LoadConfig(defaults, app.Overrides{CacheDir: cacheDir, DatabaseURL: databaseURL})
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults.ConfigPath, nil
}

// newApp reads the config and creates a SiteApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "create", "publish").
func newApp(cmd *cobra.Command, operation string) (*app.SiteApp, error) {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	a, err := app.NewSiteApp(cmd.Context(), cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// publishOptions reads the publish flags shared by publish and watch.
func publishOptions(cmd *cobra.Command) site.PublishOptions {
	baseURL, _ := cmd.Flags().GetString("base-url")
	buildDir, _ := cmd.Flags().GetString("build-dir")
	drafts, _ := cmd.Flags().GetBool("drafts")
	future, _ := cmd.Flags().GetBool("future")
	expired, _ := cmd.Flags().GetBool("expired")

	return site.PublishOptions{
		BaseURL:  baseURL,
		BuildDir: buildDir,
		Drafts:   drafts,
		Future:   future,
		Expired:  expired,
	}
}

var rootCmd = &cobra.Command{
	Use:          "revsite",
	Short:        "Incremental static site builder",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get application defaults
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		// Create config with defaults
		cfg := config.NewConfig(defaults.BaseDir)

		// Initialize config file
		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		fmt.Printf("# Configuration from %s\n\n", path)
		m := &config.Manager{}
		return m.Write(os.Stdout, cfg)
	},
}

// create command
var createCmd = &cobra.Command{
	Use:   "create SRC_DIR",
	Short: "Build a new revision from a source directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "create")
		if err != nil {
			return err
		}
		defer a.Close()

		rev, stats, err := a.CreateRevision(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("create failed: %w", err)
		}

		fmt.Printf("Created revision %d: %d file(s), %d new, %d route(s), %d page(s)\n",
			rev.ID, stats.Files, stats.NewInputFiles, stats.Routes, stats.Pages)
		if stats.Skipped > 0 {
			fmt.Printf("Skipped %d file(s) outside the source directories\n", stats.Skipped)
		}
		return nil
	},
}

// publish command
var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Render a revision into the build directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		revision, _ := cmd.Flags().GetInt64("revision")

		a, err := newApp(cmd, "publish")
		if err != nil {
			return err
		}
		defer a.Close()

		opts := publishOptions(cmd)
		opts.RevisionID = revision

		result, err := a.Publish(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("publish failed: %w", err)
		}

		fmt.Printf("Published revision %d: %d file(s) written, %d page(s) skipped\n",
			result.Revision.ID, result.Written, result.Skipped)
		if n := len(result.Warnings); n > 0 {
			fmt.Printf("%d unresolved link(s), see log\n", n)
		}
		return nil
	},
}

// delete command
var deleteCmd = &cobra.Command{
	Use:   "delete REVISION",
	Short: "Delete a revision",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid revision %q: %w", args[0], err)
		}

		a, err := newApp(cmd, "delete")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteRevision(cmd.Context(), id); err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}

		fmt.Printf("Deleted revision %d\n", id)
		return nil
	},
}

// cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove files no revision references",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "cleanup")
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.Cleanup(cmd.Context())
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}

		fmt.Printf("Removed %d input file(s), %d cache entr(ies)\n", stats.InputFiles, stats.RemovedEntries)
		if stats.MissingEntries > 0 {
			fmt.Printf("%d cache entr(ies) were already missing, see log\n", stats.MissingEntries)
		}
		return nil
	},
}

// revisions command
var revisionsCmd = &cobra.Command{
	Use:   "revisions",
	Short: "List revisions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "revisions")
		if err != nil {
			return err
		}
		defer a.Close()

		revs, err := a.ListRevisions(cmd.Context())
		if err != nil {
			return err
		}

		if len(revs) == 0 {
			fmt.Println("No revisions.")
			return nil
		}

		for _, r := range revs {
			fmt.Printf("#%d  %s  %6d file(s)  %6d route(s)\n",
				r.ID,
				r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				r.FileCount,
				r.RouteCount,
			)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "history")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.GetHistory(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				d := op.FinishedAt.Time.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-10s  %s  %-10s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Local().Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch SRC_DIR",
	Short: "Rebuild and publish whenever the source directory changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "watch")
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Printf("Watching %s (Ctrl-C to stop)\n", args[0])
		return a.Watch(cmd.Context(), args[0], publishOptions(cmd))
	},
}

func addPublishFlags(cmd *cobra.Command) {
	cmd.Flags().String("base-url", "", "Absolute URL the site is served from (default from config)")
	cmd.Flags().String("build-dir", "", "Output directory (default from config)")
	cmd.Flags().Bool("drafts", false, "Publish draft pages")
	cmd.Flags().Bool("future", false, "Publish pages with a future publish_date")
	cmd.Flags().Bool("expired", false, "Publish pages past their expiry_date")
}

func init() {
	rootCmd.PersistentFlags().String("cache-dir", "", "Content store cache directory (overrides $REVSITE_CACHE_DIR and config)")
	rootCmd.PersistentFlags().String("database-url", "", "SQLite database path or sqlite:// URL (overrides $REVSITE_DATABASE_URL and config)")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(publishCmd)
	publishCmd.Flags().Int64P("revision", "r", 0, "Revision to publish (default newest)")
	addPublishFlags(publishCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(revisionsCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(watchCmd)
	addPublishFlags(watchCmd)
}
