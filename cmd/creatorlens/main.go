package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/halcyonlab/creatorlens/internal/config"
	"github.com/halcyonlab/creatorlens/internal/database"
	"github.com/halcyonlab/creatorlens/internal/pipeline"
	"github.com/halcyonlab/creatorlens/internal/report"
	"github.com/halcyonlab/creatorlens/internal/server"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "creatorlens",
	Short:   "Short-video creator analysis",
	Long:    "Creatorlens fetches a creator's video history, classifies it by category, computes performance statistics, and generates a partnership assessment report.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		config.LoadEnv()

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("creatorlens", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/creatorlens/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure API keys, the target category, and the LLM provider.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("Creators:")
		fmt.Printf("  Analyzed: %d\n", stats.Creators)
		fmt.Println("\nRuns:")
		fmt.Printf("  Total: %d\n", stats.Runs)
		fmt.Printf("  Completed: %d\n", stats.CompletedRuns)
		fmt.Printf("  Failed: %d\n", stats.FailedRuns)
		fmt.Println("\nStored video snapshots:")
		fmt.Printf("  Total: %d\n", stats.StoredVideos)
		return nil
	},
}

// --- analyze command ---

var (
	creatorName string
	followers   string
	publishRate string
	gmv30d      string
	avgViews    string
	productName string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [handle]",
	Short: "Run the full analysis: fetch -> classify -> analyze -> select -> report -> publish",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		handle := args[0]
		commercial := report.Commercial{
			Handle:      handle,
			Name:        creatorName,
			Followers:   followers,
			PublishRate: publishRate,
			GMV30d:      gmv30d,
			AvgViews:    avgViews,
			Product:     productName,
		}

		pipe := pipeline.New(cfg, db)
		result := pipe.Run(context.Background(), handle, commercial)

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/6: %s\n", i+1, step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		for _, step := range result.Steps {
			if step.Err != nil {
				return fmt.Errorf("analysis failed at %s step", step.Name)
			}
		}

		fmt.Printf("\nAnalysis complete, verdict: %s\n", result.Verdict)
		fmt.Printf("Run 'creatorlens serve' and open /run/%s to view the report.\n", result.RunID)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&creatorName, "name", "", "Creator display name from the partner spreadsheet")
	analyzeCmd.Flags().StringVar(&followers, "followers", "", "Follower count from the partner spreadsheet")
	analyzeCmd.Flags().StringVar(&publishRate, "publish-rate", "", "Expected publish rate")
	analyzeCmd.Flags().StringVar(&gmv30d, "gmv", "", "30-day GMV")
	analyzeCmd.Flags().StringVar(&avgViews, "avg-views", "", "Average video views")
	analyzeCmd.Flags().StringVar(&productName, "product", "", "Product under consideration")
}

// --- runs command ---

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List and inspect analysis runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent analysis runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.GetRecentRuns(20)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No runs yet. Start one with: creatorlens analyze <handle>")
			return nil
		}

		fmt.Println("Recent runs:")
		fmt.Println()
		for _, r := range runs {
			verdict := "-"
			if r.Verdict != nil {
				verdict = *r.Verdict
			}
			fmt.Printf("  %s  @%-20s %-10s %3d/%3d videos  %s\n",
				r.ID, r.Handle, r.Status, r.CategoryVideos, r.TotalVideos, verdict)
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Print a run's report markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		run, err := db.GetRun(args[0])
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("run %s not found", args[0])
		}

		if run.Error != nil {
			fmt.Printf("Run failed: %s\n", *run.Error)
			return nil
		}
		if run.ReportMarkdown == nil {
			fmt.Println("No report stored for this run.")
			return nil
		}

		fmt.Println(*run.ReportMarkdown)
		if run.Verdict != nil {
			fmt.Printf("\n审核意见: %s\n", *run.Verdict)
		}
		return nil
	},
}

func init() {
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (defaults to config)")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "creatorlens.db")
	return database.Open(dbPath)
}
