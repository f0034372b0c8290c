package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"filtersync/internal/config"
	"filtersync/internal/etl"
	"filtersync/internal/fetch"
	"filtersync/internal/history"
	"filtersync/internal/runner"
	"filtersync/internal/store"
)

var (
	flagEndpoints []string
	flagWithLists bool
	flagSchedule  string
	flagWatch     string
	flagHistory   string
)

var rootCmd = &cobra.Command{
	Use:          "filtersync",
	Short:        "Syncs the FilterLists API into MongoDB, one collection per endpoint.",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringSliceVar(&flagEndpoints, "endpoints", nil,
		"endpoints to sync (e.g. /languages,/tags); all six when omitted")
	rootCmd.Flags().BoolVar(&flagWithLists, "with-lists", false,
		"also sync /lists with per-item detail enrichment (slow)")
	rootCmd.Flags().StringVar(&flagSchedule, "schedule", "",
		"cron expression; keep running and sync on schedule")
	rootCmd.Flags().StringVar(&flagWatch, "watch", "",
		"re-run the sync whenever this file changes")
	rootCmd.Flags().StringVar(&flagHistory, "history", "",
		"path to the local run history database (overrides HISTORY_DB_PATH)")
}

// selectEndpoints resolves the CLI selection into endpoint configs.
// Paths are normalized to a leading slash; /lists always carries the
// detail-enrichment flag.
func selectEndpoints() []etl.Endpoint {
	if len(flagEndpoints) == 0 {
		eps := append([]etl.Endpoint{}, etl.DefaultEndpoints...)
		if flagWithLists {
			eps = append(eps, etl.ListsEndpoint)
		}
		return eps
	}

	var eps []etl.Endpoint
	for _, p := range flagEndpoints {
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		eps = append(eps, etl.Endpoint{Path: p, FetchDetails: p == etl.ListsEndpoint.Path})
	}
	return eps
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.FromEnv()
	if flagHistory != "" {
		cfg.HistoryPath = flagHistory
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage unreachable at startup is the one fatal condition:
	// abort before any fetch begins.
	st, err := store.Open(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return fmt.Errorf("storage unreachable: %w", err)
	}
	defer st.Close()

	hist, err := history.Open(cfg.HistoryPath)
	if err != nil {
		log.Printf("history: %v, continuing without run history", err)
		hist = nil
	} else {
		defer hist.Close()
	}

	engine := &etl.Engine{
		Fetcher:     fetch.New(cfg.RequestTimeout, cfg.MaxAttempts),
		Writer:      st,
		APIBase:     cfg.APIBase,
		PoliteDelay: cfg.PoliteDelay,
	}

	r := &runner.Runner{
		Engine:    engine,
		Endpoints: selectEndpoints(),
		History:   hist,
	}

	// Per-item and per-endpoint failures are logged and skipped; the
	// process still exits 0. Only startup failures are non-zero.
	if _, err := r.RunOnce(ctx); err != nil {
		return err
	}

	if flagSchedule == "" && flagWatch == "" {
		return nil
	}

	// Daemon modes: stay resident until interrupted.
	if flagSchedule != "" {
		if err := r.StartSchedule(ctx, flagSchedule); err != nil {
			return err
		}
	}
	if flagWatch != "" {
		if err := r.Watch(ctx, flagWatch); err != nil {
			return err
		}
	}
	defer r.Stop()

	<-ctx.Done()
	log.Printf("shutting down, waiting for in-flight run")
	waitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	r.WaitRunning(waitCtx)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
