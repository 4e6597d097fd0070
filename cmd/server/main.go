package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"takeoff_monitor/internal/api"
	"takeoff_monitor/internal/config"
	"takeoff_monitor/internal/history"
	"takeoff_monitor/internal/predict"
	"takeoff_monitor/internal/sim"
)

var dbPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "takeoff-monitor",
		Short: "Takeoff telemetry monitor - simulated sensor telemetry with RUL predictions",
		Long: `Backend for the takeoff telemetry dashboard. Runs the takeoff
simulation clock, proxies RUL predictions to the inference service, streams
snapshots to display consumers, and records sessions for replay.`,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the SQLite history database (overrides HISTORY_DB)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(sessionsCmd())
	rootCmd.AddCommand(statsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func historyPath(cfg config.Config) string {
	if dbPath != "" {
		return dbPath
	}
	return cfg.HistoryDB
}

func serveCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard backend server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg := config.Load(logger)
			if port != "" {
				cfg.Port = port
			}

			path := historyPath(cfg)
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("creating history directory: %w", err)
			}
			store, err := history.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			client := predict.NewClient(cfg.InferenceURL, cfg.PredictTimeout, logger)

			engine := sim.NewEngine(client, logger)
			engine.SetTickInterval(cfg.TickInterval)
			engine.SetPredictTimeout(cfg.PredictTimeout)
			defer engine.Stop()

			recorder := history.NewRecorder(store, logger)
			engine.Subscribe(recorder.Observe)

			hub := api.NewHub(logger)
			engine.Subscribe(hub.Broadcast)

			handler := api.New(engine, client, store, hub, logger)

			logger.Info().
				Str("port", cfg.Port).
				Str("inference_url", cfg.InferenceURL).
				Str("history_db", path).
				Msg("server listening")
			return http.ListenAndServe(":"+cfg.Port, handler)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Server port (overrides PORT)")
	return cmd
}

func sessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List recorded simulation sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			store, err := history.Open(historyPath(config.Load(logger)))
			if err != nil {
				return err
			}
			defer store.Close()

			sessions, err := store.ListSessions()
			if err != nil {
				return fmt.Errorf("listing sessions: %w", err)
			}
			if len(sessions) == 0 {
				fmt.Println("No sessions recorded yet. Start a simulation with the server running.")
				return nil
			}

			fmt.Printf("%-38s %-22s %-22s %s\n", "ID", "Started", "Ended", "Snapshots")
			for _, s := range sessions {
				ended := s.EndedAt
				if ended == "" {
					ended = "-"
				}
				fmt.Printf("%-38s %-22s %-22s %d\n", s.ID, s.StartedAt, ended, s.SnapshotCount)
			}
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show history database statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			store, err := history.Open(historyPath(config.Load(logger)))
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats()
			if err != nil {
				return fmt.Errorf("reading stats: %w", err)
			}

			fmt.Println("Takeoff Monitor History")
			fmt.Println("=======================")
			fmt.Printf("  Sessions:           %v\n", stats["total_sessions"])
			fmt.Printf("  Snapshots:          %v\n", stats["total_snapshots"])
			fmt.Printf("  Predictions:        %v\n", stats["total_predictions"])
			fmt.Printf("  Danger predictions: %v\n", stats["danger_predictions"])
			return nil
		},
	}
}
