package main

import (
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/anthropic/edit-attribution/internal/config"
	"github.com/anthropic/edit-attribution/internal/daemon"
	"github.com/anthropic/edit-attribution/internal/detection"
	"github.com/anthropic/edit-attribution/internal/event"
	"github.com/anthropic/edit-attribution/internal/gitint"
	"github.com/anthropic/edit-attribution/internal/ingest"
	"github.com/anthropic/edit-attribution/internal/ipc"
	"github.com/anthropic/edit-attribution/internal/report"
	"github.com/anthropic/edit-attribution/internal/review"
	"github.com/anthropic/edit-attribution/internal/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "editattr",
		Short: "Attribute code edits to human or AI authors",
		Long:  "editattr analyzes captured edit-event streams and scores how likely each session's changes came from an AI tool, plus how thoroughly a human reviewed them.",
	}

	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(timelineCmd())
	rootCmd.AddCommand(reviewCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(startCmd())
	rootCmd.AddCommand(stopCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(pingCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadEvents parses a capture log and returns its events grouped by
// session, filtered to --session when given. Sessions come back in
// sorted key order for stable output.
func loadEvents(path, session string) ([]string, map[string][]event.EditEvent, error) {
	res, err := ingest.ParseFile(path)
	if err != nil {
		return nil, nil, err
	}
	if res.Malformed > 0 {
		log.Printf("skipped %d malformed lines", res.Malformed)
	}
	if len(res.Events) == 0 {
		return nil, nil, fmt.Errorf("no valid events in %s", path)
	}

	groups := event.BySession(res.Events)
	if session != "" {
		events, ok := groups[session]
		if !ok {
			return nil, nil, fmt.Errorf("session %q not found in %s", session, path)
		}
		return []string{session}, map[string][]event.EditEvent{session: events}, nil
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, groups, nil
}

// newEngine builds the detection engine from the config file, honoring
// any detection overrides it carries.
func newEngine() (*detection.Engine, error) {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	detCfg, err := cfg.DetectionConfig()
	if err != nil {
		return nil, fmt.Errorf("resolve detection config: %w", err)
	}
	return detection.New(detCfg), nil
}

// commitContext opens repoPath (when given) and returns HEAD commit
// info for review scoring. Missing or non-git paths degrade to nil.
func commitContext(repoPath string) *review.CommitInfo {
	if repoPath == "" {
		return nil
	}
	repo, err := gitint.Open(repoPath)
	if err != nil {
		log.Printf("git open warning: %v", err)
		return nil
	}
	info, err := repo.HeadInfo()
	if err != nil {
		log.Printf("git HEAD warning: %v", err)
		return nil
	}
	return info
}

func fileURIFor(events []event.EditEvent) string {
	if len(events) == 0 {
		return ""
	}
	return events[0].FileURI
}

func analyzeCmd() *cobra.Command {
	var (
		session    string
		repoPath   string
		jsonOutput bool
		markdown   bool
		showTrace  bool
		save       bool
		fromDB     bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [log-file]",
		Short: "Attribute a captured edit log to human or AI authorship",
		Long: `Run the full heuristic pipeline over a capture log and print an
attribution report per session: per-heuristic scores, classification,
evidence, bucketed timeline, and review-quality assessment.

With --db, skip parsing and render the most recent stored report for
--session instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromDB {
				if session == "" {
					return fmt.Errorf("--db requires --session")
				}
				return renderStoredReport(session, jsonOutput, showTrace)
			}
			if len(args) != 1 {
				return fmt.Errorf("log file required (or use --db)")
			}

			keys, groups, err := loadEvents(args[0], session)
			if err != nil {
				return err
			}
			eng, err := newEngine()
			if err != nil {
				return err
			}
			commit := commitContext(repoPath)

			var st *store.Store
			if save {
				st, err = openStore()
				if err != nil {
					return err
				}
				defer st.Close()
			}

			for _, id := range keys {
				events := groups[id]
				r := report.Generate(id, fileURIFor(events), events, eng, commit)

				if st != nil {
					now := time.Now()
					if _, err := st.SaveAttribution(id, r.FileURI, r.EventCount, r.Attribution, r.Buckets, now); err != nil {
						return fmt.Errorf("save attribution: %w", err)
					}
					if err := st.SaveAssessment(id, r.FileURI, r.Review, now); err != nil {
						return fmt.Errorf("save assessment: %w", err)
					}
				}

				switch {
				case jsonOutput:
					fmt.Println(report.FormatJSON(r))
				case markdown:
					fmt.Print(report.FormatMarkdown(r))
				default:
					fmt.Print(report.FormatSessionReport(r))
					if showTrace {
						fmt.Println()
						fmt.Print(report.FormatTrace(r.Attribution.Trace))
					}
				}
				if len(keys) > 1 {
					fmt.Println()
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "Analyze a single session only")
	cmd.Flags().StringVar(&repoPath, "repo", "", "Git repository for commit context")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Output as Markdown")
	cmd.Flags().BoolVar(&showTrace, "trace", false, "Print the decision trace")
	cmd.Flags().BoolVar(&save, "save", false, "Persist results to the attribution database")
	cmd.Flags().BoolVar(&fromDB, "db", false, "Render the latest stored report for --session")

	return cmd
}

// openStore opens the attribution database at the configured path.
func openStore() (*store.Store, error) {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, err
	}
	return store.New(cfg.DBPath)
}

// renderStoredReport rebuilds a session report from the database rather
// than re-parsing a capture log. Buckets are not retained row-by-row in
// the report, so only the attribution and review sections render.
func renderStoredReport(session string, jsonOutput, showTrace bool) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.LatestAttribution(session)
	if err != nil {
		return fmt.Errorf("query attribution: %w", err)
	}
	if rec == nil {
		return fmt.Errorf("no stored attribution for session %q", session)
	}

	r := &report.SessionReport{
		SessionID:   rec.SessionID,
		FileURI:     rec.FileURI,
		EventCount:  rec.EventCount,
		Attribution: rec.Result,
	}
	if a, err := st.LatestAssessment(session); err == nil && a != nil {
		r.Review = *a
	}

	if jsonOutput {
		fmt.Println(report.FormatJSON(r))
		return nil
	}
	fmt.Print(report.FormatSessionReport(r))
	if showTrace {
		fmt.Println()
		fmt.Print(report.FormatTrace(r.Attribution.Trace))
	}
	return nil
}

func timelineCmd() *cobra.Command {
	var (
		session    string
		csvPath    string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "timeline <log-file>",
		Short: "Show the bucketed attribution timeline for a capture log",
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, groups, err := loadEvents(args[0], session)
			if err != nil {
				return err
			}
			eng, err := newEngine()
			if err != nil {
				return err
			}

			for _, id := range keys {
				r := report.Generate(id, fileURIFor(groups[id]), groups[id], eng, nil)

				if csvPath != "" {
					f, err := os.Create(csvPath)
					if err != nil {
						return fmt.Errorf("create %s: %w", csvPath, err)
					}
					err = report.WriteTimelineCSV(f, r.Buckets)
					if cerr := f.Close(); err == nil {
						err = cerr
					}
					if err != nil {
						return err
					}
					fmt.Printf("timeline for %s written to %s\n", id, csvPath)
					continue
				}

				if jsonOutput {
					fmt.Println(report.FormatJSON(struct {
						SessionID string      `json:"sessionId"`
						Buckets   interface{} `json:"buckets"`
						Summary   interface{} `json:"summary"`
						Rollup    float64     `json:"rollup"`
					}{id, r.Buckets, r.BucketSummary, r.Rollup}))
				} else {
					fmt.Print(report.FormatSessionReport(r))
				}
			}
			return nil
		},
		Args: cobra.ExactArgs(1),
	}

	cmd.Flags().StringVar(&session, "session", "", "Restrict to a single session")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Write the timeline as CSV to this path")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func reviewCmd() *cobra.Command {
	var (
		session    string
		repoPath   string
		jsonOutput bool
		save       bool
	)

	cmd := &cobra.Command{
		Use:   "review <log-file>",
		Short: "Score how thoroughly a human reviewed the captured edits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, groups, err := loadEvents(args[0], session)
			if err != nil {
				return err
			}
			commit := commitContext(repoPath)

			var st *store.Store
			if save {
				st, err = openStore()
				if err != nil {
					return err
				}
				defer st.Close()
			}

			for _, id := range keys {
				a := review.AssessQuality(groups[id], commit)
				if st != nil {
					if err := st.SaveAssessment(id, fileURIFor(groups[id]), a, time.Now()); err != nil {
						return fmt.Errorf("save assessment: %w", err)
					}
				}
				if jsonOutput {
					fmt.Println(report.FormatJSON(a))
					continue
				}
				fmt.Printf("session %s: %.1f/10 (%s), confidence %.0f%%\n",
					id, a.OverallScore, a.QualityLevel, a.Confidence*100)
				fmt.Printf("  time %.1f, iteration %.1f, refinement %.1f, thoughtfulness %.1f\n",
					a.Breakdown.TimeInvestment, a.Breakdown.Iteration,
					a.Breakdown.Refinement, a.Breakdown.Thoughtfulness)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "Restrict to a single session")
	cmd.Flags().StringVar(&repoPath, "repo", "", "Git repository for commit context")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&save, "save", false, "Persist the assessment to the attribution database")

	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <log-file>",
		Short: "Check a capture log for malformed or invalid events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := ingest.ParseFile(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("lines:     %d\n", res.Lines)
			fmt.Printf("events:    %d\n", len(res.Events))
			fmt.Printf("synthetic: %d\n", res.Synthetic)
			fmt.Printf("malformed: %d\n", res.Malformed)

			if res.Malformed > 0 {
				return fmt.Errorf("%d malformed lines", res.Malformed)
			}
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var (
		session string
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "export <log-file>",
		Short: "Export events as CSV for external analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, groups, err := loadEvents(args[0], session)
			if err != nil {
				return err
			}

			var events []event.EditEvent
			for _, id := range keys {
				events = append(events, groups[id]...)
			}

			out := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create %s: %w", outPath, err)
				}
				defer f.Close()
				out = f
			}
			return report.WriteEventsCSV(out, events)
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "Restrict to a single session")
	cmd.Flags().StringVar(&outPath, "out", "", "Write to a file instead of stdout")

	return cmd
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective detection configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.ConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			detCfg, err := cfg.DetectionConfig()
			if err != nil {
				return fmt.Errorf("resolve detection config: %w", err)
			}
			fmt.Println(report.FormatJSON(detCfg))
			return nil
		},
	}
}

func startCmd() *cobra.Command {
	var foreground bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the editattr daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.ConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			// Check if daemon is already running.
			client := ipc.NewClient(cfg.SocketPath)
			if err := client.Ping(); err == nil {
				fmt.Println("daemon is already running")
				return nil
			}

			// Remove stale socket file (from a prior crash).
			if _, err := os.Stat(cfg.SocketPath); err == nil {
				log.Println("removing stale socket file")
				_ = os.Remove(cfg.SocketPath)
			}

			if !foreground {
				fmt.Println("hint: use --foreground to run in the current terminal")
				fmt.Println("background daemonization not yet implemented, running in foreground")
			}

			// Create IPC server first, then wire the daemon back into it
			// to break the circular construction dependency.
			ipcServer := ipc.NewServer(nil, nil)
			d := daemon.New(cfg, ipcServer)
			ipcServer.SetDaemon(d)

			// Start blocks until signal or error.
			return d.Start()
		},
	}

	cmd.Flags().BoolVar(&foreground, "foreground", false, "Run in the foreground (don't daemonize)")

	return cmd
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the editattr daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.ConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			client := ipc.NewClient(cfg.SocketPath)
			if err := client.RequestStop(); err != nil {
				return fmt.Errorf("stop daemon: %w", err)
			}

			fmt.Println("daemon stopping")
			return nil
		},
	}
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check if daemon is alive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.ConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			client := ipc.NewClient(cfg.SocketPath)
			if err := client.Ping(); err != nil {
				fmt.Println("daemon is not running")
				return err
			}

			fmt.Println("daemon is alive")
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.ConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			client := ipc.NewClient(cfg.SocketPath)
			status, err := client.Status()
			if err != nil {
				return fmt.Errorf("daemon not running or unreachable: %w", err)
			}

			if jsonOutput {
				fmt.Println(report.FormatJSON(status))
			} else {
				fmt.Print(report.FormatStatus(status))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
