package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stellarlinkco/clawscope/internal/config"
	"github.com/stellarlinkco/clawscope/internal/extract"
	"github.com/stellarlinkco/clawscope/internal/notify"
	"github.com/stellarlinkco/clawscope/internal/schedule"
	"github.com/stellarlinkco/clawscope/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "clawscope",
	Short: "clawscope - inspect a bot's activity log history",
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract typed events from the activity logs",
	RunE:  runExtract,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run extraction on a cron schedule",
	RunE:  runWatch,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show clawscope status",
	RunE:  runStatus,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config and data directories",
	RunE:  runOnboard,
}

var scheduleFlag string

func init() {
	watchCmd.Flags().StringVarP(&scheduleFlag, "schedule", "s", "", "Cron schedule (overrides config)")
	rootCmd.AddCommand(extractCmd, watchCmd, statusCmd, onboardCmd,
		summarizeCmd, sentimentCmd, embedCmd, similarCmd,
		slimCmd, exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// refreshOnce runs one full extraction pass: extract, carry enrichment
// forward from the previous collection, persist. Returns a report line.
func refreshOnce(cfg *config.Config) (string, error) {
	st := store.New(cfg.Extract.DataDir)

	prev, err := st.LoadIfExists()
	if err != nil {
		return "", err
	}

	x := extract.New(cfg.Extract.WatchFiles)
	res, err := x.Run(cfg.Extract.LogsDir)
	if err != nil {
		return "", err
	}

	merged := extract.MergeEnrichment(res.Collection, prev)
	if err := st.Save(res.Collection); err != nil {
		return "", err
	}

	return fmt.Sprintf("%d events from %d files (%d duplicates dropped, %d enriched carried forward) -> %s",
		len(res.Collection.Events), res.FilesScanned, res.Deduped, merged, st.Path()), nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	report, err := refreshOnce(cfg)
	if err != nil {
		return err
	}
	fmt.Println(report)
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	spec := scheduleFlag
	if spec == "" {
		spec = cfg.Watch.Schedule
	}
	if spec == "" {
		return fmt.Errorf("no watch schedule; set watch.schedule in config or pass --schedule")
	}

	var notifyFn schedule.Notify
	if cfg.Notify.Telegram.Enabled {
		n, err := notify.NewTelegram(cfg.Notify.Telegram)
		if err != nil {
			return fmt.Errorf("telegram notifier: %w", err)
		}
		notifyFn = func(text string) {
			if err := n.Send("clawscope: " + text); err != nil {
				fmt.Fprintf(os.Stderr, "notify: %v\n", err)
			}
		}
	}

	svc := schedule.New(spec, func() (string, error) {
		return refreshOnce(cfg)
	}, notifyFn)
	if err := svc.Start(); err != nil {
		return err
	}
	defer svc.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Logs dir: %s\n", cfg.Extract.LogsDir)
	fmt.Printf("Data dir: %s\n", cfg.Extract.DataDir)

	st := store.New(cfg.Extract.DataDir)
	col, err := st.LoadIfExists()
	if err != nil {
		fmt.Printf("Collection: error (%v)\n", err)
		return nil
	}
	if col == nil {
		fmt.Println("Collection: not extracted yet (run 'clawscope extract')")
		return nil
	}

	fmt.Printf("Collection: %s\n", st.Path())
	fmt.Printf("Events: %d\n", col.Summary.TotalEvents)
	if col.Summary.TimeRange != nil {
		fmt.Printf("Span: %s .. %s\n", col.Summary.TimeRange.Start, col.Summary.TimeRange.End)
	}
	summarized, sentiments, embedded := 0, 0, 0
	for i := range col.Events {
		if col.Events[i].Summary != "" || col.Events[i].ModSummary != "" {
			summarized++
		}
		if col.Events[i].Sentiment != "" {
			sentiments++
		}
		if len(col.Events[i].Embedding) > 0 {
			embedded++
		}
	}
	fmt.Printf("Enrichment: %d summarized, %d sentiment, %d embedded\n", summarized, sentiments, embedded)
	return nil
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgPath := config.ConfigPath()

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	for _, dir := range []string{cfg.Extract.LogsDir, cfg.Extract.DataDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	fmt.Printf("Logs dir ready: %s\n", cfg.Extract.LogsDir)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Point logsDir at your bot's .log/.jsonl files")
	fmt.Println("  2. Run 'clawscope extract'")
	fmt.Println("  3. Optionally set CLAWSCOPE_API_KEY and run the enrichment passes")
	return nil
}
