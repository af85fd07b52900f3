package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stellarlinkco/clawscope/internal/config"
	"github.com/stellarlinkco/clawscope/internal/redact"
	"github.com/stellarlinkco/clawscope/internal/store"
)

var slimCmd = &cobra.Command{
	Use:   "slim",
	Short: "Write the slim collection variant (embeddings stripped, messages truncated)",
	RunE:  runSlim,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a redacted slim collection for external publishing",
	RunE:  runExport,
}

var exportOutFlag string

func init() {
	exportCmd.Flags().StringVarP(&exportOutFlag, "out", "o", "", "Output path (default <dataDir>/collection.export.json)")
}

func runSlim(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st := store.New(cfg.Extract.DataDir)
	col, err := st.Load()
	if err != nil {
		return err
	}

	if err := st.SaveSlim(col); err != nil {
		return err
	}
	fmt.Printf("Slim collection: %s (%d events)\n", st.SlimPath(), len(col.Events))
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st := store.New(cfg.Extract.DataDir)
	col, err := st.Load()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(col.Slim(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	redacted, err := redact.JSON(data)
	if err != nil {
		return err
	}

	out := exportOutFlag
	if out == "" {
		out = filepath.Join(cfg.Extract.DataDir, "collection.export.json")
	}
	if err := os.WriteFile(out, redacted, 0644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Printf("Export: %s (%d events, secrets redacted)\n", out, len(col.Events))
	return nil
}
