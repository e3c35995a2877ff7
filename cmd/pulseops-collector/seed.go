package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pulseops-collector/internal/telemetry"
)

var (
	seedOut   string
	seedCount int
	seedSeed  int64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write a sample replay dataset",
	Long:  "seed generates a deterministic replay dataset: mostly healthy weather rows with a few degraded ones mixed in.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if dir := filepath.Dir(seedOut); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		f, err := os.Create(seedOut)
		if err != nil {
			return err
		}

		gen := telemetry.NewGenerator(seedSeed)
		enc := json.NewEncoder(f)
		for i := 0; i < seedCount; i++ {
			if err := enc.Encode(gen.Next()); err != nil {
				f.Close()
				return err
			}
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", seedCount, seedOut)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedOut, "out", "data/replay/weather.jsonl", "Path of the dataset to write")
	seedCmd.Flags().IntVar(&seedCount, "count", 100, "Number of rows to generate")
	seedCmd.Flags().Int64Var(&seedSeed, "seed", 1, "Random seed for reproducible datasets")
}
