package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"pulseops-collector/internal/admin"
	"pulseops-collector/internal/collector"
	"pulseops-collector/internal/config"
	"pulseops-collector/internal/faults"
	"pulseops-collector/internal/logging"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Produce weather records until interrupted",
	Long:  "run starts the collector loop: records are fetched from the live upstream or replayed from the dataset and written to the configured sinks. All configuration comes from the environment.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log := logging.New(cfg.LogLevel, cfg.LogFormat)
		ctx := logging.NewContext(cmd.Context(), log)

		writer, err := newWriter(cfg)
		if err != nil {
			return err
		}
		defer writer.Close()

		var inj *faults.Injector
		if cfg.Mode == config.ModeReplay {
			profile := cfg.BaseProfile()
			if cfg.FaultProfile != "" {
				profile, err = config.LoadProfile(cfg.FaultProfile, profile)
				if err != nil {
					return err
				}
			}
			inj = faults.New(profile, nil)
		}

		col := collector.New(cfg, writer, inj, log)
		defer col.Close()

		if inj != nil && cfg.FaultProfile != "" {
			pw, err := config.NewProfileWatcher(cfg.FaultProfile, cfg.BaseProfile(), log, inj.SetProfile)
			if err != nil {
				log.Warn("fault profile watcher unavailable", "path", cfg.FaultProfile, "error", err)
			} else {
				defer pw.Close()
				go pw.Watch(ctx)
			}
		}

		if tw, ok := writer.(interface{ SetFaultToggler(func() bool) }); ok && inj != nil {
			tw.SetFaultToggler(inj.Toggle)
		}

		if cfg.AdminAddr != "" {
			srv := admin.NewServer(cfg.AdminAddr, col, inj)
			go func() {
				if err := srv.Start(ctx); err != nil {
					log.Error("admin listener failed", "addr", cfg.AdminAddr, "error", err)
				}
			}()
			if aw, ok := writer.(interface{ SetAdminStatus(bool) }); ok {
				aw.SetAdminStatus(true)
			}
			log.Info("admin listener started", "addr", cfg.AdminAddr)
		}

		if err := col.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		log.Info("collector stopped")
		return nil
	},
}
