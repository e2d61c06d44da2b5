package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/embedscan/internal/config"
	"github.com/forPelevin/embedscan/internal/logging"
	"github.com/forPelevin/embedscan/internal/pipeline"
)

const defaultTimeout = 6 * time.Hour

func run(cmd *cobra.Command, input string) error {
	path, _ := cmd.Flags().GetString("config")
	settings, resolved, exists, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := applyFlags(cmd, settings); err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Level:  settings.Logging.Level,
		Format: settings.Logging.Format,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if exists {
		logger.Debug("config loaded", "path", resolved)
	}

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cfg := pipeline.Config{
		InputVideo: absIn,
		Settings:   settings,
		Logger:     logger,
		Stdout:     cmd.OutOrStdout(),
	}
	if errOut := cmd.ErrOrStderr(); logging.IsTerminal(errOut) && settings.Logging.Format != "json" {
		cfg.Progress = errOut
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	sum, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", sum.OutDir)
	return nil
}

// applyFlags copies explicitly set flags over the loaded settings and
// re-validates them.
func applyFlags(cmd *cobra.Command, s *config.Config) error {
	f := cmd.Flags()
	if f.Changed("out") {
		s.Output.Dir, _ = f.GetString("out")
	}
	if f.Changed("interval") {
		s.Detection.IntervalSeconds, _ = f.GetFloat64("interval")
	}
	if f.Changed("jump") {
		s.Detection.FrameJump, _ = f.GetInt("jump")
	}
	if f.Changed("threshold") {
		s.Detection.Threshold, _ = f.GetFloat64("threshold")
	}
	if f.Changed("workers") {
		s.Detection.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("preroll") {
		s.Detection.PrerollFrames, _ = f.GetInt("preroll")
	}
	if f.Changed("max-gap") {
		s.Detection.MaxGapSeconds, _ = f.GetFloat64("max-gap")
	}
	if f.Changed("min-segment") {
		s.Detection.MinSegmentSeconds, _ = f.GetFloat64("min-segment")
	}
	if f.Changed("cut") {
		s.Output.Cut, _ = f.GetBool("cut")
	}
	if f.Changed("refresh-ocr") {
		s.Output.RefreshOCR, _ = f.GetBool("refresh-ocr")
	}
	if f.Changed("prefetch-all") {
		s.Detection.PrefetchAll, _ = f.GetBool("prefetch-all")
	}
	if f.Changed("log-level") {
		s.Logging.Level, _ = f.GetString("log-level")
	}
	if f.Changed("log-format") {
		s.Logging.Format, _ = f.GetString("log-format")
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("flags: %w", err)
	}
	return nil
}
