package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := newRootCmd()
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "embedscan <video>",
		Short:         "Find embedded videos in a recorded stream and catalog them",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	f := root.Flags()
	f.String("config", "", "Config file (default ./embedscan.toml, then ~/.config/embedscan/config.toml)")
	f.String("out", "", "Output directory")
	f.Float64("interval", 0, "Seconds between sampled frames")
	f.Int("jump", 0, "Coarse scan stride in frames")
	f.Float64("threshold", 0, "Similarity threshold in (0, 1]")
	f.Int("workers", 0, "Parallel workers for sampling and recognition")
	f.Bool("cut", false, "Cut a clip per segment")
	f.Bool("refresh-ocr", false, "Ignore recognitions stored by earlier runs")
	f.Bool("prefetch-all", false, "Recognize every frame up front")
	f.String("log-level", "", "debug, info, warn or error")
	f.String("log-format", "", "console or json")
	f.Duration("timeout", defaultTimeout, "Abort the run after this long")

	// Hidden tuning flags
	f.Int("preroll", 0, "Frames kept before a refined start")
	f.Float64("max-gap", 0, "Merge gap in seconds")
	f.Float64("min-segment", 0, "Minimum segment length in seconds")
	_ = f.MarkHidden("preroll")
	_ = f.MarkHidden("max-gap")
	_ = f.MarkHidden("min-segment")

	root.AddCommand(newConfigCmd())
	return root
}
