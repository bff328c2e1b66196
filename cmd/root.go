package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/identity-trust/internal/config"
)

// modeAnnotation names the config.Validate mode a command needs. Commands
// without one, and without an annotated parent, only need "score".
const modeAnnotation = "config_mode"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:          "trust-cli",
	Short:        "Identity-trust scoring pipeline",
	Long:         "Scores person records for data quality, source trustworthiness, raw trust and confidence, and composes the Digital Identity Score.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if err := config.InitLogger(c.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		cfg = c

		mode := configMode(cmd)
		if err := cfg.Validate(mode); err != nil {
			return eris.Wrapf(err, "%s", cmd.CommandPath())
		}
		zap.L().Debug("config loaded", zap.String("command", cmd.CommandPath()), zap.String("mode", mode))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// configMode returns the nearest mode annotation on cmd or its parents.
func configMode(cmd *cobra.Command) string {
	for c := cmd; c != nil; c = c.Parent() {
		if mode, ok := c.Annotations[modeAnnotation]; ok {
			return mode
		}
	}
	return "score"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
