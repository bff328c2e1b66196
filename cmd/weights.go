package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/identity-trust/internal/scorer"
)

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Print the effective scoring weights",
	Long: `Print the weights the pipeline would use after merging config and
defaults, in the same shape as the trust section of config.yaml. With
--defaults the built-in weights are printed instead.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("format")
		defaults, _ := cmd.Flags().GetBool("defaults")

		if err := validateFormat(format, formatJSON, formatYAML); err != nil {
			return eris.Wrap(err, "weights")
		}

		w := scorer.DefaultWeights()
		if !defaults {
			p, err := newPipeline(cfg.Trust)
			if err != nil {
				return err
			}
			w = p.Weights()
		}

		return writeEncoded(cmd.OutOrStdout(), format, struct {
			Trust any `json:"trust" yaml:"trust"`
		}{Trust: scorer.TrustConfigFromWeights(w)})
	},
}

func init() {
	weightsCmd.Flags().String("format", formatYAML, "output format: json or yaml")
	weightsCmd.Flags().Bool("defaults", false, "print the built-in defaults, ignoring config")
	rootCmd.AddCommand(weightsCmd)
}
