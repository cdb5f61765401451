package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Aliases: []string{"cfg"},
		Short:   "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (API keys masked)",
		Args:  exactArgs(0, "config show"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Redacted()
			if a.gf.JSON {
				return a.writeJSON(cfg)
			}
			b, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			_, err = a.stdout.Write(b)
			return err
		},
	})
	return cmd
}
