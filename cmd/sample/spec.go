package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	specOut  string
	specYAML bool
)

var specCmd = &cobra.Command{
	Use:   "spec",
	Short: "Print the OpenAPI document",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(envFile)
		if err != nil {
			return err
		}
		r := newRouter(cfg, newUserStore())

		w := cmd.OutOrStdout()
		if specOut != "" {
			f, err := os.Create(specOut) //nolint:gosec // user-provided CLI flag
			if err != nil {
				return err
			}
			defer func() {
				if err := f.Close(); err != nil {
					slog.Error("failed to close output file", "err", err)
				}
			}()
			w = f
		}

		if specYAML {
			return r.WriteSpecYAML(w)
		}
		return r.WriteSpec(w)
	},
}

func init() {
	rootCmd.AddCommand(specCmd)

	specCmd.Flags().StringVarP(&specOut, "output", "o", "", "write the spec to a file instead of stdout")
	specCmd.Flags().BoolVar(&specYAML, "yaml", false, "emit YAML instead of JSON")
}
