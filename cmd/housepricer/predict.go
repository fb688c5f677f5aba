package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Alias1177/HousePricer/internal/config"
)

func newPredictCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "predict [features.json]",
		Short: "Estimate the price of one property read from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening features file: %w", err)
				}
				defer f.Close()
				in = f
			}

			raw, err := readFeatures(in)
			if err != nil {
				return err
			}

			svc, cleanup, err := newService(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := svc.Predict(cmd.Context(), raw)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newMetricsCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Print the estimator's model metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cleanup, err := newService(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			metrics, err := svc.GetMetrics(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), metrics)
		},
	}
}

func readFeatures(r io.Reader) (map[string]any, error) {
	var raw map[string]any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding features: %w", err)
	}
	log.Debug().Int("fields", len(raw)).Msg("Features read")
	return raw, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
