package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"drawcal/api/internal/calculator"
	"drawcal/api/internal/config"
	"drawcal/api/internal/handle"
	"drawcal/api/internal/ocr/gemini"
	"drawcal/api/internal/util"
)

func newSolveCommand() *cobra.Command {
	var (
		vars    []string
		timeout time.Duration
		format  string
	)
	cmd := &cobra.Command{
		Use:   "solve <image>",
		Short: "Evaluate the math in one PNG or JPEG image and print the result envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "yaml" {
				return fmt.Errorf("--format %q: want json or yaml", format)
			}
			bindings, err := parseVars(vars)
			if err != nil {
				return err
			}
			return runSolve(cmd.Context(), cmd.OutOrStdout(), args[0], bindings, timeout, format)
		},
	}
	cmd.Flags().StringArrayVar(&vars, "var", nil, "variable binding name=value, repeatable")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "model call timeout (default server.request_timeout)")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	return cmd
}

func runSolve(ctx context.Context, out io.Writer, path string, vars calculator.Bindings, timeout time.Duration, format string) error {
	cfg, log, err := setup(config.NeedGemini)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	mime, err := util.ImageMIME("", data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	engine, err := gemini.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		return err
	}
	defer engine.Close()

	if timeout <= 0 {
		timeout = cfg.Server.RequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	records, callErr := calculator.NewAnalyzer(engine, log).Analyze(ctx, data, mime, vars)

	if err := writeEnvelope(out, handle.NewProcessResponse(records, callErr != nil), format); err != nil {
		return err
	}
	return callErr
}

func writeEnvelope(out io.Writer, resp handle.ProcessResponse, format string) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(resp); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}

// parseVars turns name=value pairs into bindings. JSON number literals stay numbers.
func parseVars(pairs []string) (calculator.Bindings, error) {
	out := calculator.Bindings{}
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if !ok || name == "" {
			return nil, fmt.Errorf("--var %q: want name=value", p)
		}
		out[name] = calculator.Value(value)
	}
	return out, nil
}
