// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package main

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatewarden/gatewarden/internal/config"
)

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show status of a running Gatewarden process",
		Long:  `Query the health probes of a running Gatewarden process and report readiness.`,
		RunE:  runStatus,
	}

	cmd.Flags().String("listen.metrics", "127.0.0.1:9100", "metrics/health HTTP address of the running process")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.Listen.Metrics == "" {
		return oops.Code("CONFIG_INVALID").Errorf("listen.metrics is required for status checks")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	ready, detail, err := probe(ctx, cfg.Listen.Metrics)
	if err != nil {
		cmd.Printf("gatewarden: unreachable at %s (%v)\n", cfg.Listen.Metrics, err)
		return oops.Code("STATUS_UNREACHABLE").With("addr", cfg.Listen.Metrics).Wrap(err)
	}

	if ready {
		cmd.Printf("gatewarden: ready at %s\n", cfg.Listen.Metrics)
		return nil
	}
	cmd.Printf("gatewarden: not ready at %s (%s)\n", cfg.Listen.Metrics, detail)
	return oops.Code("STATUS_NOT_READY").With("addr", cfg.Listen.Metrics).Errorf("process is not ready")
}

// probe queries the readiness endpoint. The boolean reports readiness; detail
// carries the response body for diagnostics.
func probe(ctx context.Context, addr string) (bool, string, error) {
	url := "http://" + addr + "/healthz/readiness"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, "", oops.With("url", url).Wrap(err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false, "", err //nolint:wrapcheck // caller wraps with addr context
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck // nothing to do on close failure
	}()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024)) //nolint:errcheck // best-effort diagnostics
	return resp.StatusCode == http.StatusOK, strings.TrimSpace(string(body)), nil
}
