package cmd

import (
	"context"

	"github.com/relex/caddy-gelf-agent/defs"
	"github.com/relex/caddy-gelf-agent/run"
	"github.com/relex/caddy-gelf-agent/util"
	"github.com/relex/gotils/logger"
)

type runCommandState struct {
	Config      string `help:"Configuration file path; empty uses built-in defaults plus environment overrides"`
	MetricsAddr string `help:"The listener address to expose Prometheus metrics and debug information"`
	TestMode    bool   `help:"Use test mode config: fast polling and short timeouts"`
}

var runCmd = runCommandState{
	Config:      "",
	MetricsAddr: ":9335",
	TestMode:    false,
}

func (cmd *runCommandState) run(_ []string) {
	if cmd.TestMode {
		defs.EnableTestMode()
	}

	msrv := util.LaunchMetricsListener(cmd.MetricsAddr)

	run.Run(cmd.Config)

	if err := msrv.Shutdown(context.Background()); err != nil {
		logger.Errorf("error shutting down metrics listener: %v", err)
	}
}
