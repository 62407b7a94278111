package cmd

import (
	"go.uber.org/zap"

	"github.com/cchalm/ghops/internal/config"
	"github.com/cchalm/ghops/internal/telemetry"
)

// appState is built once per invocation by loadRootConfig
type appState struct {
	cfg       config.Config
	logger    *zap.Logger
	telemetry *telemetry.Provider
}

var app = appState{}

// rootOpts holds the persistent flags
var rootOpts = struct {
	configPath string
	logLevel   string
	logFormat  string
}{}
