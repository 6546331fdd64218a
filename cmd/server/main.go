// Package main is the entry point for the agentbox server.
//
// Agentbox executes untrusted Python code inside a pre-provisioned,
// already-running Docker container. Submissions pass a static safety gate,
// have their third-party dependencies whitelisted and installed, and run
// under CPU, memory, and wall-clock limits with guaranteed cleanup.
//
// The application uses Uber's fx framework for dependency injection and
// lifecycle management, with zap for structured logging and viper for
// configuration.
package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/agentbox/agentbox/config"
	"github.com/agentbox/agentbox/httpapi"
	"github.com/agentbox/agentbox/logger"
	"github.com/agentbox/agentbox/mcpserver"
	"github.com/agentbox/agentbox/pydeps"
	"github.com/agentbox/agentbox/runner"
	"github.com/agentbox/agentbox/safety"
	"github.com/agentbox/agentbox/sandbox"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.New,
			logger.NewFromConfig,
			sandbox.NewDockerClient,
			newEngine,
			safety.NewAnalyzer,
			newManager,
			newRunner,
			newHTTPServer,
			newMCPServer,
		),

		// Start the appropriate transport based on config
		fx.Invoke(
			func(cfg *config.Config, api *httpapi.Server, mcp *mcpserver.MCPServer) {
				switch cfg.Server.Transport {
				case "http":
					go func() {
						if err := api.Start(); err != nil {
							panic(err)
						}
					}()
				case "mcp-stdio":
					go func() {
						if err := mcp.ServeStdio(); err != nil {
							panic(err)
						}
					}()
				case "mcp-http":
					go func() {
						if err := mcp.ServeHTTP(); err != nil {
							panic(err)
						}
					}()
				default:
					panic("unsupported transport: " + cfg.Server.Transport)
				}
			},
		),

		// Use the application logger for fx logs
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)

	app.Run()
}

func newEngine(log *zap.Logger, cli sandbox.APIClient, cfg *config.Config) *sandbox.Engine {
	return sandbox.NewEngine(log, cli, cfg.Runner.CodeDir)
}

func newManager(log *zap.Logger, engine *sandbox.Engine, cfg *config.Config) *pydeps.Manager {
	return pydeps.NewManager(log, engine, cfg.Runner.DependencyWhitelist, cfg.Runner.CachedDependencies)
}

func newRunner(log *zap.Logger, cfg *config.Config, engine *sandbox.Engine, analyzer *safety.Analyzer, deps *pydeps.Manager) (*runner.Runner, error) {
	return runner.New(log, cfg.Runner, engine, analyzer, deps)
}

func newHTTPServer(cfg *config.Config, log *zap.Logger, run *runner.Runner) *httpapi.Server {
	return httpapi.New(cfg, log, run)
}

func newMCPServer(cfg *config.Config, log *zap.Logger, run *runner.Runner) (*mcpserver.MCPServer, error) {
	return mcpserver.New(cfg, log, run)
}
