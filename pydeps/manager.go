package pydeps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// pipTimeout bounds every single pip invocation.
const pipTimeout = 120 * time.Second

// CommandExecutor runs a command inside the target container.
type CommandExecutor interface {
	Exec(ctx context.Context, containerID string, cmd []string, timeout time.Duration) (exitCode int, output string, err error)
}

// NotWhitelistedError reports a dependency outside the allow-list. Nothing
// has been installed when it is returned.
type NotWhitelistedError struct {
	Dep string
}

func (e *NotWhitelistedError) Error() string {
	return fmt.Sprintf("Dependency: %s is not in the whitelist.", e.Dep)
}

// InstallFailedError reports a pip install that exited non-zero or could not
// be issued at all.
type InstallFailedError struct {
	Dep string
}

func (e *InstallFailedError) Error() string {
	return fmt.Sprintf("Failed to install dependency %s", e.Dep)
}

// Manager drives the install/uninstall lifecycle of submission dependencies
// against one container.
type Manager struct {
	logger    *zap.Logger
	exec      CommandExecutor
	whitelist map[string]bool
	allowAll  bool
	cached    map[string]bool // normalized package names
}

// NewManager creates a Manager. A whitelist containing "*" allows every
// dependency. Cached dependencies are assumed installed in the container
// image ahead of time and are never uninstalled.
func NewManager(logger *zap.Logger, exec CommandExecutor, whitelist, cached []string) *Manager {
	m := &Manager{
		logger:    logger,
		exec:      exec,
		whitelist: make(map[string]bool, len(whitelist)),
		cached:    make(map[string]bool, len(cached)),
	}
	for _, dep := range whitelist {
		if dep == "*" {
			m.allowAll = true
		}
		m.whitelist[dep] = true
	}
	for _, dep := range cached {
		m.cached[normalizePackage(dep)] = true
	}
	return m
}

// Install installs deps into the container. The whitelist is checked for
// every dependency before any install command is issued, so a rejection
// never leaves a partial install behind. Packages already present in the
// container inventory are skipped. The first failing install aborts the
// rest.
func (m *Manager) Install(ctx context.Context, containerID string, deps []string) error {
	if !m.allowAll {
		for _, dep := range deps {
			if !m.whitelist[dep] {
				return &NotWhitelistedError{Dep: dep}
			}
		}
	}

	installed := map[string]bool{}
	if len(m.cached) > 0 && len(deps) > 0 {
		installed = m.inventory(ctx, containerID)
	}

	for _, dep := range deps {
		if installed[normalizePackage(dep)] {
			m.logger.Debug("dependency already installed, skipping", zap.String("dep", dep))
			continue
		}
		exitCode, output, err := m.exec.Exec(ctx, containerID, []string{"pip", "install", "--user", dep}, pipTimeout)
		if err != nil {
			m.logger.Warn("pip install did not complete", zap.String("dep", dep), zap.Error(err))
			return &InstallFailedError{Dep: dep}
		}
		if exitCode != 0 {
			m.logger.Warn("pip install failed",
				zap.String("dep", dep),
				zap.Int("exit_code", exitCode),
				zap.String("output", output))
			return &InstallFailedError{Dep: dep}
		}
	}

	if len(deps) > 0 {
		m.logger.Info("dependencies installed successfully", zap.Strings("deps", deps))
	}
	return nil
}

// Uninstall removes every dependency of the submission that is not
// pre-cached. Best effort: failures are logged and never propagated, since
// cleanup must not mask the execution result.
func (m *Manager) Uninstall(ctx context.Context, containerID string, deps []string) {
	for _, dep := range deps {
		if m.cached[normalizePackage(dep)] {
			continue
		}
		exitCode, _, err := m.exec.Exec(ctx, containerID, []string{"pip", "uninstall", "-y", dep}, pipTimeout)
		if err != nil {
			m.logger.Warn("pip uninstall did not complete", zap.String("dep", dep), zap.Error(err))
			continue
		}
		if exitCode != 0 {
			m.logger.Warn("pip uninstall failed", zap.String("dep", dep), zap.Int("exit_code", exitCode))
		}
	}
}

// inventory queries the packages installed in the container, one pip call
// per Install. An unreadable inventory degrades to installing everything.
func (m *Manager) inventory(ctx context.Context, containerID string) map[string]bool {
	exitCode, output, err := m.exec.Exec(ctx, containerID, []string{"pip", "list", "--format=freeze"}, pipTimeout)
	if err != nil || exitCode != 0 {
		m.logger.Warn("could not read package inventory", zap.Int("exit_code", exitCode), zap.Error(err))
		return map[string]bool{}
	}

	installed := make(map[string]bool)
	for _, line := range strings.Split(output, "\n") {
		name, _, ok := strings.Cut(strings.TrimSpace(line), "==")
		if !ok || name == "" {
			continue
		}
		installed[normalizePackage(name)] = true
	}
	return installed
}

// normalizePackage folds a distribution name the way pip does, so inventory
// matching is case- and separator-insensitive.
func normalizePackage(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "-")
}
