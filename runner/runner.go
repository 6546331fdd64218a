// Package runner orchestrates the execution of one untrusted Python
// submission against a pre-provisioned container.
//
// Per submission the runner sequences: safety check, container resolution,
// resource-limit update, code upload, dependency install, execution, and
// cleanup. Cleanup runs on every exit path once the container has been
// resolved, and is dispatched so it never blocks the caller's result.
package runner

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/agentbox/agentbox/config"
	"github.com/agentbox/agentbox/pydeps"
	"github.com/agentbox/agentbox/safety"
	"github.com/agentbox/agentbox/sandbox"
)

// TimeoutMessage is the flattened result of a timed-out run.
const TimeoutMessage = "Execution timed out."

// ContainerEngine is the container capability surface the runner drives.
// *sandbox.Engine implements it.
type ContainerEngine interface {
	Resolve(ctx context.Context, name string) (sandbox.Container, error)
	ApplyLimits(ctx context.Context, containerID string, limits sandbox.Limits) error
	UploadScript(ctx context.Context, containerID, source string) (sandbox.ScriptRef, error)
	Exec(ctx context.Context, containerID string, cmd []string, timeout time.Duration) (exitCode int, output string, err error)
	RemoveScript(ctx context.Context, containerID string, script sandbox.ScriptRef) error
}

// CodeChecker is the safety gate interface. *safety.Analyzer implements it.
type CodeChecker interface {
	Check(source string) safety.Report
}

// DependencyManager handles the dependency lifecycle for one submission.
// *pydeps.Manager implements it.
type DependencyManager interface {
	Install(ctx context.Context, containerID string, deps []string) error
	Uninstall(ctx context.Context, containerID string, deps []string)
}

// Result is the structured outcome of one submission.
type Result struct {
	// Output is the captured stdout+stderr of the run; empty on failure.
	Output string
	// Err is nil on success; otherwise it carries the failure kind and the
	// message reported to callers.
	Err *Error
	// CleanupDone is closed once the submission's cleanup has finished.
	// Cleanup may still be in flight when the result is observed.
	CleanupDone <-chan struct{}
}

// Text flattens the result to the textual form of the legacy contract.
func (r Result) Text() string {
	if r.Err != nil {
		return r.Err.Message
	}
	return r.Output
}

// Runner executes submissions against one configured container.
type Runner struct {
	logger   *zap.Logger
	cfg      config.RunnerConfig
	engine   ContainerEngine
	analyzer CodeChecker
	deps     DependencyManager
}

// New creates a Runner and verifies it is usable: the configuration must be
// internally consistent (cached dependencies within the whitelist) and the
// target container must exist and be running. Any violation is a
// *ConfigError.
func New(logger *zap.Logger, cfg config.RunnerConfig, engine ContainerEngine, analyzer CodeChecker, deps DependencyManager) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Reason: "invalid configuration", Err: err}
	}

	c, err := engine.Resolve(context.Background(), cfg.ContainerName)
	if err != nil {
		return nil, &ConfigError{
			Reason: fmt.Sprintf("container %s is not available", cfg.ContainerName),
			Err:    err,
		}
	}
	if !c.Running {
		return nil, &ConfigError{
			Reason: fmt.Sprintf("container %s is not running", cfg.ContainerName),
		}
	}

	logger.Info("runner ready",
		zap.String("container", cfg.ContainerName),
		zap.String("container_id", c.ID),
		zap.Int("whitelist_size", len(cfg.DependencyWhitelist)),
		zap.Strings("cached_dependencies", cfg.CachedDependencies),
		zap.Int("default_timeout_sec", cfg.DefaultTimeoutSec))

	return &Runner{
		logger:   logger,
		cfg:      cfg,
		engine:   engine,
		analyzer: analyzer,
		deps:     deps,
	}, nil
}

// Execute runs source with the configured default timeout and returns the
// flattened textual result.
func (r *Runner) Execute(ctx context.Context, source string) string {
	return r.Run(ctx, source, r.cfg.DefaultTimeout()).Text()
}

// ExecuteWithTimeout runs source with an explicit timeout and returns the
// flattened textual result.
func (r *Runner) ExecuteWithTimeout(ctx context.Context, source string, timeout time.Duration) string {
	return r.Run(ctx, source, timeout).Text()
}

// Run executes one submission end to end and returns the structured result.
func (r *Runner) Run(ctx context.Context, source string, timeout time.Duration) Result {
	if report := r.analyzer.Check(source); !report.Safe {
		r.logger.Info("submission rejected by safety gate", zap.String("reason", report.Message))
		return Result{
			Err:         &Error{Kind: KindInputRejected, Message: report.Message},
			CleanupDone: closedChan(),
		}
	}

	// The container handle is external state; re-resolve it on every
	// submission rather than trusting the construction-time lookup.
	c, err := r.engine.Resolve(ctx, r.cfg.ContainerName)
	if err != nil {
		kind := KindExecutionFailed
		var notFound *sandbox.NotFoundError
		if errors.As(err, &notFound) {
			kind = KindContainerNotFound
		}
		return Result{
			Err:         &Error{Kind: kind, Message: err.Error(), Err: err},
			CleanupDone: closedChan(),
		}
	}

	var (
		script sandbox.ScriptRef
		deps   []string
	)
	runErr := func() *Error {
		if err := r.engine.ApplyLimits(ctx, c.ID, sandbox.Limits{
			CPUQuota:   r.cfg.CPUQuota,
			Memory:     r.cfg.MemoryLimitBytes(),
			MemorySwap: r.cfg.MemswapLimitBytes(),
		}); err != nil {
			return &Error{Kind: KindExecutionFailed, Message: err.Error(), Err: err}
		}

		script, err = r.engine.UploadScript(ctx, c.ID, source)
		if err != nil {
			return &Error{Kind: KindExecutionFailed, Message: "Failed to copy script to container.", Err: err}
		}

		deps, err = pydeps.Parse(source)
		if err != nil {
			// The safety gate parsed this source moments ago; failing here
			// is a defect worth surfacing, not swallowing.
			return &Error{Kind: KindExecutionFailed, Message: err.Error(), Err: err}
		}

		if err := r.deps.Install(ctx, c.ID, deps); err != nil {
			kind := KindExecutionFailed
			var notWhitelisted *pydeps.NotWhitelistedError
			if errors.As(err, &notWhitelisted) {
				kind = KindPolicyRejected
			}
			return &Error{Kind: kind, Message: err.Error(), Err: err}
		}

		return nil
	}()

	var result Result
	if runErr != nil {
		result = Result{Err: runErr}
	} else {
		cmd := []string{r.cfg.PythonBinary, path.Join(r.cfg.CodeDir, script.Name)}
		_, output, err := r.engine.Exec(ctx, c.ID, cmd, timeout)
		switch {
		case errors.Is(err, sandbox.ErrCommandTimeout):
			result = Result{Err: &Error{Kind: KindExecutionFailed, Message: TimeoutMessage, Err: err}}
		case err != nil:
			result = Result{Err: &Error{Kind: KindExecutionFailed, Message: err.Error(), Err: err}}
		default:
			result = Result{Output: output}
		}
	}

	// Cleanup runs no matter how the submission ended, without delaying the
	// caller's receipt of the result.
	result.CleanupDone = r.dispatchCleanup(c.ID, script, deps)
	return result
}

// dispatchCleanup removes the staged script locally and in the container and
// uninstalls non-cached dependencies. Errors are logged, never surfaced.
func (r *Runner) dispatchCleanup(containerID string, script sandbox.ScriptRef, deps []string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx := context.Background()
		if script.Name != "" {
			if err := r.engine.RemoveScript(ctx, containerID, script); err != nil {
				r.logger.Warn("could not remove script from container",
					zap.String("script", script.Name), zap.Error(err))
			}
		}
		r.deps.Uninstall(ctx, containerID, deps)
	}()
	return done
}

func closedChan() <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}
