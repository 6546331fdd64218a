package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/pkg/stdcopy"
	"go.uber.org/zap"
)

// ErrCommandTimeout signals that a command did not complete within its
// wall-clock budget.
var ErrCommandTimeout = errors.New("command timed out")

// graceWait is the extra wait granted to a worker after its deadline before
// the timeout is reported.
const graceWait = time.Second

type execOutcome struct {
	exitCode int
	output   string
	err      error
}

// Exec runs cmd inside the container under a hard wall-clock timeout.
//
// The command is dispatched to a worker goroutine that is not cancelled on
// timeout: after the deadline the caller waits one extra grace second and
// then returns ErrCommandTimeout regardless of the worker's state. A
// timed-out in-container process may therefore keep running; the container's
// own limits are the backstop.
func (e *Engine) Exec(ctx context.Context, containerID string, cmd []string, timeout time.Duration) (int, string, error) {
	done := make(chan execOutcome, 1)

	// The worker must outlive the caller's wait, so it is detached from the
	// caller's cancellation.
	workerCtx := context.WithoutCancel(ctx)
	go func() {
		done <- e.runExec(workerCtx, containerID, cmd)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case outcome := <-done:
		if outcome.err != nil {
			return 0, "", outcome.err
		}
		return outcome.exitCode, outcome.output, nil
	case <-timer.C:
	}

	// Deadline passed. Give the worker the grace second, then report the
	// timeout whether or not it finished.
	grace := time.NewTimer(graceWait)
	defer grace.Stop()
	select {
	case <-done:
	case <-grace.C:
	}

	e.logger.Warn("command timed out",
		zap.String("container_id", containerID),
		zap.Strings("cmd", cmd),
		zap.Duration("timeout", timeout))
	return 0, "", ErrCommandTimeout
}

// runExec drives one exec through create, attach, drain, and inspect.
func (e *Engine) runExec(ctx context.Context, containerID string, cmd []string) execOutcome {
	created, err := e.cli.ContainerExecCreate(ctx, containerID, types.ExecConfig{
		Cmd:          cmd,
		WorkingDir:   e.codeDir,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return execOutcome{err: fmt.Errorf("create exec: %w", err)}
	}

	attach, err := e.cli.ContainerExecAttach(ctx, created.ID, types.ExecStartCheck{})
	if err != nil {
		return execOutcome{err: fmt.Errorf("attach exec: %w", err)}
	}
	defer attach.Close()

	// The attached stream multiplexes stdout and stderr; demux and keep both,
	// in order of arrival per stream.
	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil {
		return execOutcome{err: fmt.Errorf("read exec output: %w", err)}
	}

	inspect, err := e.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return execOutcome{err: fmt.Errorf("inspect exec: %w", err)}
	}

	// Absent output is an empty string, never nil.
	return execOutcome{
		exitCode: inspect.ExitCode,
		output:   stdout.String() + stderr.String(),
	}
}
