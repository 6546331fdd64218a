package sandbox

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/errdefs"
	"go.uber.org/zap"
)

// removeTimeout bounds the in-container rm during cleanup.
const removeTimeout = 10 * time.Second

// Container is a resolved reference to the externally-provisioned target.
type Container struct {
	ID      string
	Name    string
	Running bool
}

// Limits are the resource limits pushed onto the container before a run.
type Limits struct {
	CPUQuota   int64 // microseconds per scheduler period
	Memory     int64 // bytes
	MemorySwap int64 // bytes, memory+swap
}

// NotFoundError reports that the target container does not exist.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Container with name %s not found.", e.Name)
}

// Engine performs container operations through an APIClient.
type Engine struct {
	logger  *zap.Logger
	cli     APIClient
	codeDir string
	fs      FileSystem
}

// EngineOption defines a functional option for Engine
type EngineOption func(*Engine)

// WithFileSystem sets the FileSystem used for script staging
func WithFileSystem(fs FileSystem) EngineOption {
	return func(e *Engine) {
		e.fs = fs
	}
}

// NewEngine creates an Engine targeting codeDir as the in-container script
// directory.
func NewEngine(logger *zap.Logger, cli APIClient, codeDir string, opts ...EngineOption) *Engine {
	e := &Engine{
		logger:  logger,
		cli:     cli,
		codeDir: codeDir,
		fs:      RealFileSystem{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CodeDir returns the in-container directory scripts are uploaded to
func (e *Engine) CodeDir() string {
	return e.codeDir
}

// Resolve looks the container up by name. The handle is external state, so
// callers re-resolve before every execution rather than holding on to it.
func (e *Engine) Resolve(ctx context.Context, name string) (Container, error) {
	info, err := e.cli.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return Container{}, &NotFoundError{Name: name}
		}
		return Container{}, fmt.Errorf("inspect container %s: %w", name, err)
	}

	c := Container{ID: info.ID, Name: name}
	if info.State != nil {
		c.Running = info.State.Running
	}
	return c, nil
}

// ApplyLimits pushes resource limits onto the container. Limits are not
// assumed sticky; the runner applies them before every execution.
func (e *Engine) ApplyLimits(ctx context.Context, containerID string, limits Limits) error {
	_, err := e.cli.ContainerUpdate(ctx, containerID, container.UpdateConfig{
		Resources: container.Resources{
			CPUQuota:   limits.CPUQuota,
			Memory:     limits.Memory,
			MemorySwap: limits.MemorySwap,
		},
	})
	if err != nil {
		return fmt.Errorf("update container limits: %w", err)
	}
	return nil
}

// RemoveScript deletes the in-container copy of a staged script and its
// local original. Intended for cleanup; the caller decides whether errors
// matter.
func (e *Engine) RemoveScript(ctx context.Context, containerID string, script ScriptRef) error {
	if err := e.fs.Remove(script.LocalPath); err != nil {
		e.logger.Warn("could not remove staged script", zap.String("path", script.LocalPath), zap.Error(err))
	}
	_, _, err := e.Exec(ctx, containerID, []string{"rm", path.Join(e.codeDir, script.Name)}, removeTimeout)
	return err
}
