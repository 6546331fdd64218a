package sandbox

import (
	"context"
	"io"
	"os"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// APIClient is the subset of the Docker Engine API the sandbox relies on.
// Anything implementing these verbs can host the runner; tests substitute a
// fake.
type APIClient interface {
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	ContainerUpdate(ctx context.Context, containerID string, updateConfig container.UpdateConfig) (container.ContainerUpdateOKBody, error)
	CopyToContainer(ctx context.Context, containerID, dstPath string, content io.Reader, options types.CopyToContainerOptions) error
	ContainerExecCreate(ctx context.Context, containerID string, config types.ExecConfig) (types.IDResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, config types.ExecStartCheck) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (types.ContainerExecInspect, error)
}

// NewDockerClient connects to the ambient Docker daemon using the standard
// environment variables (DOCKER_HOST and friends).
func NewDockerClient() (APIClient, error) {
	return client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
}

// FileSystem covers the local file operations used for script staging
type FileSystem interface {
	WriteFile(filename string, data []byte, perm os.FileMode) error
	Remove(filename string) error
	TempDir() string
}

// RealFileSystem implements FileSystem using actual file system operations
type RealFileSystem struct{}

func (RealFileSystem) WriteFile(filename string, data []byte, perm os.FileMode) error {
	return os.WriteFile(filename, data, perm)
}

func (RealFileSystem) Remove(filename string) error {
	return os.Remove(filename)
}

func (RealFileSystem) TempDir() string {
	return os.TempDir()
}
