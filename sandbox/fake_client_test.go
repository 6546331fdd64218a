package sandbox

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
)

// fakeAPIClient implements APIClient in memory
type fakeAPIClient struct {
	mu sync.Mutex

	inspect    map[string]types.ContainerJSON
	inspectErr map[string]error

	updateCalls []container.UpdateConfig
	updateErr   error

	copyCalls []copyToCall
	copyErr   error

	nextExecID  int
	execCreates []execCreateCall
	execOutput  []byte
	execBlock   bool
	execExit    int
	createErr   error
	attachErr   error

	blockReaders []*io.PipeWriter
}

type copyToCall struct {
	containerID string
	path        string
	data        []byte
}

type execCreateCall struct {
	containerID string
	config      types.ExecConfig
}

func newFakeAPIClient() *fakeAPIClient {
	return &fakeAPIClient{
		inspect:    make(map[string]types.ContainerJSON),
		inspectErr: make(map[string]error),
	}
}

func (f *fakeAPIClient) ContainerInspect(_ context.Context, containerID string) (types.ContainerJSON, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.inspectErr[containerID]; ok {
		return types.ContainerJSON{}, err
	}
	if info, ok := f.inspect[containerID]; ok {
		return info, nil
	}
	return types.ContainerJSON{}, fmt.Errorf("unexpected inspect of %s", containerID)
}

func (f *fakeAPIClient) ContainerUpdate(_ context.Context, _ string, updateConfig container.UpdateConfig) (container.ContainerUpdateOKBody, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls = append(f.updateCalls, updateConfig)
	return container.ContainerUpdateOKBody{}, f.updateErr
}

func (f *fakeAPIClient) CopyToContainer(_ context.Context, containerID, dstPath string, content io.Reader, _ types.CopyToContainerOptions) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.copyErr != nil {
		return f.copyErr
	}
	f.copyCalls = append(f.copyCalls, copyToCall{containerID: containerID, path: dstPath, data: data})
	return nil
}

func (f *fakeAPIClient) ContainerExecCreate(_ context.Context, containerID string, config types.ExecConfig) (types.IDResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return types.IDResponse{}, f.createErr
	}
	f.nextExecID++
	f.execCreates = append(f.execCreates, execCreateCall{containerID: containerID, config: config})
	return types.IDResponse{ID: fmt.Sprintf("exec-%d", f.nextExecID)}, nil
}

func (f *fakeAPIClient) ContainerExecAttach(_ context.Context, _ string, _ types.ExecStartCheck) (types.HijackedResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachErr != nil {
		return types.HijackedResponse{}, f.attachErr
	}
	if f.execBlock {
		r, w := io.Pipe()
		f.blockReaders = append(f.blockReaders, w)
		return types.HijackedResponse{Conn: &fakeConn{}, Reader: bufio.NewReader(r)}, nil
	}
	return types.HijackedResponse{Conn: &fakeConn{}, Reader: bufio.NewReader(bytes.NewReader(f.execOutput))}, nil
}

func (f *fakeAPIClient) ContainerExecInspect(_ context.Context, _ string) (types.ContainerExecInspect, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return types.ContainerExecInspect{ExitCode: f.execExit}, nil
}

func (f *fakeAPIClient) setRunning(name string, running bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inspect[name] = types.ContainerJSON{
		ContainerJSONBase: &types.ContainerJSONBase{
			ID:    "cid-" + name,
			Name:  "/" + name,
			State: &types.ContainerState{Running: running},
		},
	}
}

func (f *fakeAPIClient) setExecOutput(stdout, stderr string) {
	var buf bytes.Buffer
	if stdout != "" {
		w := stdcopy.NewStdWriter(&buf, stdcopy.Stdout)
		_, _ = w.Write([]byte(stdout))
	}
	if stderr != "" {
		w := stdcopy.NewStdWriter(&buf, stdcopy.Stderr)
		_, _ = w.Write([]byte(stderr))
	}
	f.mu.Lock()
	f.execOutput = buf.Bytes()
	f.mu.Unlock()
}

func (f *fakeAPIClient) releaseBlocked() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.blockReaders {
		_ = w.Close()
	}
	f.blockReaders = nil
}

func (f *fakeAPIClient) execCommands() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmds := make([][]string, 0, len(f.execCreates))
	for _, call := range f.execCreates {
		cmds = append(cmds, call.config.Cmd)
	}
	return cmds
}

// fakeFS implements FileSystem in memory
type fakeFS struct {
	mu       sync.Mutex
	files    map[string][]byte
	removed  []string
	writeErr error
}

func newFakeFS() *fakeFS {
	return &fakeFS{files: make(map[string][]byte)}
}

func (f *fakeFS) WriteFile(filename string, data []byte, _ os.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.files[filename] = data
	return nil
}

func (f *fakeFS) Remove(filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, filename)
	delete(f.files, filename)
	return nil
}

func (f *fakeFS) TempDir() string {
	return "/tmp"
}

type fakeConn struct {
	bytes.Buffer
	closed bool
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func (c *fakeConn) LocalAddr() net.Addr              { return fakeAddr("local") }
func (c *fakeConn) RemoteAddr() net.Addr             { return fakeAddr("remote") }
func (c *fakeConn) SetDeadline(time.Time) error      { return nil }
func (c *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

type fakeAddr string

func (a fakeAddr) Network() string { return string(a) }
func (a fakeAddr) String() string  { return string(a) }
