package sandbox

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/docker/docker/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestResolve(t *testing.T) {
	cli := newFakeAPIClient()
	cli.setRunning("worker", true)
	engine := NewEngine(zaptest.NewLogger(t), cli, "/code")

	c, err := engine.Resolve(context.Background(), "worker")
	require.NoError(t, err)
	assert.Equal(t, "cid-worker", c.ID)
	assert.Equal(t, "worker", c.Name)
	assert.True(t, c.Running)
}

func TestResolveStopped(t *testing.T) {
	cli := newFakeAPIClient()
	cli.setRunning("worker", false)
	engine := NewEngine(zaptest.NewLogger(t), cli, "/code")

	c, err := engine.Resolve(context.Background(), "worker")
	require.NoError(t, err)
	assert.False(t, c.Running)
}

func TestResolveNotFound(t *testing.T) {
	cli := newFakeAPIClient()
	cli.inspectErr["ghost"] = errdefs.NotFound(errors.New("No such container: ghost"))
	engine := NewEngine(zaptest.NewLogger(t), cli, "/code")

	_, err := engine.Resolve(context.Background(), "ghost")
	require.Error(t, err)

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Container with name ghost not found.", err.Error())
}

func TestApplyLimits(t *testing.T) {
	cli := newFakeAPIClient()
	engine := NewEngine(zaptest.NewLogger(t), cli, "/code")

	err := engine.ApplyLimits(context.Background(), "cid", Limits{
		CPUQuota:   50000,
		Memory:     100 * 1024 * 1024,
		MemorySwap: 512 * 1024 * 1024,
	})
	require.NoError(t, err)

	require.Len(t, cli.updateCalls, 1)
	resources := cli.updateCalls[0].Resources
	assert.Equal(t, int64(50000), resources.CPUQuota)
	assert.Equal(t, int64(100*1024*1024), resources.Memory)
	assert.Equal(t, int64(512*1024*1024), resources.MemorySwap)
}

func TestUploadScript(t *testing.T) {
	cli := newFakeAPIClient()
	fs := newFakeFS()
	engine := NewEngine(zaptest.NewLogger(t), cli, "/code", WithFileSystem(fs))

	source := "print('Hello, World!')"
	ref, err := engine.UploadScript(context.Background(), "cid", source)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ref.Name, "script_"))
	assert.True(t, strings.HasSuffix(ref.Name, ".py"))
	assert.Equal(t, "/tmp/"+ref.Name, ref.LocalPath)
	assert.Equal(t, []byte(source), fs.files[ref.LocalPath])

	require.Len(t, cli.copyCalls, 1)
	call := cli.copyCalls[0]
	assert.Equal(t, "cid", call.containerID)
	assert.Equal(t, "/code/", call.path)

	// The archive holds exactly the staged script.
	tr := tar.NewReader(bytes.NewReader(call.data))
	header, err := tr.Next()
	require.NoError(t, err)
	assert.Equal(t, ref.Name, header.Name)
	content, err := io.ReadAll(tr)
	require.NoError(t, err)
	assert.Equal(t, source, string(content))
	_, err = tr.Next()
	assert.Equal(t, io.EOF, err)
}

func TestUploadScriptNamesAreUnique(t *testing.T) {
	cli := newFakeAPIClient()
	fs := newFakeFS()
	engine := NewEngine(zaptest.NewLogger(t), cli, "/code", WithFileSystem(fs))

	first, err := engine.UploadScript(context.Background(), "cid", "print(1)")
	require.NoError(t, err)
	second, err := engine.UploadScript(context.Background(), "cid", "print(2)")
	require.NoError(t, err)

	assert.NotEqual(t, first.Name, second.Name)
}

func TestUploadScriptCopyFailure(t *testing.T) {
	cli := newFakeAPIClient()
	cli.copyErr = errors.New("daemon unavailable")
	fs := newFakeFS()
	engine := NewEngine(zaptest.NewLogger(t), cli, "/code", WithFileSystem(fs))

	_, err := engine.UploadScript(context.Background(), "cid", "print(1)")
	assert.Error(t, err)
}

func TestRemoveScript(t *testing.T) {
	cli := newFakeAPIClient()
	fs := newFakeFS()
	engine := NewEngine(zaptest.NewLogger(t), cli, "/code", WithFileSystem(fs))

	ref := ScriptRef{Name: "script_abc.py", LocalPath: "/tmp/script_abc.py"}
	err := engine.RemoveScript(context.Background(), "cid", ref)
	require.NoError(t, err)

	assert.Equal(t, []string{"/tmp/script_abc.py"}, fs.removed)
	assert.Equal(t, [][]string{{"rm", "/code/script_abc.py"}}, cli.execCommands())
}
