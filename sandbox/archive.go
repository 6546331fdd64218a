package sandbox

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScriptRef identifies one staged submission script: its generated unique
// name inside the container's code directory and the local staging copy.
type ScriptRef struct {
	Name      string
	LocalPath string
}

// UploadScript materializes source under a freshly generated unique name,
// packages it into a tar archive, and places it in the container's code
// directory.
func (e *Engine) UploadScript(ctx context.Context, containerID, source string) (ScriptRef, error) {
	name := fmt.Sprintf("script_%s.py", strings.ReplaceAll(uuid.NewString(), "-", ""))
	ref := ScriptRef{
		Name:      name,
		LocalPath: filepath.Join(e.fs.TempDir(), name),
	}

	if err := e.fs.WriteFile(ref.LocalPath, []byte(source), 0o600); err != nil {
		return ScriptRef{}, fmt.Errorf("stage script: %w", err)
	}

	archive, err := scriptArchive(name, []byte(source))
	if err != nil {
		return ScriptRef{}, fmt.Errorf("archive script: %w", err)
	}

	dst := e.codeDir
	if !strings.HasSuffix(dst, "/") {
		dst += "/"
	}
	if err := e.cli.CopyToContainer(ctx, containerID, dst, archive, types.CopyToContainerOptions{}); err != nil {
		e.logger.Warn("script upload failed",
			zap.String("container_id", containerID),
			zap.String("script", name),
			zap.Error(err))
		return ScriptRef{}, fmt.Errorf("copy script to container: %w", err)
	}

	e.logger.Debug("script uploaded",
		zap.String("container_id", containerID),
		zap.String("script", name))
	return ref, nil
}

// scriptArchive builds an in-memory tar holding a single file
func scriptArchive(name string, data []byte) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.WriteHeader(&tar.Header{
		Name: name,
		Mode: 0o644,
		Size: int64(len(data)),
	}); err != nil {
		return nil, err
	}
	if _, err := tw.Write(data); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return &buf, nil
}
