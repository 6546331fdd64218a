// Package sandbox provides the boundary to the target Docker container.
//
// The sandbox package wraps the Docker Engine API behind a narrow client
// interface and exposes the operations the runner needs against one
// externally-provisioned, already-running container: resolve it by name,
// push resource limits, upload a script archive, and execute commands under
// a hard wall-clock timeout.
//
// The container is referenced, never owned: the package does not create,
// start, stop, or remove it.
package sandbox
