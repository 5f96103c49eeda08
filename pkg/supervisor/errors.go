package supervisor

import "errors"

var (
	// ErrEntrypointNotFound is returned when the descriptor's entrypoint does
	// not resolve to an executable file inside the artifact directory.
	ErrEntrypointNotFound = errors.New("entrypoint not found")

	// ErrAppLoad is returned when the application process fails to start or
	// does not become ready within the configured timeout.
	ErrAppLoad = errors.New("application failed to load")

	// ErrBind is returned when the frontend listener cannot bind the
	// deployment's port.
	ErrBind = errors.New("failed to bind port")

	// ErrRunning is returned when starting while an instance is already
	// running.
	ErrRunning = errors.New("instance already running")
)
