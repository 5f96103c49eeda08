// Package deploy orchestrates the deployment lifecycle: receive an artifact,
// materialize it on disk, swap the running application instance, and persist
// enough state to restore the same instance after a host restart.
package deploy

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/slipway-sh/slipway/internal/logger"
	"github.com/slipway-sh/slipway/internal/telemetry"
)

// ArtifactStore materializes uploaded archives as versioned directories.
// Implemented by pkg/artifact.Store.
type ArtifactStore interface {
	Materialize(version string, archive io.Reader) (string, error)
	Exists(version string) bool
	Root() string
}

// Ledger durably stores the descriptor of the last successfully started
// deployment. Implemented by pkg/ledger.Ledger.
type Ledger interface {
	Persist(desc *Descriptor) error
	Load() (*Descriptor, error)
}

// Supervisor owns at most one running application instance.
// Implemented by pkg/supervisor.Supervisor.
type Supervisor interface {
	Start(ctx context.Context, desc *Descriptor) error
	Stop(ctx context.Context) error
}

// Metrics receives deployment outcome observations. May be nil.
// Implemented by pkg/metrics.DeployMetrics.
type Metrics interface {
	ObserveDeploy(status string, duration time.Duration)
	SetActive(active bool)
}

// Manager is the single owner of the active-deployment slot.
//
// Deploy and Recover are serialized by an internal mutex: both mutate the
// single instance slot and the single ledger record, and an overlapping
// stop/start pair from two concurrent uploads would break the invariant that
// at most one instance is active. Status reads go through Current, which
// never takes the lock.
type Manager struct {
	store   ArtifactStore
	ledger  Ledger
	sup     Supervisor
	metrics Metrics

	mu      sync.Mutex
	current atomic.Pointer[Descriptor]
}

// NewManager creates a Manager. metrics may be nil to disable observation.
func NewManager(store ArtifactStore, ledger Ledger, sup Supervisor, metrics Metrics) *Manager {
	return &Manager{
		store:   store,
		ledger:  ledger,
		sup:     sup,
		metrics: metrics,
	}
}

// Current returns the descriptor of the active deployment, or nil when the
// slot is empty. It is safe to call concurrently with Deploy and Recover and
// may return a momentarily stale value while a swap is in flight.
func (m *Manager) Current() *Descriptor {
	return m.current.Load().Clone()
}

// DeploymentsRoot returns the directory artifacts are materialized under.
func (m *Manager) DeploymentsRoot() string {
	return m.store.Root()
}

// Deploy performs one full deployment: materialize the archive under version,
// stop the current instance, start the new one, and persist the descriptor.
//
// Each step is a hard sequence point. Any failed step aborts the rest and
// leaves the ledger untouched; a failed start or persist leaves the slot
// empty rather than rolling back to the previous version. Stop failures are
// logged but do not abort the deploy, because leaving the system with no
// instance at all is worse than a brief double-bind risk.
func (m *Manager) Deploy(ctx context.Context, version string, archive io.Reader, port int, entrypoint string) (*Descriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, span := telemetry.StartDeploySpan(ctx, version,
		telemetry.DeployPort(port),
		telemetry.DeployEntrypoint(entrypoint))
	defer span.End()

	start := time.Now()
	desc := &Descriptor{
		Version:    version,
		Port:       port,
		Entrypoint: entrypoint,
		Timestamp:  start.UTC(),
	}

	logger.InfoCtx(ctx, "deployment started",
		"version", version, "port", port, "entrypoint", entrypoint)

	dir, err := m.materialize(ctx, version, archive)
	if err != nil {
		return nil, m.fail(ctx, start, err)
	}
	telemetry.SetAttributes(ctx, telemetry.ArtifactPath(dir))

	m.stopCurrent(ctx)

	if err := m.startInstance(ctx, desc); err != nil {
		// The slot stays empty; the ledger still names the previous
		// deployment and recovery after a host restart will bring that one
		// back if its artifact is intact.
		return nil, m.fail(ctx, start, err)
	}

	if err := m.persist(ctx, desc); err != nil {
		// A deploy that cannot be recorded ends with no instance active.
		// The ledger still names the previous deployment, so a host
		// restart restores that one, never the unrecorded version.
		m.stopCurrent(ctx)
		return nil, m.fail(ctx, start, err)
	}

	if m.metrics != nil {
		m.metrics.ObserveDeploy("success", time.Since(start))
	}
	telemetry.SetStatus(ctx, codes.Ok, "deployed")
	logger.InfoCtx(ctx, "deployment complete",
		"version", version, "port", port, "path", dir,
		"duration_ms", logger.Duration(start))
	return desc.Clone(), nil
}

// Recover re-activates the last known-good deployment after a host restart.
//
// All failures are logged and swallowed: the host must keep running and
// accept new uploads even when recovery cannot bring the old instance back.
func (m *Manager) Recover(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanRecover)
	defer span.End()

	desc, err := m.ledger.Load()
	if err != nil {
		telemetry.RecordError(ctx, err)
		logger.ErrorCtx(ctx, "failed to read deployment ledger", "error", err)
		return
	}
	if desc == nil {
		logger.InfoCtx(ctx, "no previous deployment to recover")
		return
	}
	if !m.store.Exists(desc.Version) {
		logger.WarnCtx(ctx, "previous deployment artifact is missing, skipping recovery",
			"version", desc.Version)
		return
	}

	telemetry.SetAttributes(ctx,
		telemetry.DeployVersion(desc.Version),
		telemetry.DeployPort(desc.Port))
	logger.InfoCtx(ctx, "recovering previous deployment",
		"version", desc.Version, "port", desc.Port, "entrypoint", desc.Entrypoint)

	if err := m.startInstance(ctx, desc); err != nil {
		logger.ErrorCtx(ctx, "failed to recover previous deployment",
			"version", desc.Version, "error", err)
		return
	}

	telemetry.SetStatus(ctx, codes.Ok, "recovered")
	logger.InfoCtx(ctx, "previous deployment recovered", "version", desc.Version)
}

// Shutdown stops the active instance during host shutdown. The ledger is left
// alone so the instance comes back on the next start.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Load() == nil {
		return nil
	}
	err := m.sup.Stop(ctx)
	m.current.Store(nil)
	if m.metrics != nil {
		m.metrics.SetActive(false)
	}
	return err
}

// materialize runs the artifact store step under its own span.
func (m *Manager) materialize(ctx context.Context, version string, archive io.Reader) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanMaterialize)
	defer span.End()

	dir, err := m.store.Materialize(version, archive)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return "", err
	}
	return dir, nil
}

// stopCurrent stops the running instance, logging failure without
// propagating it.
func (m *Manager) stopCurrent(ctx context.Context) {
	prev := m.current.Load()
	if prev == nil {
		return
	}

	ctx, span := telemetry.StartInstanceSpan(ctx, "stop", telemetry.DeployVersion(prev.Version))
	defer span.End()

	logger.InfoCtx(ctx, "stopping previous instance", "version", prev.Version, "port", prev.Port)
	if err := m.sup.Stop(ctx); err != nil {
		telemetry.RecordError(ctx, err)
		logger.WarnCtx(ctx, "failed to stop previous instance, continuing with deploy",
			"version", prev.Version, "error", err)
	}
	m.current.Store(nil)
	if m.metrics != nil {
		m.metrics.SetActive(false)
	}
}

// startInstance starts desc and publishes it as current on success.
func (m *Manager) startInstance(ctx context.Context, desc *Descriptor) error {
	ctx, span := telemetry.StartInstanceSpan(ctx, "start",
		telemetry.DeployVersion(desc.Version),
		telemetry.DeployPort(desc.Port))
	defer span.End()

	if err := m.sup.Start(ctx, desc); err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}
	m.current.Store(desc.Clone())
	if m.metrics != nil {
		m.metrics.SetActive(true)
	}
	return nil
}

// persist writes desc to the ledger under its own span.
func (m *Manager) persist(ctx context.Context, desc *Descriptor) error {
	ctx, span := telemetry.StartLedgerSpan(ctx, "persist", telemetry.DeployVersion(desc.Version))
	defer span.End()

	if err := m.ledger.Persist(desc); err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}
	return nil
}

// fail records a failed deploy outcome and returns err unchanged.
func (m *Manager) fail(ctx context.Context, start time.Time, err error) error {
	telemetry.RecordError(ctx, err)
	if m.metrics != nil {
		m.metrics.ObserveDeploy("failure", time.Since(start))
	}
	logger.ErrorCtx(ctx, "deployment failed", "error", err, "duration_ms", logger.Duration(start))
	return err
}
