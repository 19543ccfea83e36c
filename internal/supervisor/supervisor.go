package supervisor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/igdms/instagram-dms-mcp/internal/creds"
	"github.com/igdms/instagram-dms-mcp/internal/gateway"
)

// State is the supervisor's position in the gateway lifecycle.
type State string

const (
	StateNotStarted State = "not_started"
	StateStarting   State = "starting"
	StateReady      State = "ready"
	StateFailed     State = "failed"
	StateStopped    State = "stopped"
)

const (
	// EnvCookieFile is the variable injected into the child naming the
	// credential file path.
	EnvCookieFile = "IG_COOKIE_FILE"

	// executableName is the gateway binary looked for next to the server
	// binary and in the working directory.
	executableName = "ig-gateway"

	// DefaultPollInterval is the cadence of the readiness poll.
	DefaultPollInterval = time.Second

	// DefaultPollAttempts bounds the readiness poll.
	DefaultPollAttempts = 30

	// DefaultProbeTimeout bounds each individual health probe, including
	// the pre-launch reachability check.
	DefaultProbeTimeout = 2 * time.Second

	// DefaultStopGracePeriod is how long Stop waits after SIGTERM before
	// sending SIGKILL.
	DefaultStopGracePeriod = 5 * time.Second
)

// StartupRecorder receives metrics about gateway startup attempts.
// Implemented by instrumentation.Metrics; nil disables recording.
type StartupRecorder interface {
	RecordGatewayStartup(ctx context.Context, outcome string, attempts int, duration time.Duration)
}

// Config controls a Supervisor. Zero values select the defaults above.
type Config struct {
	// Addr is the gateway base URL. Defaults to the environment-configured
	// address (gateway.Addr()).
	Addr string

	// InstallDir is the directory searched first for the gateway
	// executable. Defaults to the directory of the running binary.
	InstallDir string

	// WorkDir is the fallback search directory. Defaults to the current
	// working directory.
	WorkDir string

	PollInterval    time.Duration
	PollAttempts    int
	ProbeTimeout    time.Duration
	StopGracePeriod time.Duration

	// Assemble provides the credential bundle. Defaults to creds.Assemble.
	Assemble func() (creds.Bundle, bool)

	// Recorder receives startup metrics; may be nil.
	Recorder StartupRecorder

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Supervisor manages a single gateway subprocess. All fields that outlive
// Start are owned exclusively by the Supervisor; nothing else may signal the
// child or touch the credential file.
type Supervisor struct {
	cfg    Config
	client *gateway.Client
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	cmd      *exec.Cmd
	waitCh   chan error
	output   *bytes.Buffer
	credFile string
	stopped  bool
}

// New creates a Supervisor in the NotStarted state.
func New(cfg Config) *Supervisor {
	if cfg.Addr == "" {
		cfg.Addr = gateway.Addr()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = DefaultPollAttempts
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.StopGracePeriod <= 0 {
		cfg.StopGracePeriod = DefaultStopGracePeriod
	}
	if cfg.Assemble == nil {
		cfg.Assemble = creds.Assemble
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Supervisor{
		cfg:    cfg,
		client: gateway.NewClient(cfg.Addr),
		logger: logger.With(slog.String("component", "supervisor")),
		state:  StateNotStarted,
	}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Client returns the gateway client bound to the supervised address.
func (s *Supervisor) Client() *gateway.Client {
	return s.client
}

// Start brings the gateway to Ready and returns its health payload, or a
// terminal error. It blocks until the outcome is known. Calling Start while
// a gateway is already healthy on the configured address performs no second
// launch.
func (s *Supervisor) Start(ctx context.Context) (*gateway.HealthStatus, error) {
	started := time.Now()

	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return nil, fmt.Errorf("supervisor already stopped")
	}
	s.state = StateStarting
	s.mu.Unlock()

	// Idempotent start: adopt a gateway that is already answering.
	if s.client.Probe(ctx, s.cfg.ProbeTimeout) {
		status, err := s.client.Health(ctx)
		if err != nil {
			return s.fail(ctx, started, 0, fmt.Errorf("gateway probe succeeded but health fetch failed: %w", err))
		}
		s.setState(StateReady)
		s.logger.Info("adopted running gateway",
			slog.String("addr", s.cfg.Addr),
			slog.String("username", status.Username))
		s.record(ctx, "adopted", 0, time.Since(started))
		return status, nil
	}

	bundle, ok := s.cfg.Assemble()
	if !ok {
		return s.fail(ctx, started, 0, fmt.Errorf(
			"instagram credentials not configured: set %s (or %s with a base64/JSON cookie bundle)",
			strings.Join(creds.RequiredEnvVars, ", "), creds.EnvCombined))
	}

	credFile, err := writeCredentialFile(bundle)
	if err != nil {
		return s.fail(ctx, started, 0, fmt.Errorf("failed to write credential file: %w", err))
	}
	s.mu.Lock()
	s.credFile = credFile
	s.mu.Unlock()

	exePath, found := s.locateExecutable()
	if !found {
		s.removeCredFile()
		return s.fail(ctx, started, 0, fmt.Errorf(
			"gateway executable %q not found next to the server binary or in the working directory", executableName))
	}

	if err := s.launch(exePath, credFile); err != nil {
		s.removeCredFile()
		return s.fail(ctx, started, 0, fmt.Errorf("failed to launch gateway: %w", err))
	}

	status, attempts, err := s.awaitReady(ctx)
	if err != nil {
		s.teardown()
		return s.fail(ctx, started, attempts, err)
	}

	s.setState(StateReady)
	s.logger.Info("gateway ready",
		slog.String("addr", s.cfg.Addr),
		slog.String("username", status.Username),
		slog.Int("attempts", attempts))
	s.record(ctx, "launched", attempts, time.Since(started))
	return status, nil
}

// Stop terminates the child and removes the credential file. Safe to call
// multiple times and from concurrent call sites (signal handler plus normal
// exit): later calls find the work already done.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cmd := s.cmd
	waitCh := s.waitCh
	s.cmd = nil
	if s.state == StateReady || s.state == StateStarting {
		s.state = StateStopped
	}
	s.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		s.logger.Info("stopping gateway", slog.Int("pid", cmd.Process.Pid))
		_ = cmd.Process.Signal(syscall.SIGTERM)

		select {
		case <-waitCh:
		case <-time.After(s.cfg.StopGracePeriod):
			s.logger.Warn("gateway did not exit in time, killing",
				slog.Duration("grace_period", s.cfg.StopGracePeriod))
			_ = cmd.Process.Kill()
			<-waitCh
		}
	}

	s.removeCredFile()
}

// launch starts the gateway executable with the credential file path in its
// environment and both output streams captured into one buffer.
func (s *Supervisor) launch(exePath, credFile string) error {
	output := &bytes.Buffer{}
	cmd := exec.Command(exePath)
	cmd.Env = append(os.Environ(), EnvCookieFile+"="+credFile)
	cmd.Stdout = output
	cmd.Stderr = output

	if err := cmd.Start(); err != nil {
		return err
	}

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- cmd.Wait()
		close(waitCh)
	}()

	s.mu.Lock()
	s.cmd = cmd
	s.waitCh = waitCh
	s.output = output
	s.mu.Unlock()

	s.logger.Info("launched gateway",
		slog.String("path", exePath),
		slog.Int("pid", cmd.Process.Pid))
	return nil
}

// awaitReady polls the health endpoint once per interval until the gateway
// answers, the child exits, or the attempt budget is exhausted. Returns the
// number of attempts made alongside the outcome.
func (s *Supervisor) awaitReady(ctx context.Context) (*gateway.HealthStatus, int, error) {
	s.mu.Lock()
	waitCh := s.waitCh
	s.mu.Unlock()

	for attempt := 1; attempt <= s.cfg.PollAttempts; attempt++ {
		select {
		case <-waitCh:
			return nil, attempt, fmt.Errorf("gateway exited during startup; output:\n%s", s.capturedOutput())
		case <-ctx.Done():
			return nil, attempt, ctx.Err()
		default:
		}

		probeCtx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout)
		status, err := s.client.Health(probeCtx)
		cancel()
		if err == nil {
			return status, attempt, nil
		}

		select {
		case <-waitCh:
			return nil, attempt, fmt.Errorf("gateway exited during startup; output:\n%s", s.capturedOutput())
		case <-ctx.Done():
			return nil, attempt, ctx.Err()
		case <-time.After(s.cfg.PollInterval):
		}
	}

	return nil, s.cfg.PollAttempts, fmt.Errorf(
		"gateway did not become healthy at %s within %d attempts", s.cfg.Addr, s.cfg.PollAttempts)
}

// teardown kills the child (if any) and removes the credential file. Used on
// failed startups; Stop handles the graceful path.
func (s *Supervisor) teardown() {
	s.mu.Lock()
	cmd := s.cmd
	waitCh := s.waitCh
	s.cmd = nil
	s.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
		<-waitCh
	}
	s.removeCredFile()
}

// locateExecutable checks the fixed candidate locations in order and returns
// the first that exists.
func (s *Supervisor) locateExecutable() (string, bool) {
	installDir := s.cfg.InstallDir
	if installDir == "" {
		if exe, err := os.Executable(); err == nil {
			installDir = filepath.Dir(exe)
		}
	}
	workDir := s.cfg.WorkDir
	if workDir == "" {
		workDir = "."
	}

	candidates := []string{
		filepath.Join(installDir, executableName),
		filepath.Join(installDir, executableName+".exe"),
		filepath.Join(workDir, executableName),
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

func (s *Supervisor) capturedOutput() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.output == nil {
		return ""
	}
	return strings.TrimSpace(s.output.String())
}

func (s *Supervisor) removeCredFile() {
	s.mu.Lock()
	credFile := s.credFile
	s.credFile = ""
	s.mu.Unlock()

	if credFile != "" {
		if err := os.Remove(credFile); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove credential file",
				slog.String("path", credFile),
				slog.String("error", err.Error()))
		}
	}
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// fail records the terminal failure and returns the error unchanged.
func (s *Supervisor) fail(ctx context.Context, started time.Time, attempts int, err error) (*gateway.HealthStatus, error) {
	s.setState(StateFailed)
	s.logger.Error("gateway startup failed", slog.String("error", err.Error()))
	s.record(ctx, "failed", attempts, time.Since(started))
	return nil, err
}

func (s *Supervisor) record(ctx context.Context, outcome string, attempts int, duration time.Duration) {
	if s.cfg.Recorder != nil {
		s.cfg.Recorder.RecordGatewayStartup(ctx, outcome, attempts, duration)
	}
}

// writeCredentialFile serializes the bundle to a fresh 0600 temp file owned
// by this process.
func writeCredentialFile(bundle creds.Bundle) (string, error) {
	f, err := os.CreateTemp("", "ig-cookies-*.json")
	if err != nil {
		return "", err
	}

	data, err := bundle.MarshalJSON()
	if err == nil {
		_, err = f.Write(data)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
