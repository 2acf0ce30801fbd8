// Package client provides a client for connecting to the reclaimd daemon.
// It wraps the gRPC client with convenience methods and converts wire
// messages back into engine types, so callers handle daemon and local
// results the same way.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	reclaimv1 "github.com/jamesainslie/reclaim/pkg/api/reclaim/v1"
	"github.com/jamesainslie/reclaim/pkg/reclaim/config"
	"github.com/jamesainslie/reclaim/pkg/reclaim/engine"
	"github.com/jamesainslie/reclaim/pkg/reclaim/manifest"
	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

// BinaryName is the daemon executable name.
const BinaryName = "reclaimd"

// Client connects to the reclaimd daemon via gRPC.
type Client struct {
	conn   *grpc.ClientConn
	client reclaimv1.ReclaimDaemonClient
}

// DaemonStatus represents the daemon's current status.
type DaemonStatus struct {
	PID          int
	Uptime       time.Duration
	WatchedRoots []string
	CachedRoots  int
	Subscribers  int
}

// ChangeEvent represents a filesystem change reported by the daemon.
type ChangeEvent struct {
	Type string // "created", "modified", "deleted", "renamed"
	Path string
}

// DefaultSocketPath returns the default Unix socket path for reclaimd.
func DefaultSocketPath() string {
	return config.DefaultSocketPath()
}

// DefaultPIDPath returns the default PID file path for reclaimd.
func DefaultPIDPath() string {
	return config.DefaultPIDPath()
}

// DaemonPaths configures paths for daemon operations.
// Empty fields use defaults.
type DaemonPaths struct {
	Binary string   // Path to reclaimd binary (auto-discovered if empty)
	Socket string   // Unix socket path
	PID    string   // PID file path
	Args   []string // Extra arguments passed to reclaimd, such as --config
}

// withDefaults returns a copy with empty fields filled with defaults.
func (p DaemonPaths) withDefaults() DaemonPaths {
	if p.Socket == "" {
		p.Socket = DefaultSocketPath()
	}
	if p.PID == "" {
		p.PID = DefaultPIDPath()
	}
	return p
}

// StatusPath returns the startup status file reclaimd writes next to
// its socket.
func StatusPath(socketPath string) string {
	return strings.TrimSuffix(socketPath, ".sock") + ".status"
}

// Connect establishes a connection to the reclaimd daemon.
// Uses a default timeout of 5 seconds.
func Connect(socketPath string) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return ConnectWithContext(ctx, socketPath)
}

// ConnectWithContext establishes a connection to the reclaimd daemon with a custom context.
func ConnectWithContext(ctx context.Context, socketPath string) (*Client, error) {
	if _, err := os.Stat(socketPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("daemon socket not found at %s", socketPath)
	}

	//nolint:staticcheck // grpc.DialContext is deprecated but NewClient doesn't support blocking
	conn, err := grpc.DialContext(
		ctx,
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(reclaimv1.CallOption()),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}

	return &Client{
		conn:   conn,
		client: reclaimv1.NewReclaimDaemonClient(conn),
	}, nil
}

// Close closes the connection to the daemon.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// rpcError wraps a failed call so engine sentinels still match with
// errors.Is.
func rpcError(method string, err error) error {
	return fmt.Errorf("%s RPC failed: %w", method, reclaimv1.FromStatus(err))
}

// Triage classifies the tree under path. cached reports whether the
// daemon answered from its cache; fresh forces a new walk.
func (c *Client) Triage(ctx context.Context, path string, fresh bool) (result *types.TriageResult, cached bool, err error) {
	resp, err := c.client.Triage(ctx, &reclaimv1.TriageRequest{Path: path, Fresh: fresh})
	if err != nil {
		return nil, false, rpcError("Triage", err)
	}
	return resp.ToTriage(), resp.Cached, nil
}

// Clean quarantines the AutoSafe files under path. Like the engine, it
// returns a non-nil error alongside an unsuccessful result when the clean
// could not run.
func (c *Client) Clean(ctx context.Context, path string) (engine.Result, error) {
	resp, err := c.client.Clean(ctx, &reclaimv1.CleanRequest{Path: path})
	if err != nil {
		err = rpcError("Clean", err)
		return engine.Result{Message: err.Error()}, err
	}
	res := resp.ToResult()
	return res, resultError(res)
}

// Restore undoes the manifest named by ref, which may be "latest".
func (c *Client) Restore(ctx context.Context, ref string) (engine.Result, error) {
	resp, err := c.client.Restore(ctx, &reclaimv1.RestoreRequest{ID: ref})
	if err != nil {
		err = rpcError("Restore", err)
		return engine.Result{Message: err.Error()}, err
	}
	res := resp.ToResult()
	return res, resultError(res)
}

// Summaries returns manifest summaries in creation order.
func (c *Client) Summaries(ctx context.Context) ([]manifest.Summary, error) {
	resp, err := c.client.List(ctx, &reclaimv1.ListRequest{})
	if err != nil {
		return nil, rpcError("List", err)
	}
	return resp.Details, nil
}

// Show returns the manifest named by ref.
func (c *Client) Show(ctx context.Context, ref string) (*manifest.Manifest, error) {
	resp, err := c.client.Show(ctx, &reclaimv1.ShowRequest{ID: ref})
	if err != nil {
		return nil, rpcError("Show", err)
	}
	return resp.Manifest, nil
}

// Verify checks quarantined data for one manifest, or all when ref is empty.
func (c *Client) Verify(ctx context.Context, ref string) (*engine.VerifyReport, error) {
	resp, err := c.client.Verify(ctx, &reclaimv1.VerifyRequest{ID: ref})
	if err != nil {
		return nil, rpcError("Verify", err)
	}
	return resp.Report, nil
}

// Summarize asks the daemon to summarize the files under path that need
// review.
func (c *Client) Summarize(ctx context.Context, path string) (string, error) {
	resp, err := c.client.Summarize(ctx, &reclaimv1.SummarizeRequest{Path: path})
	if err != nil {
		return "", rpcError("Summarize", err)
	}
	if !resp.Success {
		return "", errors.New(resp.Error)
	}
	return resp.Summary, nil
}

// Status returns the current status of the daemon.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	resp, err := c.client.Status(ctx, &reclaimv1.StatusRequest{})
	if err != nil {
		return nil, rpcError("Status", err)
	}
	return &DaemonStatus{
		PID:          resp.PID,
		Uptime:       time.Duration(resp.UptimeSeconds) * time.Second,
		WatchedRoots: resp.WatchedRoots,
		CachedRoots:  resp.CachedRoots,
		Subscribers:  resp.Subscribers,
	}, nil
}

// Shutdown requests the daemon to shut down gracefully.
func (c *Client) Shutdown(ctx context.Context) error {
	if _, err := c.client.Shutdown(ctx, &reclaimv1.ShutdownRequest{}); err != nil {
		return rpcError("Shutdown", err)
	}
	return nil
}

// Watch subscribes to filesystem changes under root.
// Returns a channel that receives events until the context is cancelled
// or the daemon ends the stream.
func (c *Client) Watch(ctx context.Context, root string) (<-chan ChangeEvent, error) {
	stream, err := c.client.Watch(ctx, &reclaimv1.WatchRequest{Root: root})
	if err != nil {
		return nil, rpcError("Watch", err)
	}

	events := make(chan ChangeEvent, 100)
	go func() {
		defer close(events)
		for {
			event, err := stream.Recv()
			if err != nil {
				return // Stream closed or error
			}
			select {
			case events <- ChangeEvent{Type: event.Type, Path: event.Path}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

// remoteError is a precondition failure the daemon reported in a result
// body. It matches the engine sentinel of its kind.
type remoteError struct {
	kind types.ErrorKind
	msg  string
}

func (e *remoteError) Error() string { return e.msg }

func (e *remoteError) Is(target error) bool {
	return types.NewOpError(e.kind, "", nil).Is(target)
}

func resultError(res engine.Result) error {
	if res.Success || res.Kind == "" {
		return nil
	}
	return &remoteError{kind: types.ParseErrorKind(res.Kind), msg: res.Message}
}

// EnsureDaemon ensures the daemon is running, starting it if necessary.
// Idempotent: returns nil if daemon is already running.
func EnsureDaemon(paths DaemonPaths) error {
	return StartDaemon(paths)
}

// StartDaemon starts the reclaimd daemon in the background.
// Idempotent: returns nil if daemon is already running.
func StartDaemon(paths DaemonPaths) error {
	paths = paths.withDefaults()

	if IsDaemonRunning(paths.PID) {
		return nil
	}

	binary, err := resolveBinary(paths.Binary)
	if err != nil {
		return fmt.Errorf("find %s: %w", BinaryName, err)
	}

	statusPath := StatusPath(paths.Socket)
	_ = os.Remove(statusPath)

	// exec.Command rather than CommandContext: the daemon must outlive the caller
	cmd := exec.Command(binary, paths.Args...) //nolint:gosec // binary path is validated
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	if cmd.Process != nil {
		_ = cmd.Process.Release()
	}

	// Poll for the status file; the socket alone may still be a stale one.
	for range 50 {
		time.Sleep(100 * time.Millisecond)

		if status, err := readStatusFile(statusPath); err == nil {
			switch status.Status {
			case "ready":
				return nil
			case "error":
				return fmt.Errorf("daemon failed to start: %s", status.Error)
			}
		}
	}

	return errors.New("daemon did not become ready within timeout")
}

// StopDaemon stops the daemon gracefully via RPC.
// Idempotent: returns nil if daemon is not running.
func StopDaemon(paths DaemonPaths) error {
	paths = paths.withDefaults()

	if !IsDaemonRunning(paths.PID) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := ConnectWithContext(ctx, paths.Socket)
	if err != nil {
		return fmt.Errorf("connect to daemon: %w", err)
	}
	defer client.Close()

	if err := client.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown daemon: %w", err)
	}

	for range 20 {
		time.Sleep(250 * time.Millisecond)
		if !IsDaemonRunning(paths.PID) {
			return nil
		}
	}

	return errors.New("daemon did not stop within timeout")
}

// RestartDaemon stops and starts the daemon.
func RestartDaemon(paths DaemonPaths) error {
	if err := StopDaemon(paths); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	if err := StartDaemon(paths); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	return nil
}

// resolveBinary finds the reclaimd binary path.
// Priority: configured path > same directory as executable > GOBIN/GOPATH > PATH.
func resolveBinary(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("configured binary not found: %s", configured)
		}
		return configured, nil
	}

	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), BinaryName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	for _, dir := range goBinDirs() {
		candidate := filepath.Join(dir, BinaryName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	if path, err := exec.LookPath(BinaryName); err == nil {
		return path, nil
	}

	return "", errors.New(BinaryName + " not found")
}

// goBinDirs lists where go install puts binaries, most specific first.
func goBinDirs() []string {
	var dirs []string
	if gobin := os.Getenv("GOBIN"); gobin != "" {
		dirs = append(dirs, gobin)
	}
	if gopath := os.Getenv("GOPATH"); gopath != "" {
		for _, p := range filepath.SplitList(gopath) {
			dirs = append(dirs, filepath.Join(p, "bin"))
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "go", "bin"))
	}
	return dirs
}

// IsDaemonRunning checks if the daemon is running based on the PID file.
func IsDaemonRunning(pidPath string) bool {
	pid, err := readPIDFile(pidPath)
	if err != nil || pid <= 0 {
		return false
	}
	err = unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// readPIDFile reads a PID from a file.
func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// statusFile mirrors the daemon startup status file.
type statusFile struct {
	Status string `json:"status"`
	PID    int    `json:"pid,omitempty"`
	Error  string `json:"error,omitempty"`
}

// readStatusFile reads and parses the daemon status file.
func readStatusFile(path string) (*statusFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var status statusFile
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
