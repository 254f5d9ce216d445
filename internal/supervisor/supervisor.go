// Package supervisor detects whether the Presenter process is running,
// optionally launches it, and polls for readiness. It is pure supervisory
// code: no business logic, no state beyond what the OS already tracks.
package supervisor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/churchstage/presenter-proxy/internal/presenter"
)

// ProcessNames are the executable names considered a running Presenter,
// matched case-insensitively against each process's name.
var ProcessNames = []string{"ProPresenter", "ProPresenter.exe"}

// LaunchPath is the executable to run when LaunchAndWait needs to start the
// Presenter itself. Empty means "do not attempt to launch" — callers get
// launched=false and must start it themselves.
var LaunchPath = ""

// IsRunning reports whether any process on the local machine matches
// ProcessNames. If the processes cannot be enumerated it returns false
// together with the error.
func IsRunning(ctx context.Context) (bool, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return false, fmt.Errorf("listing processes: %w", err)
	}
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		for _, want := range ProcessNames {
			if strings.EqualFold(name, want) {
				return true, nil
			}
		}
	}
	return false, nil
}

// Result is what LaunchAndWait reports back to the caller.
type Result struct {
	Launched bool
	Ready    bool
	Error    string
}

// LaunchAndWait checks IsRunning; if not running and LaunchPath is set, it
// starts the process, then polls client.Version at host:port until it
// responds or timeout elapses.
func LaunchAndWait(ctx context.Context, client *presenter.Client, timeout time.Duration) Result {
	running, err := IsRunning(ctx)
	if err != nil {
		return Result{Error: err.Error()}
	}

	launched := false
	if !running {
		if LaunchPath == "" {
			return Result{Launched: false, Ready: false}
		}
		cmd := exec.Command(LaunchPath)
		if err := cmd.Start(); err != nil {
			return Result{Launched: false, Error: fmt.Sprintf("launching presenter: %v", err)}
		}
		launched = true
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		_, err := client.Version(checkCtx)
		cancel()
		if err == nil {
			return Result{Launched: launched, Ready: true}
		}
		if time.Now().After(deadline) {
			return Result{Launched: launched, Ready: false, Error: fmt.Sprintf("presenter did not become ready within %s", timeout)}
		}
		select {
		case <-ctx.Done():
			return Result{Launched: launched, Ready: false, Error: ctx.Err().Error()}
		case <-ticker.C:
		}
	}
}
