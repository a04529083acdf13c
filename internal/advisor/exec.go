package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a single advisory call.
const DefaultTimeout = 8 * time.Second

// ExecAdvisor runs an advisor plugin once per verdict, writing a Request to
// its stdin and reading a Response from its stdout.
type ExecAdvisor struct {
	plugin  *Plugin
	timeout time.Duration
}

// NewExecAdvisor creates an ExecAdvisor. A timeout <= 0 selects DefaultTimeout.
func NewExecAdvisor(plugin *Plugin, timeout time.Duration) *ExecAdvisor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ExecAdvisor{plugin: plugin, timeout: timeout}
}

// Advise runs the plugin. It returns ErrNotApplicable without starting the
// plugin when the manifest does not list the input's condition.
func (e *ExecAdvisor) Advise(ctx context.Context, in Input) (Verdict, error) {
	if !e.plugin.Supports(in.Condition) {
		return Verdict{}, ErrNotApplicable
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.plugin.Executable)
	cmd.Dir = e.plugin.Path
	cmd.WaitDelay = time.Second

	reqJSON, err := json.Marshal(Request{
		Action: "advise",
		Config: e.plugin.Manifest.Config,
		Input:  in,
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("marshal request: %w", err)
	}
	cmd.Stdin = bytes.NewReader(reqJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Verdict{}, fmt.Errorf("advisor %s timed out after %s", e.plugin.Manifest.Name, e.timeout)
	}
	if err != nil {
		if s := stderr.String(); s != "" {
			return Verdict{}, fmt.Errorf("advisor %s failed: %w, stderr: %s", e.plugin.Manifest.Name, err, s)
		}
		return Verdict{}, fmt.Errorf("advisor %s failed: %w", e.plugin.Manifest.Name, err)
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return Verdict{}, fmt.Errorf("parse advisor response: %w, stdout: %s", err, stdout.String())
	}
	if !resp.Success {
		return Verdict{}, fmt.Errorf("advisor %s: %s", e.plugin.Manifest.Name, resp.Error)
	}
	if resp.Verdict == nil {
		return Verdict{}, ErrNoVerdict
	}
	return *resp.Verdict, nil
}
