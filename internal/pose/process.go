package pose

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// DefaultIdleTimeout is how long the classifier process may sit unused before
// it is shut down. It is restarted lazily on the next request.
const DefaultIdleTimeout = 30 * time.Second

// ErrNoCommand is returned when a ProcessClassifier has no command configured.
var ErrNoCommand = errors.New("classifier command not configured")

// ProcessConfig holds configuration for an external classifier process.
type ProcessConfig struct {
	// Command is the executable to run, e.g. "python3".
	Command string
	// Args are passed to Command, e.g. the path of the classifier script.
	Args []string
	// IdleTimeout stops the process after this much inactivity (default: 30s).
	IdleTimeout time.Duration
}

// ProcessClassifier implements Classifier using a long-lived subprocess that
// reads one JSON request per line on stdin and answers one JSON line on stdout.
//
// Request:  {"landmarks": [x0, y0, z0, ...]}
// Response: {"label": "escoliosis lumbar"} or {"error": "..."}
type ProcessClassifier struct {
	config    ProcessConfig
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	lastUsed  time.Time
	idleTimer *time.Timer
	// idleGen identifies the current idle timer; a callback from an older
	// timer that fired while mu was held sees a newer value and does nothing.
	idleGen uint64
}

// NewProcessClassifier creates a new ProcessClassifier.
// The process is started lazily on the first classification.
func NewProcessClassifier(config ProcessConfig) (*ProcessClassifier, error) {
	if config.Command == "" {
		return nil, ErrNoCommand
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultIdleTimeout
	}
	return &ProcessClassifier{config: config}, nil
}

type classifyRequest struct {
	Landmarks []float64 `json:"landmarks"`
}

type classifyResponse struct {
	Label string `json:"label"`
	Error string `json:"error,omitempty"`
}

// Classify sends the landmarks to the subprocess and returns its label.
func (c *ProcessClassifier) Classify(ctx context.Context, lm Landmarks) (string, error) {
	if len(lm) == 0 {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureStarted(); err != nil {
		return "", err
	}

	data, err := json.Marshal(classifyRequest{Landmarks: lm.Flat()})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	data = append(data, '\n')

	if _, err := c.stdin.Write(data); err != nil {
		c.shutdown()
		return "", fmt.Errorf("write request: %w", err)
	}

	line, err := c.readLine(ctx)
	if err != nil {
		c.kill()
		return "", err
	}

	var response classifyResponse
	if err := json.Unmarshal([]byte(line), &response); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return "", fmt.Errorf("classifier: %s", response.Error)
	}

	c.lastUsed = time.Now()
	c.resetIdleTimer()

	return response.Label, nil
}

// Close shuts down the subprocess.
func (c *ProcessClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shutdown()
}

// Running reports whether the subprocess is currently started.
func (c *ProcessClassifier) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

func (c *ProcessClassifier) ensureStarted() error {
	if c.started {
		return nil
	}

	c.cmd = exec.Command(c.config.Command, c.config.Args...)

	stdin, err := c.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := c.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Capture stderr for debugging
	c.cmd.Stderr = os.Stderr

	if err := c.cmd.Start(); err != nil {
		return fmt.Errorf("start classifier: %w", err)
	}

	c.stdin = stdin
	c.stdout = bufio.NewReader(stdout)
	c.started = true
	c.lastUsed = time.Now()

	return nil
}

type readResult struct {
	line string
	err  error
}

// readLine reads one response line, giving up when ctx is done. The reader
// goroutine exits once the process is killed and stdout closes.
func (c *ProcessClassifier) readLine(ctx context.Context) (string, error) {
	stdout := c.stdout
	ch := make(chan readResult, 1)
	go func() {
		line, err := stdout.ReadString('\n')
		ch <- readResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("read response: %w", ctx.Err())
	case res := <-ch:
		if res.err != nil {
			return "", fmt.Errorf("read response: %w", res.err)
		}
		return res.line, nil
	}
}

// kill stops a process that may be unresponsive and releases it.
func (c *ProcessClassifier) kill() {
	if c.started && c.cmd != nil && c.cmd.Process != nil {
		c.cmd.Process.Kill()
	}
	c.shutdown()
}

func (c *ProcessClassifier) shutdown() error {
	if !c.started {
		return nil
	}

	c.idleGen++
	if c.idleTimer != nil {
		c.idleTimer.Stop()
		c.idleTimer = nil
	}

	if c.stdin != nil {
		c.stdin.Close()
	}

	err := c.cmd.Wait()
	c.started = false
	c.cmd = nil
	c.stdin = nil
	c.stdout = nil

	return err
}

func (c *ProcessClassifier) resetIdleTimer() {
	if c.idleTimer != nil {
		c.idleTimer.Stop()
	}
	c.idleGen++
	gen := c.idleGen
	c.idleTimer = time.AfterFunc(c.config.IdleTimeout, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.idleGen != gen {
			return
		}
		c.shutdown()
	})
}
