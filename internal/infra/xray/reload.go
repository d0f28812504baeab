package xray

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	app_errors "github.com/server24/provisiond/internal/errors"
)

const defaultReloadTimeout = 10 * time.Second

// Reloader signals the proxy daemon to reread its config document.
type Reloader interface {
	Reload(ctx context.Context) error
}

// CommandReloader reloads the daemon by running a command, typically
// `systemctl reload xray`.
type CommandReloader struct {
	command []string
	timeout time.Duration
	logger  *slog.Logger
}

func NewCommandReloader(command []string, timeout time.Duration, logger *slog.Logger) (*CommandReloader, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("reload command cannot be empty")
	}
	if timeout <= 0 {
		timeout = defaultReloadTimeout
	}
	return &CommandReloader{command: command, timeout: timeout, logger: logger}, nil
}

func (r *CommandReloader) Reload(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.command[0], r.command[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %v: %s", app_errors.ErrReloadFailed, err, bytes.TrimSpace(out))
	}

	r.logger.Debug("proxy daemon reloaded", "command", r.command[0])
	return nil
}
