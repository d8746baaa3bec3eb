// Package migrate applies the SQL order store schema and drives the
// "migrate up|down|status" command.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Andi3172/fullstack-tic-project/pkg/observability/logger"
)

const (
	defaultSubcommand = "up"
	defaultSteps      = 1
	defaultTimeout    = 60 * time.Second
)

// PendingMigration is a migration not yet applied.
type PendingMigration struct {
	Version int64
	Name    string
}

// Status reports applied versions and pending migrations.
type Status struct {
	AppliedVersions []int64
	Pending         []PendingMigration
}

// Operations are the hooks Run dispatches to. SQLManager.Operations
// provides them.
type Operations struct {
	Up     func(ctx context.Context) (int, error)
	Down   func(ctx context.Context, steps int) (int, error)
	Status func(ctx context.Context) (*Status, error)
}

// Options configures Run.
type Options struct {
	ServiceName string
	// Path labels log entries with where the migrations came from.
	Path    string
	Timeout time.Duration
	Logger  logger.Logger
}

// Run parses args as [up|down|status] [steps] and executes the command.
func Run(ctx context.Context, args []string, opts Options, ops Operations) error {
	subcommand, steps, err := ParseArgs(args)
	if err != nil {
		return err
	}
	return RunParsed(ctx, subcommand, steps, opts, ops)
}

// RunParsed executes a parsed command under opts.Timeout.
func RunParsed(ctx context.Context, subcommand string, steps int, opts Options, ops Operations) error {
	if err := validate(opts, ops); err != nil {
		return err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log := opts.Logger.With("path", opts.Path)
	switch subcommand {
	case "up":
		applied, err := ops.Up(ctx)
		if err != nil {
			return err
		}
		log.Info("migrations applied", "count", applied)
	case "down":
		if steps <= 0 {
			return errors.New("steps must be greater than zero")
		}
		reverted, err := ops.Down(ctx, steps)
		if err != nil {
			return err
		}
		log.Info("migrations reverted", "count", reverted, "steps", steps)
	case "status":
		status, err := ops.Status(ctx)
		if err != nil {
			return err
		}
		log.Info("migration status", "applied", len(status.AppliedVersions), "pending", len(status.Pending))
		for _, version := range status.AppliedVersions {
			log.Info("migration applied", "version", version)
		}
		for _, p := range status.Pending {
			log.Info("migration pending", "version", p.Version, "name", p.Name)
		}
	default:
		return fmt.Errorf("usage: %s migrate [up|down|status] [steps]", opts.ServiceName)
	}
	return nil
}

// ParseArgs parses [up|down|status] [steps], defaulting to "up" and one step.
func ParseArgs(args []string) (string, int, error) {
	subcommand := defaultSubcommand
	if len(args) > 0 {
		subcommand = args[0]
	}
	steps := defaultSteps
	if len(args) > 1 {
		parsed, err := strconv.Atoi(args[1])
		if err != nil {
			return "", 0, fmt.Errorf("invalid down steps %q", args[1])
		}
		steps = parsed
	}
	return subcommand, steps, nil
}

func validate(opts Options, ops Operations) error {
	switch {
	case opts.Logger == nil:
		return errors.New("migration logger is required")
	case opts.ServiceName == "":
		return errors.New("migration service name is required")
	case ops.Up == nil || ops.Down == nil || ops.Status == nil:
		return errors.New("migration operations are incomplete")
	}
	return nil
}
