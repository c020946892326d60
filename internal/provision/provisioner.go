package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/vladqvarvar-create/Crossaut-fire/pkg/logger"
)

var log = logger.Get("Provision")

type (
	// Runner abstracts the execution of external package managers so the
	// provisioner can be exercised in tests without touching the host.
	Runner interface {
		Run(ctx context.Context, name string, args ...string) error
		Output(ctx context.Context, name string, args ...string) (string, error)
	}

	// Step is a single package-manager invocation; steps are executed
	// strictly in order and the first failure aborts the run.
	Step struct {
		Label string
		Name  string
		Args  []string
	}

	// StepError wraps the failure of a single step, preserving the
	// exit code of the underlying command so callers can propagate it
	// as the process exit status.
	StepError struct {
		Step     Step
		err      error
		exitCode int
	}

	// provisioner converges the host environment to the state the bot
	// requires: ffmpeg present on PATH and the Python dependency set
	// installed. It carries no state between runs; idempotency comes
	// from the package managers themselves.
	provisioner struct {
		config Config
		runner Runner
	}
)

func (err *StepError) Error() string {
	return fmt.Sprintf("provisioning step '%s' failed (exit code %d): %s", err.Step.Label, err.exitCode, err.err.Error())
}

func (err *StepError) Unwrap() error { return err.err }

// ExitCode returns the exit status of the failed package-manager command,
// or 1 where the command could not be started at all.
func (err *StepError) ExitCode() int { return err.exitCode }

func New(config Config) *provisioner {
	return NewWithRunner(config, &execRunner{})
}

func NewWithRunner(config Config, runner Runner) *provisioner {
	return &provisioner{config: config, runner: runner}
}

// Steps returns the ordered package-manager invocations this provisioner
// will perform, derived from it's configuration.
func (p *provisioner) Steps() []Step {
	steps := []Step{
		{Label: "apt-update", Name: p.config.AptBinary, Args: []string{"update"}},
	}

	if len(p.config.AptPackages) > 0 {
		args := append([]string{"install", "-y"}, p.config.AptPackages...)
		steps = append(steps, Step{Label: "apt-install", Name: p.config.AptBinary, Args: args})
	}

	if p.config.RequirementsPath != "" {
		steps = append(steps, Step{
			Label: "pip-requirements",
			Name:  p.config.PipBinary,
			Args:  []string{"install", "-r", p.config.RequirementsPath},
		})
	}

	if p.config.PinnedPackage != "" {
		steps = append(steps, Step{
			Label: "pip-pinned-no-deps",
			Name:  p.config.PipBinary,
			Args:  []string{"install", "--no-deps", p.config.PinnedPackage},
		})
	}

	return steps
}

// Run executes every provisioning step in order, blocking on each until
// the invoked package manager completes. The first step to return a
// non-zero exit status aborts the run and it's exit code is surfaced via
// the returned StepError; no further steps are attempted.
func (p *provisioner) Run(ctx context.Context) error {
	for _, step := range p.Steps() {
		log.Emit(logger.NEW, "Running provisioning step '%s' (%s %v)...\n", step.Label, step.Name, step.Args)
		if err := p.runner.Run(ctx, step.Name, step.Args...); err != nil {
			return &StepError{Step: step, err: err, exitCode: commandExitCode(err)}
		}

		log.Emit(logger.SUCCESS, "Provisioning step '%s' complete\n", step.Label)
	}

	return nil
}

func commandExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}

	return 1
}

// execRunner is the production Runner, shelling out via os/exec with the
// package managers output passed straight through to the process streams.
type execRunner struct{}

func (runner *execRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}

func (runner *execRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return string(out), err
}
