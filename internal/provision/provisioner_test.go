package provision_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/provision"
)

var errExpected = errors.New("test: expected error")

type recordedCall struct {
	name string
	args []string
}

// fakeRunner records every invocation and fails any command whose label
// matches 'failOn', allowing tests to assert ordering and fail-fast
// behaviour without touching the host package managers.
type fakeRunner struct {
	calls   []recordedCall
	failOn  string
	outputs map[string]string
}

func (runner *fakeRunner) Run(_ context.Context, name string, args ...string) error {
	runner.calls = append(runner.calls, recordedCall{name, args})
	if runner.failOn != "" && fmt.Sprintf("%s %s", name, args[0]) == runner.failOn {
		return errExpected
	}

	return nil
}

func (runner *fakeRunner) Output(_ context.Context, name string, args ...string) (string, error) {
	runner.calls = append(runner.calls, recordedCall{name, args})
	if out, ok := runner.outputs[fmt.Sprintf("%s %s", name, args[0])]; ok {
		return out, nil
	}

	return "", errExpected
}

func testConfig() provision.Config {
	return provision.Config{
		Enabled:          true,
		AptPackages:      []string{"ffmpeg"},
		RequirementsPath: "requirements.txt",
		PinnedPackage:    "SpeechRecognition==3.10.0",
		AptBinary:        "apt-get",
		PipBinary:        "pip",
	}
}

func Test_Run_ExecutesStepsInOrder(t *testing.T) {
	runner := &fakeRunner{}
	prov := provision.NewWithRunner(testConfig(), runner)

	require.Nil(t, prov.Run(context.Background()))

	require.Len(t, runner.calls, 4)
	assert.Equal(t, recordedCall{"apt-get", []string{"update"}}, runner.calls[0])
	assert.Equal(t, recordedCall{"apt-get", []string{"install", "-y", "ffmpeg"}}, runner.calls[1])
	assert.Equal(t, recordedCall{"pip", []string{"install", "-r", "requirements.txt"}}, runner.calls[2])
	assert.Equal(t, recordedCall{"pip", []string{"install", "--no-deps", "SpeechRecognition==3.10.0"}}, runner.calls[3])
}

func Test_Run_AbortsOnFirstFailure(t *testing.T) {
	runner := &fakeRunner{failOn: "apt-get install"}
	prov := provision.NewWithRunner(testConfig(), runner)

	err := prov.Run(context.Background())
	require.NotNil(t, err)

	var stepErr *provision.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "apt-install", stepErr.Step.Label)
	assert.ErrorIs(t, err, errExpected)

	// The failing step must be the last invocation; pip is never reached.
	require.Len(t, runner.calls, 2)
	assert.Equal(t, "apt-get", runner.calls[1].name)
}

func Test_Run_FallbackExitCodeForUnstartableCommand(t *testing.T) {
	runner := &fakeRunner{failOn: "apt-get update"}
	prov := provision.NewWithRunner(testConfig(), runner)

	err := prov.Run(context.Background())

	var stepErr *provision.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 1, stepErr.ExitCode())
}

func Test_Run_IsIdempotent(t *testing.T) {
	runner := &fakeRunner{}
	prov := provision.NewWithRunner(testConfig(), runner)

	require.Nil(t, prov.Run(context.Background()))
	require.Nil(t, prov.Run(context.Background()))

	// Re-running performs the exact same sequence again; convergence is
	// delegated to apt/pip.
	require.Len(t, runner.calls, 8)
	assert.Equal(t, runner.calls[:4], runner.calls[4:])
}

func Test_Steps_OmitsConfiguredOutSteps(t *testing.T) {
	cfg := testConfig()
	cfg.AptPackages = nil
	cfg.PinnedPackage = ""
	prov := provision.NewWithRunner(cfg, &fakeRunner{})

	steps := prov.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, "apt-update", steps[0].Label)
	assert.Equal(t, "pip-requirements", steps[1].Label)
}

func Test_Verify_ChecksConfiguredBinariesNotPackageNames(t *testing.T) {
	cfg := testConfig()
	// The package manager installs under a different binary name than the
	// package itself; verification must follow the binary list.
	cfg.AptPackages = []string{"some-meta-package"}
	cfg.VerifyBinaries = []string{"definitely-not-on-path-xyzzy"}
	cfg.PinnedPackage = ""
	prov := provision.NewWithRunner(cfg, &fakeRunner{})

	err := prov.Verify(context.Background())
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "definitely-not-on-path-xyzzy")
}

func Test_Verify_AcceptsExactPinnedVersion(t *testing.T) {
	cfg := testConfig()
	cfg.VerifyBinaries = nil // PATH lookup exercised separately; host-dependent
	runner := &fakeRunner{outputs: map[string]string{
		"pip show": "Name: SpeechRecognition\nVersion: 3.10.0\nLocation: /usr/lib\n",
	}}
	prov := provision.NewWithRunner(cfg, runner)

	assert.Nil(t, prov.Verify(context.Background()))
}

func Test_Verify_RejectsVersionDrift(t *testing.T) {
	cfg := testConfig()
	cfg.VerifyBinaries = nil
	runner := &fakeRunner{outputs: map[string]string{
		"pip show": "Name: SpeechRecognition\nVersion: 3.9.0\n",
	}}
	prov := provision.NewWithRunner(cfg, runner)

	err := prov.Verify(context.Background())
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "3.9.0")
}

func Test_Verify_RejectsMalformedPinnedSpec(t *testing.T) {
	cfg := testConfig()
	cfg.VerifyBinaries = nil
	cfg.PinnedPackage = "SpeechRecognition"
	prov := provision.NewWithRunner(cfg, &fakeRunner{})

	assert.NotNil(t, prov.Verify(context.Background()))
}
