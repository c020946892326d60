package provision

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Verify checks that a completed provisioning run actually converged the
// environment: every configured binary resolves on PATH, and the pinned
// package reports exactly the pinned version.
func (p *provisioner) Verify(ctx context.Context) error {
	for _, binary := range p.config.VerifyBinaries {
		if _, err := exec.LookPath(binary); err != nil {
			return fmt.Errorf("binary '%s' not found on PATH after provisioning: %w", binary, err)
		}
	}

	if p.config.PinnedPackage != "" {
		name, version, ok := splitPinnedSpec(p.config.PinnedPackage)
		if !ok {
			return fmt.Errorf("pinned package spec '%s' is not of the form name==version", p.config.PinnedPackage)
		}

		out, err := p.runner.Output(ctx, p.config.PipBinary, "show", name)
		if err != nil {
			return fmt.Errorf("pinned package '%s' is not installed: %w", name, err)
		}

		installed := installedVersion(out)
		if installed != version {
			return fmt.Errorf("pinned package '%s' installed at version '%s', expected '%s'", name, installed, version)
		}
	}

	return nil
}

func splitPinnedSpec(spec string) (name string, version string, ok bool) {
	parts := strings.SplitN(spec, "==", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}

	return parts[0], parts[1], true
}

// installedVersion extracts the Version field from 'pip show' output.
func installedVersion(pipShowOutput string) string {
	for _, line := range strings.Split(pipShowOutput, "\n") {
		if after, found := strings.CutPrefix(line, "Version:"); found {
			return strings.TrimSpace(after)
		}
	}

	return ""
}
