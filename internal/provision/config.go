package provision

type Config struct {
	// Enabled controls whether provisioning runs at startup. Hosting
	// platforms that run the provisioner as a dedicated build hook can
	// disable it for the serving process.
	Enabled bool `yaml:"enabled" env:"PROVISION_ENABLED" env-default:"true"`

	// AptPackages are the system packages installed after the package
	// index refresh.
	AptPackages []string `yaml:"apt_packages" env:"PROVISION_APT_PACKAGES" env-default:"ffmpeg"`

	// VerifyBinaries are the executables that must resolve on PATH for a
	// provisioning run to count as converged. Listed separately from
	// AptPackages because a package name is not necessarily the name of
	// the binary it installs.
	VerifyBinaries []string `yaml:"verify_binaries" env:"PROVISION_VERIFY_BINARIES" env-default:"ffmpeg"`

	// RequirementsPath is the pip manifest installed from the working
	// directory.
	RequirementsPath string `yaml:"requirements_path" env:"PROVISION_REQUIREMENTS" env-default:"requirements.txt"`

	// PinnedPackage is installed after the manifest with transitive
	// dependency resolution disabled ('pip install --no-deps'). This works
	// around the pinned packages declared dependencies conflicting with
	// versions already satisfied by the manifest. Must be an exact
	// 'name==version' spec; empty skips the step.
	PinnedPackage string `yaml:"pinned_package" env:"PROVISION_PINNED_PACKAGE" env-default:"SpeechRecognition==3.10.0"`

	AptBinary string `yaml:"apt_binary" env:"PROVISION_APT_BIN" env-default:"apt-get"`
	PipBinary string `yaml:"pip_binary" env:"PROVISION_PIP_BIN" env-default:"pip"`
}
