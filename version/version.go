package version

// set at build time via -ldflags "-X github.com/stewardhq/steward/version.version=..."
var version = "development"

// Version returns the build version stamp.
func Version() string {
	return version
}
