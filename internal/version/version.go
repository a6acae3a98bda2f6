// Where: pipegen/internal/version/version.go
// What: Version information retrieval.
// Why: Provide build-time version information (release tag or Git commit) to the CLI.
package version

import (
	"fmt"
	"runtime/debug"
)

// Version is set with -ldflags "-X .../internal/version.Version=v1.2.3" for releases.
var Version = ""

var readBuildInfo = debug.ReadBuildInfo

// GetVersion returns the release version when set at link time. Otherwise
// it returns the VCS revision, optionally appended with "(dirty)" if the
// tree was modified, or "dev" when no build info is available.
func GetVersion() string {
	if Version != "" {
		return Version
	}
	info, ok := readBuildInfo()
	if !ok {
		return "dev"
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	var revision string
	var modified bool

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
			// Shorten revision to 7 chars if possible
			if len(revision) > 7 {
				revision = revision[:7]
			}
		case "vcs.modified":
			if setting.Value == "true" {
				modified = true
			}
		}
	}

	if revision == "" {
		return "dev"
	}

	if modified {
		return fmt.Sprintf("%s (dirty)", revision)
	}
	return revision
}
