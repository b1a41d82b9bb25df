package buildinfo

import (
	"runtime/debug"
)

const (
	devVersion     = "dev"
	shortRevLength = 12
)

// ControllerVersion returns the module version of the running binary, or the
// short VCS revision (suffixed with -dirty for modified trees) when built from
// a checkout.
func ControllerVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return devVersion
	}
	return versionFrom(info)
}

func versionFrom(info *debug.BuildInfo) string {
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	var revision string
	var modified bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if revision == "" {
		return devVersion
	}
	if len(revision) > shortRevLength {
		revision = revision[:shortRevLength]
	}
	if modified {
		revision += "-dirty"
	}
	return revision
}
