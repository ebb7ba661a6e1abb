// Package version reports build information for the server binary.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"
)

// Set via -ldflags at build time
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Info describes the running build
type Info struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Revision  string `json:"revision,omitempty"`
	Modified  bool   `json:"modified"`
}

// Get collects the ldflags values and the VCS settings stamped by the Go
// toolchain
func Get() Info {
	info := Info{
		Version:   Version,
		BuildTime: BuildTime,
	}

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = buildInfo.GoVersion
	for _, setting := range buildInfo.Settings {
		switch setting.Key {
		case "vcs.revision":
			info.Revision = setting.Value
		case "vcs.modified":
			info.Modified = setting.Value == "true"
		}
	}
	return info
}

// ShortRevision returns the first 8 characters of the commit hash
func (i Info) ShortRevision() string {
	if len(i.Revision) > 8 {
		return i.Revision[:8]
	}
	return i.Revision
}

func (i Info) String() string {
	parts := []string{"ledgerviz " + i.Version}
	if i.Revision != "" {
		rev := i.ShortRevision()
		if i.Modified {
			rev += "-dirty"
		}
		parts = append(parts, rev)
	}
	if i.BuildTime != "unknown" {
		parts = append(parts, "built "+i.BuildTime)
	}
	if i.GoVersion != "" {
		parts = append(parts, i.GoVersion)
	}
	return strings.Join(parts, ", ")
}

// Fields returns the build information as log fields
func (i Info) Fields() []zap.Field {
	return []zap.Field{
		zap.String("version", i.Version),
		zap.String("revision", i.ShortRevision()),
		zap.Bool("modified", i.Modified),
		zap.String("go", i.GoVersion),
	}
}

// Warning describes builds that cannot be traced to a commit, or "" when
// there is nothing to report
func (i Info) Warning() string {
	switch {
	case i.Modified:
		return "binary built from a modified source tree"
	case i.Revision == "" && i.Version == "dev":
		return fmt.Sprintf("no version control information in %s build", i.Version)
	}
	return ""
}
