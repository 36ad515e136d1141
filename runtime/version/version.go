// Package version reports the client build. The variables below are set with
//
//	go build -ldflags "-X github.com/candorlabs/liveinterview/runtime/version.version=1.2.0"
package version

import (
	"runtime/debug"
	"strings"
)

const devVersion = "dev"

var (
	version   = devVersion
	gitCommit = ""
	buildDate = ""
)

// Get returns the build version, falling back to the module version.
func Get() string {
	if version != devVersion {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return devVersion
}

// Commit returns the short VCS revision, or "".
func Commit() string {
	if gitCommit != "" {
		return gitCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var rev string
	dirty := false
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value[:min(7, len(s.Value))]
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev != "" && dirty {
		rev += "-dirty"
	}
	return rev
}

// Info is the multi-line text printed by --version.
func Info(program string) string {
	var b strings.Builder
	b.WriteString(program + " version " + Get())
	if c := Commit(); c != "" {
		b.WriteString("\ncommit: " + c)
	}
	if buildDate != "" {
		b.WriteString("\nbuilt: " + buildDate)
	}
	return b.String()
}

// LogAttrs returns key/value pairs for a startup log line.
func LogAttrs() []any {
	attrs := []any{"version", Get()}
	if c := Commit(); c != "" {
		attrs = append(attrs, "commit", c)
	}
	return attrs
}
