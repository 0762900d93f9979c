package meta

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Info describes the build of a countdown binary. Everything but the Go
// version and platform is filled in by the linker, e.g.
//
//   go build -ldflags "-X github.com/luma/countdown/internal/meta.Version=1.0.0"
//
type Info struct {
	Version   string
	Build     string
	Branch    string
	BuildTime string
	Platform  string
	GoVersion string
}

var (
	// Version as an arbitrary string
	Version = "dev"

	// Build is the Git sha from when we are building
	Build string

	// Branch is the Git branch that we are building from
	Branch string

	// BuildTimeUTC is the build time in UTC (year/month/day hour:min:sec)
	BuildTimeUTC string

	platform = fmt.Sprintf("%s %s", runtime.GOOS, runtime.GOARCH)
)

// GetInfo returns an Info struct populated with the build information.
func GetInfo() Info {
	return Info{
		GoVersion: runtime.Version(),
		Version:   Version,
		Build:     Build,
		Branch:    Branch,
		BuildTime: BuildTimeUTC,
		Platform:  platform,
	}
}

func (i Info) String() string {
	if i.Build == "" {
		return fmt.Sprintf("countdown %s (%s, %s)", i.Version, i.Platform, i.GoVersion)
	}

	return fmt.Sprintf("countdown %s-%s (%s, %s)", i.Version, i.Build, i.Platform, i.GoVersion)
}

// MarshalLogObject lets Info be logged with zap.Object.
func (i Info) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("version", i.Version)
	enc.AddString("build", i.Build)
	enc.AddString("branch", i.Branch)
	enc.AddString("buildTime", i.BuildTime)
	enc.AddString("platform", i.Platform)
	enc.AddString("goVersion", i.GoVersion)
	return nil
}

func (i Info) Field() zap.Field {
	return zap.Object("build", i)
}
