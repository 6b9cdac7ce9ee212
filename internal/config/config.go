// Package config holds the CLI-driven configuration accepted by the
// pipeline harness, per §6's External Interfaces.
package config

import (
	"flag"
	"time"

	"github.com/cockroachdb/errors"
)

// Config is the set of parameters the CLI exposes. It is immutable once
// Validate has succeeded.
type Config struct {
	ModelPath  string
	LabelsPath string

	InputWidth  int
	InputHeight int

	Threads int

	Confidence float64

	MaxDist float64
	MaxTime time.Duration

	DBPath        string
	MigrationsDir string

	Verbose bool
}

// Register binds every flag to fs, returning a Config whose fields are
// populated once fs.Parse has run. This mirrors the teacher's cmd/lidar
// idiom of package-level flag.* calls, just scoped to a FlagSet so tests
// can exercise it without touching the global flag.CommandLine.
func Register(fs *flag.FlagSet) *Config {
	c := &Config{}
	fs.StringVar(&c.ModelPath, "model", "", "path to the detector model file")
	fs.StringVar(&c.LabelsPath, "labels", "", "path to the label file")
	fs.IntVar(&c.InputWidth, "width", 640, "model input width in pixels")
	fs.IntVar(&c.InputHeight, "height", 640, "model input height in pixels")
	fs.IntVar(&c.Threads, "threads", 1, "inference thread count")
	fs.Float64Var(&c.Confidence, "confidence", 0.5, "minimum detection confidence [0,1]")
	fs.Float64Var(&c.MaxDist, "max-dist", 50, "max track/detection centre distance in pixels")
	fs.DurationVar(&c.MaxTime, "max-time", time.Second, "track staleness eviction window")
	fs.StringVar(&c.DBPath, "db", "trackpipe.db", "path to the track-event sqlite database")
	fs.StringVar(&c.MigrationsDir, "migrations", "internal/store/migrations", "path to the track-event schema migrations")
	fs.BoolVar(&c.Verbose, "v", false, "verbose logging")
	return c
}

// Validate checks the configuration for the category-1 failures described
// in §7: missing model or labels path, invalid geometry, and out-of-range
// numeric flags. It checks only that the paths are set, not that the files
// exist or can be read. It is wrapped
// with github.com/cockroachdb/errors so the one-shot startup failure
// carries a stack trace, per SPEC_FULL §10.
func (c *Config) Validate() error {
	if c.ModelPath == "" {
		return errors.New("config: -model is required")
	}
	if c.LabelsPath == "" {
		return errors.New("config: -labels is required")
	}
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return errors.Newf("config: invalid input geometry %dx%d", c.InputWidth, c.InputHeight)
	}
	if c.Threads <= 0 {
		return errors.Newf("config: invalid thread count %d", c.Threads)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return errors.Newf("config: confidence %v out of range [0,1]", c.Confidence)
	}
	if c.MaxDist <= 0 {
		return errors.Newf("config: invalid max-dist %v", c.MaxDist)
	}
	if c.MaxTime <= 0 {
		return errors.Newf("config: invalid max-time %v", c.MaxTime)
	}
	return nil
}
