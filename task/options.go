package task

import (
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/flanksource/progress/errors"
	"github.com/flanksource/progress/sink"
)

// Options configures a Manager.
type Options struct {
	// NoColor disables styled report output.
	NoColor bool `yaml:"noColor"`
	// NoProgress disables the periodic renderer even on a terminal.
	NoProgress bool `yaml:"noProgress"`
	// RenderInterval is the redraw period for the background renderer.
	RenderInterval time.Duration `yaml:"renderInterval"`
	// MaxRetries is the default retry budget for spawned tasks.
	MaxRetries int `yaml:"maxRetries"`
	// RetryDelay is the base backoff delay between retry attempts.
	RetryDelay time.Duration `yaml:"retryDelay"`
	// WindowWidth wraps window-mode lines at this rune width. 0 means to
	// use the detected terminal width.
	WindowWidth int `yaml:"windowWidth"`
	// Output overrides where frames and passthrough lines are written.
	// Defaults to stdout.
	Output sink.Writer `yaml:"-"`
}

// DefaultOptions returns the options used by NewManager.
func DefaultOptions() Options {
	return Options{
		RenderInterval: 250 * time.Millisecond,
		MaxRetries:     3,
		RetryDelay:     100 * time.Millisecond,
	}
}

// BindPFlags registers the manager flags on a pflag set, for cobra
// commands embedding the engine.
func BindPFlags(flags *pflag.FlagSet, opts *Options) {
	flags.BoolVar(&opts.NoColor, "no-color", opts.NoColor, "Disable colored output")
	flags.BoolVar(&opts.NoProgress, "no-progress", opts.NoProgress, "Disable the live progress display")
	flags.DurationVar(&opts.RenderInterval, "render-interval", opts.RenderInterval, "Progress redraw interval")
	flags.IntVar(&opts.MaxRetries, "max-retries", opts.MaxRetries, "Default retry budget for tasks")
	flags.DurationVar(&opts.RetryDelay, "retry-delay", opts.RetryDelay, "Base delay between task retries")
	flags.IntVar(&opts.WindowWidth, "window-width", opts.WindowWidth, "Wrap task output at this width (0 = terminal width)")
}

// UnmarshalYAML decodes options, accepting durations in time.ParseDuration
// form ("250ms", "1s"). Absent fields leave the existing values untouched.
func (o *Options) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		NoColor        *bool   `yaml:"noColor"`
		NoProgress     *bool   `yaml:"noProgress"`
		RenderInterval *string `yaml:"renderInterval"`
		MaxRetries     *int    `yaml:"maxRetries"`
		RetryDelay     *string `yaml:"retryDelay"`
		WindowWidth    *int    `yaml:"windowWidth"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.NoColor != nil {
		o.NoColor = *raw.NoColor
	}
	if raw.NoProgress != nil {
		o.NoProgress = *raw.NoProgress
	}
	if raw.MaxRetries != nil {
		o.MaxRetries = *raw.MaxRetries
	}
	if raw.WindowWidth != nil {
		o.WindowWidth = *raw.WindowWidth
	}
	if raw.RenderInterval != nil {
		d, err := time.ParseDuration(*raw.RenderInterval)
		if err != nil {
			return err
		}
		o.RenderInterval = d
	}
	if raw.RetryDelay != nil {
		d, err := time.ParseDuration(*raw.RetryDelay)
		if err != nil {
			return err
		}
		o.RetryDelay = d
	}
	return nil
}

// LoadOptions reads options from a YAML file, filling unset fields with
// defaults.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, errors.Wrap(err, errors.IO, "cannot read options file",
			errors.WithDetail("path", path))
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, errors.Wrap(err, errors.IO, "cannot parse options file",
			errors.WithDetail("path", path))
	}
	return opts, nil
}
