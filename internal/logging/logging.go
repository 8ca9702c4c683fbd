// Package logging wires go-logger into the migration packages.
package logging

import (
	"fmt"
	"os"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	"golang.org/x/term"
)

// Logger is the leveled, key/value logger used across the module.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config selects level and output format.
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console | json | "" (auto)
}

// Provider hands out named loggers sharing one root.
type Provider struct {
	root *glog.BaseLogger
}

// New builds a Provider. Logs go to stdout; an empty format picks console
// output when stdout is a terminal and JSON otherwise.
func New(cfg Config) (*Provider, error) {
	options := []glog.Option{}

	level, err := normalizeLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if level != "" {
		options = append(options, glog.WithLevel(level))
	}

	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	if format == "" {
		format = "json"
		if term.IsTerminal(int(os.Stdout.Fd())) {
			format = "console"
		}
	}
	switch format {
	case "json":
		options = append(options, glog.WithLoggerTypeJSON())
	case "console":
		options = append(options, glog.WithLoggerTypeConsole())
	default:
		return nil, fmt.Errorf("logging: unsupported format %q", cfg.Format)
	}

	return &Provider{root: glog.NewLogger(options...)}, nil
}

// Get returns a child logger scoped to name.
func (p *Provider) Get(name string) Logger {
	if p == nil || p.root == nil {
		return NoOp()
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return &adapter{inner: p.root}
	}
	return &adapter{inner: p.root.GetLogger(name)}
}

type adapter struct {
	inner glog.Logger
}

func (l *adapter) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }
func (l *adapter) Info(msg string, args ...any)  { l.inner.Info(msg, args...) }
func (l *adapter) Warn(msg string, args ...any)  { l.inner.Warn(msg, args...) }
func (l *adapter) Error(msg string, args ...any) { l.inner.Error(msg, args...) }

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NoOp returns a Logger that discards everything.
func NoOp() Logger { return noopLogger{} }

func normalizeLevel(level string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "":
		return "", nil
	case "trace":
		return glog.Trace, nil
	case "debug":
		return glog.Debug, nil
	case "info":
		return glog.Info, nil
	case "warn", "warning":
		return glog.Warn, nil
	case "error":
		return glog.Error, nil
	default:
		return "", fmt.Errorf("logging: unknown level %q", level)
	}
}
