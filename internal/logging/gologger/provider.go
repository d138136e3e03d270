package gologger

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-tms/internal/logging"
	"github.com/goliatone/go-tms/pkg/interfaces"
)

// Config carries the go-logger options surfaced through the module config.
type Config struct {
	Level     string
	Format    string
	AddSource bool
	Focus     []string
}

// Provider adapts go-logger to the interfaces.LoggerProvider contract.
type Provider struct {
	root *glog.BaseLogger
}

var levelNames = map[string]string{
	"trace":   glog.Trace,
	"debug":   glog.Debug,
	"info":    glog.Info,
	"warn":    glog.Warn,
	"warning": glog.Warn,
	"error":   glog.Error,
	"fatal":   glog.Fatal,
}

// NewProvider builds a go-logger root from cfg. The format accepts json
// (default), console, and pretty.
func NewProvider(cfg Config) (*Provider, error) {
	options := []glog.Option{}
	if level, ok := levelNames[strings.ToLower(strings.TrimSpace(cfg.Level))]; ok {
		options = append(options, glog.WithLevel(level))
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "json":
		options = append(options, glog.WithLoggerTypeJSON())
	case "console":
		options = append(options, glog.WithLoggerTypeConsole())
	case "pretty":
		options = append(options, glog.WithLoggerTypePretty())
	default:
		return nil, fmt.Errorf("logging: unsupported go-logger format %q", cfg.Format)
	}
	if cfg.AddSource {
		options = append(options, glog.WithAddSource(true))
	}

	root := glog.NewLogger(options...)
	focus := make([]string, 0, len(cfg.Focus))
	for _, name := range cfg.Focus {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			focus = append(focus, trimmed)
		}
	}
	if len(focus) > 0 {
		root.Focus(focus...)
	}
	return &Provider{root: root}, nil
}

// GetLogger returns a child logger scoped to name, or the root for "".
func (p *Provider) GetLogger(name string) interfaces.Logger {
	if p == nil {
		return logging.NoOp()
	}
	if name = strings.TrimSpace(name); name == "" {
		return adapt(p.root)
	}
	return adapt(p.root.GetLogger(name))
}

func adapt(inner glog.Logger) interfaces.Logger {
	if inner == nil {
		return logging.NoOp()
	}
	return &goLogger{inner: inner}
}

// goLogger bridges a glog.Logger to interfaces.Logger and the optional
// FieldsLogger extension.
type goLogger struct {
	inner glog.Logger
}

func (l *goLogger) Trace(msg string, args ...any) { l.inner.Trace(msg, args...) }
func (l *goLogger) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }
func (l *goLogger) Info(msg string, args ...any)  { l.inner.Info(msg, args...) }
func (l *goLogger) Warn(msg string, args ...any)  { l.inner.Warn(msg, args...) }
func (l *goLogger) Error(msg string, args ...any) { l.inner.Error(msg, args...) }
func (l *goLogger) Fatal(msg string, args ...any) { l.inner.Fatal(msg, args...) }

func (l *goLogger) WithContext(ctx context.Context) interfaces.Logger {
	if ctx == nil {
		return l
	}
	return adapt(l.inner.WithContext(ctx))
}

func (l *goLogger) WithFields(fields map[string]any) interfaces.Logger {
	if len(fields) == 0 {
		return l
	}
	if fl, ok := l.inner.(glog.FieldsLogger); ok {
		copied := make(map[string]any, len(fields))
		maps.Copy(copied, fields)
		return adapt(fl.WithFields(copied))
	}

	// No native field support: flatten to sorted key/value args so output
	// stays deterministic.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	if with, ok := l.inner.(interface{ With(...any) *glog.BaseLogger }); ok {
		return adapt(with.With(args...))
	}
	return l
}
