package application

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/pokecompanion/namesync"
	"github.com/pokecompanion/namesync/pkg/dataset"
)

// Mock provides a mock implementation of Application for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default/zero value.
//
// Example Usage:
//
//	mock := &application.Mock{
//	    ClientFunc: func() (namesync.Client, error) {
//	        return client, nil
//	    },
//	    StdoutFunc: func() io.Writer { return &buf },
//	}
//	cmd := run.NewCommand(mock)
type Mock struct {
	ClientFunc       func() (namesync.Client, error)
	SchemasFunc      func() ([]*dataset.Schema, error)
	LoggerFunc       func() *zerolog.Logger
	OutputFormatFunc func() string
	StdoutFunc       func() io.Writer
	VersionFunc      func() string
	CommitFunc       func() string
	DateFunc         func() string
	BuiltByFunc      func() string
}

// Client returns a client using the mock function or nil.
func (m *Mock) Client() (namesync.Client, error) {
	if m.ClientFunc != nil {
		return m.ClientFunc()
	}
	return nil, nil
}

// Schemas returns schemas using the mock function or the built-in schemas.
func (m *Mock) Schemas() ([]*dataset.Schema, error) {
	if m.SchemasFunc != nil {
		return m.SchemasFunc()
	}
	return dataset.Builtin(), nil
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns output format using the mock function or "table".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "table"
}

// Stdout returns the writer using the mock function or os.Stdout.
func (m *Mock) Stdout() io.Writer {
	if m.StdoutFunc != nil {
		return m.StdoutFunc()
	}
	return os.Stdout
}

// Version returns version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns commit using the mock function or "unknown".
func (m *Mock) Commit() string {
	if m.CommitFunc != nil {
		return m.CommitFunc()
	}
	return "unknown"
}

// Date returns date using the mock function or "unknown".
func (m *Mock) Date() string {
	if m.DateFunc != nil {
		return m.DateFunc()
	}
	return "unknown"
}

// BuiltBy returns builtBy using the mock function or "test".
func (m *Mock) BuiltBy() string {
	if m.BuiltByFunc != nil {
		return m.BuiltByFunc()
	}
	return "test"
}

// Ensure Mock implements Application at compile time.
var _ Application = (*Mock)(nil)
