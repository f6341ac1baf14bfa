package cli

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/ctl"
	"github.com/effective-security/xcred/credential"
	"github.com/effective-security/xlog"
	"github.com/ugorji/go/codec"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xcred", "cli")

// Cli provides CLI context to run commands
type Cli struct {
	Version  ctl.VersionFlag `name:"version" help:"Print version information and quit" hidden:""`
	Cfg      string          `help:"Location of the config file, JSON or YAML" type:"path"`
	Debug    bool            `short:"D" help:"Enable debug mode"`
	LogLevel string          `short:"l" help:"Set the logging level (debug|info|warn|error)" default:"error"`

	// Stdin is the source to read from, typically set to os.Stdin
	stdin io.Reader
	// Output is the destination for all output from the command, typically set to os.Stdout
	output io.Writer
	// ErrOutput is the destinaton for errors.
	// If not set, errors will be written to os.StdError
	errOutput io.Writer

	engine *credential.Engine
}

// Reader is the source to read from, typically set to os.Stdin
func (c *Cli) Reader() io.Reader {
	if c.stdin != nil {
		return c.stdin
	}
	return os.Stdin
}

// WithReader allows to specify a custom reader
func (c *Cli) WithReader(reader io.Reader) *Cli {
	c.stdin = reader
	return c
}

// Writer returns a writer for control output
func (c *Cli) Writer() io.Writer {
	if c.output != nil {
		return c.output
	}
	return os.Stdout
}

// WithWriter allows to specify a custom writer
func (c *Cli) WithWriter(out io.Writer) *Cli {
	c.output = out
	return c
}

// ErrWriter returns a writer for control output
func (c *Cli) ErrWriter() io.Writer {
	if c.errOutput != nil {
		return c.errOutput
	}
	return os.Stderr
}

// WithErrWriter allows to specify a custom error writer
func (c *Cli) WithErrWriter(out io.Writer) *Cli {
	c.errOutput = out
	return c
}

// AfterApply hook sets the log level
func (c *Cli) AfterApply(_ *kong.Kong, _ kong.Vars) error {
	if c.Debug {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		val := strings.TrimLeft(c.LogLevel, "=")
		l, err := xlog.ParseLevel(strings.ToUpper(val))
		if err != nil {
			return errors.WithStack(err)
		}
		xlog.SetGlobalLogLevel(l)
	}
	return nil
}

// Engine returns credential engine configured by --cfg,
// or the default one
func (c *Cli) Engine() (*credential.Engine, error) {
	if c.engine != nil {
		return c.engine, nil
	}
	if c.Cfg == "" {
		c.engine = credential.Default()
		return c.engine, nil
	}

	cfg, err := credential.LoadConfig(c.Cfg)
	if err != nil {
		return nil, err
	}
	c.engine, err = credential.New(cfg)
	if err != nil {
		return nil, err
	}
	logger.KV(xlog.DEBUG, "status", "loaded", "cfg", c.Cfg)
	return c.engine, nil
}

var (
	// jsonEncPPHandle is used to encode json with a human readable pretty printed out put, as well as
	// line breaks/indents, fields are serialized in a canonical order everytime
	jsonEncPPHandle codec.JsonHandle
)

func init() {
	jsonEncPPHandle.BasicHandle.EncodeOptions.Canonical = true
	jsonEncPPHandle.Indent = -1
}

// WriteJSON prints response to out
func (c *Cli) WriteJSON(value any) error {
	var json []byte
	err := codec.NewEncoderBytes(&json, &jsonEncPPHandle).Encode(value)
	if err != nil {
		return errors.WithMessage(err, "failed to encode")
	}

	out := c.Writer()
	_, _ = out.Write(json)
	_, _ = out.Write([]byte("\n"))
	return nil
}

// ReadFile reads from stdin if the file is "-"
func (c *Cli) ReadFile(filename string) ([]byte, error) {
	if filename == "" {
		return nil, errors.New("empty file name")
	}
	if filename == "-" {
		return io.ReadAll(c.Reader())
	}
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return b, nil
}

// Secret returns the value, or the content of the file
// if the value is prefixed with `file:`
func (c *Cli) Secret(value string) (string, error) {
	name, ok := strings.CutPrefix(value, "file:")
	if !ok {
		return value, nil
	}
	b, err := c.ReadFile(name)
	if err != nil {
		return "", errors.WithMessagef(err, "unable to load secret")
	}
	return string(bytes.TrimRight(b, "\r\n")), nil
}
