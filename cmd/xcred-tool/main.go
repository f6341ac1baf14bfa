package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/effective-security/x/ctl"
	"github.com/effective-security/xcred/cmd/xcred-tool/cli"
	"github.com/effective-security/xcred/internal/version"
)

type app struct {
	cli.Cli

	Key cli.KeyCmd `cmd:"" help:"Key commands"`
	Csr cli.CsrCmd `cmd:"" help:"CSR commands"`
	Pfx cli.PfxCmd `cmd:"" help:"PKCS#12 commands"`
}

func main() {
	realMain(os.Args, os.Stdout, os.Stderr, os.Exit)
}

func realMain(args []string, out io.Writer, errout io.Writer, exit func(int)) {
	cl := app{
		Cli: cli.Cli{},
	}
	cl.Cli.WithErrWriter(errout).
		WithWriter(out)

	parser, err := kong.New(&cl,
		kong.Name("xcred-tool"),
		kong.Description("Key, CSR and PKCS#12 tools"),
		kong.Writers(out, errout),
		kong.Exit(exit),
		ctl.BoolPtrMapper,
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version.Current().String(),
		})
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args[1:])
	parser.FatalIfErrorf(err)

	if ctx != nil {
		if cl.Debug {
			// arguments are not printed, they may contain passphrases
			_, _ = fmt.Fprintf(ctx.Stdout, "#\n# %s %s\n#\n", args[0], ctx.Command())
		}
		err = ctx.Run(&cl.Cli)
		ctx.FatalIfErrorf(err)
	}
}
