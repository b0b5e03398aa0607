package cli

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/fabricstore/storefront"
	"github.com/fabricstore/storefront/pkg/config"
	"github.com/fabricstore/storefront/pkg/session"
)

var version = "dev"

// SetVersion sets the version string reported by --version.
func SetVersion(v string) {
	version = v
}

type flags struct {
	color    string
	envFiles []string
	apiURL   string
	currency string
	locale   string
	verbose  bool
}

// runtime is shared by every command of one invocation.
type runtime struct {
	stdout  io.Writer
	stderr  io.Writer
	appOpts []storefront.Option

	flags   flags
	printer *Printer
	money   *Money
	app     *storefront.App
}

// Option customizes Execute; used by tests and embedders.
type Option func(*runtime)

// WithAppOptions passes options through to storefront.New.
func WithAppOptions(opts ...storefront.Option) Option {
	return func(r *runtime) { r.appOpts = append(r.appOpts, opts...) }
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer, opts ...Option) int {
	rt := &runtime{stdout: stdout, stderr: stderr}
	for _, opt := range opts {
		opt(rt)
	}
	rt.printer = NewPrinter(stdout, stderr, false)

	root := rt.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if rt.app != nil {
		if cerr := rt.app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err == nil {
		return ExitSuccess
	}

	cliErr := describe(err)
	if isUsageError(err) {
		cliErr = &CLIError{Summary: err.Error(), Suggestion: "Run with --help for usage", ExitCode: ExitUsageError, Err: err}
	}
	rt.printer.FormatError(cliErr)
	return cliErr.ExitCode
}

func (rt *runtime) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront client",
		Long: `storefront signs in to the storefront backend, mirrors the cart of the
signed-in user and browses the catalog.

The session is persisted between invocations (see STOREFRONT_STORAGE).

Example usage:
  storefront login --email me@example.com --password secret
  storefront catalog list topsellers
  storefront cart add 64f1c0 --qty 2 --size M --color red
  storefront cart show
  storefront logout`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.open(cmd.Context())
		},
	}

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{msg: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&rt.flags.color, "color", "auto", "color output: auto, always, or never")
	pf.StringSliceVar(&rt.flags.envFiles, "env-file", nil, "extra env file to load (repeatable)")
	pf.StringVar(&rt.flags.apiURL, "api-url", "", "backend base URL (overrides STOREFRONT_API_URL)")
	pf.StringVar(&rt.flags.currency, "currency", "USD", "ISO 4217 currency for prices")
	pf.StringVar(&rt.flags.locale, "locale", "en", "locale for number formatting")
	pf.BoolVarP(&rt.flags.verbose, "verbose", "v", false, "debug logging to stderr")

	root.AddCommand(
		rt.whoamiCommand(),
		rt.loginCommand(),
		rt.registerCommand(),
		rt.logoutCommand(),
		rt.cartCommand(),
		rt.catalogCommand(),
	)
	return root
}

// open resolves output settings, builds the App and waits for the session
// to be restored.
func (rt *runtime) open(ctx context.Context) error {
	mode, err := ParseColorMode(rt.flags.color)
	if err != nil {
		return &CLIError{Summary: err.Error(), ExitCode: ExitUsageError, Err: err}
	}
	rt.printer = NewPrinter(rt.stdout, rt.stderr, ResolveColors(mode))

	rt.money, err = NewMoney(rt.flags.currency, rt.flags.locale)
	if err != nil {
		return &CLIError{Summary: err.Error(), ExitCode: ExitUsageError, Err: err}
	}

	var cfgOpts []config.Option
	if len(rt.flags.envFiles) > 0 {
		cfgOpts = append(cfgOpts, config.WithEnvFiles(rt.flags.envFiles...))
	}
	cfg, err := storefront.LoadConfig(cfgOpts...)
	if err != nil {
		return configError(err)
	}
	if rt.flags.apiURL != "" {
		cfg.APIURL = rt.flags.apiURL
	}
	if rt.flags.verbose {
		cfg.LogLevel = "debug"
	}

	app, err := storefront.New(ctx, cfg, rt.appOpts...)
	if err != nil {
		return configError(err)
	}
	rt.app = app

	_, err = app.Open(ctx)
	return err
}

func (rt *runtime) signedIn() bool {
	return rt.app.Session.State() == session.StateAuthenticated
}

// usageError marks argument problems cobra itself does not catch.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func isUsageError(err error) bool {
	var ue usageError
	return errors.As(err, &ue)
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{msg: err.Error()}
		}
		return nil
	}
}
