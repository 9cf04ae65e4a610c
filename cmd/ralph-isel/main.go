package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/raymyers/ralph-isel/pkg/grammar"
	"github.com/raymyers/ralph-isel/pkg/tablegen"
	"github.com/raymyers/ralph-isel/pkg/target"
)

var version = "0.1.0"

var (
	output      string
	pkgName     string
	profilePath string
	noFormat    bool
	warnShadow  bool
	verbose     bool
)

// Debug flags for dumping intermediate representations
var (
	dParse    bool
	dPatterns bool
)

// targetFlag is a pflag.Value accepting only registered targets
type targetFlag struct {
	name string
}

var _ pflag.Value = (*targetFlag)(nil)

func (f *targetFlag) String() string { return f.name }
func (f *targetFlag) Type() string   { return "target" }

func (f *targetFlag) Set(s string) error {
	if _, err := target.Lookup(s); err != nil {
		return err
	}
	f.name = s
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// debugFlagNames lists the debug flags that also accept single-dash style
var debugFlagNames = []string{"dparse", "dpatterns"}

// normalizeFlags converts single-dash debug flags like -dparse to --dparse
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		result[i] = arg
		for _, flagName := range debugFlagNames {
			if arg == "-"+flagName {
				result[i] = "--" + flagName
				break
			}
		}
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	tgt := &targetFlag{name: "x86"}

	rootCmd := &cobra.Command{
		Use:   "ralph-isel [file]",
		Short: "ralph-isel compiles instruction selection patterns to Go",
		Long: `ralph-isel reads a pattern file describing how operation nodes
are lowered to machine instructions and generates the Go code
that performs the lowering for a backend.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			filename := args[0]

			text, err := os.ReadFile(filename)
			if err != nil {
				fmt.Fprintf(errOut, "ralph-isel: error reading %s: %v\n", filename, err)
				return err
			}

			ctx := context.Background()
			if verbose {
				ctx = tlog.ContextWithSpan(ctx, tlog.Root())
			}

			if dParse {
				return doParse(filename, string(text), out, errOut)
			}

			if dPatterns {
				return doPatterns(ctx, filename, string(text), out, errOut)
			}

			return doGenerate(ctx, filename, text, tgt.name, out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().StringVarP(&output, "output", "o", "", "Write generated code to file instead of stdout")
	rootCmd.Flags().Var(tgt, "target", fmt.Sprintf("Target machine (%s)", strings.Join(target.Names(), ", ")))
	rootCmd.Flags().StringVar(&pkgName, "package", "", "Package name of the generated code")
	rootCmd.Flags().StringVar(&profilePath, "profile", "", "YAML profile naming the backend API")
	rootCmd.Flags().BoolVar(&noFormat, "no-format", false, "Skip formatting of the generated code")
	rootCmd.Flags().BoolVar(&warnShadow, "warn-shadow", false, "Warn about patterns hidden by an earlier pattern")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline stages to stderr")

	rootCmd.Flags().BoolVarP(&dParse, "dparse", "", false, "Dump the parse tree")
	rootCmd.Flags().BoolVarP(&dPatterns, "dpatterns", "", false, "Dump the pattern model")

	return rootCmd
}

func loadProfile(t target.Target) (*target.Profile, error) {
	if profilePath == "" {
		return nil, nil
	}

	f, err := os.Open(profilePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := target.LoadProfile(f, t.Profile())
	if err != nil {
		return nil, errors.Wrap(err, "%s", profilePath)
	}

	return &p, nil
}

func doGenerate(ctx context.Context, filename string, text []byte, targetName string, out, errOut io.Writer) error {
	t, err := target.Lookup(targetName)
	if err != nil {
		fmt.Fprintf(errOut, "ralph-isel: %v\n", err)
		return err
	}

	prof, err := loadProfile(t)
	if err != nil {
		fmt.Fprintf(errOut, "ralph-isel: error loading profile: %v\n", err)
		return err
	}

	res, err := tablegen.Generate(ctx, filename, text, tablegen.Options{
		Target:     t,
		Profile:    prof,
		ProfileSrc: profilePath,
		Package:    pkgName,
		NoFormat:   noFormat,
		WarnShadow: warnShadow,
	})
	if err != nil {
		fmt.Fprintf(errOut, "ralph-isel: %v\n", err)
		return err
	}

	for _, s := range res.Shadowed {
		fmt.Fprintf(errOut, "ralph-isel: warning: %s:%d: pattern %v is shadowed by %v at line %d\n",
			filename, s.Later.Line, s.Later.Variant, s.Earlier.Variant, s.Earlier.Line)
	}

	if output == "" {
		_, err = out.Write(res.Source)
		return err
	}

	if err := os.WriteFile(output, res.Source, 0o644); err != nil {
		fmt.Fprintf(errOut, "ralph-isel: error writing %s: %v\n", output, err)
		return err
	}

	return nil
}

// doParse prints the generic parse tree, one pattern per line
func doParse(filename, text string, out, errOut io.Writer) error {
	root, err := grammar.Parse(text)
	if err != nil {
		fmt.Fprintf(errOut, "%s: %v\n", filename, err)
		return err
	}

	for _, n := range root.Children {
		fmt.Fprintln(out, n)
	}

	return nil
}

// doPatterns prints the variant of every pattern in source order
func doPatterns(ctx context.Context, filename, text string, out, errOut io.Writer) error {
	f, err := tablegen.Parse(ctx, text)
	if err != nil {
		fmt.Fprintf(errOut, "%s: %v\n", filename, err)
		return err
	}

	for _, p := range f.Patterns {
		fmt.Fprintf(out, "%d: %v\n", p.Line, p.Variant)
	}

	return nil
}
