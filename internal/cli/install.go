// Package cli: install.go implements the "coolutils install" command.
//
// The install command copies files and directory trees into a target
// directory. A file is only copied when its installed copy is missing or
// older than the source, so repeated runs are cheap. Every decision is
// collected into a report printed at the end.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/coolutils/internal/installer"
	"github.com/mmr-tortoise/coolutils/internal/model"
)

// installFlags holds the flag values for the install command.
type installFlags struct {
	// all installs the entries of each source directory instead of the
	// directory itself.
	all bool

	// quiet suppresses per-file progress logging.
	quiet bool

	// exceptionOK records failures in the report without failing the command.
	exceptionOK bool

	// exclude lists gitignore-style patterns to skip while walking directories.
	exclude []string

	// gitignore also honors .gitignore files inside the source directories.
	gitignore bool
}

// NewInstallCommand creates the "install" cobra command.
func NewInstallCommand() *cobra.Command {
	flags := &installFlags{}

	cmd := &cobra.Command{
		Use:   "install <src>... <objdir>",
		Short: "Copy files and directories, skipping up-to-date ones",
		Long: `Install each <src> into <objdir>.

A file is copied when <objdir>/<name> does not exist or is older than the
source. A directory is mirrored recursively as <objdir>/<dirname>. With
--all, each <src> must be a directory and its entries are installed
directly into <objdir>.

<objdir> must already exist.

Examples:
  coolutils install bin/tool ~/.local/bin
  coolutils install --all dotfiles ~
  coolutils install --exclude '*.pyc' --exclude '__pycache__/' lib ~/lib`,

		Args: cobra.MinimumNArgs(2),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, flags, args[:len(args)-1], args[len(args)-1])
		},
	}

	cmd.Flags().BoolVar(&flags.all, "all", false,
		"Install the entries of each source directory instead of the directory itself")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "Do not log progress")
	cmd.Flags().BoolVar(&flags.exceptionOK, "exception-ok", false,
		"Report failures without failing the command")
	cmd.Flags().StringArrayVar(&flags.exclude, "exclude", nil,
		"Gitignore-style pattern to exclude (repeatable)")
	cmd.Flags().BoolVar(&flags.gitignore, "gitignore", false,
		"Also honor .gitignore files in source directories")

	return cmd
}

// runInstall resolves options from flags and configuration, runs the
// installer for every source, and prints the report.
func runInstall(cmd *cobra.Command, flags *installFlags, sources []string, objdir string) error {
	opts := installOptions(cmd, flags)
	in := installer.New(opts)
	VerboseLog("installing %d source(s) into %s", len(sources), objdir)

	// Every source is attempted even after a failure, so the report is
	// complete; the first error decides the exit code.
	var firstErr error
	for _, src := range sources {
		var err error
		if flags.all {
			err = in.InstallAll(cmd.Context(), src, objdir)
		} else {
			err = in.Install(cmd.Context(), src, objdir)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := printInstallReport(cmd.OutOrStdout(), in.Report(), opts.Quiet); err != nil {
		return err
	}

	if firstErr != nil {
		return model.WrapCLIError(model.ExitInstallFailed, "install failed", firstErr)
	}
	return nil
}

// installOptions merges command-line flags over the install section of the
// configuration file. A flag only wins when it was given explicitly.
func installOptions(cmd *cobra.Command, flags *installFlags) installer.Options {
	opts := installer.Options{
		Quiet:        cfg.Install.Quiet,
		ExceptionOK:  cfg.Install.ExceptionOK,
		Exclude:      cfg.Install.Exclude,
		UseGitignore: cfg.Install.Gitignore,
		Logger:       logger,
	}

	f := cmd.Flags()
	if f.Changed("quiet") {
		opts.Quiet = flags.quiet
	}
	if f.Changed("exception-ok") {
		opts.ExceptionOK = flags.exceptionOK
	}
	if f.Changed("exclude") {
		opts.Exclude = flags.exclude
	}
	if f.Changed("gitignore") {
		opts.UseGitignore = flags.gitignore
	}
	return opts
}

// printInstallReport writes the report as JSON or as a text table. In quiet
// text mode only failures are listed.
//
// The table format is:
//
//	ACTION    SOURCE                          DESTINATION
//	updated   /home/me/src/tool               /home/me/bin/tool
//	skipped   /home/me/src/lib/a.py           /home/me/lib/lib/a.py
func printInstallReport(w io.Writer, results []model.InstallResult, quiet bool) error {
	if IsJSONOutput() {
		return printJSON(w, struct {
			Results []model.InstallResult `json:"results"`
			Summary map[string]int        `json:"summary"`
		}{Results: results, Summary: SummarizeInstall(results)})
	}

	if len(results) == 0 {
		if !quiet {
			fmt.Fprintln(w, "Nothing to install.")
		}
		return nil
	}

	if !quiet {
		fmt.Fprintf(w, "%-10s %-40s %s\n", "ACTION", "SOURCE", "DESTINATION")
	}
	for _, r := range results {
		if quiet && r.Action != model.ActionFailed {
			continue
		}
		fmt.Fprintf(w, "%-10s %-40s %s\n", colorAction(r.Action), r.Source, r.Destination)
		if r.Err != nil {
			fmt.Fprintf(w, "           %v\n", r.Err)
		}
	}

	if !quiet {
		s := SummarizeInstall(results)
		fmt.Fprintf(w, "\n%d updated, %d skipped, %d failed\n",
			s[model.ActionUpdated.String()], s[model.ActionSkipped.String()], s[model.ActionFailed.String()])
	}
	return nil
}

// colorAction pads the action name to the table column before coloring it,
// since escape sequences would break %-10s alignment.
func colorAction(a model.InstallAction) string {
	padded := fmt.Sprintf("%-10s", a.String())
	switch a {
	case model.ActionUpdated:
		return au.Green(padded).String()
	case model.ActionFailed:
		return au.Red(padded).String()
	default:
		return padded
	}
}

// SummarizeInstall counts the report entries per action. Every action is
// present in the result, with zero counts included.
//
// This function is exported for testing purposes (tested in install_test.go).
func SummarizeInstall(results []model.InstallResult) map[string]int {
	summary := map[string]int{
		model.ActionUpdated.String(): 0,
		model.ActionSkipped.String(): 0,
		model.ActionFailed.String():  0,
	}
	for _, r := range results {
		summary[r.Action.String()]++
	}
	return summary
}
