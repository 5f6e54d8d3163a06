// Package installer copies files and directory trees into a target
// directory, skipping files whose installed copy is already up to date.
//
// "Up to date" is decided by modification time only: a source file is
// copied when the destination does not exist or is older than the source.
// Directory sources are mirrored recursively under objdir/<dirname>.
//
// Entries found while walking a directory can be excluded with gitignore
// patterns (github.com/go-git/go-git/v5/plumbing/format/gitignore), either
// given explicitly or read from .gitignore files in the source tree.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"go.uber.org/zap"

	"github.com/mmr-tortoise/coolutils/internal/model"
)

// Sentinel errors for package installer.
// These errors can be checked with errors.Is() for specific error handling.
var (
	ErrNotFile      = errors.New("not a regular file")
	ErrNotDirectory = errors.New("not a directory")
	ErrNotExist     = errors.New("source does not exist")
)

// Options controls how an Installer behaves.
type Options struct {
	// Quiet suppresses all progress logging.
	Quiet bool

	// ExceptionOK records failures in the report instead of returning them.
	ExceptionOK bool

	// Exclude lists gitignore-style patterns, relative to the directory
	// being installed, for entries that must not be copied.
	Exclude []string

	// UseGitignore additionally reads .gitignore files found in the
	// source directory tree.
	UseGitignore bool

	// Logger receives progress messages. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Installer performs installs and accumulates a report of every decision.
// An Installer is not safe for concurrent use.
type Installer struct {
	opts    Options
	log     *zap.Logger
	results []model.InstallResult
}

// New creates an Installer with the given options.
func New(opts Options) *Installer {
	logger := opts.Logger
	if logger == nil || opts.Quiet {
		logger = zap.NewNop()
	}
	return &Installer{opts: opts, log: logger}
}

// Report returns the results recorded so far, in processing order.
func (in *Installer) Report() []model.InstallResult {
	out := make([]model.InstallResult, len(in.results))
	copy(out, in.results)
	return out
}

// Install installs src into objdir, dispatching on whether src is a file
// or a directory.
func (in *Installer) Install(ctx context.Context, src, objdir string) error {
	return in.install(ctx, src, objdir, filepath.Dir(src), nil)
}

// InstallFile copies the file src into objdir when objdir/<name> is missing
// or older than src.
func (in *Installer) InstallFile(ctx context.Context, src, objdir string) error {
	return in.installFile(ctx, src, objdir)
}

// InstallDir mirrors the directory src as objdir/<dirname>, creating it if
// needed and installing every non-excluded entry recursively.
func (in *Installer) InstallDir(ctx context.Context, src, objdir string) error {
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("failed to resolve path %s: %w", src, err)
	}
	matcher, err := in.matcherFor(absSrc)
	if err != nil {
		return err
	}
	return in.installDir(ctx, absSrc, objdir, absSrc, matcher)
}

// InstallAll installs every entry of srcdir directly into objdir. Entries
// that fail are collected; unless ExceptionOK is set, a single error naming
// all of them is returned after every entry has been attempted.
func (in *Installer) InstallAll(ctx context.Context, srcdir, objdir string) error {
	absSrc, err := filepath.Abs(srcdir)
	if err != nil {
		return fmt.Errorf("failed to resolve path %s: %w", srcdir, err)
	}
	entries, err := os.ReadDir(absSrc)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", absSrc, err)
	}
	matcher, err := in.matcherFor(absSrc)
	if err != nil {
		return err
	}

	var failed []string
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(absSrc, entry.Name())
		if err := in.install(ctx, path, objdir, absSrc, matcher); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			failed = append(failed, entry.Name())
		}
	}

	if len(failed) > 0 {
		in.log.Error("failed to update", zap.String("sources", strings.Join(failed, ",")))
		if !in.opts.ExceptionOK {
			return fmt.Errorf("failed to update %s", strings.Join(failed, ","))
		}
	}
	return nil
}

// install dispatches a single path. root and matcher are the exclusion
// context of the enclosing walk; matcher is nil for explicitly named paths.
func (in *Installer) install(ctx context.Context, src, objdir, root string, matcher gitignore.Matcher) error {
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("failed to resolve path %s: %w", src, err)
	}

	// os.Stat follows symlinks, so a link to a file installs the file.
	info, err := os.Stat(absSrc)
	if err != nil {
		return in.fail(absSrc, objdir, fmt.Errorf("%w: %s", ErrNotExist, absSrc))
	}
	if excluded(matcher, root, absSrc, info.IsDir()) {
		in.log.Debug("excluded", zap.String("source", absSrc))
		return nil
	}

	if info.IsDir() {
		if matcher == nil {
			if matcher, err = in.matcherFor(absSrc); err != nil {
				return err
			}
			root = absSrc
		}
		return in.installDir(ctx, absSrc, objdir, root, matcher)
	}
	return in.installFile(ctx, absSrc, objdir)
}

func (in *Installer) installDir(ctx context.Context, src, objdir, root string, matcher gitignore.Matcher) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		return in.fail(src, objdir, fmt.Errorf("%w: %s", ErrNotDirectory, src))
	}

	target := filepath.Join(objdir, filepath.Base(src))
	if err := os.MkdirAll(target, 0o755); err != nil {
		return in.fail(src, target, fmt.Errorf("failed to create directory %s: %w", target, err))
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return in.fail(src, target, fmt.Errorf("failed to read directory %s: %w", src, err))
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(src, entry.Name())
		entryInfo, err := os.Stat(path)
		if err != nil {
			if err := in.fail(path, target, fmt.Errorf("%w: %s", ErrNotExist, path)); err != nil {
				return err
			}
			continue
		}
		if excluded(matcher, root, path, entryInfo.IsDir()) {
			in.log.Debug("excluded", zap.String("source", path))
			continue
		}
		if entryInfo.IsDir() {
			err = in.installDir(ctx, path, target, root, matcher)
		} else {
			err = in.installFile(ctx, path, target)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (in *Installer) installFile(ctx context.Context, src, objdir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("failed to resolve path %s: %w", src, err)
	}
	dst := filepath.Join(objdir, filepath.Base(absSrc))

	srcInfo, err := os.Stat(absSrc)
	if err != nil || !srcInfo.Mode().IsRegular() {
		return in.fail(absSrc, dst, fmt.Errorf("%w: %s", ErrNotFile, absSrc))
	}
	if dirInfo, err := os.Stat(objdir); err != nil || !dirInfo.IsDir() {
		return in.fail(absSrc, dst, fmt.Errorf("%w: %s", ErrNotDirectory, objdir))
	}

	if !needsUpdate(srcInfo, dst) {
		in.log.Info("up to date", zap.String("source", absSrc))
		in.record(absSrc, dst, model.ActionSkipped, nil)
		return nil
	}

	in.log.Info("updating", zap.String("source", absSrc), zap.String("destination", dst))
	if err := copyFile(absSrc, dst, srcInfo.Mode()); err != nil {
		return in.fail(absSrc, dst, err)
	}
	in.log.Info("updated", zap.String("source", absSrc))
	in.record(absSrc, dst, model.ActionUpdated, nil)
	return nil
}

// needsUpdate reports whether dst is missing or strictly older than src.
func needsUpdate(srcInfo os.FileInfo, dst string) bool {
	dstInfo, err := os.Stat(dst)
	if err != nil {
		return true
	}
	return dstInfo.ModTime().Before(srcInfo.ModTime())
}

// fail records a failed result and returns err unless ExceptionOK is set.
func (in *Installer) fail(src, dst string, err error) error {
	in.log.Warn("failed", zap.String("source", src), zap.Error(err))
	in.record(src, dst, model.ActionFailed, err)
	if in.opts.ExceptionOK {
		return nil
	}
	return err
}

func (in *Installer) record(src, dst string, action model.InstallAction, err error) {
	in.results = append(in.results, model.InstallResult{
		Source:      src,
		Destination: dst,
		Action:      action,
		Err:         err,
	})
}

// matcherFor builds the exclusion matcher for a walk rooted at root.
// It returns nil when there is nothing to exclude.
func (in *Installer) matcherFor(root string) (gitignore.Matcher, error) {
	var patterns []gitignore.Pattern
	if in.opts.UseGitignore {
		ps, err := gitignore.ReadPatterns(osfs.New(root), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read gitignore patterns in %s: %w", root, err)
		}
		patterns = append(patterns, ps...)
	}
	for _, p := range in.opts.Exclude {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}
	if len(patterns) == 0 {
		return nil, nil
	}
	return gitignore.NewMatcher(patterns), nil
}

// excluded reports whether path, relative to root, matches the matcher.
func excluded(matcher gitignore.Matcher, root, path string, isDir bool) bool {
	if matcher == nil {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	return matcher.Match(strings.Split(rel, string(os.PathSeparator)), isDir)
}

// copyFile copies a single file from src to dst and applies the source
// permission bits, replacing any existing destination file.
func copyFile(src, dst string, mode os.FileMode) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", src, err)
	}
	defer func() { _ = srcFile.Close() }()

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", dst, err)
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		_ = dstFile.Close()
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	if err := dstFile.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dst, err)
	}

	// OpenFile only applies the mode to newly created files.
	if err := os.Chmod(dst, mode.Perm()); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", dst, err)
	}
	return nil
}
