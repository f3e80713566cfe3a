// Package git shells out to the git CLI to produce the commit stream the
// temporal spine consumes. The driver degrades to unavailable when the
// root is not a repository or git is not installed.
package git

import (
	"context"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"insight/internal/temporal"
)

const (
	// defaultTimeout bounds each git subprocess.
	defaultTimeout = 30 * time.Second

	// Field and record separators for the log format.
	fieldSep  = "\x1f"
	recordSep = "\x1e"
)

// Driver runs git queries against one repository.
type Driver struct {
	repoRoot string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewDriver creates a git driver rooted at the repository.
func NewDriver(repoRoot string, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		repoRoot: repoRoot,
		timeout:  defaultTimeout,
		logger:   logger,
	}
}

// IsAvailable reports whether the root is a git work tree with a usable
// git binary.
func (d *Driver) IsAvailable(ctx context.Context) bool {
	out, err := d.run(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// Head returns the current commit SHA, or "" when unavailable.
func (d *Driver) Head(ctx context.Context) string {
	out, err := d.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// Log yields the commit stream, newest first as git emits it; the
// temporal analyzer re-sorts by timestamp. maxCommits <= 0 means
// unlimited.
func (d *Driver) Log(ctx context.Context, maxCommits int) ([]temporal.Commit, error) {
	args := []string{
		"log",
		"--name-status",
		"-M",
		"--no-merges",
		"--format=" + recordSep + "%H" + fieldSep + "%ae" + fieldSep + "%an" + fieldSep + "%at" + fieldSep + "%s",
	}
	if maxCommits > 0 {
		args = append(args, "-n", strconv.Itoa(maxCommits))
	}
	out, err := d.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseLog(out), nil
}

// run executes one git subprocess with the driver timeout.
func (d *Driver) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.repoRoot
	out, err := cmd.Output()
	if err != nil {
		d.logger.Debug("git command failed", "args", strings.Join(args, " "), "error", err)
		return "", err
	}
	return string(out), nil
}

// parseLog parses the record-separated log output with name-status file
// lines. Rename entries (Rnnn\told\tnew) populate both the commit's
// rename list and its touched files (the new path).
func parseLog(out string) []temporal.Commit {
	var commits []temporal.Commit
	for _, record := range strings.Split(out, recordSep) {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}
		lines := strings.Split(record, "\n")
		header := strings.Split(lines[0], fieldSep)
		if len(header) < 5 {
			continue
		}
		ts, err := strconv.ParseInt(header[3], 10, 64)
		if err != nil {
			continue
		}
		c := temporal.Commit{
			SHA:         header[0],
			AuthorEmail: header[1],
			AuthorName:  header[2],
			Timestamp:   ts,
			Message:     header[4],
		}
		for _, line := range lines[1:] {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			fields := strings.Split(line, "\t")
			status := fields[0]
			switch {
			case strings.HasPrefix(status, "R") && len(fields) >= 3:
				c.Renames = append(c.Renames, [2]string{fields[1], fields[2]})
				c.Files = append(c.Files, fields[2])
			case len(fields) >= 2:
				c.Files = append(c.Files, fields[1])
			}
		}
		commits = append(commits, c)
	}
	return commits
}
