package gitx

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"

	"github.com/drmikehenry/git-ibundle/internal/wire"
)

// git emits this on stderr when a bundle request selects no objects; the
// caller synthesizes an empty bundle instead of failing.
const refusingEmptyBundle = "Refusing to create empty bundle"

// BundleOptions controls bundle creation.
type BundleOptions struct {
	// Positives are revision names (ref names) to include.
	Positives []string

	// Negatives are OIDs (commits or tag objects) excluded along with
	// everything reachable from them.
	Negatives []wire.OID

	// Progress passes git's progress meter through to stderr; otherwise
	// the bundle is created quietly.
	Progress bool
}

// StderrIsTerminal reports whether progress output would reach a terminal.
func StderrIsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// BundleCreate runs `git bundle create` writing to path. Revisions are fed
// on stdin to avoid command-line length limits. When git refuses because
// the request selects no objects, empty=true is returned with no error and
// no file is written.
func (r *Repo) BundleCreate(ctx context.Context, path string, opts BundleOptions) (empty bool, err error) {
	args := []string{"bundle", "create"}
	if !opts.Progress {
		args = append(args, "-q")
	}
	args = append(args, path, "--stdin")

	var stdin bytes.Buffer
	for _, oid := range opts.Negatives {
		stdin.WriteByte('^')
		stdin.WriteString(string(oid))
		stdin.WriteByte('\n')
	}
	for _, name := range opts.Positives {
		stdin.WriteString(name)
		stdin.WriteByte('\n')
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.workDir
	cmd.Stdin = &stdin
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	refused := strings.Contains(stderr.String(), refusingEmptyBundle)
	if opts.Progress && !refused && stderr.Len() > 0 {
		os.Stderr.Write(stderr.Bytes())
	}
	if runErr != nil {
		if refused {
			return true, nil
		}
		return false, gitError(args, runErr, stderr.Bytes())
	}
	return false, nil
}

// FetchBundle integrates a bundle file: `git fetch --prune --force` with the
// catch-all refspec, so the repository's refs come to mirror the bundle's.
func (r *Repo) FetchBundle(ctx context.Context, path string, dryRun, quiet bool) error {
	args := []string{"fetch", "--prune", "--force"}
	if quiet {
		args = append(args, "-q")
	}
	if dryRun {
		args = append(args, "--dry-run")
	}
	args = append(args, path, "*:*")

	_, err := r.runContext(ctx, nil, args...)
	return err
}

// VerifyBundle runs `git bundle verify` against path.
func (r *Repo) VerifyBundle(ctx context.Context, path string) error {
	_, err := r.runContext(ctx, nil, "bundle", "verify", path)
	return err
}
