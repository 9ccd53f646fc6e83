// Package git is the version-control transport: file sets are committed
// onto a branch and pushed to a remote, and fetched back by cloning.
//
// Locations have the form git+<remote-url>#<commit>. Alongside the files, a
// commit carries an order manifest (.ampl-manifest) listing file names in
// set order, because a git tree has no inherent ordering and the fingerprint
// is order-sensitive. The manifest is transport metadata; it is not part of
// the fetched file set.
package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/amplius/ampl/fileset"
)

// manifestName is the in-repo order manifest file.
const manifestName = ".ampl-manifest"

// ErrInvalidURI is returned when a URI is not a recognized git location.
var ErrInvalidURI = errors.New("git: invalid uri")

// Transport distributes file sets to a fixed git remote.
type Transport struct {
	url    string
	branch string
	auth   transport.AuthMethod
	logger *slog.Logger
}

// Option configures a Transport.
type Option func(*Transport)

// WithBranch sets the branch files are committed to (default "main").
func WithBranch(branch string) Option {
	return func(t *Transport) {
		t.branch = branch
	}
}

// WithBasicAuth sets username/token credentials for HTTP remotes.
func WithBasicAuth(username, password string) Option {
	return func(t *Transport) {
		t.auth = &githttp.BasicAuth{Username: username, Password: password}
	}
}

// WithLogger sets the transport logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// New creates a git transport pushing to the given remote URL.
func New(url string, opts ...Option) *Transport {
	t := &Transport{url: url, branch: "main"}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// log returns the logger, falling back to a discard logger if nil.
func (t *Transport) log() *slog.Logger {
	if t.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return t.logger
}

// Name implements transfer.Transport.
func (t *Transport) Name() string { return "git" }

// Handles implements transfer.Transport.
func (t *Transport) Handles(uri string) bool {
	return strings.HasPrefix(uri, "git+") || strings.HasPrefix(uri, "git://")
}

// Distribute commits the file set onto the configured branch and pushes it,
// returning a location pinned to the resulting commit.
func (t *Transport) Distribute(ctx context.Context, files fileset.FileSet) (string, error) {
	branchRef := plumbing.NewBranchReferenceName(t.branch)

	storage := memory.NewStorage()
	worktreeFS := memfs.New()
	repo, err := gogit.CloneContext(ctx, storage, worktreeFS, &gogit.CloneOptions{
		URL:           t.url,
		Auth:          t.auth,
		ReferenceName: branchRef,
		SingleBranch:  true,
	})
	if errors.Is(err, transport.ErrEmptyRemoteRepository) {
		repo, err = t.initEmpty(storage, worktreeFS, branchRef)
	}
	if err != nil {
		return "", fmt.Errorf("git: clone %s: %w", t.url, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("git: worktree: %w", err)
	}

	for _, f := range files {
		if err := util.WriteFile(worktreeFS, f.Name, f.Data, 0o644); err != nil {
			return "", fmt.Errorf("git: write %s: %w", f.Name, err)
		}
		if _, err := worktree.Add(f.Name); err != nil {
			return "", fmt.Errorf("git: add %s: %w", f.Name, err)
		}
	}
	manifest := strings.Join(files.Names(), "\n") + "\n"
	if err := util.WriteFile(worktreeFS, manifestName, []byte(manifest), 0o644); err != nil {
		return "", fmt.Errorf("git: write manifest: %w", err)
	}
	if _, err := worktree.Add(manifestName); err != nil {
		return "", fmt.Errorf("git: add manifest: %w", err)
	}

	commit, err := worktree.Commit(fmt.Sprintf("distribute %d files", len(files)), &gogit.CommitOptions{
		Author: &object.Signature{Name: "ampl", Email: "ampl@localhost", When: time.Now()},
	})
	if err != nil {
		if !errors.Is(err, gogit.ErrEmptyCommit) {
			return "", fmt.Errorf("git: commit: %w", err)
		}
		// Identical content is already at the branch head.
		head, headErr := repo.Head()
		if headErr != nil {
			return "", fmt.Errorf("git: head: %w", headErr)
		}
		commit = head.Hash()
	} else {
		refSpec := config.RefSpec(branchRef + ":" + branchRef)
		if err := repo.PushContext(ctx, &gogit.PushOptions{
			RemoteName: "origin",
			Auth:       t.auth,
			RefSpecs:   []config.RefSpec{refSpec},
		}); err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
			return "", fmt.Errorf("git: push %s: %w", t.url, err)
		}
	}

	location := "git+" + t.url + "#" + commit.String()
	t.log().Debug("pushed file set", "location", location, "files", len(files))
	return location, nil
}

// initEmpty initializes an in-memory repository with origin pointing at the
// remote, used when the remote has no commits yet.
func (t *Transport) initEmpty(storage *memory.Storage, worktreeFS billy.Filesystem, branch plumbing.ReferenceName) (*gogit.Repository, error) {
	repo, err := gogit.InitWithOptions(storage, worktreeFS, gogit.InitOptions{DefaultBranch: branch})
	if err != nil {
		return nil, err
	}
	if _, err := repo.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{t.url}}); err != nil {
		return nil, err
	}
	return repo, nil
}

// Fetch clones the remote named by uri and reads the file set back in
// manifest order.
func (t *Transport) Fetch(ctx context.Context, uri string) (fileset.FileSet, error) {
	url, commit, err := parseURI(uri)
	if err != nil {
		return nil, err
	}

	worktreeFS := memfs.New()
	repo, err := gogit.CloneContext(ctx, memory.NewStorage(), worktreeFS, &gogit.CloneOptions{
		URL:  url,
		Auth: t.auth,
	})
	if err != nil {
		return nil, fmt.Errorf("git: clone %s: %w", url, err)
	}

	if commit != "" {
		worktree, err := repo.Worktree()
		if err != nil {
			return nil, fmt.Errorf("git: worktree: %w", err)
		}
		if err := worktree.Checkout(&gogit.CheckoutOptions{Hash: plumbing.NewHash(commit)}); err != nil {
			return nil, fmt.Errorf("git: checkout %s: %w", commit, err)
		}
	}

	return readFiles(worktreeFS)
}

// readFiles loads the committed files, ordered by the manifest when present
// and by sorted tree walk otherwise.
func readFiles(worktreeFS billy.Filesystem) (fileset.FileSet, error) {
	names, err := manifestOrder(worktreeFS)
	if err != nil {
		names, err = walkOrder(worktreeFS, "/")
		if err != nil {
			return nil, err
		}
	}

	files := make(fileset.FileSet, 0, len(names))
	for _, name := range names {
		data, err := util.ReadFile(worktreeFS, name)
		if err != nil {
			return nil, fmt.Errorf("git: read %s: %w", name, err)
		}
		files = append(files, fileset.File{Name: name, Data: data})
	}
	return files, nil
}

// manifestOrder returns the file names recorded in the order manifest.
func manifestOrder(worktreeFS billy.Filesystem) ([]string, error) {
	data, err := util.ReadFile(worktreeFS, manifestName)
	if err != nil {
		return nil, err
	}
	var names []string
	for line := range strings.Lines(string(data)) {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// walkOrder lists committed files in sorted tree order, skipping repository
// metadata.
func walkOrder(worktreeFS billy.Filesystem, dir string) ([]string, error) {
	infos, err := worktreeFS.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("git: list %s: %w", dir, err)
	}
	var names []string
	for _, info := range infos {
		name := path.Join(dir, info.Name())
		if info.Name() == ".git" || info.Name() == manifestName {
			continue
		}
		if info.IsDir() {
			sub, err := walkOrder(worktreeFS, name)
			if err != nil {
				return nil, err
			}
			names = append(names, sub...)
			continue
		}
		names = append(names, strings.TrimPrefix(name, "/"))
	}
	return names, nil
}

// parseURI splits git+<url>#<commit>. The git+ prefix is stripped; bare
// git:// URLs pass through with an empty commit pin.
func parseURI(uri string) (url, commit string, err error) {
	switch {
	case strings.HasPrefix(uri, "git+"):
		url = strings.TrimPrefix(uri, "git+")
	case strings.HasPrefix(uri, "git://"):
		url = uri
	default:
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	url, commit, _ = strings.Cut(url, "#")
	if url == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	return url, commit, nil
}
