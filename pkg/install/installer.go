package install

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/schollz/progressbar/v3"

	"github.com/matzehuels/gpack/pkg/bin"
	"github.com/matzehuels/gpack/pkg/deps"
	"github.com/matzehuels/gpack/pkg/errors"
	"github.com/matzehuels/gpack/pkg/observability"
)

// ModulesDir is the directory holding a package's own dependencies.
const ModulesDir = "node_modules"

// Source provides package contents.
type Source interface {
	// FetchTarball opens the gzipped tarball for a registry package.
	FetchTarball(ctx context.Context, name, version string) (io.ReadCloser, int64, error)
	// LocalPath returns the directory a file:<path> specifier refers to.
	LocalPath(spec string) string
}

// Options configures an [Installer].
type Options struct {
	Logger   *log.Logger // progress lines; nil discards them
	Progress io.Writer   // download progress bars; nil disables them
}

// Installer writes packages to disk and links their commands.
type Installer struct {
	source   Source
	linker   *bin.Linker
	logger   *log.Logger
	progress io.Writer
}

// New returns an Installer that reads package contents from source.
func New(source Source, opts Options) *Installer {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Installer{
		source:   source,
		linker:   bin.NewLinker(logger),
		logger:   logger,
		progress: opts.Progress,
	}
}

// Install materializes tree below basePath. Nodes are visited in the
// tree's insertion order.
func (i *Installer) Install(ctx context.Context, tree *deps.Tree, basePath string, force bool) error {
	base, err := filepath.Abs(basePath)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", basePath)
	}

	for _, node := range tree.All() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if node == nil || node.Name == "" {
			continue
		}
		if err := errors.ValidatePackageName(node.Name); err != nil {
			return err
		}

		target := filepath.Join(base, node.Name)
		if _, err := os.Stat(target); err == nil {
			if !force {
				i.logger.Infof("Skipping %s - already installed", node.ID())
				continue
			}
			i.logger.Infof("Reinstalling %s", node.ID())
			if err := os.RemoveAll(target); err != nil {
				return errors.Wrap(errors.ErrCodeInternal, err, "remove %s", target)
			}
			if err := i.linker.Unlink(node, base); err != nil {
				return err
			}
		}

		i.logger.Infof("Installing %s", node.ID())
		start := time.Now()
		err := i.materialize(ctx, node, target)
		if err != nil {
			_ = os.RemoveAll(target)
		} else {
			err = i.linker.Link(node, target, base)
		}
		observability.Install().OnPackageInstalled(ctx, node.ID(), node.IsLocal(), time.Since(start), err)
		if err != nil {
			return err
		}

		if node.Dependencies.Len() > 0 {
			if err := i.Install(ctx, node.Dependencies, filepath.Join(target, ModulesDir), force); err != nil {
				return err
			}
		}
	}
	return nil
}

// materialize puts the contents of node into target.
func (i *Installer) materialize(ctx context.Context, node *deps.Node, target string) error {
	if node.IsLocal() {
		src := i.source.LocalPath(node.Resolved)
		if err := CopyDir(src, target); err != nil {
			return errors.Wrap(errors.ErrCodeExtractFailed, err, "copy %s from %s", node.ID(), src)
		}
		return nil
	}

	if err := os.MkdirAll(target, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create %s", target)
	}

	body, size, err := i.source.FetchTarball(ctx, node.Name, node.Version)
	if err != nil {
		return err
	}
	defer body.Close()

	var r io.Reader = body
	if i.progress != nil && size > 0 {
		bar := progressbar.NewOptions64(size,
			progressbar.OptionSetWriter(i.progress),
			progressbar.OptionSetDescription(" "+node.ID()),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowBytes(true),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
		r = io.TeeReader(body, bar)
	}

	if err := Extract(r, target); err != nil {
		return errors.Wrap(errors.ErrCodeExtractFailed, err, "extract %s", node.ID())
	}
	return nil
}
