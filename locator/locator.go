// Package locator turns command-line paths, or a search of the dependency
// checkout directory, into parsed Xcode projects.
package locator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/soapywu/xbar/pbxproj"
)

const DefaultSearchDir = "Carthage/Checkouts"

type Located struct {
	Project *pbxproj.PbxProject
	Path    string
}

type Skipped struct {
	Path string
	Err  error
}

type OpenFunc func(path string) (*pbxproj.PbxProject, error)

type Locator struct {
	finder    Finder
	searchDir string
	open      OpenFunc
	logger    *zap.Logger
}

type Option func(l *Locator)

// WithOpener replaces pbxproj.Open.
func WithOpener(open OpenFunc) Option {
	return func(l *Locator) {
		l.open = open
	}
}

func New(finder Finder, searchDir string, logger *zap.Logger, options ...Option) *Locator {
	if searchDir == "" {
		searchDir = DefaultSearchDir
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Locator{
		finder:    finder,
		searchDir: searchDir,
		open:      pbxproj.Open,
		logger:    logger,
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *Locator) SearchDir() string {
	return l.searchDir
}

// Locate returns the projects named by paths, or found under the search
// directory when paths is empty, in discovery order. A project that cannot
// be parsed is skipped and reported in the second return value; only a
// failing search returns an error.
func (l *Locator) Locate(ctx context.Context, paths []string) ([]Located, []Skipped, error) {
	if len(paths) == 0 {
		l.logger.Info("No paths given, searching for project files",
			zap.String("dir", l.searchDir))
		found, err := l.finder.Find(ctx, l.searchDir)
		if err != nil {
			return nil, nil, err
		}
		paths = found
	}

	var located []Located
	var skipped []Skipped
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return located, skipped, fmt.Errorf("locate interrupted: %w", err)
		}
		project, err := l.open(path)
		if err != nil {
			l.logger.Warn("Skipping project that could not be parsed",
				zap.String("path", path), zap.Error(err))
			skipped = append(skipped, Skipped{Path: path, Err: err})
			continue
		}
		located = append(located, Located{Project: project, Path: path})
	}
	return located, skipped, nil
}
