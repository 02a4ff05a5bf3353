// Package runner ties project discovery to the patcher for one invocation.
package runner

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/soapywu/xbar/locator"
	"github.com/soapywu/xbar/patcher"
)

const RebuildCommand = "carthage build --cache-builds --platform iOS,watchOS"

type Summary struct {
	Found   int
	Skipped int
	Changed int
	Written int
	Failed  int
}

type Runner struct {
	locator *locator.Locator
	patcher *patcher.Patcher
	logger  *zap.Logger
	out     io.Writer
}

func New(l *locator.Locator, p *patcher.Patcher, logger *zap.Logger, out io.Writer) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{locator: l, patcher: p, logger: logger, out: out}
}

// Run patches the projects named by paths, or discovered under the search
// directory. Only a discovery failure is returned as an error.
func (r *Runner) Run(ctx context.Context, paths []string) (Summary, error) {
	var summary Summary

	located, skipped, err := r.locator.Locate(ctx, paths)
	if err != nil {
		r.logger.Error("Could not look for project files", zap.Error(err))
		return summary, err
	}
	summary.Found = len(located)
	summary.Skipped = len(skipped)

	if len(located) == 0 {
		r.logger.Info("No Xcode projects found, nothing to do",
			zap.String("dir", r.locator.SearchDir()),
			zap.Int("skipped", summary.Skipped))
		return summary, nil
	}

	params := r.patcher.Params()
	r.logger.Info(fmt.Sprintf("Removing architectures `%s` from %d projects...",
		strings.Join(params.Archs, ", "), len(located)))

	for _, item := range located {
		result := r.patcher.PatchProject(item.Project)
		if result.Changed() {
			summary.Changed++
		}
		if result.Written {
			summary.Written++
		}
		if result.Err != nil {
			summary.Failed++
		}
	}

	r.logger.Info("Finished",
		zap.Int("found", summary.Found),
		zap.Int("skipped", summary.Skipped),
		zap.Int("changed", summary.Changed),
		zap.Int("written", summary.Written),
		zap.Int("failed", summary.Failed))

	fmt.Fprintln(r.out, "Done! Now use the following command to rebuild your workspace:")
	fmt.Fprintf(r.out, "$ %s\n", RebuildCommand)
	return summary, nil
}
