package locator

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar"
)

// ErrDiscovery marks a failure of the search itself. It aborts the run.
var ErrDiscovery = errors.New("project discovery failed")

const (
	FinderFind = "find"
	FinderGlob = "glob"
)

// Finder lists candidate .xcodeproj bundles below root in discovery order.
type Finder interface {
	Find(ctx context.Context, root string) ([]string, error)
}

func NewFinder(kind string) (Finder, error) {
	switch kind {
	case "", FinderFind:
		return &CommandFinder{}, nil
	case FinderGlob:
		return &GlobFinder{}, nil
	}
	return nil, fmt.Errorf("unknown finder %q (want %s or %s)", kind, FinderFind, FinderGlob)
}

// CommandFinder shells out to find(1).
type CommandFinder struct {
	// Command defaults to "find".
	Command string
}

func (f *CommandFinder) Args(root string) []string {
	return []string{root, "-type", "d", "-name", "*xcodeproj", "-print"}
}

func (f *CommandFinder) Find(ctx context.Context, root string) ([]string, error) {
	command := f.Command
	if command == "" {
		command = "find"
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command, f.Args(root)...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%w: %s %s: %s", ErrDiscovery, command, strings.Join(f.Args(root), " "), msg)
	}

	var paths []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// GlobFinder matches <root>/**/*.xcodeproj without a shell.
type GlobFinder struct{}

func (f *GlobFinder) Find(ctx context.Context, root string) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscovery, err)
	}
	matches, err := doublestar.Glob(filepath.Join(root, "**", "*.xcodeproj"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscovery, err)
	}

	var paths []string
	for _, match := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if info, err := os.Stat(match); err == nil && info.IsDir() {
			paths = append(paths, match)
		}
	}
	return paths, nil
}
