// Package registry discovers existing image tags in the remote registry.
// This feeds version selection before a deploy; it is deliberately non-fatal,
// a missing tool or listing failure is reported as a structured error the CLI
// renders as a string.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/artpar/fnship/internal/shell/executor"
)

// listTool is the tag-listing binary. Optional tooling - probed before use.
const listTool = "skopeo"

// =============================================================================
// Error Types
// =============================================================================

// ToolError reports a tag-listing failure without failing the caller's flow.
type ToolError struct {
	Tool   string
	Image  string
	Detail string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: cannot list tags for %s: %s", e.Tool, e.Image, e.Detail)
}

// =============================================================================
// Tag Lister
// =============================================================================

// CommandRunner is the subset of the executor the lister needs.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string, dir string, sink executor.OutputSink) error
	Available(ctx context.Context, name string) bool
}

// TagLister lists remote tags by shelling out to skopeo.
type TagLister struct {
	runner CommandRunner
	logger *slog.Logger
}

// NewTagLister creates a tag lister backed by the given runner.
func NewTagLister(runner CommandRunner, logger *slog.Logger) *TagLister {
	if logger == nil {
		logger = slog.Default()
	}
	return &TagLister{runner: runner, logger: logger}
}

// tagListOutput is skopeo's list-tags JSON shape.
type tagListOutput struct {
	Tags []string `json:"Tags"`
}

// ListTags returns the tags for registry/namespace/image, newest last as
// reported by the registry. Failures come back as *ToolError.
func (l *TagLister) ListTags(ctx context.Context, registryHost, namespace, image string) ([]string, error) {
	ref := fmt.Sprintf("docker://%s/%s/%s", registryHost, namespace, image)

	if !l.runner.Available(ctx, listTool) {
		return nil, &ToolError{Tool: listTool, Image: ref, Detail: "tool not installed"}
	}

	var out strings.Builder
	err := l.runner.Run(ctx, listTool, []string{"list-tags", ref}, "", func(line string) {
		out.WriteString(line)
		out.WriteString("\n")
	})
	if err != nil {
		l.logger.Debug("tag listing failed", "image", ref, "error", err)
		return nil, &ToolError{Tool: listTool, Image: ref, Detail: err.Error()}
	}

	var parsed tagListOutput
	if err := json.Unmarshal([]byte(out.String()), &parsed); err != nil {
		return nil, &ToolError{Tool: listTool, Image: ref, Detail: "unexpected output: " + err.Error()}
	}
	return parsed.Tags, nil
}
