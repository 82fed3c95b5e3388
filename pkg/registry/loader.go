package registry

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"

	"github.com/taskfleet/dispatch/pkg/capability"
	"github.com/taskfleet/dispatch/pkg/logger"
)

// Load parses every markdown source into a Definition and builds a
// registry. Sources may be directories (all .md files, lexical order) or
// individual files; that order is the registry's insertion order, used as
// the last-resort tie-break during resolution.
//
// Any validation failure aborts the whole load with a
// MalformedDefinitionError; a partial registry is never returned. Load
// honors ctx cancellation between files.
func Load(ctx context.Context, sources ...string) (*Registry, error) {
	paths, err := collectSourceFiles(sources)
	if err != nil {
		return nil, err
	}

	var defs []*Definition
	var loadErrs *multierror.Error

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "registry load canceled")
		}

		content, err := os.ReadFile(path)
		if err != nil {
			loadErrs = multierror.Append(loadErrs, errors.Wrapf(err, "failed to read %s", path))
			continue
		}

		def, err := parseSource(ctx, path, content)
		if err != nil {
			loadErrs = multierror.Append(loadErrs, errors.Wrapf(err, "%s", path))
			continue
		}

		defs = append(defs, def)
	}

	if err := loadErrs.ErrorOrNil(); err != nil {
		return nil, &MalformedDefinitionError{Err: err}
	}

	reg, err := New(defs...)
	if err != nil {
		return nil, err
	}

	logger.G(ctx).WithField("count", reg.Len()).Info("loaded agent definitions")
	return reg, nil
}

// collectSourceFiles expands directory sources into their .md files in
// lexical order. File sources are taken as-is.
func collectSourceFiles(sources []string) ([]string, error) {
	var paths []string

	for _, source := range sources {
		info, err := os.Stat(source)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to stat source %s", source)
		}

		if !info.IsDir() {
			paths = append(paths, source)
			continue
		}

		entries, err := os.ReadDir(source)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read source directory %s", source)
		}

		var names []string
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
				continue
			}
			names = append(names, entry.Name())
		}
		sort.Strings(names)

		for _, name := range names {
			paths = append(paths, filepath.Join(source, name))
		}
	}

	return paths, nil
}

// parseSource extracts frontmatter and body from a definition document.
func parseSource(ctx context.Context, path string, content []byte) (*Definition, error) {
	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()

	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse markdown")
	}

	metaData := meta.Get(pctx)
	if metaData == nil {
		return nil, errors.New("missing frontmatter")
	}

	def := &Definition{
		Path:         path,
		AutoActivate: true,
		MaxTokens:    DefaultMaxTokens,
		Body:         extractBodyContent(string(content)),
	}

	if id, ok := metaData["id"].(string); ok {
		def.ID = id
	}
	if module, ok := metaData["module"].(string); ok {
		def.Module = module
	}
	def.Tier = parseTierField(metaData["tier"])

	if triggers := metaData["triggers"]; triggers != nil {
		def.Triggers = parseStringArrayField(triggers)
	}
	if tools := metaData["tools"]; tools != nil {
		def.Tools = parseStringArrayField(tools)
	}
	if auto, ok := metaData["auto_activate"].(bool); ok {
		def.AutoActivate = auto
	}
	if maxTokens, ok := metaData["max_tokens"].(int); ok {
		def.MaxTokens = maxTokens
	}

	if err := def.validate(); err != nil {
		return nil, err
	}

	// Unknown capability tokens are a data-quality problem in the content,
	// not a load failure: drop them, record the warning on the definition.
	known, unknown := capability.Filter(def.Tools)
	def.Tools = known
	for _, token := range unknown {
		def.Warnings = append(def.Warnings, "unknown capability token: "+token)
		logger.G(ctx).WithFields(map[string]interface{}{
			"definition": def.ID,
			"token":      token,
		}).Warn("dropping capability token outside vocabulary")
	}

	return def, nil
}

// parseTierField accepts both string tiers ("core", "domain", "3") and
// numeric tiers (tier: 3) from YAML.
func parseTierField(field interface{}) string {
	switch v := field.(type) {
	case string:
		return strings.TrimSpace(v)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// parseStringArrayField handles both []interface{} (YAML list) and string
// (comma-separated) formats.
func parseStringArrayField(field interface{}) []string {
	switch v := field.(type) {
	case []interface{}:
		var result []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				if trimmed := strings.TrimSpace(s); trimmed != "" {
					result = append(result, trimmed)
				}
			}
		}
		return result
	case string:
		var result []string
		for _, item := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	default:
		return nil
	}
}

// extractBodyContent returns the markdown body after the YAML frontmatter.
func extractBodyContent(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	lines := strings.Split(content, "\n")
	frontmatterEnd := -1

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			frontmatterEnd = i
			break
		}
	}

	if frontmatterEnd == -1 {
		return content
	}

	return strings.TrimLeft(strings.Join(lines[frontmatterEnd+1:], "\n"), "\n")
}
