// Package compiler turns OpenAPI 3.x documents into a catalog of callable
// tool definitions.
//
// For every (path, method) pair the compiler normalizes the raw operation,
// resolves the document's inclusion flags, derives a stable unique name,
// translates parameter and request-body schemas into a single JSON Schema
// input object, and attaches structured diagnostics describing every
// quality issue it found. Diagnostics never abort compilation.
package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// MaxAIDescriptionLen is the inclusive upper bound on x-ai-description.
const MaxAIDescriptionLen = 300

// ExecParam is the reduced runtime view of one parameter: just enough for
// the dispatch gateway to substitute values into the outbound request.
type ExecParam struct {
	Name string `json:"name"`
	In   string `json:"in"`
}

// ToolDefinition is the unit exposed to clients. Created once at compile
// time and read-only thereafter.
type ToolDefinition struct {
	Name            string                        `json:"name"`
	Description     string                        `json:"description"`
	InputSchema     map[string]any                `json:"inputSchema"`
	Method          string                        `json:"method"`
	Path            string                        `json:"path"`
	Parameters      openapi3.Parameters           `json:"-"`
	ExecParams      []ExecParam                   `json:"executionParams,omitempty"`
	BodyContentType string                        `json:"bodyContentType,omitempty"`
	Security        openapi3.SecurityRequirements `json:"-"`
	Service         string                        `json:"service,omitempty"`
	Deprecated      bool                          `json:"deprecated,omitempty"`
	Disabled        bool                          `json:"disabled,omitempty"`
	Logs            []LogEntry                    `json:"logs,omitempty"`
	Size            int                           `json:"size"`
}

// Options controls document compilation.
type Options struct {
	// DefaultInclude is the fallback when no inclusion flag resolves.
	DefaultInclude bool
}

// methodOrder fixes the per-path iteration order so generated names and
// collision suffixes are reproducible across runs.
var methodOrder = []string{"GET", "PUT", "POST", "DELETE", "OPTIONS", "HEAD", "PATCH", "TRACE"}

// Compile produces one ToolDefinition per eligible operation in doc.
func Compile(doc *openapi3.T, opts Options) []ToolDefinition {
	var tools []ToolDefinition
	names := nameRegistry{}

	var rootExt map[string]any
	if doc != nil {
		rootExt = doc.Extensions
	}
	if doc == nil || doc.Paths == nil {
		return nil
	}

	paths := make([]string, 0, doc.Paths.Len())
	for p := range doc.Paths.Map() {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		item := doc.Paths.Value(path)
		if item == nil {
			continue
		}
		ops := item.Operations()
		for _, method := range methodOrder {
			op, ok := ops[method]
			if !ok || op == nil {
				continue
			}
			rec := normalizeOperation(path, method, item, op)

			var diags []LogEntry
			if !resolveInclusion(rootExt, item.Extensions, rec.Extensions, opts.DefaultInclude, &diags) {
				continue
			}
			tools = append(tools, compileOperation(doc, rec, names, diags))
		}
	}
	return tools
}

// resolveInclusion shields the compile loop from a panicking resolver. A
// failure is logged as a warning and treated as "include" only when the
// default says so.
func resolveInclusion(rootExt, pathExt, opExt map[string]any, defaultInclude bool, diags *[]LogEntry) (included bool) {
	defer func() {
		if r := recover(); r != nil {
			*diags = append(*diags, warn(fmt.Sprintf("inclusion resolution failed: %v", r)))
			included = defaultInclude
		}
	}()
	return shouldInclude(rootExt, pathExt, opExt, defaultInclude, diags)
}

func compileOperation(doc *openapi3.T, rec OperationRecord, names nameRegistry, diags []LogEntry) ToolDefinition {
	name := rec.ID
	if name == "" {
		name = generateName(rec.Method, rec.Path)
		diags = append(diags, warn(fmt.Sprintf("operation has no operationId; generated %q", name)))
	}
	if sanitized := sanitizeName(name); sanitized != name {
		diags = append(diags, warn(fmt.Sprintf("operation id %q sanitized to %q", name, sanitized)))
		name = sanitized
	}
	if claimed := names.claim(name); claimed != name {
		diags = append(diags, warn(fmt.Sprintf("name %q already in use; renamed to %q", name, claimed)))
		name = claimed
	}

	if rec.Description == "" {
		diags = append(diags, warn("operation has no description"))
	}
	if rec.Summary == "" {
		diags = append(diags, info("operation has no summary"))
	}
	switch {
	case rec.AIDescription == "":
		diags = append(diags, errd("no `x-ai-description` field"))
	case len(rec.AIDescription) > MaxAIDescriptionLen:
		diags = append(diags, errd("`x-ai-description` exceeds 300 characters"))
	}

	schema, bodyContentType := buildInputSchema(rec, &diags)

	tool := ToolDefinition{
		Name:            name,
		Description:     resolveDescription(rec),
		InputSchema:     schema,
		Method:          rec.Method,
		Path:            rec.Path,
		Parameters:      rec.Parameters,
		ExecParams:      executionParams(rec.Parameters),
		BodyContentType: bodyContentType,
		Security:        resolveSecurity(doc, rec),
		Deprecated:      rec.Deprecated,
		Logs:            diags,
	}
	return tool
}

// resolveDescription picks the client-facing description: AI description,
// then summary, then the first paragraph of the description.
func resolveDescription(rec OperationRecord) string {
	if rec.AIDescription != "" {
		return rec.AIDescription
	}
	if rec.Summary != "" {
		return rec.Summary
	}
	if rec.Description != "" {
		return firstParagraph(rec.Description)
	}
	return ""
}

func firstParagraph(s string) string {
	normalized := strings.ReplaceAll(s, "\r\n", "\n")
	if idx := strings.Index(normalized, "\n\n"); idx >= 0 {
		return strings.TrimSpace(normalized[:idx])
	}
	return strings.TrimSpace(normalized)
}

// resolveSecurity defaults to the document's global security when the
// operation declares none. An operation with an explicitly empty security
// array also falls back to the global set, even though OpenAPI reads an
// empty array as "no security required".
func resolveSecurity(doc *openapi3.T, rec OperationRecord) openapi3.SecurityRequirements {
	if rec.Security != nil && len(*rec.Security) > 0 {
		return *rec.Security
	}
	if doc != nil {
		return doc.Security
	}
	return nil
}

func executionParams(params openapi3.Parameters) []ExecParam {
	var out []ExecParam
	for _, ref := range params {
		if ref == nil || ref.Value == nil {
			continue
		}
		out = append(out, ExecParam{Name: ref.Value.Name, In: ref.Value.In})
	}
	return out
}

// buildInputSchema converts the merged parameter list and the request body
// into a single JSON Schema object for tool input. An application/json
// body is translated structurally; any other sole content type is carried
// as an opaque string parameter annotated with its content type.
func buildInputSchema(rec OperationRecord, diags *[]LogEntry) (map[string]any, string) {
	tr := newTranslator(diags)
	properties := map[string]any{}
	var required []string

	for _, ref := range rec.Parameters {
		if ref == nil || ref.Value == nil {
			continue
		}
		p := ref.Value
		prop := tr.translate(p.Schema)
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if _, ok := prop["description"]; !ok {
			*diags = append(*diags, errd(fmt.Sprintf("parameter %q schema has no description", p.Name)))
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	bodyContentType := ""
	if rec.RequestBody != nil && rec.RequestBody.Value != nil {
		content := rec.RequestBody.Value.Content
		if mt, ct := jsonContent(content); mt != nil {
			bodyContentType = ct
			bodyProp := tr.translate(mt.Schema)
			bodyProp["description"] = "The JSON request body."
			properties["requestBody"] = bodyProp
			if rec.RequestBody.Value.Required {
				required = append(required, "requestBody")
			}
		} else if len(content) == 1 {
			for ct := range content {
				bodyContentType = ct
				properties["requestBody"] = map[string]any{
					"type":        "string",
					"description": fmt.Sprintf("Raw request body (content type %s).", ct),
				}
				if rec.RequestBody.Value.Required {
					required = append(required, "requestBody")
				}
			}
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sort.Strings(required)
		schema["required"] = required
	}
	return schema, bodyContentType
}

// jsonContent finds a JSON body representation, ignoring media type
// parameters such as "; charset=utf-8".
func jsonContent(content openapi3.Content) (*openapi3.MediaType, string) {
	for name, mt := range content {
		base := name
		if idx := strings.IndexByte(name, ';'); idx > 0 {
			base = strings.TrimSpace(name[:idx])
		}
		if base == "application/json" {
			return mt, base
		}
	}
	return nil, ""
}
