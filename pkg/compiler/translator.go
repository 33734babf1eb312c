package compiler

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// translator converts OpenAPI schema nodes into generic JSON Schema maps.
// It tracks the set of schema nodes on the active recursion path (by
// identity) so that self-referential documents terminate instead of
// recursing forever.
type translator struct {
	visiting map[*openapi3.Schema]bool
	diags    *[]LogEntry
}

func newTranslator(diags *[]LogEntry) *translator {
	return &translator{
		visiting: make(map[*openapi3.Schema]bool),
		diags:    diags,
	}
}

// openObject is the generic fallback schema used wherever a node cannot
// be translated: unresolved references and recursion cycles.
func openObject() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
	}
}

// translate converts a single SchemaRef into a JSON Schema map.
// References are never fetched here; document bundling happens upstream
// in the loader, so an unresolved ref means the document was incomplete
// and is replaced by an open object with a diagnostic.
func (t *translator) translate(ref *openapi3.SchemaRef) map[string]any {
	if ref == nil || ref.Value == nil {
		if ref != nil && ref.Ref != "" {
			*t.diags = append(*t.diags, warn(fmt.Sprintf("unresolved reference %q replaced with open object schema", ref.Ref)))
		}
		return openObject()
	}

	val := ref.Value
	if t.visiting[val] {
		*t.diags = append(*t.diags, warn("circular schema reference truncated with open object schema"))
		return openObject()
	}
	t.visiting[val] = true
	defer delete(t.visiting, val)

	out := map[string]any{}

	// Type. Integer collapses to number: numeric precision is not a
	// schema-level concern for tool inputs. Nullable folds into a type
	// union, creating the union when the node was untyped.
	var types []string
	if val.Type != nil {
		for _, ty := range *val.Type {
			if ty == "integer" {
				ty = "number"
			}
			types = append(types, ty)
		}
	}
	if val.Nullable {
		// Always a union once nullable, even when the node was untyped.
		out["type"] = append(types, "null")
	} else {
		switch len(types) {
		case 0:
		case 1:
			out["type"] = types[0]
		default:
			out["type"] = types
		}
	}

	// Vendor-only keywords (example, xml, externalDocs, deprecated,
	// readOnly, writeOnly) are intentionally not carried over.
	if val.Format != "" {
		out["format"] = val.Format
	}
	if val.Description != "" {
		out["description"] = val.Description
	}
	if len(val.Enum) > 0 {
		out["enum"] = val.Enum
	}
	if val.Default != nil {
		out["default"] = val.Default
	}
	if val.Min != nil {
		out["minimum"] = *val.Min
	}
	if val.Max != nil {
		out["maximum"] = *val.Max
	}
	if val.MinLength > 0 {
		out["minLength"] = val.MinLength
	}
	if val.MaxLength != nil {
		out["maxLength"] = *val.MaxLength
	}
	if val.Pattern != "" {
		out["pattern"] = val.Pattern
	}

	if len(val.Properties) > 0 {
		props := map[string]any{}
		for name, sub := range val.Properties {
			props[name] = t.translate(sub)
		}
		out["properties"] = props
	}
	if len(val.Required) > 0 {
		out["required"] = val.Required
	}
	if val.Items != nil {
		out["items"] = t.translate(val.Items)
	}

	return out
}
