package compiler

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// Extension keys recognized on documents, path items and operations.
const (
	extInclude       = "x-mcp"
	extAIDescription = "x-ai-description"
)

// OperationRecord is the normalized view of one (path, method) pair.
// Every optional field is defaulted here so downstream logic never
// branches on "missing".
type OperationRecord struct {
	ID            string
	Summary       string
	Description   string
	AIDescription string
	Deprecated    bool
	Method        string
	Path          string
	Parameters    openapi3.Parameters
	RequestBody   *openapi3.RequestBodyRef
	Security      *openapi3.SecurityRequirements
	Extensions    map[string]any
}

// normalizeOperation wraps a raw operation, merging path-item parameters
// with operation parameters. Operation entries override path-item entries
// that match on name and location.
func normalizeOperation(path, method string, item *openapi3.PathItem, op *openapi3.Operation) OperationRecord {
	rec := OperationRecord{
		Method:      method,
		Path:        path,
		ID:          op.OperationID,
		Summary:     op.Summary,
		Description: op.Description,
		Deprecated:  op.Deprecated,
		RequestBody: op.RequestBody,
		Security:    op.Security,
		Extensions:  op.Extensions,
	}
	if s, ok := op.Extensions[extAIDescription].(string); ok {
		rec.AIDescription = s
	}
	rec.Parameters = mergeParameters(item.Parameters, op.Parameters)
	return rec
}

// mergeParameters combines path-item-level and operation-level parameter
// lists; the operation wins on a matching (name, in) pair.
func mergeParameters(itemParams, opParams openapi3.Parameters) openapi3.Parameters {
	merged := make(openapi3.Parameters, 0, len(itemParams)+len(opParams))
	overridden := func(ref *openapi3.ParameterRef) bool {
		if ref == nil || ref.Value == nil {
			return false
		}
		for _, op := range opParams {
			if op != nil && op.Value != nil &&
				op.Value.Name == ref.Value.Name && op.Value.In == ref.Value.In {
				return true
			}
		}
		return false
	}
	for _, p := range itemParams {
		if !overridden(p) {
			merged = append(merged, p)
		}
	}
	merged = append(merged, opParams...)
	return merged
}
