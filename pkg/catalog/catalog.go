// Package catalog merges per-service tool lists into the single ordered
// catalog served to clients, applying the write-access policy and the
// post-load quality diagnostics.
package catalog

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/toolgate/toolgate/pkg/compiler"
)

// Name length thresholds for post-load diagnostics.
const (
	nameLenWarn = 40
	nameLenErr  = 64
)

// readMethods are the HTTP methods permitted when write operations are
// disallowed by policy.
var readMethods = map[string]bool{"GET": true, "HEAD": true, "OPTIONS": true}

// AccessPolicy is the configured write-access policy.
type AccessPolicy struct {
	AllowWriteOperations bool
}

// Allows reports whether the policy permits the HTTP method.
func (p AccessPolicy) Allows(method string) bool {
	return p.AllowWriteOperations || readMethods[method]
}

// Service is one backend service's compiled tool list plus the base URL
// its tools are dispatched against.
type Service struct {
	Name    string
	BaseURL string
	Tools   []compiler.ToolDefinition
}

// Catalog is the aggregated, ordered tool collection. Built once at
// startup, read-only afterwards, safe for concurrent readers.
type Catalog struct {
	Tools []compiler.ToolDefinition

	byName      map[string]*compiler.ToolDefinition
	serviceBase map[string]string
}

// Aggregate concatenates per-service tool lists, stamping each tool with
// its service name. Tools whose method the policy forbids stay in the
// catalog for reporting but are flagged disabled, with an INFO diagnostic
// instead of a silent discard. The result is sorted by serialized size,
// descending, as a presentation aid.
func Aggregate(services []Service, policy AccessPolicy) *Catalog {
	c := &Catalog{
		byName:      map[string]*compiler.ToolDefinition{},
		serviceBase: map[string]string{},
	}
	names := map[string]bool{}

	for _, svc := range services {
		c.serviceBase[svc.Name] = svc.BaseURL
		for _, tool := range svc.Tools {
			tool.Service = svc.Name
			if clashed := claimUnique(names, tool.Name); clashed != tool.Name {
				tool.Logs = append(tool.Logs, compiler.LogEntry{
					Severity: compiler.SeverityWarn,
					Message:  fmt.Sprintf("name %q already in catalog; renamed to %q", tool.Name, clashed),
				})
				tool.Name = clashed
			}
			if !policy.Allows(tool.Method) {
				tool.Disabled = true
				tool.Logs = append(tool.Logs, compiler.LogEntry{
					Severity: compiler.SeverityInfo,
					Message:  fmt.Sprintf("disabled by access policy: method %s not allowed", tool.Method),
				})
			}
			tool.Logs = append(tool.Logs, postLoadDiagnostics(tool)...)
			tool.Size = serializedSize(tool)
			c.Tools = append(c.Tools, tool)
		}
	}

	sort.SliceStable(c.Tools, func(i, j int) bool {
		if c.Tools[i].Size != c.Tools[j].Size {
			return c.Tools[i].Size > c.Tools[j].Size
		}
		return c.Tools[i].Name < c.Tools[j].Name
	})
	for i := range c.Tools {
		c.byName[c.Tools[i].Name] = &c.Tools[i]
	}
	return c
}

func claimUnique(names map[string]bool, name string) string {
	if !names[name] {
		names[name] = true
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s%d", name, i)
		if !names[candidate] {
			names[candidate] = true
			return candidate
		}
	}
}

func postLoadDiagnostics(tool compiler.ToolDefinition) []compiler.LogEntry {
	var out []compiler.LogEntry
	if tool.Deprecated {
		out = append(out, compiler.LogEntry{
			Severity: compiler.SeverityInfo,
			Message:  "operation is deprecated",
		})
	}
	switch n := len(tool.Name); {
	case n > nameLenErr:
		out = append(out, compiler.LogEntry{
			Severity: compiler.SeverityErr,
			Message:  fmt.Sprintf("tool name exceeds %d characters", nameLenErr),
		})
	case n > nameLenWarn:
		out = append(out, compiler.LogEntry{
			Severity: compiler.SeverityWarn,
			Message:  fmt.Sprintf("tool name exceeds %d characters", nameLenWarn),
		})
	}
	return out
}

// serializedSize is the byte length of the client-facing projection.
func serializedSize(tool compiler.ToolDefinition) int {
	data, err := json.Marshal(map[string]any{
		"name":        tool.Name,
		"description": tool.Description,
		"inputSchema": tool.InputSchema,
	})
	if err != nil {
		return 0
	}
	return len(data)
}

// Lookup finds a tool by name in the full catalog.
func (c *Catalog) Lookup(name string) (*compiler.ToolDefinition, bool) {
	t, ok := c.byName[name]
	return t, ok
}

// BaseURL returns the base URL for the named service.
func (c *Catalog) BaseURL(service string) string {
	return c.serviceBase[service]
}

// Len returns the number of tools in the catalog, disabled included.
func (c *Catalog) Len() int { return len(c.Tools) }
