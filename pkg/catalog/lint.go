package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/toolgate/toolgate/pkg/compiler"
	"github.com/xeipuuv/gojsonschema"
)

// Lint checks that every compiled input schema loads as a JSON Schema.
// A schema the validator rejects would also confuse clients that compile
// it, so the failure is surfaced as a WARN diagnostic on the tool.
func (c *Catalog) Lint() {
	for i := range c.Tools {
		tool := &c.Tools[i]
		raw, err := json.Marshal(tool.InputSchema)
		if err != nil {
			tool.Logs = append(tool.Logs, compiler.LogEntry{
				Severity: compiler.SeverityWarn,
				Message:  fmt.Sprintf("input schema not serializable: %v", err),
			})
			continue
		}
		if _, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw)); err != nil {
			tool.Logs = append(tool.Logs, compiler.LogEntry{
				Severity: compiler.SeverityWarn,
				Message:  fmt.Sprintf("input schema failed to compile: %v", err),
			})
		}
	}
}
