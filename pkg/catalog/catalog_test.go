package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolgate/toolgate/pkg/compiler"
)

func tool(name, method string) compiler.ToolDefinition {
	return compiler.ToolDefinition{
		Name:        name,
		Method:      method,
		Path:        "/" + name,
		Description: "does " + name,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
	}
}

func hasLog(logs []compiler.LogEntry, sev compiler.Severity, substr string) bool {
	for _, entry := range logs {
		if entry.Severity == sev && strings.Contains(entry.Message, substr) {
			return true
		}
	}
	return false
}

func TestAccessPolicy(t *testing.T) {
	readOnly := AccessPolicy{}
	assert.True(t, readOnly.Allows("GET"))
	assert.True(t, readOnly.Allows("HEAD"))
	assert.True(t, readOnly.Allows("OPTIONS"))
	assert.False(t, readOnly.Allows("POST"))
	assert.False(t, readOnly.Allows("DELETE"))

	writable := AccessPolicy{AllowWriteOperations: true}
	assert.True(t, writable.Allows("POST"))
	assert.True(t, writable.Allows("DELETE"))
}

func TestAggregateStampsServiceAndBaseURL(t *testing.T) {
	cat := Aggregate([]Service{
		{Name: "widgets", BaseURL: "https://widgets.example.com", Tools: []compiler.ToolDefinition{tool("listWidgets", "GET")}},
		{Name: "orders", BaseURL: "https://orders.example.com", Tools: []compiler.ToolDefinition{tool("listOrders", "GET")}},
	}, AccessPolicy{})

	require.Equal(t, 2, cat.Len())
	lw, ok := cat.Lookup("listWidgets")
	require.True(t, ok)
	assert.Equal(t, "widgets", lw.Service)
	assert.Equal(t, "https://widgets.example.com", cat.BaseURL("widgets"))
	assert.Equal(t, "https://orders.example.com", cat.BaseURL("orders"))
}

func TestAggregateDisablesWritesUnderReadOnlyPolicy(t *testing.T) {
	cat := Aggregate([]Service{
		{Name: "svc", BaseURL: "http://svc", Tools: []compiler.ToolDefinition{
			tool("listWidgets", "GET"),
			tool("createWidget", "POST"),
		}},
	}, AccessPolicy{})

	require.Equal(t, 2, cat.Len())
	create, ok := cat.Lookup("createWidget")
	require.True(t, ok)
	assert.True(t, create.Disabled)
	assert.True(t, hasLog(create.Logs, compiler.SeverityInfo, "disabled by access policy: method POST not allowed"))

	list, ok := cat.Lookup("listWidgets")
	require.True(t, ok)
	assert.False(t, list.Disabled)
}

func TestAggregateDeduplicatesAcrossServices(t *testing.T) {
	cat := Aggregate([]Service{
		{Name: "first", BaseURL: "http://first", Tools: []compiler.ToolDefinition{tool("search", "GET")}},
		{Name: "second", BaseURL: "http://second", Tools: []compiler.ToolDefinition{tool("search", "GET")}},
	}, AccessPolicy{})

	require.Equal(t, 2, cat.Len())
	_, ok := cat.Lookup("search")
	require.True(t, ok)
	renamed, ok := cat.Lookup("search2")
	require.True(t, ok)
	assert.Equal(t, "second", renamed.Service)
	assert.True(t, hasLog(renamed.Logs, compiler.SeverityWarn, "already in catalog"))
}

func TestAggregateNameLengthDiagnostics(t *testing.T) {
	warnName := strings.Repeat("a", nameLenWarn+1)
	errName := strings.Repeat("b", nameLenErr+1)
	okName := strings.Repeat("c", nameLenWarn)

	cat := Aggregate([]Service{
		{Name: "svc", BaseURL: "http://svc", Tools: []compiler.ToolDefinition{
			tool(warnName, "GET"),
			tool(errName, "GET"),
			tool(okName, "GET"),
		}},
	}, AccessPolicy{})

	w, _ := cat.Lookup(warnName)
	require.NotNil(t, w)
	assert.True(t, hasLog(w.Logs, compiler.SeverityWarn, "exceeds 40 characters"))

	e, _ := cat.Lookup(errName)
	require.NotNil(t, e)
	assert.True(t, hasLog(e.Logs, compiler.SeverityErr, "exceeds 64 characters"))

	o, _ := cat.Lookup(okName)
	require.NotNil(t, o)
	assert.False(t, hasLog(o.Logs, compiler.SeverityWarn, "exceeds"))
	assert.False(t, hasLog(o.Logs, compiler.SeverityErr, "exceeds"))
}

func TestAggregateDeprecatedDiagnostic(t *testing.T) {
	old := tool("oldOp", "GET")
	old.Deprecated = true

	cat := Aggregate([]Service{
		{Name: "svc", BaseURL: "http://svc", Tools: []compiler.ToolDefinition{old}},
	}, AccessPolicy{})

	got, ok := cat.Lookup("oldOp")
	require.True(t, ok)
	assert.True(t, hasLog(got.Logs, compiler.SeverityInfo, "deprecated"))
}

func TestAggregateSortsBySizeDescending(t *testing.T) {
	small := tool("small", "GET")
	big := tool("big", "GET")
	big.Description = strings.Repeat("long description ", 50)

	cat := Aggregate([]Service{
		{Name: "svc", BaseURL: "http://svc", Tools: []compiler.ToolDefinition{small, big}},
	}, AccessPolicy{})

	require.Equal(t, 2, cat.Len())
	assert.Equal(t, "big", cat.Tools[0].Name)
	assert.Equal(t, "small", cat.Tools[1].Name)
	assert.Greater(t, cat.Tools[0].Size, cat.Tools[1].Size)
}

func TestAggregateSizeTieBreaksOnName(t *testing.T) {
	// Same description and schema, names of equal length.
	a := tool("aaaa", "GET")
	b := tool("bbbb", "GET")
	a.Description = "same"
	b.Description = "same"
	a.Path = "/x"
	b.Path = "/x"

	cat := Aggregate([]Service{
		{Name: "svc", BaseURL: "http://svc", Tools: []compiler.ToolDefinition{b, a}},
	}, AccessPolicy{})

	require.Equal(t, 2, cat.Len())
	assert.Equal(t, cat.Tools[0].Size, cat.Tools[1].Size)
	assert.Equal(t, "aaaa", cat.Tools[0].Name)
	assert.Equal(t, "bbbb", cat.Tools[1].Name)
}

func TestLintFlagsUncompilableSchema(t *testing.T) {
	bad := tool("badSchema", "GET")
	bad.InputSchema = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": 42},
		},
	}
	good := tool("goodSchema", "GET")

	cat := Aggregate([]Service{
		{Name: "svc", BaseURL: "http://svc", Tools: []compiler.ToolDefinition{bad, good}},
	}, AccessPolicy{})
	cat.Lint()

	b, _ := cat.Lookup("badSchema")
	require.NotNil(t, b)
	assert.True(t, hasLog(b.Logs, compiler.SeverityWarn, "schema"))

	g, _ := cat.Lookup("goodSchema")
	require.NotNil(t, g)
	assert.False(t, hasLog(g.Logs, compiler.SeverityWarn, "schema"))
}

func TestCategoryMap(t *testing.T) {
	m := CategoryMap{
		"billing": {"listInvoices", "payInvoice"},
		"search":  {"search"},
	}

	assert.True(t, m.Has("billing"))
	assert.True(t, m.Has(CatchAll))
	assert.False(t, m.Has("unknown"))

	billing := m.ToolNames("billing")
	assert.True(t, billing["listInvoices"])
	assert.True(t, billing["payInvoice"])
	assert.False(t, billing["search"])

	union := m.ToolNames(CatchAll)
	assert.Len(t, union, 3)
	assert.True(t, union["search"])
}

func TestCategoryMapEmpty(t *testing.T) {
	var m CategoryMap
	assert.True(t, m.Has(CatchAll))
	assert.Empty(t, m.ToolNames(CatchAll))
	assert.Empty(t, m.ToolNames("anything"))
}
