// Package gateway binds client sessions to the compiled tool catalog and
// proxies tool invocations to the underlying REST services.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/toolgate/toolgate/pkg/accesslog"
	"github.com/toolgate/toolgate/pkg/catalog"
	"github.com/toolgate/toolgate/pkg/compiler"
	"github.com/toolgate/toolgate/pkg/protocol"
	"github.com/yosida95/uritemplate/v3"
	"go.uber.org/zap"
)

// CallObserver receives one observation per call attempt.
type CallObserver interface {
	ObserveCall(tool string, code int, d time.Duration)
}

// bodyMethods are the HTTP methods the gateway forwards a body for.
var bodyMethods = map[string]bool{"POST": true, "PUT": true, "PATCH": true, "DELETE": true}

// Dispatcher resolves tool calls against the catalog and executes them.
// No timeout is applied to upstream calls at this layer, and an in-flight
// call is not aborted when its session closes.
type Dispatcher struct {
	catalog    *catalog.Catalog
	categories catalog.CategoryMap
	client     *http.Client
	access     accesslog.Writer
	observer   CallObserver
	logger     *zap.Logger
}

func NewDispatcher(cat *catalog.Catalog, categories catalog.CategoryMap, client *http.Client, access accesslog.Writer, observer CallObserver, logger *zap.Logger) *Dispatcher {
	if client == nil {
		client = &http.Client{}
	}
	if access == nil {
		access = accesslog.Nop{}
	}
	return &Dispatcher{
		catalog:    cat,
		categories: categories,
		client:     client,
		access:     access,
		observer:   observer,
		logger:     logger,
	}
}

// List returns the catalog subset visible to the session's bound
// category. With no categories configured at all, the catch-all sees the
// whole catalog.
func (d *Dispatcher) List(sess *Session) []protocol.Tool {
	everything := sess.Category == catalog.CatchAll && len(d.categories) == 0
	visible := d.categories.ToolNames(sess.Category)

	out := make([]protocol.Tool, 0, d.catalog.Len())
	for _, tool := range d.catalog.Tools {
		if tool.Disabled {
			continue
		}
		if !everything && !visible[tool.Name] {
			continue
		}
		out = append(out, protocol.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}
	return out
}

// Call resolves the tool by name in the full catalog — category binding
// gates listing, not invocation — builds the outbound request and
// executes it with the session's credential. Upstream faults come back as
// reported errors inside the result; an unknown or disabled tool is a
// session fault returned as an error.
func (d *Dispatcher) Call(ctx context.Context, sess *Session, name string, args map[string]any) (*protocol.CallToolResult, error) {
	tool, ok := d.catalog.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	if tool.Disabled {
		return nil, fmt.Errorf("%w: %q", ErrToolDisabled, name)
	}

	req, endpoint, err := d.buildRequest(ctx, sess, tool, args)
	if err != nil {
		return protocol.ErrorResult(fmt.Sprintf("request construction failed: %v", err)), nil
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		d.record(tool.Name, endpoint, args, err.Error(), 0, elapsed)
		d.logger.Warn("upstream call failed",
			zap.String("tool", name), zap.String("endpoint", endpoint), zap.Error(err))
		return protocol.ErrorResult(fmt.Sprintf("upstream call failed: %v", err)), nil
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		d.record(tool.Name, endpoint, args, readErr.Error(), resp.StatusCode, elapsed)
		return protocol.ErrorResult(fmt.Sprintf("reading upstream response failed: %v", readErr)), nil
	}

	d.record(tool.Name, endpoint, args, string(body), resp.StatusCode, elapsed)
	d.logger.Debug("tool call completed",
		zap.String("tool", name),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", elapsed))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return protocol.ErrorResult(fmt.Sprintf("upstream returned status %d: %s", resp.StatusCode, string(body))), nil
	}
	return protocol.TextResult(responseText(resp.Header.Get("Content-Type"), body)), nil
}

// buildRequest substitutes path parameters into the path template,
// appends query parameters, and serializes the request body for methods
// that accept one.
func (d *Dispatcher) buildRequest(ctx context.Context, sess *Session, tool *compiler.ToolDefinition, args map[string]any) (*http.Request, string, error) {
	tmpl, err := uritemplate.New(tool.Path)
	if err != nil {
		return nil, "", fmt.Errorf("path template %q: %w", tool.Path, err)
	}

	values := uritemplate.Values{}
	query := url.Values{}
	for _, p := range tool.ExecParams {
		raw, present := args[p.Name]
		if !present {
			continue
		}
		switch p.In {
		case "path":
			values.Set(p.Name, uritemplate.String(cast.ToString(raw)))
		case "query":
			query.Set(p.Name, cast.ToString(raw))
		}
	}

	path, err := tmpl.Expand(values)
	if err != nil {
		return nil, "", fmt.Errorf("expand path template: %w", err)
	}

	endpoint := strings.TrimRight(d.catalog.BaseURL(tool.Service), "/") + path
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var body io.Reader
	contentType := ""
	if bodyMethods[tool.Method] {
		if raw, ok := args["requestBody"]; ok {
			contentType = tool.BodyContentType
			if contentType == "" {
				contentType = "application/json"
			}
			if s, isString := raw.(string); isString && contentType != "application/json" {
				body = strings.NewReader(s)
			} else {
				data, err := json.Marshal(raw)
				if err != nil {
					return nil, "", fmt.Errorf("serialize request body: %w", err)
				}
				body = bytes.NewReader(data)
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, tool.Method, endpoint, body)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if sess.UserAgent != "" {
		req.Header.Set("User-Agent", sess.UserAgent)
	}
	return req, endpoint, nil
}

func (d *Dispatcher) record(tool, endpoint string, payload any, response string, code int, elapsed time.Duration) {
	d.access.Write(accesslog.Record{
		Timestamp:  time.Now(),
		Endpoint:   endpoint,
		Payload:    payload,
		Response:   response,
		ReturnCode: code,
		DurationMS: elapsed.Milliseconds(),
	})
	if d.observer != nil {
		d.observer.ObserveCall(tool, code, elapsed)
	}
}

// responseText returns the upstream body verbatim. A JSON body is parsed
// first so malformed upstream JSON is still delivered, just unparsed.
func responseText(contentType string, body []byte) string {
	if strings.Contains(contentType, "json") {
		var parsed any
		if err := json.Unmarshal(body, &parsed); err == nil {
			if text, err := json.Marshal(parsed); err == nil {
				return string(text)
			}
		}
	}
	return string(body)
}
