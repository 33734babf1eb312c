// Package loader fetches and parses the OpenAPI documents the catalog is
// compiled from. Documents come from local files, HTTP URLs or the spec
// store depending on configuration.
package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"

	"github.com/toolgate/toolgate/pkg/config"
	"github.com/toolgate/toolgate/pkg/specstore"
)

// ServiceDocument pairs a parsed OpenAPI document with the service it
// describes.
type ServiceDocument struct {
	Service  string
	BaseURL  string
	Doc      *openapi3.T
	LoadedAt time.Time
}

// Loader resolves configured services to parsed documents. Store is nil
// outside database mode.
type Loader struct {
	store  *specstore.Store
	client *http.Client
	logger *zap.Logger
}

func New(store *specstore.Store, logger *zap.Logger) *Loader {
	return &Loader{
		store:  store,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// LoadAll resolves every configured service. A service whose document
// fails to load or parse is skipped with a log entry rather than failing
// the whole startup.
func (l *Loader) LoadAll(ctx context.Context, services []config.ServiceConfig) ([]*ServiceDocument, error) {
	var docs []*ServiceDocument
	for _, svc := range services {
		doc, err := l.load(ctx, svc)
		if err != nil {
			l.logger.Warn("skipping service",
				zap.String("service", svc.Name),
				zap.Error(err))
			continue
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no service documents could be loaded")
	}
	return docs, nil
}

func (l *Loader) load(ctx context.Context, svc config.ServiceConfig) (*ServiceDocument, error) {
	content, err := l.fetch(ctx, svc)
	if err != nil {
		return nil, err
	}
	doc, err := l.parse(ctx, content)
	if err != nil {
		return nil, err
	}
	title := ""
	if doc.Info != nil {
		title = doc.Info.Title
	}
	l.logger.Info("service document loaded",
		zap.String("service", svc.Name),
		zap.String("title", title),
		zap.Int("bytes", len(content)))
	return &ServiceDocument{
		Service:  svc.Name,
		BaseURL:  svc.BaseURL,
		Doc:      doc,
		LoadedAt: time.Now(),
	}, nil
}

func (l *Loader) fetch(ctx context.Context, svc config.ServiceConfig) ([]byte, error) {
	if l.store != nil {
		stored, err := l.store.Get(ctx, svc.Name)
		if err != nil {
			return nil, err
		}
		if !stored.Active {
			return nil, fmt.Errorf("service document %s is inactive", svc.Name)
		}
		return stored.Content, nil
	}
	if strings.HasPrefix(svc.Document, "http://") || strings.HasPrefix(svc.Document, "https://") {
		return l.fetchURL(ctx, svc.Document)
	}
	content, err := os.ReadFile(svc.Document)
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", svc.Document, err)
	}
	return content, nil
}

func (l *Loader) fetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch document %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch document %s: HTTP %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// parse turns raw YAML or JSON into a validated document. Validation
// failures are tolerated so that partially valid documents still compile;
// the compiler reports per-operation problems itself.
func (l *Loader) parse(ctx context.Context, content []byte) (*openapi3.T, error) {
	ldr := openapi3.NewLoader()
	ldr.IsExternalRefsAllowed = false
	doc, err := ldr.LoadFromData(content)
	if err != nil {
		return nil, fmt.Errorf("parse OpenAPI document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		l.logger.Warn("document validation reported problems", zap.Error(err))
	}
	return doc, nil
}
