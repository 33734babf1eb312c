// toolgate-import manages the OpenAPI documents stored in the spec store.
// It imports documents from files, lists what is stored and flips the
// active flag, so a gateway restart picks up the change.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"

	"github.com/toolgate/toolgate/pkg/specstore"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set")
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := specstore.Open(ctx, databaseURL, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer store.Close()

	switch os.Args[1] {
	case "import":
		handleImport(ctx, store)
	case "import-dir":
		handleImportDir(ctx, store)
	case "list":
		handleList(ctx, store)
	case "activate":
		handleSetActive(ctx, store, true)
	case "deactivate":
		handleSetActive(ctx, store, false)
	case "delete":
		handleDelete(ctx, store)
	case "help":
		printHelp()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("toolgate-import manages stored OpenAPI documents")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  import <file> [service]   Import one document; service defaults to the file name")
	fmt.Println("  import-dir <dir>          Import every YAML/JSON document in a directory")
	fmt.Println("  list                      List stored documents")
	fmt.Println("  activate <service>        Mark a document active")
	fmt.Println("  deactivate <service>      Mark a document inactive")
	fmt.Println("  delete <service>          Remove a document")
	fmt.Println("")
	fmt.Println("Environment:")
	fmt.Println("  DATABASE_URL              PostgreSQL connection string")
}

func handleImport(ctx context.Context, store *specstore.Store) {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: toolgate-import import <file> [service]")
		os.Exit(1)
	}
	path := os.Args[2]
	service := serviceFromPath(path)
	if len(os.Args) > 3 {
		service = os.Args[3]
	}
	if err := importFile(ctx, store, path, service); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("imported %s as service %q\n", path, service)
}

func handleImportDir(ctx context.Context, store *specstore.Store) {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: toolgate-import import-dir <dir>")
		os.Exit(1)
	}
	entries, err := os.ReadDir(os.Args[2])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	imported := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			continue
		}
		path := filepath.Join(os.Args[2], entry.Name())
		service := serviceFromPath(path)
		if err := importFile(ctx, store, path, service); err != nil {
			fmt.Fprintf(os.Stderr, "skipping %s: %v\n", entry.Name(), err)
			continue
		}
		fmt.Printf("imported %s as service %q\n", entry.Name(), service)
		imported++
	}
	fmt.Printf("\n%d documents imported\n", imported)
}

func importFile(ctx context.Context, store *specstore.Store, path, service string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	doc, err := openapi3.NewLoader().LoadFromData(content)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	title, version := "", ""
	if doc.Info != nil {
		title, version = doc.Info.Title, doc.Info.Version
	}
	format := "yaml"
	if strings.HasPrefix(strings.TrimSpace(string(content)), "{") {
		format = "json"
	}
	return store.Put(ctx, &specstore.ServiceDocument{
		Service: service,
		Title:   title,
		Version: version,
		Content: content,
		Format:  format,
		Active:  true,
	})
}

func handleList(ctx context.Context, store *specstore.Store) {
	docs, err := store.ListActive(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		fmt.Println("no active documents stored")
		return
	}
	fmt.Printf("%-20s %-40s %-10s %-8s %s\n", "Service", "Title", "Version", "Format", "Updated")
	fmt.Println(strings.Repeat("-", 100))
	for _, doc := range docs {
		title := doc.Title
		if len(title) > 38 {
			title = title[:38] + ".."
		}
		fmt.Printf("%-20s %-40s %-10s %-8s %s\n",
			doc.Service, title, doc.Version, doc.Format,
			doc.UpdatedAt.Format("2006-01-02 15:04"))
	}
}

func handleSetActive(ctx context.Context, store *specstore.Store, active bool) {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "usage: toolgate-import %s <service>\n", os.Args[1])
		os.Exit(1)
	}
	if err := store.SetActive(ctx, os.Args[2], active); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("service %q is now active=%v\n", os.Args[2], active)
}

func handleDelete(ctx context.Context, store *specstore.Store) {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: toolgate-import delete <service>")
		os.Exit(1)
	}
	if err := store.Delete(ctx, os.Args[2]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("service %q deleted\n", os.Args[2])
}

func serviceFromPath(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.ToLower(strings.ReplaceAll(name, "_", "-"))
}
