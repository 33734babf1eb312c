// toolgate-inspect compiles the catalog from a gateway configuration and
// opens an interactive prompt for examining what clients would see,
// without starting the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"github.com/toolgate/toolgate/pkg/catalog"
	"github.com/toolgate/toolgate/pkg/compiler"
	"github.com/toolgate/toolgate/pkg/config"
	"github.com/toolgate/toolgate/pkg/loader"
	"github.com/toolgate/toolgate/pkg/specstore"
)

func main() {
	configPath := flag.String("config", "toolgate.yaml", "path to configuration file")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	cat, categories, err := buildCatalog(logger, *configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "toolgate> ",
		InterruptPrompt: "^C",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Printf("%d tools compiled. Type \"help\" for commands.\n", cat.Len())

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "list":
			cmdList(cat)
		case "show":
			if len(fields) < 2 {
				fmt.Println("usage: show <tool>")
				continue
			}
			cmdShow(cat, fields[1])
		case "diags":
			cmdDiags(cat, fields[1:])
		case "categories":
			cmdCategories(cat, categories)
		case "help":
			fmt.Println("commands: list, show <tool>, diags [tool], categories, quit")
		case "quit", "exit":
			return
		default:
			fmt.Printf("unknown command %q, type \"help\"\n", fields[0])
		}
	}
}

func buildCatalog(logger *zap.Logger, configPath string) (*catalog.Catalog, catalog.CategoryMap, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	ctx := context.Background()
	var store *specstore.Store
	if cfg.DatabaseMode() {
		store, err = specstore.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		defer store.Close()
	}

	docs, err := loader.New(store, logger).LoadAll(ctx, cfg.Services)
	if err != nil {
		return nil, nil, err
	}

	opts := compiler.Options{DefaultInclude: cfg.IncludeByDefault}
	services := make([]catalog.Service, 0, len(docs))
	for _, doc := range docs {
		services = append(services, catalog.Service{
			Name:    doc.Service,
			BaseURL: doc.BaseURL,
			Tools:   compiler.Compile(doc.Doc, opts),
		})
	}
	cat := catalog.Aggregate(services, catalog.AccessPolicy{
		AllowWriteOperations: cfg.AllowWriteOperations,
	})
	cat.Lint()
	return cat, catalog.CategoryMap(cfg.Categories), nil
}

func cmdList(cat *catalog.Catalog) {
	fmt.Printf("%-40s %-15s %-7s %-6s %s\n", "Tool", "Service", "Method", "Size", "Status")
	fmt.Println(strings.Repeat("-", 90))
	for _, tool := range cat.Tools {
		status := "active"
		if tool.Disabled {
			status = "disabled"
		}
		fmt.Printf("%-40s %-15s %-7s %-6d %s\n",
			tool.Name, tool.Service, tool.Method, tool.Size, status)
	}
}

func cmdShow(cat *catalog.Catalog, name string) {
	tool, ok := cat.Lookup(name)
	if !ok {
		fmt.Printf("no tool named %q\n", name)
		return
	}
	fmt.Printf("name:        %s\n", tool.Name)
	fmt.Printf("service:     %s\n", tool.Service)
	fmt.Printf("operation:   %s %s\n", tool.Method, tool.Path)
	fmt.Printf("description: %s\n", tool.Description)
	fmt.Printf("size:        %d bytes\n", tool.Size)
	fmt.Printf("disabled:    %v\n", tool.Disabled)
	schema, err := json.MarshalIndent(tool.InputSchema, "", "  ")
	if err == nil {
		fmt.Printf("inputSchema:\n%s\n", schema)
	}
}

func cmdDiags(cat *catalog.Catalog, args []string) {
	for _, tool := range cat.Tools {
		if len(args) > 0 && tool.Name != args[0] {
			continue
		}
		for _, entry := range tool.Logs {
			fmt.Printf("%-5s %-40s %s\n", entry.Severity, tool.Name, entry.Message)
		}
	}
}

func cmdCategories(cat *catalog.Catalog, categories catalog.CategoryMap) {
	if len(categories) == 0 {
		fmt.Println("no categories configured; every session sees the full catalog")
		return
	}
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%s: %s\n", name, strings.Join(categories[name], ", "))
	}
	fmt.Printf("%s: every tool listed above\n", catalog.CatchAll)
}
