package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/recollect"
	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/search"
	"github.com/urfave/cli/v2"
)

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return search.ErrEmptyQuery
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx := c.Context
	engine, err := recollect.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	var monitor search.Monitor
	if c.Bool("verbose") {
		monitor = &search.LogMonitor{Logger: slog.Default()}
	}

	groups := splitList(c.StringSlice("group"))
	if c.Bool("facts") {
		results, err := engine.Searcher().SearchFacts(ctx, search.FactQuery{
			Query:          query,
			Namespaces:     groups,
			MaxFacts:       c.Int("max"),
			CenterNodeUUID: c.String("center"),
		}, monitor)
		if err != nil {
			return err
		}
		printFacts(os.Stdout, results)
		return nil
	}

	results, err := engine.Searcher().SearchNodes(ctx, search.NodeQuery{
		Query:          query,
		Namespaces:     groups,
		MaxNodes:       c.Int("max"),
		CenterNodeUUID: c.String("center"),
		EntityLabel:    c.String("entity"),
	}, monitor)
	if err != nil {
		return err
	}
	printNodes(os.Stdout, results)
	return nil
}

func printNodes(w io.Writer, results []*core.EntityResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No relevant nodes found")
		return
	}
	for i, r := range results {
		e := r.Entity
		fmt.Fprintf(w, "%d. %s [%s] (%.3f)\n", i+1, e.Name, strings.Join(e.Labels, ", "), r.Score)
		if e.Summary != "" {
			fmt.Fprintf(w, "   %s\n", e.Summary)
		}
		fmt.Fprintf(w, "   uuid: %s  group: %s\n", e.UUID, e.Namespace)
	}
}

func printFacts(w io.Writer, results []*core.FactResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No relevant facts found")
		return
	}
	for i, r := range results {
		f := r.Fact
		fmt.Fprintf(w, "%d. %s: %s (%.3f)\n", i+1, f.Relation, f.Fact, r.Score)
		fmt.Fprintf(w, "   uuid: %s  group: %s\n", f.UUID, f.Namespace)
	}
}
