package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/recollect"
	"github.com/poiesic/recollect/ingestion"
	"github.com/urfave/cli/v2"
)

// maxLineSize bounds one JSON Lines record.
const maxLineSize = 16 * 1024 * 1024

// episodeLine is one record of an ingest file. Field names follow the
// add_episode tool arguments.
type episodeLine struct {
	Name              string   `json:"name"`
	Body              any      `json:"episode_body"`
	GroupID           string   `json:"group_id"`
	Source            string   `json:"source"`
	SourceDescription string   `json:"source_description"`
	UUID              string   `json:"uuid"`
	EntityTypes       []string `json:"entity_types"`
}

// readEpisodes parses JSON Lines into submissions. Blank lines are skipped.
// Records without a group_id get defaultGroup.
func readEpisodes(r io.Reader, defaultGroup string) ([]ingestion.Submission, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var subs []ingestion.Submission
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec episodeLine
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if strings.TrimSpace(rec.Name) == "" {
			return nil, fmt.Errorf("line %d: %w", lineNo, ingestion.ErrNameRequired)
		}
		group := rec.GroupID
		if group == "" {
			group = defaultGroup
		}
		subs = append(subs, ingestion.Submission{
			Name:              rec.Name,
			Namespace:         group,
			Body:              rec.Body,
			Format:            rec.Source,
			SourceDescription: rec.SourceDescription,
			UUID:              rec.UUID,
			SchemaSubset:      rec.EntityTypes,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading episodes: %w", err)
	}
	return subs, nil
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one FILE argument")
	}

	var in io.Reader = os.Stdin
	if path := c.Args().First(); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open episodes: %w", err)
		}
		defer f.Close()
		in = f
	}

	var defaultGroup string
	if c.IsSet("group-id") {
		defaultGroup = c.String("group-id")
	}
	subs, err := readEpisodes(in, defaultGroup)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		fmt.Fprintln(os.Stderr, "No episodes to ingest")
		return nil
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

	for _, sub := range subs {
		ack, err := engine.Gateway().Submit(ctx, sub)
		if err != nil {
			return fmt.Errorf("failed to queue episode %q: %w", sub.Name, err)
		}
		slog.Debug(ack.Message, "namespace", ack.Namespace, "uuid", ack.UUID)
	}
	fmt.Fprintf(os.Stderr, "Queued %d episodes, waiting for processing\n", len(subs))

	if err := engine.Queues().Drain(ctx); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Ingestion complete\n")
	return nil
}
