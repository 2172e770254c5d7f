package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/golfguiders/caddie/internal/app"
	"github.com/golfguiders/caddie/internal/config"
	"github.com/golfguiders/caddie/internal/knowledge"
)

// indexDocument is one JSONL line in the input file.
type indexDocument struct {
	ID       string            `json:"id,omitempty"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// runIndex embeds and stores documents from a JSONL file into one of the
// knowledge collections.
func runIndex(args []string) error {
	fs := flag.NewFlagSet("index", flag.ContinueOnError)
	file := fs.String("file", "", "JSONL file, one document per line")
	collection := fs.String("collection", "courses", "target collection: courses or manual")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("index: -file is required")
	}

	var target string
	switch *collection {
	case "courses":
		target = knowledge.CollectionCourses
	case "manual":
		target = knowledge.CollectionManual
	default:
		return fmt.Errorf("index: unknown collection %q (expected courses or manual)", *collection)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.Logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	f, err := os.Open(*file)
	if err != nil {
		return fmt.Errorf("opening %s: %w", *file, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	// Manual sections can be long; raise the per-line cap to 1 MiB.
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var count, line int
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var doc indexDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("parsing line %d: %w", line, err)
		}
		if doc.Content == "" {
			a.Logger.Warn("skipping document without content", "line", line)
			continue
		}
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}

		if err := a.Knowledge.Add(ctx, knowledge.Document{
			ID:         doc.ID,
			Collection: target,
			Content:    doc.Content,
			Metadata:   doc.Metadata,
		}); err != nil {
			return fmt.Errorf("indexing line %d: %w", line, err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", *file, err)
	}

	total, err := a.Knowledge.Count(ctx, target)
	if err != nil {
		a.Logger.Warn("counting collection", "collection", target, "error", err)
	}

	a.Logger.Info("indexing complete",
		"file", *file,
		"collection", target,
		"indexed", count,
		"total", total,
	)
	return nil
}
