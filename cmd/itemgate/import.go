package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sagarc03/itemgate"
	"github.com/sagarc03/itemgate/config"
	"github.com/sagarc03/itemgate/database"
)

var importCmd = &cobra.Command{
	Use:   "import [flags] <file.json> [file2.json] ...",
	Short: "Import items from JSON files",
	Long: `Import items into the items table straight from JSON files.

Each file holds either a single JSON object or an array of objects.
By default every object becomes a new item with a generated id. With
--keep-ids an object's "id" field is used as the item id and the
object is merge-written onto any existing item.

Examples:
  # Import a single file
  itemgate import items.json

  # Import every .json file below a directory
  itemgate import -r ./seed

  # Keep ids and skip items that already exist
  itemgate import --keep-ids --no-clobber items.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

var (
	importRecursive bool
	importKeepIDs   bool
	importNoClobber bool
	importQuiet     bool
)

func init() {
	importCmd.Flags().BoolVarP(&importRecursive, "recursive", "r", false, "recursively import .json files from directories")
	importCmd.Flags().BoolVar(&importKeepIDs, "keep-ids", false, `use each object's "id" field as the item id`)
	importCmd.Flags().BoolVarP(&importNoClobber, "no-clobber", "n", false, "skip items whose id already exists (requires --keep-ids)")
	importCmd.Flags().BoolVarP(&importQuiet, "quiet", "q", false, "suppress per-item output")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	if importNoClobber && !importKeepIDs {
		return errors.New("--no-clobber requires --keep-ids")
	}

	ctx := cmd.Context()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	var files []string
	for _, arg := range args {
		found, collectErr := collectJSONFiles(arg, importRecursive)
		if collectErr != nil {
			return fmt.Errorf("collect files from %s: %w", arg, collectErr)
		}
		files = append(files, found...)
	}

	if len(files) == 0 {
		slog.Info("no files to import")
		return nil
	}

	imp := importer{items: db.Items(), keepIDs: importKeepIDs, noClobber: importNoClobber, quiet: importQuiet}
	for _, path := range files {
		if err := imp.importFile(ctx, path); err != nil {
			return err
		}
	}

	slog.Info("import complete", "files", len(files), "added", imp.added, "skipped", imp.skipped)
	return nil
}

type importer struct {
	items     itemgate.DocumentStore
	keepIDs   bool
	noClobber bool
	quiet     bool

	added   int
	skipped int
}

func (imp *importer) importFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	objects, err := decodeObjects(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	for i, fields := range objects {
		if err := imp.importOne(ctx, fields); err != nil {
			return fmt.Errorf("import %s[%d]: %w", path, i, err)
		}
	}
	return nil
}

func (imp *importer) importOne(ctx context.Context, fields itemgate.Fields) error {
	if !imp.keepIDs {
		id, err := imp.items.Add(ctx, fields)
		if err != nil {
			return err
		}
		imp.added++
		if !imp.quiet {
			slog.Info("added", "id", id)
		}
		return nil
	}

	id, _ := fields["id"].(string)
	if !itemgate.IsValidItemID(id) {
		return fmt.Errorf("%w: missing or invalid id field", itemgate.ErrInvalidInput)
	}
	delete(fields, "id")

	if imp.noClobber {
		_, err := imp.items.Get(ctx, id)
		if err == nil {
			imp.skipped++
			if !imp.quiet {
				slog.Info("skipped (exists)", "id", id)
			}
			return nil
		}
		if !errors.Is(err, itemgate.ErrNotFound) {
			return err
		}
	}

	if err := imp.items.Merge(ctx, id, fields); err != nil {
		return err
	}
	imp.added++
	if !imp.quiet {
		slog.Info("merged", "id", id)
	}
	return nil
}

// decodeObjects accepts a single JSON object or an array of objects.
func decodeObjects(data []byte) ([]itemgate.Fields, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	if trimmed[0] == '[' {
		var objects []itemgate.Fields
		if err := dec.Decode(&objects); err != nil {
			return nil, err
		}
		for i, obj := range objects {
			if obj == nil {
				return nil, fmt.Errorf("element %d is not an object", i)
			}
		}
		return objects, nil
	}

	var obj itemgate.Fields
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("not a JSON object")
	}
	return []itemgate.Fields{obj}, nil
}

// collectJSONFiles returns path itself for a file, or the .json files below
// it for a directory when recursive is set.
func collectJSONFiles(path string, recursive bool) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	if !recursive {
		return nil, fmt.Errorf("%s is a directory (use -r to import recursively)", path)
	}

	var files []string
	walkErr := filepath.WalkDir(path, func(walkPath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(walkPath), ".json") {
			return nil
		}
		files = append(files, walkPath)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return files, nil
}
