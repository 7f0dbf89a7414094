package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/doccollection/collection"
)

var errUsage = errors.New("usage")

func usage(format string) error {
	return fmt.Errorf("%w: %s", errUsage, format)
}

func decode(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return decode(data, v)
}

// List prints one page. Without an argument the default page is listed.
func (a *App) List(ctx context.Context, arg string) error {
	var opts collection.Options
	if arg != "" {
		if err := decode([]byte(arg), &opts); err != nil {
			return err
		}
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	recs, err := a.acc.ListRecords(ctx, opts)
	if err != nil {
		return err
	}
	return a.print(recs)
}

func (a *App) Get(ctx context.Context, arg string) error {
	if arg == "" {
		return usage("get <id>")
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	rec, err := a.acc.GetRecord(ctx, arg)
	if err != nil {
		return err
	}
	if rec == nil {
		printlnFn("not found:", arg)
		return nil
	}
	return a.print(rec)
}

// Create adds one record. With --id the record's own id is used and must
// not exist yet. Without a JSON argument the record is prompted for.
func (a *App) Create(ctx context.Context, arg string) error {
	assignID := false
	if rest, ok := strings.CutPrefix(arg, "--id"); ok {
		assignID = true
		arg = strings.TrimSpace(rest)
	}

	if arg == "" {
		line, err := GetSimpleText(a.reader, "Record JSON", a.out)
		if err != nil {
			return err
		}
		arg = line
	}

	var rec collection.Record
	if err := decode([]byte(arg), &rec); err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	created, err := a.acc.CreateRecord(ctx, rec, assignID)
	if err != nil {
		return err
	}
	return a.print(created)
}

func (a *App) CreateMany(ctx context.Context, arg string) error {
	if arg == "" {
		return usage("create-many <file>")
	}

	var recs []collection.Record
	if err := readJSONFile(arg, &recs); err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.acc.CreateRecords(ctx, recs); err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("submitted %d records", len(recs)))
	return nil
}

func (a *App) Update(ctx context.Context, arg string) error {
	id, raw, _ := strings.Cut(arg, " ")
	raw = strings.TrimSpace(raw)
	if id == "" || raw == "" {
		return usage("update <id> <json>")
	}

	var partial map[string]any
	if err := decode([]byte(raw), &partial); err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	written, err := a.acc.UpdateRecord(ctx, id, partial)
	if err != nil {
		return err
	}
	return a.print(written)
}

func (a *App) UpdateMany(ctx context.Context, arg string) error {
	if arg == "" {
		return usage("update-many <file>")
	}

	var updates []collection.RecordUpdate
	if err := readJSONFile(arg, &updates); err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	written, err := a.acc.UpdateRecords(ctx, updates)
	if err != nil {
		return err
	}
	return a.print(written)
}

func (a *App) Delete(ctx context.Context, arg string) error {
	if arg == "" {
		return usage("delete <id>")
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.acc.DeleteRecord(ctx, arg); err != nil {
		return err
	}
	printlnFn("deleted:", arg)
	return nil
}

// Export runs without the per-command timeout; a large collection takes
// many pages.
func (a *App) Export(ctx context.Context, arg string) error {
	if a.arch == nil {
		return errNoArchive
	}

	pageSize := collection.DefaultLimit
	if arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			return usage("export [pageSize]")
		}
		pageSize = n
	}

	n, err := a.arch.Export(ctx, a.acc, pageSize)
	if err != nil {
		return err
	}
	a.log.Info(ctx, "export finished", "records", n)
	printlnFn(fmt.Sprintf("exported %d records", n))
	return nil
}

func (a *App) Import(ctx context.Context, _ string) error {
	if a.arch == nil {
		return errNoArchive
	}

	n, err := a.arch.Import(ctx, a.acc)
	if err != nil {
		return err
	}
	a.log.Info(ctx, "import finished", "records", n)
	printlnFn(fmt.Sprintf("imported %d records", n))
	return nil
}

func (a *App) Metrics(_ context.Context, _ string) error {
	collection.WritePrometheus(a.out, false)
	return nil
}
