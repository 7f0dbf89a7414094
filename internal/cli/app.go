package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/dmitrijs2005/doccollection/archive"
	"github.com/dmitrijs2005/doccollection/collection"
	"github.com/dmitrijs2005/doccollection/internal/logging"
)

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

var errNoArchive = errors.New("object storage is not configured")

// Archiver moves a collection to and from object storage. *archive.Archive
// satisfies it.
type Archiver interface {
	Export(ctx context.Context, c archive.Collection, pageSize int) (int, error)
	Import(ctx context.Context, c archive.Collection) (int, error)
}

// App runs commands against one collection.
type App struct {
	acc     *collection.Accessor
	arch    Archiver
	log     logging.Logger
	timeout time.Duration
	out     io.Writer
	pretty  bool
	reader  *bufio.Reader
}

// NewApp returns an App reading stdin and writing stdout. arch may be nil,
// in which case export and import fail. A zero timeout disables the
// per-command deadline.
func NewApp(acc *collection.Accessor, arch Archiver, log logging.Logger, timeout time.Duration) *App {
	return &App{
		acc:     acc,
		arch:    arch,
		log:     log,
		timeout: timeout,
		out:     os.Stdout,
		pretty:  isTerminal(int(os.Stdout.Fd())),
		reader:  bufio.NewReader(os.Stdin),
	}
}

// Run starts the REPL and returns when the input ends or the user quits.
func (a *App) Run(ctx context.Context) {
	a.log.Info(ctx, "collectionctl started", "collection", a.acc.Name(), "multi_type", a.acc.MultiType())
	printlnFn(fmt.Sprintf("collection %q, type help for commands", a.acc.Name()))
	runREPL(ctx, a, a.reader)
}

// Exec runs a single command line, as given on the command line.
func (a *App) Exec(ctx context.Context, line string) error {
	if err := dispatch(ctx, a, line); err != nil && !errors.Is(err, errQuit) {
		return err
	}
	return nil
}

func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

// print writes v as JSON, indented when stdout is a terminal.
func (a *App) print(v any) error {
	var (
		b   []byte
		err error
	)
	if a.pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(b))
	return err
}
