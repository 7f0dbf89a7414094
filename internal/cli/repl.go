package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

const prompt = "collectionctl> "

const helpText = `Available commands:
  list [options-json]        list records (default: first page by id)
  get <id>                   show one record
  create [--id] <json>       create a record; --id keeps the record's id
  create-many <file>         bulk-create records from a JSON array file
  update <id> <json>         update allowed fields of one record
  update-many <file>         atomically apply a JSON array of {id, data}
  delete <id>                delete a record
  export [pageSize]          write the collection to object storage
  import                     load the collection from object storage
  metrics                    print operation counters
  exit | quit                leave the program`

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	List(ctx context.Context, arg string) error
	Get(ctx context.Context, arg string) error
	Create(ctx context.Context, arg string) error
	CreateMany(ctx context.Context, arg string) error
	Update(ctx context.Context, arg string) error
	UpdateMany(ctx context.Context, arg string) error
	Delete(ctx context.Context, arg string) error
	Export(ctx context.Context, arg string) error
	Import(ctx context.Context, arg string) error
	Metrics(ctx context.Context, arg string) error
}

var errUnknownCommand = errors.New("unknown command")

// errQuit is returned by dispatch for exit and quit.
var errQuit = errors.New("quit")

// dispatch runs one command line. Blank lines are a no-op.
func dispatch(ctx context.Context, a execIface, line string) error {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "":
		return nil
	case "help":
		printlnFn(helpText)
		return nil
	case "l", "list":
		return a.List(ctx, arg)
	case "get":
		return a.Get(ctx, arg)
	case "create":
		return a.Create(ctx, arg)
	case "create-many":
		return a.CreateMany(ctx, arg)
	case "update":
		return a.Update(ctx, arg)
	case "update-many":
		return a.UpdateMany(ctx, arg)
	case "delete":
		return a.Delete(ctx, arg)
	case "export":
		return a.Export(ctx, arg)
	case "import":
		return a.Import(ctx, arg)
	case "metrics":
		return a.Metrics(ctx, arg)
	case "exit", "quit":
		return errQuit
	}
	return fmt.Errorf("%w: %s", errUnknownCommand, cmd)
}

// runREPL reads lines from reader until EOF, exit or quit, dispatching each
// to a. Command errors are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}

		printlnFn(prompt)
		line, err := readLine(reader)
		if err != nil && !errors.Is(err, io.EOF) {
			printlnFn("Error:", err)
			return
		}
		eof := errors.Is(err, io.EOF)

		switch err := dispatch(ctx, a, line); {
		case errors.Is(err, errQuit):
			printlnFn("Bye!")
			return
		case err != nil:
			printlnFn("Error:", err)
		}

		if eof {
			return
		}
	}
}
