package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	calls []string
	fail  map[string]error
}

func (f *fakeExec) record(name, arg string) error {
	f.calls = append(f.calls, strings.TrimSpace(name+" "+arg))
	return f.fail[name]
}

func (f *fakeExec) List(_ context.Context, arg string) error   { return f.record("list", arg) }
func (f *fakeExec) Get(_ context.Context, arg string) error    { return f.record("get", arg) }
func (f *fakeExec) Create(_ context.Context, arg string) error { return f.record("create", arg) }
func (f *fakeExec) CreateMany(_ context.Context, arg string) error {
	return f.record("create-many", arg)
}
func (f *fakeExec) Update(_ context.Context, arg string) error { return f.record("update", arg) }
func (f *fakeExec) UpdateMany(_ context.Context, arg string) error {
	return f.record("update-many", arg)
}
func (f *fakeExec) Delete(_ context.Context, arg string) error  { return f.record("delete", arg) }
func (f *fakeExec) Export(_ context.Context, arg string) error  { return f.record("export", arg) }
func (f *fakeExec) Import(_ context.Context, arg string) error  { return f.record("import", arg) }
func (f *fakeExec) Metrics(_ context.Context, arg string) error { return f.record("metrics", arg) }

func capturePrint(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	origPrint := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = origPrint })
	return &lines
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	out := capturePrint(t)

	input := strings.NewReader(strings.Join([]string{
		"help",
		"",
		`list {"orderOptions": {"field": "age"}}`,
		"get  ann ",
		`create --id {"id": "ann", "name": "Ann"}`,
		"create-many recs.json",
		`update ann {"name": "Anna"}`,
		"update-many ups.json",
		"delete ann",
		"export 50",
		"import",
		"metrics",
		"foobar",
		"exit",
		"list",
	}, "\n"))

	exec := &fakeExec{}
	runREPL(context.Background(), exec, bufio.NewReader(input))

	assert.Equal(t, []string{
		`list {"orderOptions": {"field": "age"}}`,
		"get ann",
		`create --id {"id": "ann", "name": "Ann"}`,
		"create-many recs.json",
		`update ann {"name": "Anna"}`,
		"update-many ups.json",
		"delete ann",
		"export 50",
		"import",
		"metrics",
	}, exec.calls)

	joined := strings.Join(*out, "\n")
	assert.Contains(t, joined, "Available commands:")
	assert.Contains(t, joined, "Error: unknown command: foobar")
	assert.Contains(t, joined, "Bye!")
}

func TestRunREPL_ErrorsDoNotStopTheLoop(t *testing.T) {
	out := capturePrint(t)

	exec := &fakeExec{fail: map[string]error{"get": errors.New("boom")}}
	runREPL(context.Background(), exec, bufio.NewReader(strings.NewReader("get x\ndelete x")))

	assert.Equal(t, []string{"get x", "delete x"}, exec.calls)
	assert.Contains(t, *out, "Error: boom")
}

func TestRunREPL_StopsOnCancelledContext(t *testing.T) {
	capturePrint(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &fakeExec{}
	runREPL(ctx, exec, bufio.NewReader(strings.NewReader("list\n")))

	assert.Empty(t, exec.calls)
}

func TestDispatch(t *testing.T) {
	capturePrint(t)
	exec := &fakeExec{}

	require.NoError(t, dispatch(context.Background(), exec, "   "))
	require.ErrorIs(t, dispatch(context.Background(), exec, "quit"), errQuit)
	require.ErrorIs(t, dispatch(context.Background(), exec, "drop"), errUnknownCommand)
	require.NoError(t, dispatch(context.Background(), exec, "l"))

	assert.Equal(t, []string{"list"}, exec.calls)
}
