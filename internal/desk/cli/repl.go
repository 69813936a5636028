package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	List(ctx context.Context, args []string) error
	Status(ctx context.Context, args []string) error
	Search(ctx context.Context, args []string) error
	Range(ctx context.Context, args []string) error
	Quick(ctx context.Context, args []string) error
	Clear(ctx context.Context, args []string) error
	Refresh(ctx context.Context, args []string) error
	Authorize(ctx context.Context, args []string) error
	Badge(ctx context.Context, args []string) error
	Checkout(ctx context.Context, args []string) error
	Remove(ctx context.Context, args []string) error
	Pass(ctx context.Context, args []string) error
	Export(ctx context.Context, args []string) error
	Adhoc(ctx context.Context, args []string) error
	Journal(ctx context.Context, args []string) error
}

const helpText = `Available commands:
  (l)ist                        show the board
  status <all|new|checkedIn|checkedOut>
  search [text]                 filter by name or company
  range <from|-> [to|-]         date range, YYYY-MM-DD
  quick <today|yesterday|last7|none>
  clear                         reset every filter
  refresh                       fetch all sources now
  authorize <source> <id>       check a visitor in
  badge <source> <id> [card]    set the badge number
  checkout <source> <id>        check a visitor out
  remove <source> <id>          hide an overdue record
  pass <source> <id>            write the printable pass
  export                        export the board to xlsx
  adhoc                         register walk-in visitors
  journal [source] [id]         show recorded actions
  exit | quit`

// runREPL reads commands from scanner until EOF or "exit"/"quit".
//
// The first token selects the command; the rest are passed as arguments.
// A failing command prints its error and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("desk %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			printlnFn(helpText)
		case "l", "list":
			err = a.List(ctx, args)
		case "status":
			err = a.Status(ctx, args)
		case "search":
			err = a.Search(ctx, args)
		case "range":
			err = a.Range(ctx, args)
		case "quick":
			err = a.Quick(ctx, args)
		case "clear":
			err = a.Clear(ctx, args)
		case "refresh":
			err = a.Refresh(ctx, args)
		case "authorize":
			err = a.Authorize(ctx, args)
		case "badge":
			err = a.Badge(ctx, args)
		case "checkout":
			err = a.Checkout(ctx, args)
		case "remove":
			err = a.Remove(ctx, args)
		case "pass":
			err = a.Pass(ctx, args)
		case "export":
			err = a.Export(ctx, args)
		case "adhoc":
			err = a.Adhoc(ctx, args)
		case "journal":
			err = a.Journal(ctx, args)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}
		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
