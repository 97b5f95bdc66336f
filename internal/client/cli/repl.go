package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to.
type execIface interface {
	hasUser() bool
	Use(ctx context.Context, args []string) error
	Register(ctx context.Context) error
	Profile(ctx context.Context) error
	UpdateProfile(ctx context.Context) error
	List(ctx context.Context) error
	Upload(ctx context.Context, args []string) error
	Download(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
}

// runREPL reads one command per line and dispatches it. The loop exits on
// EOF or "exit"/"quit". Handlers report their own errors. Commands that
// prompt read from the same reader, so it must not be wrapped in a scanner.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("sd %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if !a.hasUser() {
			switch cmd {
			case "help", "use", "register", "exit", "quit":
			default:
				printlnFn("No user selected, run: use <user_id> (or register)")
				continue
			}
		}

		switch cmd {
		case "help":
			if a.hasUser() {
				printlnFn("Available commands: (l)s, upload <path>, download <id> [dir], rm <id>, profile, update, use <user_id>, exit")
			} else {
				printlnFn("Available commands: use <user_id>, register, exit")
			}

		case "use":
			_ = a.Use(ctx, args)

		case "register":
			_ = a.Register(ctx)

		case "profile":
			_ = a.Profile(ctx)

		case "update":
			_ = a.UpdateProfile(ctx)

		case "l", "ls", "list":
			_ = a.List(ctx)

		case "upload", "put":
			_ = a.Upload(ctx, args)

		case "download", "get":
			_ = a.Download(ctx, args)

		case "rm", "delete":
			_ = a.Delete(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
