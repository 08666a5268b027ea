package cli

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoSubcommand is returned when no subcommand is provided.
var ErrNoSubcommand = errors.New("missing subcommand: usage: vigil <add|check|list|remove|update> [flags] [path...]")

// ErrNoPaths is returned when a subcommand that needs paths gets none.
var ErrNoPaths = errors.New("no paths provided")

// ErrMissingFlagValue is returned when a flag requires a value but none is provided.
var ErrMissingFlagValue = errors.New("flag requires a value")

// Subcommand represents the CLI subcommand.
type Subcommand string

const (
	SubcommandAdd    Subcommand = "add"
	SubcommandCheck  Subcommand = "check"
	SubcommandList   Subcommand = "list"
	SubcommandRemove Subcommand = "remove"
	SubcommandUpdate Subcommand = "update"
)

// Command represents the parsed CLI input.
type Command struct {
	Subcommand Subcommand
	Paths      []string // Positional path arguments

	StorePath  string // --store <path>
	JSONOutput bool   // --json
	CIMode     bool   // --ci
}

// ParseArgs parses CLI arguments into a Command.
// It expects args to be os.Args[1:] (excluding the program name).
func ParseArgs(args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, ErrNoSubcommand
	}

	var cmd Command
	switch Subcommand(args[0]) {
	case SubcommandAdd, SubcommandCheck, SubcommandList, SubcommandRemove, SubcommandUpdate:
		cmd.Subcommand = Subcommand(args[0])
	default:
		return Command{}, fmt.Errorf("unknown subcommand %q: %w", args[0], ErrNoSubcommand)
	}

	i := 1 // Start after subcommand
	for i < len(args) {
		arg := args[i]

		if strings.HasPrefix(arg, "--") {
			switch strings.TrimPrefix(arg, "--") {
			case "store":
				if i+1 >= len(args) {
					return Command{}, fmt.Errorf("--store: %w", ErrMissingFlagValue)
				}
				i++
				cmd.StorePath = args[i]
			case "json":
				cmd.JSONOutput = true
			case "ci":
				cmd.CIMode = true
			default:
				return Command{}, fmt.Errorf("unknown flag: %s", arg)
			}
			i++
			continue
		}

		cmd.Paths = append(cmd.Paths, arg)
		i++
	}

	// add and remove operate on explicit paths; update without paths
	// means "rebaseline everything".
	switch cmd.Subcommand {
	case SubcommandAdd, SubcommandRemove:
		if len(cmd.Paths) == 0 {
			return Command{}, fmt.Errorf("%s: %w", cmd.Subcommand, ErrNoPaths)
		}
	case SubcommandCheck, SubcommandList:
		if len(cmd.Paths) > 0 {
			return Command{}, fmt.Errorf("%s takes no path arguments", cmd.Subcommand)
		}
	}

	return cmd, nil
}
