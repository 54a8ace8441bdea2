package tui

import "strings"

// Command is a parsed slash command from the input bar.
type Command struct {
	Name string
	Args []string
}

// ParseCommand parses a slash command string. Returns nil if the input
// is not a command.
func ParseCommand(input string) *Command {
	input = strings.TrimSpace(input)
	if input == "" || input[0] != '/' {
		return nil
	}

	parts := strings.Fields(input)
	return &Command{
		Name: strings.TrimPrefix(parts[0], "/"),
		Args: parts[1:],
	}
}
