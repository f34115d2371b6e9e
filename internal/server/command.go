package server

import "strings"

// CommandKind classifies one line of client input.
type CommandKind int

const (
	// CommandEmpty is a blank line; it produces no output.
	CommandEmpty CommandKind = iota
	// CommandQuit ends the session.
	CommandQuit
	// CommandWhisper routes Text to the single client named by Target.
	CommandWhisper
	// CommandBroadcast routes Text to every registered client.
	CommandBroadcast
)

// Command is a parsed client input line.
type Command struct {
	Kind   CommandKind
	Target string
	Text   string
	// Valid is false for a whisper missing its target or message.
	Valid bool
}

// ParseCommand trims line and classifies it. A whisper is split on its first
// two spaces only, so the message keeps any spaces it contains.
func ParseCommand(line string) Command {
	line = strings.TrimSpace(line)

	switch {
	case line == "":
		return Command{Kind: CommandEmpty, Valid: true}
	case line == QuitCommand:
		return Command{Kind: CommandQuit, Valid: true}
	case strings.HasPrefix(line, whisperPrefix):
		parts := strings.SplitN(line, " ", 3)
		if len(parts) < 3 || parts[1] == "" || parts[2] == "" {
			return Command{Kind: CommandWhisper}
		}
		return Command{Kind: CommandWhisper, Target: parts[1], Text: parts[2], Valid: true}
	default:
		return Command{Kind: CommandBroadcast, Text: line, Valid: true}
	}
}
