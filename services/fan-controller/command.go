package main

import "strings"

// Command is what an inbound payload asks the relay to do.
type Command int

const (
	CommandNone Command = iota
	CommandOff
	CommandOn
)

func (c Command) String() string {
	switch c {
	case CommandOff:
		return "off"
	case CommandOn:
		return "on"
	default:
		return "none"
	}
}

// ParseCommand matches tokens anywhere in the payload, ignoring case.
// "off" is checked first. Anything else is CommandNone, which is a valid
// no-op rather than an error.
func ParseCommand(payload []byte) Command {
	p := strings.ToLower(string(payload))
	switch {
	case strings.Contains(p, "off"):
		return CommandOff
	case strings.Contains(p, "on"):
		return CommandOn
	default:
		return CommandNone
	}
}
