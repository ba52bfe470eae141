package play

import (
	"strings"
)

type commandKind int

const (
	commandSay commandKind = iota
	commandBody
	commandRoom
	commandLab
	commandTalk
	commandLeave
	commandAccuse
	commandQuit
	commandUnknown
)

type command struct {
	kind commandKind
	// suspectID is set for talk and accuse.
	suspectID string
	// text is the message for say and the motive for accuse.
	text string
}

// parseCommand interprets a line typed during the investigation. Lines that do not start with a slash are questions
// for the suspect being interrogated.
func parseCommand(line string) command {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return command{kind: commandSay, suspectID: "", text: line}
	}
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch strings.ToLower(name) {
	case "/body":
		return command{kind: commandBody, suspectID: "", text: ""}
	case "/room":
		return command{kind: commandRoom, suspectID: "", text: ""}
	case "/lab":
		return command{kind: commandLab, suspectID: "", text: ""}
	case "/talk":
		return command{kind: commandTalk, suspectID: rest, text: ""}
	case "/leave":
		return command{kind: commandLeave, suspectID: "", text: ""}
	case "/accuse":
		suspectID, motive, _ := strings.Cut(rest, " ")
		return command{kind: commandAccuse, suspectID: suspectID, text: strings.TrimSpace(motive)}
	case "/quit":
		return command{kind: commandQuit, suspectID: "", text: ""}
	default:
		return command{kind: commandUnknown, suspectID: "", text: name}
	}
}
