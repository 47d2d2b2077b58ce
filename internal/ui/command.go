package ui

import (
	"errors"
	"fmt"
	"strings"
)

type commandKind int

const (
	cmdSend commandKind = iota
	cmdConnect
	cmdClose
	cmdTab
	cmdJoin
	cmdLeave
	cmdOffer
	cmdAnswer
	cmdAccept
	cmdRelay
	cmdNode
	cmdLock
	cmdHelp
	cmdQuit
)

// command is one parsed input line.
type command struct {
	kind commandKind
	arg  string
}

var errUnknownCommand = errors.New("unknown command")

type commandDef struct {
	kind  commandKind
	usage string
	// arg: 0 none, 1 required, 2 optional
	arg int
}

var commandTable = map[string]commandDef{
	"/connect": {cmdConnect, "/connect <address>", 1},
	"/close":   {cmdClose, "/close [address]", 2},
	"/tab":     {cmdTab, "/tab <n|address>", 1},
	"/join":    {cmdJoin, "/join", 0},
	"/leave":   {cmdLeave, "/leave", 0},
	"/offer":   {cmdOffer, "/offer <address>", 1},
	"/answer":  {cmdAnswer, "/answer <offer>", 1},
	"/accept":  {cmdAccept, "/accept <answer>", 1},
	"/relay":   {cmdRelay, "/relay <url>", 1},
	"/node":    {cmdNode, "/node <url[;url...]>", 1},
	"/lock":    {cmdLock, "/lock", 0},
	"/help":    {cmdHelp, "/help", 0},
	"/quit":    {cmdQuit, "/quit", 0},
}

// parseCommand parses a trimmed input line. Lines without a leading slash are
// messages for the active tab.
func parseCommand(line string) (command, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return command{kind: cmdSend, arg: line}, nil
	}
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	def, ok := commandTable[strings.ToLower(name)]
	if !ok {
		return command{}, fmt.Errorf("%w: %s", errUnknownCommand, name)
	}
	switch {
	case def.arg == 0 && rest != "":
		return command{}, fmt.Errorf("usage: %s", def.usage)
	case def.arg == 1 && rest == "":
		return command{}, fmt.Errorf("usage: %s", def.usage)
	}
	return command{kind: def.kind, arg: rest}, nil
}

func helpText() string {
	return "commands: /connect /close /tab /join /leave /offer /answer /accept /relay /node /lock /quit"
}
