package ui

import (
	"errors"
	"testing"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		line string
		want command
	}{
		{"hello there", command{kind: cmdSend, arg: "hello there"}},
		{"  /connect 0xAbC  ", command{kind: cmdConnect, arg: "0xAbC"}},
		{"/close", command{kind: cmdClose}},
		{"/close 0xabc", command{kind: cmdClose, arg: "0xabc"}},
		{"/TAB 2", command{kind: cmdTab, arg: "2"}},
		{"/join", command{kind: cmdJoin}},
		{"/answer  blob-with-spaces? no", command{kind: cmdAnswer, arg: "blob-with-spaces? no"}},
		{"/node http://a;http://b", command{kind: cmdNode, arg: "http://a;http://b"}},
		{"/lock", command{kind: cmdLock}},
		{"/quit", command{kind: cmdQuit}},
	}
	for _, tc := range cases {
		got, err := parseCommand(tc.line)
		if err != nil {
			t.Fatalf("parseCommand(%q): %v", tc.line, err)
		}
		if got != tc.want {
			t.Fatalf("parseCommand(%q) = %+v, want %+v", tc.line, got, tc.want)
		}
	}
}

func TestParseCommand_Errors(t *testing.T) {
	if _, err := parseCommand("/nope"); !errors.Is(err, errUnknownCommand) {
		t.Fatalf("want errUnknownCommand, got %v", err)
	}
	for _, line := range []string{"/connect", "/offer  ", "/join now", "/relay", "/lock now"} {
		if _, err := parseCommand(line); err == nil {
			t.Fatalf("parseCommand(%q): want usage error", line)
		}
	}
}
