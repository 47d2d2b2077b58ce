package session

import "testing"

type unknownCommand struct{}

func (unknownCommand) command() {}

func TestApply_UnknownCommandPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Apply accepted a command outside the closed set")
		}
	}()
	s := NewState("0xself")
	_ = s.Apply(unknownCommand{})
}
