package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/openscreen/openscreen-go/pkg/discovery"
)

// errNoReceiver is returned when no receiver was found or chosen.
var errNoReceiver = errors.New("no cast receiver chosen")

// lineReader is the part of readline.Instance the chooser needs.
type lineReader interface {
	Readline() (string, error)
}

// newPrompt opens an interactive prompt on the terminal.
func newPrompt() (*readline.Instance, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "Enter choice, or 'n' to cancel: ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return rl, nil
}

// chooseReceiver lists receivers on out and reads a choice from in. It
// prompts again on invalid input and returns errNoReceiver on 'n', EOF or
// interrupt.
func chooseReceiver(receivers []discovery.ReceiverInfo, in lineReader, out io.Writer) (discovery.ReceiverInfo, error) {
	if len(receivers) == 0 {
		return discovery.ReceiverInfo{}, errNoReceiver
	}

	fmt.Fprintln(out, "Discovered receivers:")
	for i, r := range receivers {
		fmt.Fprintf(out, "  [%d]: %s\n", i+1, describe(r))
	}

	for {
		line, err := in.Readline()
		if err != nil {
			return discovery.ReceiverInfo{}, errNoReceiver
		}

		input := strings.TrimSpace(line)
		if strings.EqualFold(input, "n") {
			return discovery.ReceiverInfo{}, errNoReceiver
		}
		choice, err := strconv.Atoi(input)
		if err != nil || choice < 1 || choice > len(receivers) {
			fmt.Fprintf(out, "Invalid choice %q, enter 1-%d.\n", input, len(receivers))
			continue
		}
		return receivers[choice-1], nil
	}
}

func describe(r discovery.ReceiverInfo) string {
	ep, err := r.PreferredEndpoint()
	if err != nil {
		return fmt.Sprintf("%s (%s, no usable address)", r.FriendlyName, r.Model)
	}
	return fmt.Sprintf("%s (%s) at %s", r.FriendlyName, r.Model, ep)
}
