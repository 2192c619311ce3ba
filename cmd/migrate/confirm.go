package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var errDownNotConfirmed = errors.New("rollback not confirmed")

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// confirmDown asks the operator before a rollback. Input that is not a
// terminal cannot answer, so it must pass --yes instead.
func confirmDown(in io.Reader, out io.Writer, interactive bool, target int64) error {
	if !interactive {
		return fmt.Errorf("%w: stdin is not a terminal, pass --yes", errDownNotConfirmed)
	}
	what := "the latest migration"
	if target > 0 {
		what = fmt.Sprintf("every migration above version %d", target)
	}
	fmt.Fprintf(out, "Roll back %s? Data in dropped tables is lost. [y/N] ", what)

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	default:
		return errDownNotConfirmed
	}
}
