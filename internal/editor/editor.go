// Package editor shells out to the external editor and pager collaborators.
package editor

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/term"
)

// Open runs the configured editor on path, attached to the user's terminal,
// and blocks until it exits.
func Open(command, path string) error {
	cmd := exec.Command("/usr/bin/env", command, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor: run %s: %w", command, err)
	}
	return nil
}

// Page displays data through $PAGER (defaulting to less) when stdout is a
// terminal, and prints it directly otherwise.
func Page(data []byte) error {
	if !isTerminal(os.Stdout) {
		_, err := os.Stdout.Write(data)
		return err
	}
	pager := os.Getenv("PAGER")
	if pager == "" {
		pager = "less"
	}
	cmd := exec.Command("/usr/bin/env", pager)
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		// A missing pager should not hide the note.
		_, werr := os.Stdout.Write(data)
		if werr != nil {
			return werr
		}
		return nil
	}
	return nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
