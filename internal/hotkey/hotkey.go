// Package hotkey provides single-key controls for live capture. The keyboard
// is an optional collaborator: when stdin is not a terminal, capture simply
// runs without interactive marking.
package hotkey

import (
	"os"

	"golang.org/x/term"
)

// Available reports whether hotkey input can be read from stdin.
func Available() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Listen puts the terminal into raw mode and invokes onMark for space and
// onStop for q or Ctrl-C. The returned function restores the terminal; it
// must be called before the process writes its final output.
func Listen(onMark, onStop func()) (restore func(), err error) {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}

	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n == 0 {
				continue
			}
			switch buf[0] {
			case ' ':
				onMark()
			case 'q', 'Q', 3: // 3 = Ctrl-C in raw mode
				onStop()
				return
			}
		}
	}()

	return func() { _ = term.Restore(fd, oldState) }, nil
}
