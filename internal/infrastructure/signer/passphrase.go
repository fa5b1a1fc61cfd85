package signer

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// PassphraseEnv is checked before prompting.
const PassphraseEnv = "SIGNER_PASSPHRASE"

// TerminalPassphrase returns the passphrase from PassphraseEnv, or asks for it on the
// terminal without echo. It fails when stdin is not a terminal.
func TerminalPassphrase(prompt string) PassphraseFunc {
	return func() (string, error) {
		if v, ok := os.LookupEnv(PassphraseEnv); ok {
			return v, nil
		}
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return "", errors.New("stdin is not a terminal and " + PassphraseEnv + " is not set")
		}
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
}
