package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var errPasswordMismatch = errors.New("passwords do not match")

// readSecret reads one secret, from the terminal without echo or, with
// --password-stdin, as the next line of stdin.
func (a *app) readSecret(prompt string) (string, error) {
	if a.passwordStdin {
		line, err := a.in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("read %s from stdin: %w", strings.ToLower(prompt), err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	fmt.Fprint(a.errOut, prompt+": ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(a.errOut)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(prompt), err)
	}
	return string(pw), nil
}

// readNewSecret asks twice on a terminal so a typo does not lock anyone out.
func (a *app) readNewSecret(prompt string) (string, error) {
	pw, err := a.readSecret(prompt)
	if err != nil || a.passwordStdin {
		return pw, err
	}
	again, err := a.readSecret("Repeat " + strings.ToLower(prompt))
	if err != nil {
		return "", err
	}
	if pw != again {
		return "", errPasswordMismatch
	}
	return pw, nil
}
