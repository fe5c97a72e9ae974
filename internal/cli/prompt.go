package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// prompter reads answers for interactive setup.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) readLine() (string, error) {
	input, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// String asks for a value, returning def on an empty answer.
func (p *prompter) String(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	input, err := p.readLine()
	if err != nil {
		return "", err
	}
	if input == "" {
		return def, nil
	}
	return input, nil
}

// Required asks until a non-empty value is given.
func (p *prompter) Required(label string) (string, error) {
	for {
		fmt.Fprintf(p.out, "%s (required): ", label)
		input, err := p.readLine()
		if err != nil {
			return "", err
		}
		if input != "" {
			return input, nil
		}
		fmt.Fprintf(p.out, "  Error: %s is required\n", strings.ToLower(label))
	}
}

// Int asks for an integer in [min, max], repeating on invalid input.
func (p *prompter) Int(label string, def, min, max int) (int, error) {
	for {
		fmt.Fprintf(p.out, "%s [%d]: ", label, def)
		input, err := p.readLine()
		if err != nil {
			return 0, err
		}
		if input == "" {
			return def, nil
		}
		v, err := strconv.Atoi(input)
		if err == nil && v >= min && v <= max {
			return v, nil
		}
		fmt.Fprintf(p.out, "  Error: enter a number between %d and %d\n", min, max)
	}
}

// YesNo asks a yes/no question; an empty answer is no.
func (p *prompter) YesNo(label string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N]: ", label)
	input, err := p.readLine()
	if err != nil {
		return false, err
	}
	input = strings.ToLower(input)
	return input == "y" || input == "yes", nil
}

// promptSecret reads a value from the terminal without echo.
// Off a terminal the value is read as a plain line from stdin.
func promptSecret(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return newPrompter(os.Stdin, io.Discard).readLine()
	}
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(secret)), nil
}
