// pkg/cli/shell.go
package cli

import (
	"strings"

	"github.com/peterh/liner"
)

// Shell prompts for and reads one line at a time, backed by a real line
// editor (history, basic emacs-style bindings) rather than a raw bufio
// reader, since commands here are single-line and need no multi-line
// statement assembly.
type Shell struct {
	line   *liner.State
	prompt string
}

// NewShell returns a Shell that prompts with prompt.
func NewShell(prompt string) *Shell {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	return &Shell{line: line, prompt: prompt}
}

// ReadLine prompts and reads a single trimmed line. eof is true on Ctrl-D
// or Ctrl-C, in which case text is empty.
func (s *Shell) ReadLine() (text string, eof bool) {
	raw, err := s.line.Prompt(s.prompt)
	if err != nil {
		return "", true
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		s.line.AppendHistory(trimmed)
	}
	return trimmed, false
}

// Close releases the underlying line editor.
func (s *Shell) Close() error {
	return s.line.Close()
}
