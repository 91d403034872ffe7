// Package ux provides the CLI's user-facing output: styled status lines
// on stderr and structured formatters for stdout.
package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Successf prints a styled success line to stderr
func Successf(format string, args ...any) {
	fmt.Fprintln(os.Stderr, successStyle.Render(fmt.Sprintf(format, args...)))
}

// Warnf prints a styled warning line to stderr
func Warnf(format string, args ...any) {
	fmt.Fprintln(os.Stderr, warnStyle.Render(fmt.Sprintf(format, args...)))
}

// Errorf prints a styled error line to stderr
func Errorf(format string, args ...any) {
	fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf(format, args...)))
}

// Formatter writes structured data in a selectable format
type Formatter interface {
	Format(data any) error
}

// NewFormatter creates a formatter for "json", "yaml" or "text"
func NewFormatter(format string, w io.Writer) (Formatter, error) {
	if w == nil {
		w = os.Stdout
	}
	switch format {
	case "json":
		return &jsonFormatter{w: w}, nil
	case "yaml":
		return &yamlFormatter{w: w}, nil
	case "text", "":
		return &textFormatter{w: w}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s (supported: text, json, yaml)", format)
	}
}

type jsonFormatter struct{ w io.Writer }

func (f *jsonFormatter) Format(data any) error {
	enc := json.NewEncoder(f.w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

type yamlFormatter struct{ w io.Writer }

func (f *yamlFormatter) Format(data any) error {
	enc := yaml.NewEncoder(f.w)
	defer enc.Close()
	return enc.Encode(data)
}

type textFormatter struct{ w io.Writer }

func (f *textFormatter) Format(data any) error {
	switch v := data.(type) {
	case string:
		_, err := fmt.Fprintln(f.w, v)
		return err
	case fmt.Stringer:
		_, err := fmt.Fprintln(f.w, v.String())
		return err
	default:
		_, err := fmt.Fprintf(f.w, "%+v\n", v)
		return err
	}
}
