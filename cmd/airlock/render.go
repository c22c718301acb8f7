package main

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

var moneyPrinter = message.NewPrinter(language.English)

// formatAmount renders a monetary value with thousands separators and the
// currency code when one is known.
func formatAmount(amount float64, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		return moneyPrinter.Sprintf("%.2f", amount)
	}
	return moneyPrinter.Sprintf("%.2f %s", amount, code)
}

// colorizeTrust wraps a trust level in its traffic-light color when the
// output is an interactive terminal.
func colorizeTrust(level string, colorize bool) string {
	if !colorize {
		return level
	}
	switch level {
	case "GREEN":
		return ansiGreen + level + ansiReset
	case "YELLOW":
		return ansiYellow + level + ansiReset
	case "RED":
		return ansiRed + level + ansiReset
	default:
		return level
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func truncate(value string, max int) string {
	if max <= 3 || len(value) <= max {
		return value
	}
	return value[:max-3] + "..."
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
