package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dvloznov/transactiondb/internal/domain"
)

var (
	// Color styles for terminal output
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorInfo    = lipgloss.Color("#3B82F6")
	colorMuted   = lipgloss.Color("#6B7280")
	colorPrimary = lipgloss.Color("#7C3AED")

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(colorInfo)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	primaryStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)

	inflowStyle  = lipgloss.NewStyle().Foreground(colorSuccess)
	outflowStyle = lipgloss.NewStyle().Foreground(colorError)
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Print(successStyle.Render("✓ "))
	fmt.Printf(format+"\n", args...)
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Print(warningStyle.Render("⚠ "))
	fmt.Printf(format+"\n", args...)
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Print(errorStyle.Render("✗ "))
	fmt.Printf(format+"\n", args...)
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Print(infoStyle.Render("ℹ "))
	fmt.Printf(format+"\n", args...)
}

// Muted prints a muted message
func Muted(format string, args ...interface{}) {
	fmt.Println(mutedStyle.Render(fmt.Sprintf(format, args...)))
}

// Section prints a section header
func Section(title string) {
	fmt.Println()
	fmt.Println(primaryStyle.Render(title))
	fmt.Println(mutedStyle.Render(strings.Repeat("═", lipgloss.Width(title))))
	fmt.Println()
}

// Amount renders a formatted amount, green for inflows and red for outflows.
func Amount(amount float64, currency string) string {
	s := domain.FormatCurrency(amount, currency)
	switch {
	case amount > 0:
		return inflowStyle.Render(s)
	case amount < 0:
		return outflowStyle.Render(s)
	default:
		return s
	}
}

// Category renders "name / subcategory", or a muted dash when absent.
func Category(c *domain.Category) string {
	if c == nil || c.Name == "" {
		return mutedStyle.Render("-")
	}
	if c.Subcategory == "" {
		return c.Name
	}
	return c.Name + " / " + c.Subcategory
}
