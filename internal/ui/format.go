package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"
	"github.com/shopspring/decimal"
)

// Out receives every status line and table.
var Out io.Writer = os.Stdout

var (
	supportsColor = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	ColorSuccess  = colorFunc(ansi.Green)
	ColorError    = colorFunc(ansi.Red)
	ColorWarning  = colorFunc(ansi.Yellow)
	ColorInfo     = colorFunc(ansi.Cyan)
	ColorProgress = colorFunc(ansi.Blue)
	ColorBold     = colorFunc("default+b")
	ColorDim      = colorFunc("default+h")
)

// SupportsColor reports whether stdout is a color-capable terminal
func SupportsColor() bool {
	return supportsColor
}

func colorFunc(color string) func(string) string {
	return func(text string) string {
		if supportsColor {
			return ansi.Color(text, color)
		}
		return text
	}
}

// ShowHeader prints a boxed title
func ShowHeader(title string) {
	width := len(title) + 8
	if width < 50 {
		width = 50
	}
	padding := (width - len(title) - 2) / 2

	fmt.Fprintln(Out, "\n+"+strings.Repeat("-", width-2)+"+")
	fmt.Fprintf(Out, "|%s%s%s|\n",
		strings.Repeat(" ", padding),
		ColorBold(title),
		strings.Repeat(" ", width-2-padding-len(title)),
	)
	fmt.Fprintln(Out, "+"+strings.Repeat("-", width-2)+"+")
}

// ShowError prints err with its cause chain and suggestions dimmed below it.
func ShowError(err error) {
	fmt.Fprintf(Out, "\n%s\n", ColorError("ERROR:"))

	message := err.Error()
	for i, line := range strings.Split(message, "\n") {
		if i == 0 {
			fmt.Fprintf(Out, "  %s\n", line)
		} else {
			fmt.Fprintf(Out, "  %s\n", ColorDim(line))
		}
	}

	if !strings.Contains(message, "Suggestions:") {
		if suggestion := getSuggestion(message); suggestion != "" {
			fmt.Fprintf(Out, "\n  %s %s\n", ColorInfo("TIP:"), ColorInfo(suggestion))
		}
	}
}

// ShowSuccess prints a success line
func ShowSuccess(message string) {
	fmt.Fprintf(Out, "%s %s\n", ColorSuccess("SUCCESS:"), message)
}

// ShowWarning prints a warning line
func ShowWarning(message string) {
	fmt.Fprintf(Out, "%s %s\n", ColorWarning("WARNING:"), ColorWarning(message))
}

// ShowInfo prints an info line
func ShowInfo(message string) {
	fmt.Fprintf(Out, "%s %s\n", ColorInfo("INFO:"), message)
}

func getSuggestion(message string) string {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "no such table"), strings.Contains(lower, "does not exist"):
		return "Run 'fintechbi run' to build the warehouse and KPI views"
	case strings.Contains(lower, "connection refused"):
		return "Verify the warehouse URL and that the server is reachable"
	case strings.Contains(lower, "authentication"), strings.Contains(lower, "password"):
		return "Run 'fintechbi setup' to store the warehouse password"
	case strings.Contains(lower, "permission denied"):
		return "Check file permissions of the data and warehouse directories"
	case strings.Contains(lower, "database is locked"):
		return "Another process holds the warehouse; run one pipeline at a time"
	default:
		return ""
	}
}

// FormatMoney renders d as dollars with thousands separators, e.g. $1,234.50.
func FormatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	return sign + "$" + groupThousands(whole) + "." + frac
}

// FormatCount renders n with thousands separators
func FormatCount(n int64) string {
	if n < 0 {
		return "-" + groupThousands(fmt.Sprint(-n))
	}
	return groupThousands(fmt.Sprint(n))
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
