package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// Default separator widths
	DefaultWidth = 80
	WideWidth    = 100
)

// PrintSeparator prints a separator line with the specified character and width
func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintHeader prints a formatted header with title and separators
func PrintHeader(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(title)
	PrintSeparator("=", width)
}

// PrintFooter prints a formatted footer with message and separators
func PrintFooter(message string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// PrintBoxSeparator prints a box-drawing separator line (for sub-sections)
func PrintBoxSeparator(width int) {
	fmt.Println("├" + strings.Repeat("─", width))
}

// BoxPrefix returns the appropriate box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// BoxDetailPrefix returns the prefix for detail lines under list items
func BoxDetailPrefix(isLast bool) string {
	if isLast {
		return "   "
	}
	return "│  "
}

// FormatAmount renders an integer base unit amount in whole tokens
func FormatAmount(amount decimal.Decimal, decimals int) string {
	if decimals <= 0 {
		return amount.String()
	}
	return amount.Shift(int32(-decimals)).StringFixed(int32(min(decimals, 6)))
}

// FormatRay renders a ray scaled index or rate as a plain ratio
func FormatRay(value, ray decimal.Decimal) string {
	if ray.IsZero() {
		return value.String()
	}
	return value.DivRound(ray, 8).StringFixed(8)
}

// FormatHour renders a snapshot bucket start in UTC
func FormatHour(hour int64) string {
	return time.Unix(hour, 0).UTC().Format("2006-01-02 15:04")
}

// ShortId trims a hex id for table output
func ShortId(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:8] + ".." + id[len(id)-4:]
}
