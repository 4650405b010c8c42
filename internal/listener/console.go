package listener

import (
	"fmt"

	"aave-ledger-go/internal/metrics"
	"aave-ledger-go/internal/models"
)

// ANSI color helpers for console output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

func (l *Listener) print(event models.Event, outcome string, err error) {
	if l.console == nil {
		return
	}

	meta := event.Meta()
	txHash := models.HashId(meta.TxHash)
	if len(txHash) > 12 {
		txHash = txHash[:12] + "..."
	}

	color, symbol := colorGreen, "✓"
	switch outcome {
	case metrics.OutcomeIgnored, metrics.OutcomeSkipped:
		color, symbol = colorGray, "·"
	case metrics.OutcomeDuplicate, metrics.OutcomeOutOfOrder:
		color, symbol = colorYellow, "~"
	case metrics.OutcomeFailed:
		color, symbol = colorRed, "✗"
	}

	line := fmt.Sprintf("  %s%s %-18s block %-10d log %-4d %s %s", color, symbol, event.Kind(), meta.BlockNumber, meta.LogIndex, txHash, outcome)
	if err != nil {
		line += " | " + err.Error()
	}
	fmt.Fprintln(l.console, line+colorReset)
}
