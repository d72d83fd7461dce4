package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"SignalEngine/internal/model"
	"SignalEngine/internal/recorder"
)

// TopRows is how many report rows a summary lists.
const TopRows = 10

// FormatRunSummary renders one task run as a Telegram HTML message: counts first,
// then the best scoring stocks of the report.
func FormatRunSummary(run *recorder.RunSummary, rep *model.WideReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 <b>%s</b> | %s\n", html.EscapeString(run.Task), run.FinishedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Rules: %s · Universe: %s\n", run.RuleSet, run.Universe)
	fmt.Fprintf(&b, "Evaluated %d/%d (skipped %d)\n", run.Evaluated, run.Symbols, run.Skipped)
	switch run.Status {
	case recorder.StatusCancelled:
		b.WriteString("⚠️ Run cancelled, partial results\n")
	case recorder.StatusFailed:
		fmt.Fprintf(&b, "❌ Run failed: %s\n", html.EscapeString(run.Error))
		return b.String()
	}

	if rep.Empty() {
		b.WriteString("\nNo stocks evaluated.")
		return b.String()
	}
	fmt.Fprintf(&b, "✅ All signals met: <b>%d</b>\n\n", run.AllMet)

	rows := rep.Rows
	if len(rows) > TopRows {
		rows = rows[:TopRows]
	}
	b.WriteString("<pre>")
	for _, r := range rows {
		mark := " "
		if r.AllSignalsMet {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%-12s %6s %s\n", html.EscapeString(r.Stock), r.SignalsScore, mark)
	}
	b.WriteString("</pre>")
	if n := len(rep.Rows) - len(rows); n > 0 {
		fmt.Fprintf(&b, "\n… and %d more", n)
	}
	return b.String()
}

// FormatStockDetail lists every check of one report row.
func FormatStockDetail(row model.ReportRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔎 <b>%s</b> %s (%s)\n\n", html.EscapeString(row.Stock), row.SignalsScore, html.EscapeString(row.TradeType))
	for _, ind := range row.Indicators {
		mark := "❌"
		if ind.Status == "TRUE" {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%s %s\n    %s vs %s\n", mark, html.EscapeString(ind.Name),
			html.EscapeString(ind.Current), html.EscapeString(ind.Threshold))
	}
	return b.String()
}

// FormatHelp lists the bot commands and configured task names.
func FormatHelp(tasks []string) string {
	var b strings.Builder
	b.WriteString("Available commands:\n")
	b.WriteString("• /run [TASK] - run all tasks or one task now\n")
	b.WriteString("• /report TASK [STOCK] - latest stored report\n")
	b.WriteString("• /help - this message\n")
	if len(tasks) > 0 {
		fmt.Fprintf(&b, "\nTasks: %s", html.EscapeString(strings.Join(tasks, ", ")))
	}
	return b.String()
}

// FormatExported reports the files written by an export.
func FormatExported(paths []string, at time.Time) string {
	if len(paths) == 0 {
		return ""
	}
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = html.EscapeString(p)
	}
	return fmt.Sprintf("📁 Exported %s:\n%s", at.Format("2006-01-02"), strings.Join(names, "\n"))
}
