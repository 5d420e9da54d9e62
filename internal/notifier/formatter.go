package notifier

import (
	"fmt"
	"html"
	"strings"

	"WeeklyStockPrice/internal/model"
)

// FormatWeeklyReport formats a weekly collection run into a Telegram message.
func FormatWeeklyReport(thisFriday string, snaps []model.WeeklySnapshot, stats model.MarketStats, failed []model.Symbol) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 <b>Weekly stock report</b> | week ending %s\n\n", thisFriday)
	fmt.Fprintf(&b, "Collected: %d | ▲ %d ▼ %d ＝ %d\n", len(snaps), stats.PositiveChange, stats.NegativeChange, stats.Unchanged)
	fmt.Fprintf(&b, "Average change: %s%%\n\n", signed(stats.AverageChangeRate.StringFixed(2)))

	for _, s := range snaps {
		fmt.Fprintf(&b, "%s %s: %s (%s%%)\n", arrow(s.ChangeRate.Sign()), label(s), s.Close.StringFixed(2), signed(s.ChangeRate.StringFixed(2)))
	}

	if len(failed) > 0 {
		names := make([]string, len(failed))
		for i, f := range failed {
			names[i] = string(f)
		}
		fmt.Fprintf(&b, "\n⚠️ Failed: %s\n", html.EscapeString(strings.Join(names, ", ")))
	}
	return b.String()
}

// FormatMovers lists snapshots under a title, one per line.
func FormatMovers(title string, snaps []model.WeeklySnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(title))
	if len(snaps) == 0 {
		b.WriteString("No data yet.\n")
		return b.String()
	}
	for i, s := range snaps {
		fmt.Fprintf(&b, "%d. %s %s%% (%s → %s)\n", i+1, label(s), signed(s.ChangeRate.StringFixed(2)),
			s.LastWeekClose.StringFixed(2), s.Close.StringFixed(2))
	}
	return b.String()
}

// FormatQuote formats a latest-price reply.
func FormatQuote(q model.Quote) string {
	text := fmt.Sprintf("💵 <b>%s</b> %s\nas of %s", html.EscapeString(q.Symbol.String()), q.Price.String(),
		q.AsOf.UTC().Format("2006-01-02 15:04 UTC"))
	if q.Stale {
		text += " (last known, source unavailable)"
	}
	return text
}

// FormatTrend formats a trend reply.
func FormatTrend(symbol model.Symbol, period model.Period, t model.TrendResult) string {
	return fmt.Sprintf("%s <b>%s</b> %s: %s%% (%s) over %d samples",
		directionArrow(t.Direction), html.EscapeString(symbol.String()), period,
		signed(t.PercentChange.StringFixed(2)), signed(t.AbsoluteChange.StringFixed(2)), t.SampleCount)
}

func label(s model.WeeklySnapshot) string {
	if s.Name == "" {
		return html.EscapeString(string(s.Symbol))
	}
	return fmt.Sprintf("%s (%s)", html.EscapeString(s.Name), html.EscapeString(string(s.Symbol)))
}

func signed(v string) string {
	if strings.HasPrefix(v, "-") {
		return v
	}
	return "+" + v
}

func arrow(sign int) string {
	switch sign {
	case 1:
		return "🔺"
	case -1:
		return "🔻"
	}
	return "▫️"
}

func directionArrow(d model.Direction) string {
	switch d {
	case model.DirectionUp:
		return arrow(1)
	case model.DirectionDown:
		return arrow(-1)
	}
	return arrow(0)
}
