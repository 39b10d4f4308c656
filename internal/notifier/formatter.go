package notifier

import (
	"fmt"
	"html"
	"strings"

	"github.com/dustin/go-humanize"

	"DeclineWatch/internal/model"
)

// Language selects the message wording.
type Language string

const (
	Korean  Language = "ko"
	English Language = "en"
)

type phrases struct {
	title, market, period, analyzed, excluded  string
	mean, median, stddev, worst, best, buckets string
	top, noRecords, days                       string
}

var messages = map[Language]phrases{
	Korean: {
		title: "최대 하락률 분석", market: "시장", period: "기간", analyzed: "분석 종목",
		excluded: "제외", mean: "평균", median: "중앙값", stddev: "표준편차",
		worst: "최대 하락", best: "최소 하락", buckets: "하락 구간 분포",
		top: "하락률 상위", noRecords: "분석된 종목이 없습니다", days: "거래일",
	},
	English: {
		title: "Max Decline Analysis", market: "Market", period: "Window", analyzed: "Analyzed",
		excluded: "Excluded", mean: "Mean", median: "Median", stddev: "Std dev",
		worst: "Worst", best: "Best", buckets: "Bucket distribution",
		top: "Top decliners", noRecords: "no stocks analyzed", days: "trading days",
	},
}

func phrasesFor(lang Language) phrases {
	if p, ok := messages[lang]; ok {
		return p
	}
	return messages[Korean]
}

func pct(v model.StatValue) string {
	if !v.Defined {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", v.Value)
}

// FormatRunSummary formats the headline of an analysis run as a Telegram HTML message.
func FormatRunSummary(result *model.AnalysisResult, lang Language) string {
	p := phrasesFor(lang)
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📉 <b>%s</b> | %s\n\n", p.title, result.FinishedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("%s: %s | %s: %d %s\n", p.market, strings.ToUpper(string(result.Selection)), p.period, result.PeriodDays, p.days))
	b.WriteString(fmt.Sprintf("%s: %d/%d | %s: %d\n\n", p.analyzed, len(result.Records), result.Requested, p.excluded, len(result.Excluded)))

	st := result.Stats
	if st.Count == 0 {
		b.WriteString(p.noRecords + "\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("%s: %s | %s: %s\n", p.mean, pct(st.Mean), p.median, pct(st.Median)))
	b.WriteString(fmt.Sprintf("%s: %s\n", p.stddev, pct(st.StdDev)))
	b.WriteString(fmt.Sprintf("%s: %s | %s: %s\n\n", p.worst, pct(st.Min), p.best, pct(st.Max)))

	b.WriteString(fmt.Sprintf("📊 <b>%s:</b>\n", p.buckets))
	for _, label := range st.Labels {
		n := st.Histogram[label]
		b.WriteString(fmt.Sprintf("  %s: %d (%.1f%%)\n", html.EscapeString(label), n, float64(n)/float64(st.Count)*100))
	}

	if len(result.Top) > 0 {
		top := result.Top
		if len(top) > 5 {
			top = top[:5]
		}
		b.WriteString("\n")
		b.WriteString(FormatTop(top, lang))
	}
	return b.String()
}

// FormatTop formats a ranked list of decline records.
func FormatTop(records []model.DeclineRecord, lang Language) string {
	p := phrasesFor(lang)
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔻 <b>%s %d</b>\n", p.top, len(records)))
	if len(records) == 0 {
		b.WriteString(p.noRecords + "\n")
		return b.String()
	}
	for i, r := range records {
		b.WriteString(fmt.Sprintf("%d. %s (%s) %.2f%%  %s → %s\n",
			i+1, html.EscapeString(r.Stock.Name), r.Stock.Code, r.DrawdownPct,
			humanize.Commaf(r.PeakPrice), humanize.Commaf(r.TroughPrice)))
	}
	return b.String()
}
