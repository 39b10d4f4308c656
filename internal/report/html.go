package report

import (
	"fmt"
	"html/template"
	"io"
	"math"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"DeclineWatch/internal/model"
)

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"pct":    formatPct,
	"stat":   formatStat,
	"won":    func(v float64) string { return humanize.Comma(int64(math.Round(v))) + "원" },
	"comma":  func(n int) string { return humanize.Comma(int64(n)) },
	"share":  share,
	"inc":    func(i int) int { return i + 1 },
	"signed": func(v float64) string { return fmt.Sprintf("%+.2f%%", v) },
}).Parse(`<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>한국 주식 시장 하락률 분석 리포트</title>
<style>
body { font-family: Arial, sans-serif; margin: 20px; }
.header { text-align: center; color: #333; }
.summary { background-color: #f0f0f0; padding: 15px; border-radius: 5px; margin: 20px 0; }
.stat-item { margin: 5px 0; }
table { border-collapse: collapse; width: 100%; margin: 20px 0; }
th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
th { background-color: #f2f2f2; }
.decline { color: #d32f2f; }
.gain { color: #388e3c; }
</style>
</head>
<body>
<div class="header">
<h1>한국 주식 시장 하락률 분석 리포트</h1>
<p>생성일: {{.Generated.Format "2006-01-02 15:04:05"}} | 실행 ID: {{.Result.RunID}}</p>
<p>시장: {{.Result.Selection}} | 분석 기간: {{.Result.PeriodDays}}거래일</p>
</div>

<div class="summary">
<h2>주요 통계</h2>
<div class="stat-item"><strong>분석 종목 수:</strong> {{comma .Result.Stats.Count}}개 (요청 {{comma .Result.Requested}}개, 제외 {{len .Result.Excluded}}개)</div>
<div class="stat-item"><strong>평균 하락률:</strong> {{stat .Result.Stats.Mean}}</div>
<div class="stat-item"><strong>중앙값 하락률:</strong> {{stat .Result.Stats.Median}}</div>
<div class="stat-item"><strong>표준편차:</strong> {{stat .Result.Stats.StdDev}}</div>
<div class="stat-item"><strong>최대 하락률:</strong> <span class="decline">{{stat .Result.Stats.Min}}</span></div>
<div class="stat-item"><strong>최소 하락률:</strong> <span class="gain">{{stat .Result.Stats.Max}}</span></div>
</div>

<h2>하락률 구간별 분포</h2>
<table>
<tr><th>하락률 구간</th><th>종목 수</th><th>비율</th></tr>
{{- $stats := .Result.Stats}}
{{- range $stats.Labels}}
<tr><td>{{.}}</td><td>{{index $stats.Histogram .}}</td><td>{{share (index $stats.Histogram .) $stats.Count}}</td></tr>
{{- end}}
</table>

{{- if .Markets}}
<h2>시장별 통계</h2>
<table>
<tr><th>시장</th><th>종목 수</th><th>평균</th><th>중앙값</th><th>표준편차</th><th>최대 하락률</th></tr>
{{- range .Markets}}
<tr><td>{{.Market}}</td><td>{{.Stats.Count}}</td><td>{{stat .Stats.Mean}}</td><td>{{stat .Stats.Median}}</td><td>{{stat .Stats.StdDev}}</td><td class="decline">{{stat .Stats.Min}}</td></tr>
{{- end}}
</table>
{{- end}}

<h2>상위 하락 종목 (하위 {{len .Result.Top}}개)</h2>
<table>
<tr><th>순위</th><th>종목명</th><th>종목코드</th><th>시장</th><th>하락률</th><th>고점일</th><th>저점일</th><th>기간 수익률</th><th>현재가</th></tr>
{{- range $i, $r := .Result.Top}}
<tr>
<td>{{inc $i}}</td>
<td>{{$r.Stock.Name}}</td>
<td>{{$r.Stock.Code}}</td>
<td>{{$r.Stock.Market}}</td>
<td class="decline">{{pct $r.DrawdownPct}}</td>
<td>{{$r.PeakDate.Format "2006-01-02"}}</td>
<td>{{$r.TroughDate.Format "2006-01-02"}}</td>
<td>{{signed $r.PeriodReturnPct}}</td>
<td>{{won $r.CurrentPrice}}</td>
</tr>
{{- end}}
</table>
</body>
</html>
`))

type marketRow struct {
	Market model.Market
	Stats  model.MarketStats
}

type htmlView struct {
	Generated time.Time
	Result    *model.AnalysisResult
	Markets   []marketRow
}

func formatPct(v float64) string { return fmt.Sprintf("%.2f%%", v) }

func formatStat(v model.StatValue) string {
	if !v.Defined {
		return "-"
	}
	return formatPct(v.Value)
}

func share(n, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(n)/float64(total)*100)
}

func marketRows(result *model.AnalysisResult) []marketRow {
	rows := make([]marketRow, 0, len(result.MarketBreakdown))
	for m, st := range result.MarketBreakdown {
		rows = append(rows, marketRow{Market: m, Stats: st})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Market < rows[j].Market })
	return rows
}

// WriteHTML renders the summary report.
func WriteHTML(w io.Writer, result *model.AnalysisResult, generated time.Time) error {
	view := htmlView{Generated: generated, Result: result, Markets: marketRows(result)}
	if err := reportTmpl.Execute(w, view); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}
