package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"DeclineWatch/internal/calculator"
	"DeclineWatch/internal/model"
)

// chartTopN is how many decliners the ranking chart shows.
const chartTopN = 10

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func histogramChart(st model.MarketStats) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "하락률 구간별 분포", Subtitle: fmt.Sprintf("%d개 종목", st.Count)}),
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "420px"}),
	)
	data := make([]opts.BarData, 0, len(st.Labels))
	for _, label := range st.Labels {
		data = append(data, opts.BarData{Name: label, Value: st.Histogram[label]})
	}
	bar.SetXAxis(st.Labels).AddSeries("종목 수", data)
	return bar
}

func topChart(records []model.DeclineRecord) *charts.Bar {
	top := calculator.RankTop(records, chartTopN)
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("하락률 상위 %d 종목", len(top))}),
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "420px"}),
	)
	names := make([]string, 0, len(top))
	data := make([]opts.BarData, 0, len(top))
	for _, r := range top {
		names = append(names, r.Stock.Name)
		data = append(data, opts.BarData{Name: r.Stock.Code, Value: round2(r.DrawdownPct)})
	}
	bar.SetXAxis(names).AddSeries("최대 하락률 (%)", data)
	return bar
}

func marketChart(result *model.AnalysisResult) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "시장별 하락률"}),
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "420px"}),
	)
	rows := marketRows(result)
	names := make([]string, 0, len(rows))
	mean := make([]opts.BarData, 0, len(rows))
	median := make([]opts.BarData, 0, len(rows))
	for _, row := range rows {
		names = append(names, string(row.Market))
		mean = append(mean, opts.BarData{Value: round2(row.Stats.Mean.Value)})
		median = append(median, opts.BarData{Value: round2(row.Stats.Median.Value)})
	}
	bar.SetXAxis(names).
		AddSeries("평균 (%)", mean).
		AddSeries("중앙값 (%)", median)
	return bar
}

// WriteCharts renders the chart page: bucket histogram, top decliners and
// the per-market comparison when more than one market was analyzed.
func WriteCharts(w io.Writer, result *model.AnalysisResult) error {
	page := components.NewPage()
	page.PageTitle = "한국 주식 시장 하락률 시각화"
	page.AddCharts(histogramChart(result.Stats), topChart(result.Records))
	if len(result.MarketBreakdown) > 1 {
		page.AddCharts(marketChart(result))
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render charts: %w", err)
	}
	return nil
}
