package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DeclineWatch/internal/model"
)

const yahooFixture = `{"chart":{"result":[{"timestamp":[1714608000,1714521600,1714694400,1714953600],
"indicators":{"quote":[{"open":[100,99,null,103],"high":[105,101,null,104],"low":[98,97,null,90],
"close":[104,100,null,95],"volume":[1000,900,null,1200]}]}}],"error":null}}`

func TestYahooSymbol(t *testing.T) {
	assert.Equal(t, "005930.KS", YahooSymbol(model.Stock{Code: "005930", Market: model.MarketKOSPI}))
	assert.Equal(t, "035720.KQ", YahooSymbol(model.Stock{Code: "035720", Market: model.MarketKOSDAQ}))
	assert.Equal(t, "AAPL", YahooSymbol(model.Stock{Code: "AAPL"}))
	assert.Equal(t, "005930.KS", YahooSymbol(model.Stock{Code: "005930.KS", Market: model.MarketKOSDAQ}))
}

func TestYahooRange(t *testing.T) {
	assert.Equal(t, "1mo", yahooRange(20))
	assert.Equal(t, "3mo", yahooRange(30))
	assert.Equal(t, "1y", yahooRange(250))
	assert.Equal(t, "5y", yahooRange(1000))
}

func TestYahooFetcher_FetchDailyBars(t *testing.T) {
	var gotPath, gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRange = r.URL.Query().Get("range")
		w.Write([]byte(yahooFixture))
	}))
	defer srv.Close()

	f := NewYahooFetcher("", 5*time.Second)
	f.BaseURL = srv.URL

	bars, err := f.FetchDailyBars(context.Background(), model.Stock{Code: "005930", Market: model.MarketKOSPI}, 30)
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/005930.KS", gotPath)
	assert.Equal(t, "3mo", gotRange)
	require.Len(t, bars, 3, "null bar dropped")
	assert.Equal(t, int64(1714521600), bars[0].Time.Unix(), "sorted oldest first")
	assert.Equal(t, 90.0, bars[2].Low)

	trimmed, err := f.FetchDailyBars(context.Background(), model.Stock{Code: "005930", Market: model.MarketKOSPI}, 2)
	require.NoError(t, err)
	assert.Len(t, trimmed, 2)
}

func TestYahooFetcher_Errors(t *testing.T) {
	stock := model.Stock{Code: "999999", Market: model.MarketKOSDAQ}
	tests := []struct {
		name      string
		status    int
		body      string
		noData    bool
		transient bool
	}{
		{"api error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`, false, false},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`, true, false},
		{"unavailable", http.StatusServiceUnavailable, `busy`, false, true},
		{"rate limited", http.StatusTooManyRequests, `slow down`, false, true},
		{"bad request", http.StatusBadRequest, `bad`, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			f := NewYahooFetcher("", time.Second)
			f.BaseURL = srv.URL

			_, err := f.FetchDailyBars(context.Background(), stock, 30)
			require.Error(t, err)
			assert.Equal(t, tt.noData, errors.Is(err, ErrNoData))
			assert.Equal(t, tt.transient, IsTransient(err))
		})
	}
}

func TestRESTFetcher_FetchDailyBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/bars/daily", r.URL.Path)
		assert.Equal(t, "035720", r.URL.Query().Get("symbol"))
		assert.Equal(t, "KOSDAQ", r.URL.Query().Get("market"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		if r.URL.Query().Get("limit") == "0" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`[{"timestamp":1714694400,"open":10,"high":11,"low":9,"close":10},
			{"timestamp":1714608000,"open":9,"high":10,"low":8,"close":9}]`))
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "secret", "", time.Second)
	stock := model.Stock{Code: "035720", Market: model.MarketKOSDAQ}

	bars, err := f.FetchDailyBars(context.Background(), stock, 10)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.True(t, bars[0].Time.Before(bars[1].Time))

	_, err = f.FetchDailyBars(context.Background(), stock, 0)
	assert.True(t, errors.Is(err, ErrNoData))
}
