package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"DeclineWatch/internal/model"
)

// ListingSource returns the issues listed on a market, in a stable order.
type ListingSource interface {
	List(ctx context.Context, market model.Market) ([]model.Stock, error)
	Name() string
}

const krxBaseURL = "http://data.krx.co.kr"

// KRXListing reads the full listing from the KRX market data service.
type KRXListing struct {
	BaseURL string
	Client  *http.Client
}

// NewKRXListing creates a listing client with optional proxy support.
func NewKRXListing(proxyURL string, timeout time.Duration) *KRXListing {
	return &KRXListing{BaseURL: krxBaseURL, Client: newHTTPClient(proxyURL, timeout)}
}

func (k *KRXListing) Name() string { return "krx" }

func krxMarketID(m model.Market) (string, error) {
	switch m {
	case model.MarketKOSPI:
		return "STK", nil
	case model.MarketKOSDAQ:
		return "KSQ", nil
	}
	return "", fmt.Errorf("unknown market %q", m)
}

type krxListingResponse struct {
	OutBlock1 []struct {
		ShortCode string `json:"ISU_SRT_CD"`
		Name      string `json:"ISU_ABBRV"`
	} `json:"OutBlock_1"`
}

func (k *KRXListing) List(ctx context.Context, market model.Market) ([]model.Stock, error) {
	mktID, err := krxMarketID(market)
	if err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Set("bld", "dbms/MDC/STAT/standard/MDCSTAT01901")
	form.Set("mktId", mktID)
	form.Set("share", "1")
	form.Set("csvxls_isNo", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		k.BaseURL+"/comm/bldAttendant/getJsonData.cmd", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Referer", k.BaseURL+"/contents/MDC/MDI/mdiLoader/index.cmd")

	resp, err := k.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("krx listing: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("krx listing: status %d, body: %s", resp.StatusCode, truncate(body, 200))
	}

	var out krxListingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("krx listing decode: %w", err)
	}
	stocks := make([]model.Stock, 0, len(out.OutBlock1))
	for _, row := range out.OutBlock1 {
		code := strings.TrimSpace(row.ShortCode)
		if code == "" {
			continue
		}
		stocks = append(stocks, model.Stock{Code: code, Name: strings.TrimSpace(row.Name), Market: market})
	}
	return stocks, nil
}

// FileListing reads stocks from a YAML file:
//
//	stocks:
//	  - {code: "005930", name: 삼성전자, market: KOSPI}
type FileListing struct {
	Path string
}

func (f *FileListing) Name() string { return "file" }

func (f *FileListing) List(_ context.Context, market model.Market) ([]model.Stock, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read listing: %w", err)
	}
	var doc struct {
		Stocks []model.Stock `yaml:"stocks"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}
	return filterMarket(doc.Stocks, market), nil
}

// StaticListing serves a fixed list, for development and tests.
type StaticListing struct {
	Stocks []model.Stock
	Err    error
}

func (s *StaticListing) Name() string { return "static" }

func (s *StaticListing) List(_ context.Context, market model.Market) ([]model.Stock, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return filterMarket(s.Stocks, market), nil
}

func filterMarket(stocks []model.Stock, market model.Market) []model.Stock {
	var out []model.Stock
	for _, s := range stocks {
		if strings.EqualFold(string(s.Market), string(market)) {
			s.Market = market
			out = append(out, s)
		}
	}
	return out
}
