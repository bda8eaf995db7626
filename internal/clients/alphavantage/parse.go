package alphavantage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CompanyOverview is the subset of the OVERVIEW function we use.
// DividendYield is a fraction (0.0485 = 4.85%).
type CompanyOverview struct {
	Symbol               string
	AssetType            string
	Name                 string
	Exchange             string
	Currency             string
	Country              string
	Sector               string
	MarketCapitalization int64
	DividendPerShare     *float64
	DividendYield        *float64
	ExDividendDate       string
}

type rawOverview struct {
	Symbol               string `json:"Symbol"`
	AssetType            string `json:"AssetType"`
	Name                 string `json:"Name"`
	Exchange             string `json:"Exchange"`
	Currency             string `json:"Currency"`
	Country              string `json:"Country"`
	Sector               string `json:"Sector"`
	MarketCapitalization string `json:"MarketCapitalization"`
	DividendPerShare     string `json:"DividendPerShare"`
	DividendYield        string `json:"DividendYield"`
	ExDividendDate       string `json:"ExDividendDate"`
}

func parseCompanyOverview(body []byte) (*CompanyOverview, error) {
	var raw rawOverview
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse company overview: %w", err)
	}
	return &CompanyOverview{
		Symbol:               raw.Symbol,
		AssetType:            raw.AssetType,
		Name:                 raw.Name,
		Exchange:             raw.Exchange,
		Currency:             raw.Currency,
		Country:              raw.Country,
		Sector:               raw.Sector,
		MarketCapitalization: parseInt64(raw.MarketCapitalization),
		DividendPerShare:     parseFloat64Ptr(raw.DividendPerShare),
		DividendYield:        parseFloat64Ptr(raw.DividendYield),
		ExDividendDate:       nullString(raw.ExDividendDate),
	}, nil
}

func isNull(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "None", "null", "-":
		return true
	}
	return false
}

func nullString(s string) string {
	if isNull(s) {
		return ""
	}
	return s
}

// parseFloat64 returns 0 for null markers and garbage.
func parseFloat64(s string) float64 {
	if isNull(s) {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
	if err != nil {
		return 0
	}
	return f
}

// parseFloat64Ptr returns nil for null markers and garbage.
func parseFloat64Ptr(s string) *float64 {
	if isNull(s) {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseInt64(s string) int64 {
	if isNull(s) {
		return 0
	}
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return i
}
