package eastmoney

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/newthinker/intrinsic/internal/collector"
	"github.com/newthinker/intrinsic/internal/core"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	DefaultPushURL       = "https://push2.eastmoney.com"
	DefaultDatacenterURL = "https://datacenter.eastmoney.com"

	// A-share boards: SZ main, SZ ChiNext, SH main, SH STAR, BJ
	aShareFilter = "m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23,m:0+t:81+s:2048"

	// clist serves at most 100 rows per page
	clistPageSize = 100
	clistMaxPages = 200
)

// Statement report names on the datacenter API
const (
	reportCashFlow = "RPT_F10_FINANCE_GCASHFLOW"
	reportBalance  = "RPT_F10_FINANCE_GBALANCE"
	reportIncome   = "RPT_F10_FINANCE_GINCOME"
	reportEquity   = "RPT_F10_EH_EQUITY"
)

// Config holds client configuration
type Config struct {
	PushURL       string
	DatacenterURL string
	Timeout       time.Duration
}

// Client implements every eastmoney-backed collaborator: reference list,
// statements, quotes, basic info and share structure.
type Client struct {
	client        *http.Client
	pushURL       string
	datacenterURL string
	logger        *zap.Logger
	now           func() time.Time
}

// New creates a new eastmoney client
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PushURL == "" {
		cfg.PushURL = DefaultPushURL
	}
	if cfg.DatacenterURL == "" {
		cfg.DatacenterURL = DefaultDatacenterURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		client:        &http.Client{Timeout: cfg.Timeout},
		pushURL:       cfg.PushURL,
		datacenterURL: cfg.DatacenterURL,
		logger:        logger.Named("eastmoney"),
		now:           time.Now,
	}
}

func (c *Client) Name() string {
	return "eastmoney"
}

// secid converts 600519 to 1.600519 for the push API.
// Shanghai = 1, Shenzhen and Beijing = 0
func secid(code string) string {
	if core.ExchangeOf(code) == core.ExchangeSH {
		return "1." + code
	}
	return "0." + code
}

// secucode converts 600519 to 600519.SH for the datacenter API
func secucode(code string) string {
	return code + "." + string(core.ExchangeOf(code))
}

// ListStocks fetches the code/name table for every listed A-share
func (c *Client) ListStocks(ctx context.Context) ([]core.StockIdentity, error) {
	rows, err := c.clist(ctx, "f12,f14")
	if err != nil {
		return nil, err
	}

	stocks := make([]core.StockIdentity, 0, len(rows))
	for _, r := range rows {
		code := r.Get("f12").String()
		if code == "" {
			continue
		}
		stocks = append(stocks, core.StockIdentity{Code: code, Name: r.Get("f14").String()})
	}
	return stocks, nil
}

// Snapshot fetches the full-market quote table
func (c *Client) Snapshot(ctx context.Context) ([]core.Quote, error) {
	rows, err := c.clist(ctx, "f2,f3,f4,f5,f6,f9,f12,f14,f15,f16,f17,f18,f23")
	if err != nil {
		return nil, err
	}

	now := c.now()
	quotes := make([]core.Quote, 0, len(rows))
	for _, r := range rows {
		code := r.Get("f12").String()
		if code == "" {
			continue
		}
		quotes = append(quotes, core.Quote{
			Code:          code,
			Name:          r.Get("f14").String(),
			Price:         number(r.Get("f2")),
			ChangePercent: number(r.Get("f3")),
			Change:        number(r.Get("f4")),
			Volume:        number(r.Get("f5")),
			Turnover:      number(r.Get("f6")),
			PE:            number(r.Get("f9")),
			High:          number(r.Get("f15")),
			Low:           number(r.Get("f16")),
			Open:          number(r.Get("f17")),
			PrevClose:     number(r.Get("f18")),
			PB:            number(r.Get("f23")),
			Time:          now,
			Source:        "eastmoney",
		})
	}
	return quotes, nil
}

// Quote fetches a real-time quote for one stock
func (c *Client) Quote(ctx context.Context, code string) (*core.Quote, error) {
	d, err := c.stockGet(ctx, code, "f43,f44,f45,f46,f47,f48,f57,f58,f60,f162,f167,f169,f170")
	if err != nil {
		return nil, err
	}

	return &core.Quote{
		Code:          d.Get("f57").String(),
		Name:          d.Get("f58").String(),
		Price:         number(d.Get("f43")),
		High:          number(d.Get("f44")),
		Low:           number(d.Get("f45")),
		Open:          number(d.Get("f46")),
		Volume:        number(d.Get("f47")),
		Turnover:      number(d.Get("f48")),
		PrevClose:     number(d.Get("f60")),
		PE:            number(d.Get("f162")),
		PB:            number(d.Get("f167")),
		Change:        number(d.Get("f169")),
		ChangePercent: number(d.Get("f170")),
		Time:          c.now(),
		Source:        "eastmoney",
	}, nil
}

// BasicInfo fetches the individual-info table. Share counts are reported in
// shares; values eastmoney leaves blank are omitted.
func (c *Client) BasicInfo(ctx context.Context, code string) (map[string]string, error) {
	d, err := c.stockGet(ctx, code, "f57,f58,f84,f85,f116,f162,f167")
	if err != nil {
		return nil, err
	}

	info := map[string]string{
		collector.InfoCode: d.Get("f57").String(),
		collector.InfoName: d.Get("f58").String(),
	}
	numeric := map[string]string{
		collector.InfoTotalShares: "f84",
		collector.InfoFloatShares: "f85",
		collector.InfoMarketCap:   "f116",
		collector.InfoPEDynamic:   "f162",
		collector.InfoPB:          "f167",
	}
	for item, field := range numeric {
		v := d.Get(field)
		if v.Type != gjson.Number {
			continue
		}
		info[item] = strconv.FormatFloat(v.Float(), 'f', -1, 64)
	}
	return info, nil
}

// CashFlow fetches yearly cash-flow statements
func (c *Client) CashFlow(ctx context.Context, code string) ([]collector.Row, error) {
	return c.statement(ctx, reportCashFlow, "APP_F10_GCASHFLOW", code)
}

// BalanceSheet fetches yearly balance sheets
func (c *Client) BalanceSheet(ctx context.Context, code string) ([]collector.Row, error) {
	return c.statement(ctx, reportBalance, "APP_F10_GBALANCE", code)
}

// IncomeStatement fetches yearly income statements
func (c *Client) IncomeStatement(ctx context.Context, code string) ([]collector.Row, error) {
	return c.statement(ctx, reportIncome, "APP_F10_GINCOME", code)
}

// ShareChanges fetches the share capital history, most recent first
func (c *Client) ShareChanges(ctx context.Context, code string) ([]collector.ShareChange, error) {
	q := url.Values{}
	q.Set("type", reportEquity)
	q.Set("sty", "ALL")
	q.Set("filter", fmt.Sprintf(`(SECUCODE="%s")`, secucode(code)))
	q.Set("p", "1")
	q.Set("ps", "20")
	q.Set("sr", "-1")
	q.Set("st", "END_DATE")

	body, err := c.get(ctx, c.datacenterURL+"/securities/api/data/get?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var changes []collector.ShareChange
	for _, r := range dataRows(body) {
		shares := number(r.Get("TOTAL_SHARES"))
		if shares <= 0 {
			continue
		}
		date, _ := time.Parse("2006-01-02", firstN(r.Get("END_DATE").String(), 10))
		changes = append(changes, collector.ShareChange{Date: date, TotalShares: shares})
	}
	return changes, nil
}

func (c *Client) statement(ctx context.Context, report, style, code string) ([]collector.Row, error) {
	q := url.Values{}
	q.Set("type", report)
	q.Set("sty", style)
	q.Set("filter", fmt.Sprintf(`(SECUCODE="%s")(REPORT_TYPE="年报")`, secucode(code)))
	q.Set("p", "1")
	q.Set("ps", "5")
	q.Set("sr", "-1")
	q.Set("st", "REPORT_DATE")
	q.Set("source", "HSF10")
	q.Set("client", "PC")

	body, err := c.get(ctx, c.datacenterURL+"/securities/api/data/get?"+q.Encode())
	if err != nil {
		return nil, err
	}

	raw := dataRows(body)
	rows := make([]collector.Row, 0, len(raw))
	for _, r := range raw {
		row, err := decodeRow(r.Raw)
		if err != nil {
			c.logger.Debug("skipping undecodable statement row",
				zap.String("report", report), zap.Error(err))
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (c *Client) clist(ctx context.Context, fields string) ([]gjson.Result, error) {
	var rows []gjson.Result
	for page := 1; page <= clistMaxPages; page++ {
		body, err := c.get(ctx, c.pushURL+"/api/qt/clist/get?"+clistQuery(page, fields).Encode())
		if err != nil {
			return nil, err
		}

		diff := gjson.GetBytes(body, "data.diff")
		if !diff.Exists() {
			if page == 1 {
				return nil, core.WrapError(core.ErrProviderUnavailable,
					fmt.Errorf("eastmoney: market list has no data"))
			}
			break
		}

		// diff is an array with np=1 and an index-keyed object without it
		n := 0
		diff.ForEach(func(_, value gjson.Result) bool {
			rows = append(rows, value)
			n++
			return true
		})

		total := int(gjson.GetBytes(body, "data.total").Int())
		if n == 0 || (total > 0 && len(rows) >= total) || (total == 0 && n < clistPageSize) {
			break
		}
	}
	return rows, nil
}

func clistQuery(page int, fields string) url.Values {
	q := url.Values{}
	q.Set("pn", strconv.Itoa(page))
	q.Set("pz", strconv.Itoa(clistPageSize))
	q.Set("po", "1")
	q.Set("np", "1")
	q.Set("fltt", "2")
	q.Set("invt", "2")
	q.Set("fid", "f12")
	q.Set("fs", aShareFilter)
	q.Set("fields", fields)
	return q
}

func (c *Client) stockGet(ctx context.Context, code, fields string) (gjson.Result, error) {
	q := url.Values{}
	q.Set("secid", secid(code))
	q.Set("fltt", "2")
	q.Set("invt", "2")
	q.Set("fields", fields)

	body, err := c.get(ctx, c.pushURL+"/api/qt/stock/get?"+q.Encode())
	if err != nil {
		return gjson.Result{}, err
	}

	d := gjson.GetBytes(body, "data")
	if !d.IsObject() {
		return gjson.Result{}, core.WrapError(core.ErrNotFound,
			fmt.Errorf("eastmoney: no data for code %s", code))
	}
	return d, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("eastmoney: building request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Referer", "https://www.eastmoney.com/")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrProviderUnavailable, fmt.Errorf("eastmoney: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrProviderUnavailable,
			fmt.Errorf("eastmoney: unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.WrapError(core.ErrProviderUnavailable, fmt.Errorf("eastmoney: reading body: %w", err))
	}
	if !gjson.ValidBytes(body) {
		return nil, core.WrapError(core.ErrProviderUnavailable, fmt.Errorf("eastmoney: invalid JSON response"))
	}
	return body, nil
}

// dataRows finds the row array under result.data, falling back to data.
func dataRows(body []byte) []gjson.Result {
	rows := gjson.GetBytes(body, "result.data")
	if !rows.IsArray() {
		rows = gjson.GetBytes(body, "data")
	}
	if !rows.IsArray() {
		return nil
	}
	return rows.Array()
}

func decodeRow(raw string) (collector.Row, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var row collector.Row
	if err := dec.Decode(&row); err != nil {
		return nil, err
	}
	return row, nil
}

// number reads a numeric field; eastmoney writes "-" for missing values.
func number(r gjson.Result) float64 {
	switch r.Type {
	case gjson.Number:
		return r.Float()
	case gjson.String:
		f, err := strconv.ParseFloat(r.Str, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func firstN(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
