// Package etherscan lists an address's normal transactions through the Etherscan v2 API.
package etherscan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"vaultScope/internal/model"
)

const (
	DefaultBaseURL = "https://api.etherscan.io/v2/api"
	DefaultRPS     = 3
	maxPages       = 1000
)

// Tx is one entry of the txlist action. Numeric fields arrive as decimal strings.
type Tx struct {
	Hash        string `json:"hash"`
	BlockNumber string `json:"blockNumber"`
	TimeStamp   string `json:"timeStamp"`
	From        string `json:"from"`
	To          string `json:"to"`
	Input       string `json:"input"`
	GasPrice    string `json:"gasPrice"`
	GasUsed     string `json:"gasUsed"`
	IsError     string `json:"isError"`
}

func (t Tx) Block() (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(t.BlockNumber), 10, 64)
}

func (t Tx) Time() (time.Time, error) {
	sec, err := strconv.ParseInt(strings.TrimSpace(t.TimeStamp), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, 0).UTC(), nil
}

type Config struct {
	BaseURL    string
	APIKey     string
	ChainID    int64
	RPS        float64
	Timeout    time.Duration
	MaxRetries int
}

type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, model.Errorf(model.ErrConfiguration, "etherscan client", "etherscan-key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = 1
	}
	if cfg.RPS <= 0 {
		cfg.RPS = DefaultRPS
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), 1),
		logger:  logger,
	}, nil
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type paged struct {
	Records       []Tx   `json:"records"`
	NextPageToken string `json:"nextPageToken"`
}

// TxList returns every normal transaction touching address in ascending block order,
// following page tokens until the API stops returning one.
func (c *Client) TxList(ctx context.Context, address common.Address) ([]Tx, error) {
	var all []Tx
	token := ""
	for page := 0; page < maxPages; page++ {
		q := url.Values{}
		q.Set("chainid", strconv.FormatInt(c.cfg.ChainID, 10))
		q.Set("module", "account")
		q.Set("action", "txlist")
		q.Set("address", address.Hex())
		q.Set("sort", "asc")
		q.Set("apikey", c.cfg.APIKey)
		if token != "" {
			q.Set("page", token)
		}

		body, err := c.get(ctx, q)
		if err != nil {
			return nil, err
		}
		records, next, err := decodePage(body)
		if err != nil {
			return nil, model.Wrap(model.ErrChainUnavailable, "etherscan txlist", err)
		}
		all = append(all, records...)
		if next == "" {
			c.logger.Debug("etherscan txlist", zap.String("address", address.Hex()), zap.Int("txs", len(all)), zap.Int("pages", page+1))
			return all, nil
		}
		token = next
	}
	return nil, model.Errorf(model.ErrChainUnavailable, "etherscan txlist", "more than %d pages", maxPages)
}

// decodePage accepts both the paged object result and the plain list result.
func decodePage(body []byte) ([]Tx, string, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, "", fmt.Errorf("decode response: %w", err)
	}
	raw := bytes.TrimSpace(env.Result)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		return nil, "", nil
	case raw[0] == '[':
		var list []Tx
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, "", fmt.Errorf("decode result list: %w", err)
		}
		return list, "", nil
	case raw[0] == '{':
		var p paged
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, "", fmt.Errorf("decode result page: %w", err)
		}
		return p.Records, p.NextPageToken, nil
	}

	var msg string
	_ = json.Unmarshal(raw, &msg)
	if strings.HasPrefix(env.Message, "No transactions found") || strings.HasPrefix(msg, "No transactions found") {
		return nil, "", nil
	}
	return nil, "", fmt.Errorf("etherscan %s: %s", env.Message, msg)
}

func (c *Client) get(ctx context.Context, q url.Values) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		body, retry, err := c.do(ctx, q)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
		c.logger.Warn("etherscan request failed", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return nil, model.Wrap(model.ErrChainUnavailable, "etherscan request", lastErr)
}

func (c *Client) do(ctx context.Context, q url.Values) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("http %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("http %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, false, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}
