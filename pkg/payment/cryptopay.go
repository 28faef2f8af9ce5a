package payment

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
)

const defaultBaseURL = "https://pay.crypt.bot/api"

// Invoice statuses reported by CryptoPay.
const (
	InvoiceStatusActive  = "active"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusExpired = "expired"
	InvoiceStatusFailed  = "failed"
)

type Invoice struct {
	InvoiceID int64  `json:"invoice_id"`
	Status    string `json:"status"`
	Amount    string `json:"amount"`
	PayURL    string `json:"bot_invoice_url"`
}

// AmountMinor returns the invoice amount in whole currency units.
// Amounts are parsed exactly, never through floating point; an invoice
// carrying a non-zero fraction is rejected rather than rounded.
func (i *Invoice) AmountMinor() (int64, error) {
	whole, frac, _ := strings.Cut(i.Amount, ".")
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units < 0 {
		return 0, fmt.Errorf("invalid invoice amount %q", i.Amount)
	}
	for _, d := range frac {
		if d != '0' {
			return 0, fmt.Errorf("fractional invoice amount %q", i.Amount)
		}
	}
	return units, nil
}

// CryptoPayClient is a thin client for the CryptoPay invoice API.
// It is always called outside the ledger transaction boundary.
type CryptoPayClient struct {
	token   string
	baseURL string
	httpc   *http.Client
}

func NewCryptoPayClient(token string) *CryptoPayClient {
	return &CryptoPayClient{
		token:   token,
		baseURL: defaultBaseURL,
		httpc:   &http.Client{Timeout: 15 * time.Second},
	}
}

// WithBaseURL overrides the API endpoint, used in tests.
func (c *CryptoPayClient) WithBaseURL(base string) *CryptoPayClient {
	c.baseURL = base
	return c
}

type apiResponse struct {
	Ok     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
}

func (c *CryptoPayClient) CreateInvoice(ctx context.Context, amount int64, currency, description string, expiresIn int) (*Invoice, error) {
	params := map[string]interface{}{
		"currency_type":   "fiat",
		"fiat":            currency,
		"amount":          strconv.FormatInt(amount, 10),
		"accepted_assets": "TON,USDT",
		"expires_in":      expiresIn,
	}
	if description != "" {
		params["description"] = description
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/createInvoice", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Crypto-Pay-API-Token", c.token)

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var invoice Invoice
	if err := json.Unmarshal(raw, &invoice); err != nil {
		return nil, fmt.Errorf("decode invoice: %w", err)
	}
	return &invoice, nil
}

func (c *CryptoPayClient) GetInvoice(ctx context.Context, invoiceID string) (*Invoice, error) {
	q := url.Values{}
	q.Set("invoice_ids", invoiceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/getInvoices?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Crypto-Pay-API-Token", c.token)

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var result struct {
		Items []Invoice `json:"items"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode invoices: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, fmt.Errorf("invoice %s not found", invoiceID)
	}
	return &result.Items[0], nil
}

func (c *CryptoPayClient) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cryptopay request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("cryptopay status %d: %s", resp.StatusCode, body)
	}

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return nil, fmt.Errorf("cryptopay decode: %w", err)
	}
	if !api.Ok {
		return nil, fmt.Errorf("cryptopay error response")
	}
	return api.Result, nil
}
