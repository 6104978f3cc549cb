package order

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/xrparb/core/internal/domain"
	"github.com/xrparb/core/internal/ratelimit"
)

const mexcBaseURL = "https://api.mexc.com"

// MEXCREST implements Client against MEXC's spot order API, whose
// signing scheme is HMAC-SHA256 over the canonical query string
// exactly like Binance (spec.md §4.5).
type MEXCREST struct {
	restBase
}

// NewMEXCREST builds a MEXC REST client.
func NewMEXCREST(creds Credentials, limiter *ratelimit.Limiter, symbols *SymbolMaster) *MEXCREST {
	return &MEXCREST{restBase: newRestBase(domain.MEXC, mexcBaseURL, creds, limiter, symbols)}
}

type mexcOrderResponse struct {
	OrderID     string `json:"orderId"`
	Status      string `json:"status"`
	ExecutedQty string `json:"executedQty"`
	Price       string `json:"price"`
	Code        int    `json:"code"`
	Msg         string `json:"msg"`
}

func (c *MEXCREST) signedRequest(ctx context.Context, method, path string, values url.Values) (mexcOrderResponse, error) {
	values = withTimestamp(values)
	query := values.Encode()
	sig := binanceSignature(c.creds.APISecret, query) // identical HMAC-SHA256 scheme
	full := c.baseURL + path + "?" + query + "&signature=" + sig

	req, err := http.NewRequestWithContext(ctx, method, full, nil)
	if err != nil {
		return mexcOrderResponse{}, domain.WrapError(domain.ErrInvalidRequest, "build mexc request", err)
	}
	req.Header.Set("X-MEXC-APIKEY", c.creds.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return mexcOrderResponse{}, domain.WrapError(domain.ErrConnectionFailed, "mexc request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return mexcOrderResponse{}, domain.WrapError(domain.ErrConnectionFailed, "read mexc response", err)
	}

	var out mexcOrderResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return mexcOrderResponse{}, domain.WrapError(domain.ErrParseError, "decode mexc response", err)
	}
	if resp.StatusCode >= 400 {
		return out, domain.NewError(domain.ErrExchangeError, out.Msg)
	}
	return out, nil
}

func toMEXCResult(o mexcOrderResponse) domain.OrderResult {
	filled, _ := strconv.ParseFloat(o.ExecutedQty, 64)
	price, _ := strconv.ParseFloat(o.Price, 64)
	return domain.OrderResult{
		ExchangeOrderID: o.OrderID,
		Status:          normalizeStatus(o.Status),
		FilledQty:       filled,
		AvgFillPrice:    price,
	}
}

// PlaceOrder submits a market or limit order.
func (c *MEXCREST) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if err := c.rateGate(ratelimit.Order); err != nil {
		return domain.OrderResult{Status: domain.Failed}, err
	}
	symbol, ok := c.symbols.Native(req.Symbol, domain.MEXC)
	if !ok {
		return domain.OrderResult{Status: domain.Failed}, domain.NewError(domain.ErrInvalidRequest, "no mexc mapping for "+req.Symbol)
	}

	v := url.Values{}
	v.Set("symbol", symbol)
	v.Set("side", sideUpper(req.Side))
	v.Set("type", typeUpper(req.Type))
	v.Set("quantity", strconv.FormatFloat(req.Quantity, 'f', -1, 64))
	if req.Type == domain.Limit {
		v.Set("price", strconv.FormatFloat(req.Price, 'f', -1, 64))
	}

	return c.guarded(func() (domain.OrderResult, error) {
		resp, err := c.signedRequest(ctx, http.MethodPost, "/api/v3/order", v)
		if err != nil {
			return domain.OrderResult{Status: domain.Failed, Message: err.Error()}, err
		}
		return toMEXCResult(resp), nil
	})
}

// CancelOrder cancels an open order by exchange order ID.
func (c *MEXCREST) CancelOrder(ctx context.Context, symbol, exchangeOrderID string) (domain.OrderResult, error) {
	if err := c.rateGate(ratelimit.Order); err != nil {
		return domain.OrderResult{Status: domain.Failed}, err
	}
	native, _ := c.symbols.Native(symbol, domain.MEXC)
	v := url.Values{}
	v.Set("symbol", native)
	v.Set("orderId", exchangeOrderID)
	return c.guarded(func() (domain.OrderResult, error) {
		resp, err := c.signedRequest(ctx, http.MethodDelete, "/api/v3/order", v)
		if err != nil {
			return domain.OrderResult{Status: domain.Failed, Message: err.Error()}, err
		}
		return toMEXCResult(resp), nil
	})
}

// GetOrder fetches the current state of an order.
func (c *MEXCREST) GetOrder(ctx context.Context, symbol, exchangeOrderID string) (domain.OrderResult, error) {
	if err := c.rateGate(ratelimit.Query); err != nil {
		return domain.OrderResult{Status: domain.Failed}, err
	}
	native, _ := c.symbols.Native(symbol, domain.MEXC)
	v := url.Values{}
	v.Set("symbol", native)
	v.Set("orderId", exchangeOrderID)
	return c.guarded(func() (domain.OrderResult, error) {
		resp, err := c.signedRequest(ctx, http.MethodGet, "/api/v3/order", v)
		if err != nil {
			return domain.OrderResult{Status: domain.Failed, Message: err.Error()}, err
		}
		return toMEXCResult(resp), nil
	})
}

type mexcWithdrawResponse struct {
	ID   string `json:"id"`
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Withdraw submits a coin withdrawal, satisfying transfer.Withdrawer.
func (c *MEXCREST) Withdraw(ctx context.Context, coin, address, tag string, amount float64) (string, error) {
	if err := c.rateGate(ratelimit.Query); err != nil {
		return "", err
	}
	v := url.Values{}
	v.Set("coin", coin)
	v.Set("address", address)
	if tag != "" {
		v.Set("memo", tag)
	}
	v.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))
	v = withTimestamp(v)
	query := v.Encode()
	sig := binanceSignature(c.creds.APISecret, query)
	full := c.baseURL + "/api/v3/capital/withdraw/apply?" + query + "&signature=" + sig

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, full, nil)
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidRequest, "build mexc withdraw request", err)
	}
	req.Header.Set("X-MEXC-APIKEY", c.creds.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", domain.WrapError(domain.ErrConnectionFailed, "mexc withdraw request", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.WrapError(domain.ErrConnectionFailed, "read mexc withdraw response", err)
	}
	var out mexcWithdrawResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", domain.WrapError(domain.ErrParseError, "decode mexc withdraw response", err)
	}
	if resp.StatusCode >= 400 {
		return "", domain.NewError(domain.ErrExchangeError, out.Msg)
	}
	return out.ID, nil
}

type mexcWithdrawHistoryEntry struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	TxID   string `json:"txId"`
}

// WithdrawStatus polls a submitted withdrawal's lifecycle state.
func (c *MEXCREST) WithdrawStatus(ctx context.Context, venueWithdrawID string) (domain.TransferStatus, string, error) {
	if err := c.rateGate(ratelimit.Query); err != nil {
		return domain.TransferFailed, "", err
	}
	v := withTimestamp(url.Values{})
	query := v.Encode()
	sig := binanceSignature(c.creds.APISecret, query)
	full := c.baseURL + "/api/v3/capital/withdraw/history?" + query + "&signature=" + sig

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return domain.TransferFailed, "", domain.WrapError(domain.ErrInvalidRequest, "build mexc withdraw history request", err)
	}
	req.Header.Set("X-MEXC-APIKEY", c.creds.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.TransferFailed, "", domain.WrapError(domain.ErrConnectionFailed, "mexc withdraw history request", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.TransferFailed, "", domain.WrapError(domain.ErrConnectionFailed, "read mexc withdraw history response", err)
	}
	var entries []mexcWithdrawHistoryEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return domain.TransferFailed, "", domain.WrapError(domain.ErrParseError, "decode mexc withdraw history response", err)
	}
	for _, e := range entries {
		if e.ID == venueWithdrawID {
			return normalizeWithdrawStatus(e.Status), e.TxID, nil
		}
	}
	return domain.TransferProcessing, "", nil
}

// GetBalance fetches the free balance of one coin.
func (c *MEXCREST) GetBalance(ctx context.Context, coin string) (float64, error) {
	if err := c.rateGate(ratelimit.Query); err != nil {
		return 0, err
	}
	v := withTimestamp(url.Values{})
	query := v.Encode()
	sig := binanceSignature(c.creds.APISecret, query)
	full := c.baseURL + "/api/v3/account?" + query + "&signature=" + sig

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return 0, domain.WrapError(domain.ErrInvalidRequest, "build mexc account request", err)
	}
	req.Header.Set("X-MEXC-APIKEY", c.creds.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, domain.WrapError(domain.ErrConnectionFailed, "mexc account request", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, domain.WrapError(domain.ErrConnectionFailed, "read mexc account response", err)
	}

	var out struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, domain.WrapError(domain.ErrParseError, "decode mexc account response", err)
	}
	for _, b := range out.Balances {
		if b.Asset == coin {
			return strconv.ParseFloat(b.Free, 64)
		}
	}
	return 0, nil
}
