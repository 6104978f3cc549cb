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

const binanceBaseURL = "https://api.binance.com"

// BinanceREST implements Client against Binance's spot order API. MEXC
// reuses this exact signing/request shape (spec.md §4.5 "analogous to
// Binance"); MEXCREST embeds the same helpers against its own base URL.
type BinanceREST struct {
	restBase
}

// NewBinanceREST builds a Binance REST client.
func NewBinanceREST(creds Credentials, limiter *ratelimit.Limiter, symbols *SymbolMaster) *BinanceREST {
	return &BinanceREST{restBase: newRestBase(domain.Binance, binanceBaseURL, creds, limiter, symbols)}
}

type binanceOrderResponse struct {
	OrderID             int64  `json:"orderId"`
	Status              string `json:"status"`
	ExecutedQty         string `json:"executedQty"`
	CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
	Code                int    `json:"code"`
	Msg                 string `json:"msg"`
}

func (c *BinanceREST) signedRequest(ctx context.Context, method, path string, values url.Values) (binanceOrderResponse, error) {
	values = withTimestamp(values)
	query := values.Encode()
	sig := binanceSignature(c.creds.APISecret, query)
	full := c.baseURL + path + "?" + query + "&signature=" + sig

	req, err := http.NewRequestWithContext(ctx, method, full, nil)
	if err != nil {
		return binanceOrderResponse{}, domain.WrapError(domain.ErrInvalidRequest, "build binance request", err)
	}
	req.Header.Set("X-MBX-APIKEY", c.creds.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return binanceOrderResponse{}, domain.WrapError(domain.ErrConnectionFailed, "binance request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return binanceOrderResponse{}, domain.WrapError(domain.ErrConnectionFailed, "read binance response", err)
	}

	var out binanceOrderResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return binanceOrderResponse{}, domain.WrapError(domain.ErrParseError, "decode binance response", err)
	}
	if resp.StatusCode >= 400 {
		return out, domain.NewError(domain.ErrExchangeError, out.Msg)
	}
	return out, nil
}

func toBinanceResult(o binanceOrderResponse) domain.OrderResult {
	filled, _ := strconv.ParseFloat(o.ExecutedQty, 64)
	quote, _ := strconv.ParseFloat(o.CummulativeQuoteQty, 64)
	var avgPrice float64
	if filled > 0 {
		avgPrice = quote / filled
	}
	return domain.OrderResult{
		ExchangeOrderID: strconv.FormatInt(o.OrderID, 10),
		Status:          normalizeStatus(o.Status),
		FilledQty:       filled,
		AvgFillPrice:    avgPrice,
	}
}

// PlaceOrder submits a market or limit order.
func (c *BinanceREST) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if err := c.rateGate(ratelimit.Order); err != nil {
		return domain.OrderResult{Status: domain.Failed}, err
	}
	symbol, ok := c.symbols.Native(req.Symbol, domain.Binance)
	if !ok {
		return domain.OrderResult{Status: domain.Failed}, domain.NewError(domain.ErrInvalidRequest, "no binance mapping for "+req.Symbol)
	}

	v := url.Values{}
	v.Set("symbol", symbol)
	v.Set("side", sideUpper(req.Side))
	v.Set("type", typeUpper(req.Type))
	v.Set("quantity", strconv.FormatFloat(req.Quantity, 'f', -1, 64))
	if req.Type == domain.Limit {
		v.Set("price", strconv.FormatFloat(req.Price, 'f', -1, 64))
		v.Set("timeInForce", "GTC")
	}

	return c.guarded(func() (domain.OrderResult, error) {
		resp, err := c.signedRequest(ctx, http.MethodPost, "/api/v3/order", v)
		if err != nil {
			return domain.OrderResult{Status: domain.Failed, Message: err.Error()}, err
		}
		return toBinanceResult(resp), nil
	})
}

func sideUpper(s domain.Side) string {
	if s == domain.Buy {
		return "BUY"
	}
	return "SELL"
}

func typeUpper(t domain.OrderType) string {
	if t == domain.Market {
		return "MARKET"
	}
	return "LIMIT"
}

// CancelOrder cancels an open order by exchange order ID.
func (c *BinanceREST) CancelOrder(ctx context.Context, symbol, exchangeOrderID string) (domain.OrderResult, error) {
	if err := c.rateGate(ratelimit.Order); err != nil {
		return domain.OrderResult{Status: domain.Failed}, err
	}
	native, _ := c.symbols.Native(symbol, domain.Binance)
	v := url.Values{}
	v.Set("symbol", native)
	v.Set("orderId", exchangeOrderID)
	return c.guarded(func() (domain.OrderResult, error) {
		resp, err := c.signedRequest(ctx, http.MethodDelete, "/api/v3/order", v)
		if err != nil {
			return domain.OrderResult{Status: domain.Failed, Message: err.Error()}, err
		}
		return toBinanceResult(resp), nil
	})
}

// GetOrder fetches the current state of an order.
func (c *BinanceREST) GetOrder(ctx context.Context, symbol, exchangeOrderID string) (domain.OrderResult, error) {
	if err := c.rateGate(ratelimit.Query); err != nil {
		return domain.OrderResult{Status: domain.Failed}, err
	}
	native, _ := c.symbols.Native(symbol, domain.Binance)
	v := url.Values{}
	v.Set("symbol", native)
	v.Set("orderId", exchangeOrderID)
	return c.guarded(func() (domain.OrderResult, error) {
		resp, err := c.signedRequest(ctx, http.MethodGet, "/api/v3/order", v)
		if err != nil {
			return domain.OrderResult{Status: domain.Failed, Message: err.Error()}, err
		}
		return toBinanceResult(resp), nil
	})
}

type binanceWithdrawResponse struct {
	ID   string `json:"id"`
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Withdraw submits a coin withdrawal, satisfying transfer.Withdrawer.
func (c *BinanceREST) Withdraw(ctx context.Context, coin, address, tag string, amount float64) (string, error) {
	if err := c.rateGate(ratelimit.Query); err != nil {
		return "", err
	}
	v := url.Values{}
	v.Set("coin", coin)
	v.Set("address", address)
	if tag != "" {
		v.Set("addressTag", tag)
	}
	v.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))
	v = withTimestamp(v)
	query := v.Encode()
	sig := binanceSignature(c.creds.APISecret, query)
	full := c.baseURL + "/sapi/v1/capital/withdraw/apply?" + query + "&signature=" + sig

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, full, nil)
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidRequest, "build binance withdraw request", err)
	}
	req.Header.Set("X-MBX-APIKEY", c.creds.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", domain.WrapError(domain.ErrConnectionFailed, "binance withdraw request", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.WrapError(domain.ErrConnectionFailed, "read binance withdraw response", err)
	}
	var out binanceWithdrawResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", domain.WrapError(domain.ErrParseError, "decode binance withdraw response", err)
	}
	if resp.StatusCode >= 400 {
		return "", domain.NewError(domain.ErrExchangeError, out.Msg)
	}
	return out.ID, nil
}

type binanceWithdrawHistoryEntry struct {
	ID     string `json:"id"`
	Status int    `json:"status"`
	TxID   string `json:"txId"`
}

// WithdrawStatus polls a submitted withdrawal's lifecycle state. Binance
// exposes withdrawal state as an integer code rather than a string, so
// this bypasses normalizeWithdrawStatus's string table.
func (c *BinanceREST) WithdrawStatus(ctx context.Context, venueWithdrawID string) (domain.TransferStatus, string, error) {
	if err := c.rateGate(ratelimit.Query); err != nil {
		return domain.TransferFailed, "", err
	}
	v := withTimestamp(url.Values{})
	query := v.Encode()
	sig := binanceSignature(c.creds.APISecret, query)
	full := c.baseURL + "/sapi/v1/capital/withdraw/history?" + query + "&signature=" + sig

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return domain.TransferFailed, "", domain.WrapError(domain.ErrInvalidRequest, "build binance withdraw history request", err)
	}
	req.Header.Set("X-MBX-APIKEY", c.creds.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.TransferFailed, "", domain.WrapError(domain.ErrConnectionFailed, "binance withdraw history request", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.TransferFailed, "", domain.WrapError(domain.ErrConnectionFailed, "read binance withdraw history response", err)
	}
	var entries []binanceWithdrawHistoryEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return domain.TransferFailed, "", domain.WrapError(domain.ErrParseError, "decode binance withdraw history response", err)
	}
	for _, e := range entries {
		if e.ID == venueWithdrawID {
			return binanceWithdrawStatusCode(e.Status), e.TxID, nil
		}
	}
	return domain.TransferProcessing, "", nil
}

// binanceWithdrawStatusCode maps Binance's integer withdrawal status
// codes (0=email sent,1=cancelled,2=awaiting approval,3=rejected,
// 4=processing,5=failure,6=completed) onto domain.TransferStatus.
func binanceWithdrawStatusCode(code int) domain.TransferStatus {
	switch code {
	case 1:
		return domain.TransferCancelled
	case 3, 5:
		return domain.TransferFailed
	case 6:
		return domain.TransferCompleted
	default:
		return domain.TransferProcessing
	}
}

// GetBalance fetches the free balance of one coin from account info.
func (c *BinanceREST) GetBalance(ctx context.Context, coin string) (float64, error) {
	if err := c.rateGate(ratelimit.Query); err != nil {
		return 0, err
	}
	v := withTimestamp(url.Values{})
	query := v.Encode()
	sig := binanceSignature(c.creds.APISecret, query)
	full := c.baseURL + "/api/v3/account?" + query + "&signature=" + sig

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return 0, domain.WrapError(domain.ErrInvalidRequest, "build binance account request", err)
	}
	req.Header.Set("X-MBX-APIKEY", c.creds.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, domain.WrapError(domain.ErrConnectionFailed, "binance account request", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, domain.WrapError(domain.ErrConnectionFailed, "read binance account response", err)
	}

	var out struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, domain.WrapError(domain.ErrParseError, "decode binance account response", err)
	}
	for _, b := range out.Balances {
		if b.Asset == coin {
			return strconv.ParseFloat(b.Free, 64)
		}
	}
	return 0, nil
}
