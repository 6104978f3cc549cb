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

const bithumbBaseURL = "https://api.bithumb.com"

// BithumbREST implements Client against Bithumb's v1 trade API.
type BithumbREST struct {
	restBase
}

// NewBithumbREST builds a Bithumb REST client.
func NewBithumbREST(creds Credentials, limiter *ratelimit.Limiter, symbols *SymbolMaster) *BithumbREST {
	return &BithumbREST{restBase: newRestBase(domain.Bithumb, bithumbBaseURL, creds, limiter, symbols)}
}

type bithumbResponse struct {
	Status string          `json:"status"` // "0000" on success
	Data   json.RawMessage `json:"data"`
	Message string         `json:"message"`
}

func (c *BithumbREST) post(ctx context.Context, endpoint string, params url.Values) (bithumbResponse, error) {
	body := params.Encode()
	sig, nonce := bithumbSignature(c.creds.APISecret, endpoint, body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, nil)
	if err != nil {
		return bithumbResponse{}, domain.WrapError(domain.ErrInvalidRequest, "build bithumb request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Api-Key", c.creds.APIKey)
	req.Header.Set("Api-Sign", sig)
	req.Header.Set("Api-Nonce", nonce)
	req.URL.RawQuery = body // params travel on the query string in this simplified form

	resp, err := c.http.Do(req)
	if err != nil {
		return bithumbResponse{}, domain.WrapError(domain.ErrConnectionFailed, "bithumb request", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return bithumbResponse{}, domain.WrapError(domain.ErrConnectionFailed, "read bithumb response", err)
	}

	var out bithumbResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return bithumbResponse{}, domain.WrapError(domain.ErrParseError, "decode bithumb response", err)
	}
	if out.Status != "0000" {
		return out, domain.NewError(domain.ErrExchangeError, out.Message)
	}
	return out, nil
}

// PlaceOrder submits a market or limit order.
func (c *BithumbREST) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if err := c.rateGate(ratelimit.Order); err != nil {
		return domain.OrderResult{Status: domain.Failed}, err
	}
	market, ok := c.symbols.Native(req.Symbol, domain.Bithumb)
	if !ok {
		return domain.OrderResult{Status: domain.Failed}, domain.NewError(domain.ErrInvalidRequest, "no bithumb mapping for "+req.Symbol)
	}

	endpoint := "/trade/market_buy"
	if req.Side == domain.Sell {
		endpoint = "/trade/market_sell"
	}
	if req.Type == domain.Limit {
		endpoint = "/trade/place"
	}

	v := url.Values{}
	v.Set("order_currency", market)
	v.Set("units", strconv.FormatFloat(req.Quantity, 'f', -1, 64))
	if req.Type == domain.Limit {
		v.Set("price", strconv.FormatFloat(req.Price, 'f', -1, 64))
		v.Set("type", req.Side.String())
	}

	return c.guarded(func() (domain.OrderResult, error) {
		resp, err := c.post(ctx, endpoint, v)
		if err != nil {
			return domain.OrderResult{Status: domain.Failed, Message: err.Error()}, err
		}
		var data struct {
			OrderID string `json:"order_id"`
		}
		_ = json.Unmarshal(resp.Data, &data)
		return domain.OrderResult{ExchangeOrderID: data.OrderID, Status: domain.Open}, nil
	})
}

// CancelOrder cancels an open order.
func (c *BithumbREST) CancelOrder(ctx context.Context, symbol, exchangeOrderID string) (domain.OrderResult, error) {
	if err := c.rateGate(ratelimit.Order); err != nil {
		return domain.OrderResult{Status: domain.Failed}, err
	}
	market, _ := c.symbols.Native(symbol, domain.Bithumb)
	v := url.Values{}
	v.Set("order_id", exchangeOrderID)
	v.Set("order_currency", market)

	return c.guarded(func() (domain.OrderResult, error) {
		_, err := c.post(ctx, "/trade/cancel", v)
		if err != nil {
			return domain.OrderResult{Status: domain.Failed, Message: err.Error()}, err
		}
		return domain.OrderResult{ExchangeOrderID: exchangeOrderID, Status: domain.Canceled}, nil
	})
}

// GetOrder fetches the current state of an order.
func (c *BithumbREST) GetOrder(ctx context.Context, symbol, exchangeOrderID string) (domain.OrderResult, error) {
	if err := c.rateGate(ratelimit.Query); err != nil {
		return domain.OrderResult{Status: domain.Failed}, err
	}
	market, _ := c.symbols.Native(symbol, domain.Bithumb)
	v := url.Values{}
	v.Set("order_id", exchangeOrderID)
	v.Set("order_currency", market)

	return c.guarded(func() (domain.OrderResult, error) {
		resp, err := c.post(ctx, "/info/order_detail", v)
		if err != nil {
			return domain.OrderResult{Status: domain.Failed, Message: err.Error()}, err
		}
		var data struct {
			OrderStatus    string `json:"order_status"`
			UnitsRemaining string `json:"units_remaining"`
			Units          string `json:"units"`
		}
		_ = json.Unmarshal(resp.Data, &data)
		remaining, _ := strconv.ParseFloat(data.UnitsRemaining, 64)
		units, _ := strconv.ParseFloat(data.Units, 64)
		return domain.OrderResult{
			ExchangeOrderID: exchangeOrderID,
			Status:          normalizeStatus(data.OrderStatus),
			FilledQty:       units - remaining,
		}, nil
	})
}

// Withdraw submits a coin withdrawal, satisfying transfer.Withdrawer.
func (c *BithumbREST) Withdraw(ctx context.Context, coin, address, tag string, amount float64) (string, error) {
	if err := c.rateGate(ratelimit.Query); err != nil {
		return "", err
	}
	v := url.Values{}
	v.Set("currency", coin)
	v.Set("address", address)
	if tag != "" {
		v.Set("destination", tag)
	}
	v.Set("units", strconv.FormatFloat(amount, 'f', -1, 64))

	resp, err := c.post(ctx, "/trade/btc_withdrawal", v)
	if err != nil {
		return "", err
	}
	var data struct {
		WithdrawID string `json:"withdraw_id"`
	}
	_ = json.Unmarshal(resp.Data, &data)
	return data.WithdrawID, nil
}

// WithdrawStatus polls a submitted withdrawal's lifecycle state. Bithumb
// does not expose a dedicated by-ID withdrawal lookup on this API
// surface, so it lists the user's transactions: an entry whose order_id
// matches the submitted ID is reported completed with its transfer hash,
// and no match is reported processing. A request or venue-side error is
// returned as a failure with that error.
func (c *BithumbREST) WithdrawStatus(ctx context.Context, venueWithdrawID string) (domain.TransferStatus, string, error) {
	if err := c.rateGate(ratelimit.Query); err != nil {
		return domain.TransferFailed, "", err
	}
	v := url.Values{}
	v.Set("searchGb", "0")
	resp, err := c.post(ctx, "/info/user_transactions", v)
	if err != nil {
		return domain.TransferFailed, "", err
	}
	var entries []struct {
		OrderID string `json:"order_id"`
		TxHash  string `json:"transfer_hash"`
		Type    string `json:"search"`
	}
	_ = json.Unmarshal(resp.Data, &entries)
	for _, e := range entries {
		if e.OrderID == venueWithdrawID {
			return domain.TransferCompleted, e.TxHash, nil
		}
	}
	return domain.TransferProcessing, "", nil
}

// GetBalance fetches the available balance of one coin.
func (c *BithumbREST) GetBalance(ctx context.Context, coin string) (float64, error) {
	if err := c.rateGate(ratelimit.Query); err != nil {
		return 0, err
	}
	v := url.Values{}
	v.Set("currency", coin)

	resp, err := c.post(ctx, "/info/balance", v)
	if err != nil {
		return 0, err
	}
	var data map[string]string
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return 0, domain.WrapError(domain.ErrParseError, "decode bithumb balance", err)
	}
	return strconv.ParseFloat(data["available_"+coin], 64)
}
