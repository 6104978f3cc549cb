package order

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/xrparb/core/internal/domain"
	"github.com/xrparb/core/internal/ratelimit"
)

const upbitBaseURL = "https://api.upbit.com/v1"

// UpbitREST implements Client against Upbit's order API.
type UpbitREST struct {
	restBase
}

// NewUpbitREST builds an Upbit REST client.
func NewUpbitREST(creds Credentials, limiter *ratelimit.Limiter, symbols *SymbolMaster) *UpbitREST {
	return &UpbitREST{restBase: newRestBase(domain.Upbit, upbitBaseURL, creds, limiter, symbols)}
}

type upbitOrderResponse struct {
	UUID           string `json:"uuid"`
	State          string `json:"state"`
	ExecutedVolume string `json:"executed_volume"`
	Price          string `json:"price"`
	PaidFee        string `json:"paid_fee"`
	Error          *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *UpbitREST) do(ctx context.Context, method, path string, query url.Values) (upbitOrderResponse, error) {
	rawQuery := query.Encode()
	full := c.baseURL + path
	if rawQuery != "" && method == http.MethodGet {
		full += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, method, full, nil)
	if err != nil {
		return upbitOrderResponse{}, domain.WrapError(domain.ErrInvalidRequest, "build upbit request", err)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
		req.URL.RawQuery = rawQuery // Upbit signs POST params as a query-string hash too
	}

	jwt, err := upbitJWT(c.creds.APISecret, c.creds.APIKey, rawQuery)
	if err != nil {
		return upbitOrderResponse{}, domain.WrapError(domain.ErrAuthenticationFailed, "sign upbit request", err)
	}
	req.Header.Set("Authorization", "Bearer "+jwt)

	resp, err := c.http.Do(req)
	if err != nil {
		return upbitOrderResponse{}, domain.WrapError(domain.ErrConnectionFailed, "upbit request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return upbitOrderResponse{}, domain.WrapError(domain.ErrConnectionFailed, "read upbit response", err)
	}

	var out upbitOrderResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return upbitOrderResponse{}, domain.WrapError(domain.ErrParseError, "decode upbit response", err)
	}
	if resp.StatusCode >= 400 {
		msg := fmt.Sprintf("upbit http %d", resp.StatusCode)
		if out.Error != nil {
			msg = out.Error.Message
		}
		return out, domain.NewError(domain.ErrExchangeError, msg)
	}
	return out, nil
}

func (c *UpbitREST) toResult(o upbitOrderResponse) domain.OrderResult {
	filled, _ := strconv.ParseFloat(o.ExecutedVolume, 64)
	price, _ := strconv.ParseFloat(o.Price, 64)
	fee, _ := strconv.ParseFloat(o.PaidFee, 64)
	return domain.OrderResult{
		ExchangeOrderID: o.UUID,
		Status:          normalizeStatus(o.State),
		FilledQty:       filled,
		AvgFillPrice:    price,
		Commission:      fee,
	}
}

// PlaceOrder submits a market or limit order.
func (c *UpbitREST) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if err := c.rateGate(ratelimit.Order); err != nil {
		return domain.OrderResult{Status: domain.Failed}, err
	}
	market, ok := c.symbols.Native(req.Symbol, domain.Upbit)
	if !ok {
		return domain.OrderResult{Status: domain.Failed}, domain.NewError(domain.ErrInvalidRequest, "no upbit mapping for "+req.Symbol)
	}

	q := url.Values{}
	q.Set("market", market)
	q.Set("side", req.Side.String())
	if req.Type == domain.Market {
		q.Set("ord_type", sideMarketOrdType(req.Side))
		q.Set("volume", strconv.FormatFloat(req.Quantity, 'f', -1, 64))
	} else {
		q.Set("ord_type", "limit")
		q.Set("volume", strconv.FormatFloat(req.Quantity, 'f', -1, 64))
		q.Set("price", strconv.FormatFloat(req.Price, 'f', -1, 64))
	}

	return c.guarded(func() (domain.OrderResult, error) {
		resp, err := c.do(ctx, http.MethodPost, "/orders", q)
		if err != nil {
			return domain.OrderResult{Status: domain.Failed, Message: err.Error()}, err
		}
		return c.toResult(resp), nil
	})
}

// sideMarketOrdType maps {buy,sell} to Upbit's market order-type names,
// which differ by side (`price` for a KRW-denominated market buy,
// `market` for a quantity-denominated market sell).
func sideMarketOrdType(side domain.Side) string {
	if side == domain.Buy {
		return "price"
	}
	return "market"
}

// CancelOrder cancels an open order by exchange order ID.
func (c *UpbitREST) CancelOrder(ctx context.Context, symbol, exchangeOrderID string) (domain.OrderResult, error) {
	if err := c.rateGate(ratelimit.Order); err != nil {
		return domain.OrderResult{Status: domain.Failed}, err
	}
	q := url.Values{}
	q.Set("uuid", exchangeOrderID)
	return c.guarded(func() (domain.OrderResult, error) {
		resp, err := c.do(ctx, http.MethodDelete, "/order", q)
		if err != nil {
			return domain.OrderResult{Status: domain.Failed, Message: err.Error()}, err
		}
		return c.toResult(resp), nil
	})
}

// GetOrder fetches the current state of an order.
func (c *UpbitREST) GetOrder(ctx context.Context, symbol, exchangeOrderID string) (domain.OrderResult, error) {
	if err := c.rateGate(ratelimit.Query); err != nil {
		return domain.OrderResult{Status: domain.Failed}, err
	}
	q := url.Values{}
	q.Set("uuid", exchangeOrderID)
	return c.guarded(func() (domain.OrderResult, error) {
		resp, err := c.do(ctx, http.MethodGet, "/order", q)
		if err != nil {
			return domain.OrderResult{Status: domain.Failed, Message: err.Error()}, err
		}
		return c.toResult(resp), nil
	})
}

type upbitWithdrawResponse struct {
	UUID  string `json:"uuid"`
	State string `json:"state"`
	TxID  string `json:"txid"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Withdraw submits a coin withdrawal, satisfying transfer.Withdrawer.
func (c *UpbitREST) Withdraw(ctx context.Context, coin, address, tag string, amount float64) (string, error) {
	if err := c.rateGate(ratelimit.Query); err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("currency", coin)
	q.Set("address", address)
	if tag != "" {
		q.Set("secondary_address", tag)
	}
	q.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))

	rawQuery := q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/withdraws/coin", nil)
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidRequest, "build upbit withdraw request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.URL.RawQuery = rawQuery
	jwt, err := upbitJWT(c.creds.APISecret, c.creds.APIKey, rawQuery)
	if err != nil {
		return "", domain.WrapError(domain.ErrAuthenticationFailed, "sign upbit withdraw request", err)
	}
	req.Header.Set("Authorization", "Bearer "+jwt)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", domain.WrapError(domain.ErrConnectionFailed, "upbit withdraw request", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.WrapError(domain.ErrConnectionFailed, "read upbit withdraw response", err)
	}
	var out upbitWithdrawResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", domain.WrapError(domain.ErrParseError, "decode upbit withdraw response", err)
	}
	if resp.StatusCode >= 400 {
		msg := fmt.Sprintf("upbit withdraw http %d", resp.StatusCode)
		if out.Error != nil {
			msg = out.Error.Message
		}
		return "", domain.NewError(domain.ErrExchangeError, msg)
	}
	return out.UUID, nil
}

// WithdrawStatus polls a submitted withdrawal's lifecycle state.
func (c *UpbitREST) WithdrawStatus(ctx context.Context, venueWithdrawID string) (domain.TransferStatus, string, error) {
	if err := c.rateGate(ratelimit.Query); err != nil {
		return domain.TransferFailed, "", err
	}
	q := url.Values{}
	q.Set("uuid", venueWithdrawID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/withdraw?"+q.Encode(), nil)
	if err != nil {
		return domain.TransferFailed, "", domain.WrapError(domain.ErrInvalidRequest, "build upbit withdraw status request", err)
	}
	jwt, err := upbitJWT(c.creds.APISecret, c.creds.APIKey, q.Encode())
	if err != nil {
		return domain.TransferFailed, "", domain.WrapError(domain.ErrAuthenticationFailed, "sign upbit withdraw status request", err)
	}
	req.Header.Set("Authorization", "Bearer "+jwt)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.TransferFailed, "", domain.WrapError(domain.ErrConnectionFailed, "upbit withdraw status request", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.TransferFailed, "", domain.WrapError(domain.ErrConnectionFailed, "read upbit withdraw status response", err)
	}
	var out upbitWithdrawResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return domain.TransferFailed, "", domain.WrapError(domain.ErrParseError, "decode upbit withdraw status response", err)
	}
	return normalizeWithdrawStatus(out.State), out.TxID, nil
}

// GetBalance fetches the available balance of one coin.
func (c *UpbitREST) GetBalance(ctx context.Context, coin string) (float64, error) {
	if err := c.rateGate(ratelimit.Query); err != nil {
		return 0, err
	}
	type account struct {
		Currency string `json:"currency"`
		Balance  string `json:"balance"`
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/accounts", nil)
	if err != nil {
		return 0, domain.WrapError(domain.ErrInvalidRequest, "build upbit accounts request", err)
	}
	jwt, err := upbitJWT(c.creds.APISecret, c.creds.APIKey, "")
	if err != nil {
		return 0, domain.WrapError(domain.ErrAuthenticationFailed, "sign upbit accounts request", err)
	}
	req.Header.Set("Authorization", "Bearer "+jwt)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, domain.WrapError(domain.ErrConnectionFailed, "upbit accounts request", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, domain.WrapError(domain.ErrConnectionFailed, "read upbit accounts response", err)
	}

	var accounts []account
	if err := json.Unmarshal(body, &accounts); err != nil {
		return 0, domain.WrapError(domain.ErrParseError, "decode upbit accounts response", err)
	}
	for _, a := range accounts {
		if a.Currency == coin {
			return strconv.ParseFloat(a.Balance, 64)
		}
	}
	return 0, nil
}
