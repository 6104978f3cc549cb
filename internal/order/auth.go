package order

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Signing is hand-rolled against the standard library rather than a
// third-party JWT/HMAC package: each venue's scheme (spec.md §4.5) is a
// few lines of crypto/hmac plus, for Upbit, a minimal unregistered-claims
// JWT — pulling in a general-purpose JWT library for one fixed HS256
// payload shape would add a dependency surface (claims validation,
// multiple algorithms, key rotation) this core never exercises.

// upbitJWT builds the per-call bearer token Upbit's REST API requires:
// a HS256 JWT over {access_key, nonce, timestamp[, query_hash,
// query_hash_alg]}.
func upbitJWT(secret, accessKey, rawQuery string) (string, error) {
	header := map[string]string{"alg": "HS256", "typ": "JWT"}
	claims := map[string]any{
		"access_key": accessKey,
		"nonce":      uuid.NewString(),
		"timestamp":  time.Now().UnixMilli(),
	}
	if rawQuery != "" {
		sum := sha512.Sum512([]byte(rawQuery))
		claims["query_hash"] = hex.EncodeToString(sum[:])
		claims["query_hash_alg"] = "SHA512"
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", err
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	segment := base64URLNoPad(headerJSON) + "." + base64URLNoPad(claimsJSON)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(segment))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return segment + "." + sig, nil
}

func base64URLNoPad(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// binanceSignature signs query (the canonical query string with
// timestamp already appended) with HMAC-SHA256, hex-encoded. MEXC uses
// the identical scheme (spec.md §4.5 "analogous to Binance").
func binanceSignature(secret, query string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

// withTimestamp sets the timestamp=<ms> parameter on values (allocating
// values if nil) ahead of signing, as Binance/MEXC require; the caller's
// url.Values.Encode places it in sorted key order.
func withTimestamp(values url.Values) url.Values {
	if values == nil {
		values = url.Values{}
	}
	values.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	return values
}

// bithumbLastNonce is the last nonce bithumbSignature handed out.
var bithumbLastNonce atomic.Int64

// bithumbSignature computes HMAC-SHA512 over "endpoint;params;nonce",
// base64-encoded, and returns the signature alongside the nonce used —
// Bithumb requires the same nonce in a matching header. The nonce is the
// millisecond clock, raised past the previous nonce when needed so that
// successive nonces strictly increase.
func bithumbSignature(secret, endpoint, params string) (sig string, nonce string) {
	n := time.Now().UnixMilli()
	for {
		last := bithumbLastNonce.Load()
		if n <= last {
			n = last + 1
		}
		if bithumbLastNonce.CompareAndSwap(last, n) {
			break
		}
	}
	nonce = strconv.FormatInt(n, 10)
	payload := fmt.Sprintf("%s;%s;%s", endpoint, params, nonce)
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nonce
}
