// Package near checks NEAR account access keys over the JSON-RPC API.
package near

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/chainsocial/social-api/internal/infrastructure/crypto"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20

	// unknownAccessKey is the error cause a node reports for a key the
	// account does not hold.
	unknownAccessKey = "UNKNOWN_ACCESS_KEY"
)

type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      string         `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

type rpcResponse struct {
	Result *struct {
		Permission json.RawMessage `json:"permission"`
		// Older nodes answer an unknown key with a result carrying an error.
		Error string `json:"error"`
	} `json:"result"`
	Error *struct {
		Name  string `json:"name"`
		Cause struct {
			Name string `json:"name"`
		} `json:"cause"`
		Message string `json:"message"`
	} `json:"error"`
}

// AccessKeys implements ports.AccessKeyResolver.
type AccessKeys struct {
	http    *http.Client
	timeout time.Duration
	log     zerolog.Logger
}

func NewAccessKeys(timeout time.Duration, log zerolog.Logger) *AccessKeys {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &AccessKeys{http: &http.Client{}, timeout: timeout, log: log}
}

// HasAccessKey asks the node at rpcURL whether accountID holds publicKey,
// given as hex or "ed25519:<base58>". A key that cannot be an ed25519 key
// is reported as not held.
func (a *AccessKeys) HasAccessKey(ctx context.Context, rpcURL, accountID, publicKey string) (bool, error) {
	key, err := crypto.NearPublicKey(publicKey)
	if err != nil {
		return false, nil
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      "social-api",
		Method:  "query",
		Params: map[string]any{
			"request_type": "view_access_key",
			"finality":     "final",
			"account_id":   accountID,
			"public_key":   key,
		},
	})
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rpcURL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("view access key: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("view access key: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return false, fmt.Errorf("view access key: unexpected status %d", resp.StatusCode)
	}

	var out rpcResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&out); err != nil {
		return false, fmt.Errorf("view access key: decode: %w", err)
	}

	switch {
	case out.Error != nil && out.Error.Cause.Name == unknownAccessKey:
		return false, nil
	case out.Error != nil:
		return false, fmt.Errorf("view access key: %s: %s", out.Error.Name, out.Error.Message)
	case out.Result == nil:
		return false, fmt.Errorf("view access key: empty result")
	case out.Result.Error != "":
		a.log.Debug().Str("account_id", accountID).Str("reason", out.Result.Error).Msg("access key not found")
		return false, nil
	}
	return len(out.Result.Permission) > 0, nil
}
