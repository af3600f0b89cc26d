package hiveapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	Logger "github.com/hivereader/hivereader/utils/log"
)

// DefaultEndpoint is the public API node used when none is configured.
const DefaultEndpoint = "https://api.hive.blog"

const requestTimeout = 15 * time.Second

// FetchError is a transport or node-side failure of one API call. The feed
// loader surfaces it to callers as a retryable error state.
type FetchError struct {
	Method string
	Cause  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed: %v", e.Method, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// Client talks JSON-RPC 2.0 to a Hive API node.
type Client struct {
	endpoint string
	header   http.Header
	client   *http.Client

	nextID int64
}

// NewDefaultClient builds a client against DefaultEndpoint.
func NewDefaultClient() *Client {
	return NewClient(DefaultEndpoint)
}

// NewClient builds a client against the given node endpoint.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	return &Client{
		endpoint: endpoint,
		header:   header,
		client:   &http.Client{Timeout: requestTimeout},
	}
}

// Call performs one JSON-RPC call and unmarshals the result into out.
func (c *Client) Call(ctx context.Context, method string, params interface{}, out interface{}) error {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      atomic.AddInt64(&c.nextID, 1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return &FetchError{Method: method, Cause: errors.Wrap(err, "fail to marshal request")}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return &FetchError{Method: method, Cause: err}
	}
	req.Header = c.header

	res, err := c.client.Do(req)
	if err != nil {
		return &FetchError{Method: method, Cause: err}
	}
	defer res.Body.Close()

	body, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return &FetchError{Method: method, Cause: err}
	}
	if res.StatusCode != http.StatusOK {
		Logger.Log.Warn("non-200 from api node: ", res.StatusCode, " method: ", method)
		return &FetchError{Method: method, Cause: fmt.Errorf("http status %d", res.StatusCode)}
	}

	var parsed rpcResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return &FetchError{Method: method, Cause: errors.Wrap(err, "fail to parse response")}
	}
	if parsed.Error != nil {
		return &FetchError{Method: method, Cause: fmt.Errorf("node error %d: %s", parsed.Error.Code, parsed.Error.Message)}
	}

	if out != nil {
		if err := json.Unmarshal(parsed.Result, out); err != nil {
			return &FetchError{Method: method, Cause: errors.Wrap(err, "fail to parse result")}
		}
	}
	return nil
}
