// Package dumaos is a client for the JSON-RPC interface exposed by DumaOS
// routers (Netduma R3 and similar). The interface is undocumented and
// firmware-specific; decoding ignores unknown fields and validates only
// the fields the poller needs.
package dumaos

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// RPC app identifiers on the router.
const (
	appDevices = "com.netdumasoftware.devicemanager"
	appQoS     = "com.netdumasoftware.smartqos"
	appSystem  = "com.netdumasoftware.systeminfo"
)

var errForeignRedirect = errors.New("redirect to foreign host refused")

// Config describes how to reach one router.
type Config struct {
	Host      string        // bare host or host:port
	VerifyTLS bool          // self-signed certs require opting out
	Timeout   time.Duration // per-request deadline
	Username  string        // optional basic auth
	Password  string
}

// Client issues JSON-RPC calls to a single router. It is safe for
// concurrent use. The client performs no retries; retry policy belongs to
// the poll coordinator.
type Client struct {
	cfg   Config
	httpc *http.Client
	log   zerolog.Logger
	reqID atomic.Int64

	mu   sync.Mutex
	base string // resolved "https://host" or "http://host"
}

// NewClient creates a Client for the given router.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	hostname := cfg.Host
	if h, _, err := net.SplitHostPort(cfg.Host); err == nil {
		hostname = h
	}

	return &Client{
		cfg: cfg,
		log: log.With().Str("router", cfg.Host).Logger(),
		httpc: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.VerifyTLS, //nolint:gosec // routers ship self-signed certs
				},
			},
			// A misbehaving or compromised router must not steer requests
			// off-box.
			CheckRedirect: func(req *http.Request, _ []*http.Request) error {
				if req.URL.Hostname() != hostname {
					return errForeignRedirect
				}
				return nil
			},
		},
	}
}

// Host returns the configured router host.
func (c *Client) Host() string { return c.cfg.Host }

type rpcRequest struct {
	JSONRPC    string `json:"jsonrpc"`
	ID         int64  `json:"id"`
	ClientType string `json:"clienttype"`
	Method     string `json:"method"`
	Params     []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// ensureBase resolves the URL scheme by probing https first, then http,
// and caches the working base. DumaOS firmwares serve on either scheme
// depending on configuration.
func (c *Client) ensureBase(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.base != "" {
		return c.base, nil
	}

	var lastErr error
	for _, scheme := range []string{"https", "http"} {
		base := scheme + "://" + c.cfg.Host
		_, err := c.post(ctx, base, appSystem, "get_system_info", nil)
		if err == nil {
			c.log.Debug().Str("base", base).Msg("resolved router base URL")
			c.base = base
			return base, nil
		}
		lastErr = err
		// Auth failures mean the endpoint is alive; stop probing.
		var te *TransportError
		if errors.As(err, &te) && te.Kind == ErrHTTPStatus && te.StatusCode == http.StatusUnauthorized {
			return "", err
		}
	}
	return "", lastErr
}

// call performs one JSON-RPC request and returns the raw result payload.
func (c *Client) call(ctx context.Context, app, method string, params []any) (json.RawMessage, error) {
	base, err := c.ensureBase(ctx)
	if err != nil {
		return nil, err
	}
	result, err := c.post(ctx, base, app, method, params)
	if err != nil {
		// Force a fresh scheme probe if the router stopped answering on
		// the cached base (e.g. after a firmware update).
		if IsKind(err, ErrUnreachable) {
			c.mu.Lock()
			c.base = ""
			c.mu.Unlock()
		}
		return nil, err
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, base, app, method string, params []any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}
	payload, err := json.Marshal(rpcRequest{
		JSONRPC:    "2.0",
		ID:         c.reqID.Add(1),
		ClientType: "web",
		Method:     method,
		Params:     params,
	})
	if err != nil {
		return nil, malformed(method, err)
	}

	url := fmt.Sprintf("%s/apps/%s/rpc/", base, app)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, malformed(method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.Username != "" || c.cfg.Password != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		if errors.Is(err, errForeignRedirect) {
			return nil, malformed(method, errForeignRedirect)
		}
		return nil, classify(method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Kind: ErrHTTPStatus, Method: method, StatusCode: resp.StatusCode}
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, malformed(method, err)
	}
	if len(rpcResp.Error) > 0 && !bytes.Equal(rpcResp.Error, []byte("null")) {
		return nil, malformed(method, fmt.Errorf("rpc error: %s", rpcResp.Error))
	}
	return rpcResp.Result, nil
}

// DeviceList fetches all known devices and resolves per-device presence
// from the currently online interfaces. This is one logical fetch: both
// RPCs must succeed.
func (c *Client) DeviceList(ctx context.Context) ([]DeviceEntry, error) {
	onlineRaw, err := c.call(ctx, appDevices, "get_valid_online_interfaces", nil)
	if err != nil {
		return nil, err
	}
	onlineMACs, err := decodeOnlineMACs(onlineRaw)
	if err != nil {
		return nil, malformed("get_valid_online_interfaces", err)
	}

	devicesRaw, err := c.call(ctx, appDevices, "get_all_devices", nil)
	if err != nil {
		return nil, err
	}
	entries, err := decodeDevices(devicesRaw, onlineMACs)
	if err != nil {
		return nil, malformed("get_all_devices", err)
	}
	return entries, nil
}

// Traffic fetches the QoS upload and download trees and merges them into
// per-device cumulative byte counters: download bytes count as RX from the
// device's point of view, upload bytes as TX.
func (c *Client) Traffic(ctx context.Context) (map[string]Counters, error) {
	downRaw, err := c.call(ctx, appQoS, "get_download_tree", nil)
	if err != nil {
		return nil, err
	}
	down, err := decodeTree(downRaw)
	if err != nil {
		return nil, malformed("get_download_tree", err)
	}

	upRaw, err := c.call(ctx, appQoS, "get_upload_tree", nil)
	if err != nil {
		return nil, err
	}
	up, err := decodeTree(upRaw)
	if err != nil {
		return nil, malformed("get_upload_tree", err)
	}

	counters := make(map[string]Counters, len(down))
	for id, rx := range down {
		counters[id] = Counters{RxBytes: rx}
	}
	for id, tx := range up {
		ctr := counters[id]
		ctr.TxBytes = tx
		counters[id] = ctr
	}
	return counters, nil
}

// SystemInfo fetches router uptime, firmware version, and board name.
func (c *Client) SystemInfo(ctx context.Context) (*SystemInfo, error) {
	raw, err := c.call(ctx, appSystem, "get_system_info", nil)
	if err != nil {
		return nil, err
	}
	info, err := decodeSystemInfo(raw)
	if err != nil {
		return nil, malformed("get_system_info", err)
	}
	return info, nil
}

// DHCPLeases fetches the router's DHCP lease table.
func (c *Client) DHCPLeases(ctx context.Context) ([]Lease, error) {
	raw, err := c.call(ctx, appDevices, "get_dhcp_leases", nil)
	if err != nil {
		return nil, err
	}
	leases, err := decodeLeases(raw)
	if err != nil {
		return nil, malformed("get_dhcp_leases", err)
	}
	return leases, nil
}
