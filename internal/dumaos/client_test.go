package dumaos

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dumamon/internal/logger"
)

// fakeRouter serves a minimal DumaOS RPC surface for tests.
type fakeRouter struct {
	t       *testing.T
	devices string
	online  string
	down    string
	up      string
	system  string
}

func (f *fakeRouter) handler() http.Handler {
	mux := http.NewServeMux()
	handle := func(app string, methods map[string]string) {
		mux.HandleFunc("/apps/"+app+"/rpc/", func(w http.ResponseWriter, r *http.Request) {
			var req rpcRequest
			require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
			body, ok := methods[req.Method]
			if !ok {
				fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"error":{"message":"no such method"}}`, req.ID)
				return
			}
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"result":%s}`, req.ID, body)
		})
	}
	handle(appDevices, map[string]string{
		"get_all_devices":             f.devices,
		"get_valid_online_interfaces": f.online,
		"get_dhcp_leases":             `[{"mac":"AA:BB:CC:DD:EE:01","ip":"192.168.77.10","hostname":"laptop"}]`,
	})
	handle(appQoS, map[string]string{
		"get_download_tree": f.down,
		"get_upload_tree":   f.up,
	})
	handle(appSystem, map[string]string{
		"get_system_info": f.system,
	})
	return mux
}

func defaultFakeRouter(t *testing.T) *fakeRouter {
	return &fakeRouter{
		t: t,
		devices: `[
			{"devid": 7, "uhost": "laptop", "interfaces": [{"mac": "AA:BB:CC:DD:EE:01"}]},
			{"devid": "9", "hostname": "phone", "interfaces": [{"mac": "AA:BB:CC:DD:EE:02"}]},
			{"devid": 12, "interfaces": []}
		]`,
		online: `[{"mac": "AA:BB:CC:DD:EE:01"}]`,
		down:   `[{"AutoAlloc":{"bandwidth_allocations":[{"bytes":1000,"match":{"devid":7}},{"bytes":50,"match":{"devid":7}}]}}]`,
		up:     `["{\"AutoAlloc\":{\"BandwidthAllocations\":[{\"bytes\":200,\"match\":{\"devid\":7}}]}}"]`,
		system: `[{"uptime": 86400, "version": "4.0.119", "board": "R3"}]`,
	}
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return NewClient(Config{Host: u.Host, Timeout: 2 * time.Second}, logger.NewTestLogger())
}

func TestDeviceList(t *testing.T) {
	srv := httptest.NewServer(defaultFakeRouter(t).handler())
	defer srv.Close()

	client := newTestClient(t, srv)
	entries, err := client.DeviceList(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "7", entries[0].ID)
	assert.Equal(t, "laptop", entries[0].Name)
	assert.True(t, entries[0].Online)

	assert.Equal(t, "9", entries[1].ID)
	assert.Equal(t, "phone", entries[1].Name)
	assert.False(t, entries[1].Online)

	// No uhost or hostname falls back to a devid-based name.
	assert.Equal(t, "device_12", entries[2].Name)
}

func TestDeviceListMissingDevID(t *testing.T) {
	f := defaultFakeRouter(t)
	f.devices = `[{"uhost": "ghost"}]`
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	client := newTestClient(t, srv)
	_, err := client.DeviceList(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrMalformed), "expected malformed, got %v", err)
}

func TestTrafficMergesTrees(t *testing.T) {
	srv := httptest.NewServer(defaultFakeRouter(t).handler())
	defer srv.Close()

	client := newTestClient(t, srv)
	counters, err := client.Traffic(context.Background())
	require.NoError(t, err)

	// Download allocations for the same devid accumulate; the upload tree
	// arrives as an embedded JSON string with camel-case keys.
	assert.Equal(t, Counters{RxBytes: 1050, TxBytes: 200}, counters["7"])
}

func TestSystemInfo(t *testing.T) {
	srv := httptest.NewServer(defaultFakeRouter(t).handler())
	defer srv.Close()

	client := newTestClient(t, srv)
	info, err := client.SystemInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(86400), info.UptimeSeconds)
	assert.Equal(t, "4.0.119", info.Firmware)
	assert.Equal(t, "R3", info.Board)
}

func TestSystemInfoMissingUptime(t *testing.T) {
	f := defaultFakeRouter(t)
	f.system = `[{"version": "4.0.119"}]`
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	client := newTestClient(t, srv)
	_, err := client.SystemInfo(context.Background())
	assert.True(t, IsKind(err, ErrMalformed), "expected malformed, got %v", err)
}

func TestDHCPLeases(t *testing.T) {
	srv := httptest.NewServer(defaultFakeRouter(t).handler())
	defer srv.Close()

	client := newTestClient(t, srv)
	leases, err := client.DHCPLeases(context.Background())
	require.NoError(t, err)
	require.Len(t, leases, 1)
	assert.Equal(t, "192.168.77.10", leases[0].IP)
	assert.Equal(t, "laptop", leases[0].Hostname)
}

func TestRPCErrorIsMalformed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"error":{"message":"boom"}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv)
	_, err := client.SystemInfo(context.Background())
	assert.True(t, IsKind(err, ErrMalformed), "expected malformed, got %v", err)
}

func TestHTTPStatusError(t *testing.T) {
	var probed bool
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		if !probed {
			probed = true
			fmt.Fprint(w, `{"jsonrpc":"2.0","id":0,"result":[{"uptime":1,"version":"v"}]}`)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv)
	_, err := client.DeviceList(context.Background())
	require.Error(t, err)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ErrHTTPStatus, te.Kind)
	assert.Equal(t, http.StatusBadGateway, te.StatusCode)
}

func TestUnauthorizedStopsProbing(t *testing.T) {
	var requests int
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv)
	_, err := client.SystemInfo(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrHTTPStatus))
	assert.Equal(t, 1, requests, "401 should not trigger further scheme probing")
}

func TestForeignRedirectRefused(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://evil.example.com/login", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv)
	_, err := client.SystemInfo(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrMalformed), "expected malformed, got %v", err)
}

func TestUnreachable(t *testing.T) {
	client := NewClient(Config{Host: "127.0.0.1:1", Timeout: time.Second}, logger.NewTestLogger())
	_, err := client.SystemInfo(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrUnreachable), "expected unreachable, got %v", err)
}

func TestTimeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server's background read can detect the
		// client disconnect and cancel the request context; otherwise
		// srv.Close deadlocks waiting on this handler.
		io.Copy(io.Discard, r.Body) //nolint:errcheck
		<-r.Context().Done()
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.SystemInfo(ctx)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrTimeout), "expected timeout, got %v", err)
}

func TestTLSVerificationFailure(t *testing.T) {
	// httptest TLS certs are not trusted by a verifying client.
	srv := httptest.NewTLSServer(defaultFakeRouter(t).handler())
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	verifying := NewClient(Config{Host: u.Host, VerifyTLS: true, Timeout: 2 * time.Second}, logger.NewTestLogger())
	_, err = verifying.SystemInfo(context.Background())
	// The https probe fails verification; the http fallback finds nothing
	// listening either way, so the last error is the http one. Force the
	// point by checking the https probe directly.
	_, probeErr := verifying.post(context.Background(), "https://"+u.Host, appSystem, "get_system_info", nil)
	assert.True(t, IsKind(probeErr, ErrTLS), "expected tls error, got %v", probeErr)
	require.Error(t, err)

	trusting := NewClient(Config{Host: u.Host, VerifyTLS: false, Timeout: 2 * time.Second}, logger.NewTestLogger())
	info, err := trusting.SystemInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "4.0.119", info.Firmware)
}
