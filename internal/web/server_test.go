package web

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dumamon/internal/dumaos"
	"dumamon/internal/engine"
	"dumamon/internal/logger"
)

type stubFetcher struct{}

func (stubFetcher) DeviceList(ctx context.Context) ([]dumaos.DeviceEntry, error) {
	return []dumaos.DeviceEntry{
		{ID: "7", Name: "laptop", MACs: []string{"aa:bb:cc:dd:ee:ff"}, Online: true},
	}, nil
}

func (stubFetcher) Traffic(ctx context.Context) (map[string]dumaos.Counters, error) {
	return map[string]dumaos.Counters{"7": {RxBytes: 1000, TxBytes: 500}}, nil
}

func (stubFetcher) SystemInfo(ctx context.Context) (*dumaos.SystemInfo, error) {
	return &dumaos.SystemInfo{UptimeSeconds: 300, Firmware: "4.0.128", Board: "R3"}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	log := logger.NewTestLogger()
	reg := engine.NewRegistry(16)
	pub := engine.NewPublisher("lab")
	coord := engine.NewCoordinator(engine.Config{
		Name:      "lab",
		Host:      "192.168.9.1",
		Fetcher:   stubFetcher{},
		Registry:  reg,
		Publisher: pub,
		Logger:    log,
	})
	require.NoError(t, coord.RunCycle(context.Background()))

	mgr := engine.NewManager(log)
	require.NoError(t, mgr.Start(&engine.Router{
		Name:        "lab",
		Coordinator: coord,
		Publisher:   pub,
		Interval:    time.Hour,
	}))
	t.Cleanup(mgr.StopAll)

	return NewServer("127.0.0.1:0", mgr, log)
}

func TestSnapshotEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/snapshot/lab", nil))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var snap engine.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "lab", snap.Router)
	assert.Equal(t, "192.168.9.1", snap.Host)
	require.Len(t, snap.Devices, 1)
	assert.Equal(t, "laptop", snap.Devices[0].Name)
	assert.True(t, snap.Devices[0].Online)
	assert.Equal(t, uint64(1000), snap.Devices[0].RxBytesTotal)
	assert.Equal(t, "4.0.128", snap.Status.Firmware)
}

func TestSnapshotEndpointUnknownRouter(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/snapshot/nosuch", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestAllSnapshotsEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/snapshot", nil))
	require.Equal(t, 200, rec.Code)

	var out map[string]engine.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Contains(t, out, "lab")
	assert.GreaterOrEqual(t, out["lab"].CycleCount, 1)
}

func TestRoutersEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/routers", nil))
	require.Equal(t, 200, rec.Code)

	var infos []engine.Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "lab", infos[0].Name)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}
