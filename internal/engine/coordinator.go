package engine

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"dumamon/internal/dumaos"
)

var (
	// ErrCycleSkipped is returned when RunCycle is triggered while a
	// cycle is already in progress. The overlapping trigger is dropped,
	// never queued or run concurrently.
	ErrCycleSkipped = errors.New("poll cycle already in progress")

	// ErrPartialCycle is returned when at least one of the cycle's
	// fetches exhausted its retries. The cycle still publishes whatever
	// it could get.
	ErrPartialCycle = errors.New("partial poll cycle")
)

// Fetcher is the transport surface the coordinator polls. Implemented by
// *dumaos.Client.
type Fetcher interface {
	DeviceList(ctx context.Context) ([]dumaos.DeviceEntry, error)
	Traffic(ctx context.Context) (map[string]dumaos.Counters, error)
	SystemInfo(ctx context.Context) (*dumaos.SystemInfo, error)
}

// StatusProber is an optional fallback source of router uptime used when
// the systeminfo RPC is unavailable.
type StatusProber interface {
	Probe() (uptimeSeconds int64, descr string, err error)
}

// Config assembles one coordinator.
type Config struct {
	Name         string
	Host         string
	Fetcher      Fetcher
	StatusProber StatusProber // optional
	Registry     *Registry
	Publisher    *Publisher
	MaxAttempts  int           // per-fetch attempts, default 3
	RetryBase    time.Duration // initial backoff delay, default 500ms
	Logger       zerolog.Logger
}

// Coordinator drives one poll cycle at a time: fetch, merge, publish. It
// holds no device state itself; the registry owns that.
type Coordinator struct {
	cfg     Config
	log     zerolog.Logger
	running atomic.Bool

	mu          sync.Mutex
	status      RouterStatus
	lastSuccess FetchTimes
	cycleCount  int
	errorCount  int
	lastCycle   time.Time
}

// NewCoordinator creates a Coordinator from the given config.
func NewCoordinator(cfg Config) *Coordinator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	return &Coordinator{
		cfg: cfg,
		log: cfg.Logger.With().Str("router", cfg.Name).Logger(),
	}
}

// RunCycle executes one poll cycle. It is safe to call back-to-back: a
// trigger arriving while a cycle is in flight returns ErrCycleSkipped
// without touching any state. The three fetches run concurrently; merging
// into the registry is serialized.
func (c *Coordinator) RunCycle(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		c.log.Info().Msg("poll trigger overlapped a running cycle, skipping")
		return ErrCycleSkipped
	}
	defer c.running.Store(false)

	var (
		wg        sync.WaitGroup
		devices   []dumaos.DeviceEntry
		traffic   map[string]dumaos.Counters
		info      *dumaos.SystemInfo
		devErr    error
		trafErr   error
		statusErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		devErr = c.fetchWithRetry(ctx, "device-list", func() error {
			var err error
			devices, err = c.cfg.Fetcher.DeviceList(ctx)
			return err
		})
	}()
	go func() {
		defer wg.Done()
		trafErr = c.fetchWithRetry(ctx, "traffic", func() error {
			var err error
			traffic, err = c.cfg.Fetcher.Traffic(ctx)
			return err
		})
	}()
	go func() {
		defer wg.Done()
		statusErr = c.fetchWithRetry(ctx, "status", func() error {
			var err error
			info, err = c.cfg.Fetcher.SystemInfo(ctx)
			return err
		})
	}()
	wg.Wait()

	if statusErr != nil && c.cfg.StatusProber != nil {
		if uptime, descr, err := c.cfg.StatusProber.Probe(); err == nil {
			c.log.Debug().Str("descr", descr).Msg("router status recovered via snmp")
			info = &dumaos.SystemInfo{UptimeSeconds: uptime, Firmware: c.lastFirmware(), Board: descr}
			statusErr = nil
		} else {
			c.log.Debug().Err(err).Msg("snmp status probe failed")
		}
	}

	now := time.Now()
	transitions := c.merge(devices, traffic, info, devErr, trafErr, statusErr, now)

	snap := c.buildSnapshot(now)
	c.cfg.Publisher.Publish(snap, transitions)

	return c.cycleResult(devErr, trafErr, statusErr)
}

// merge folds the fetched data into the registry and returns this cycle's
// transitions sorted by identity. A failed device-list fetch marks nothing
// offline: an unreachable router is not a LAN-wide disconnect.
func (c *Coordinator) merge(
	devices []dumaos.DeviceEntry,
	traffic map[string]dumaos.Counters,
	info *dumaos.SystemInfo,
	devErr, trafErr, statusErr error,
	now time.Time,
) []Transition {
	reg := c.cfg.Registry
	var transitions []Transition

	switch {
	case devErr == nil:
		seen := make(map[string]struct{}, len(devices))
		for _, entry := range devices {
			if !entry.Online {
				reg.RegisterKnown(entry.ID, entry.Name, entry.MACs, now)
				continue
			}
			var sample *Sample
			if trafErr == nil {
				if ctr, ok := traffic[entry.ID]; ok {
					sample = &Sample{RxBytes: ctr.RxBytes, TxBytes: ctr.TxBytes, Timestamp: now}
				}
			}
			res := reg.Upsert(entry.ID, entry.Name, entry.MACs, sample, now)
			if !res.WasOnline {
				transitions = append(transitions, Transition{
					ID:        entry.ID,
					Name:      res.Device.Name,
					WasOnline: false,
					IsOnline:  true,
				})
			}
			seen[entry.ID] = struct{}{}
		}
		transitions = append(transitions, reg.MarkUnseenOffline(seen)...)

	case trafErr == nil:
		// Device list is stale; keep counters flowing for known devices
		// without touching anyone's online flag.
		for id, ctr := range traffic {
			reg.UpdateCounters(id, Sample{RxBytes: ctr.RxBytes, TxBytes: ctr.TxBytes, Timestamp: now})
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if devErr == nil {
		c.lastSuccess.Devices = now
	}
	if trafErr == nil {
		c.lastSuccess.Traffic = now
	}
	if statusErr == nil && info != nil {
		if c.status.UptimeSeconds > 0 && info.UptimeSeconds < c.status.UptimeSeconds {
			c.log.Warn().
				Int64("previous_uptime", c.status.UptimeSeconds).
				Int64("uptime", info.UptimeSeconds).
				Msg("router reboot detected")
		}
		c.status = RouterStatus{
			UptimeSeconds: info.UptimeSeconds,
			Firmware:      info.Firmware,
			Board:         info.Board,
		}
		c.lastSuccess.Status = now
	}

	sort.Slice(transitions, func(i, j int) bool { return transitions[i].ID < transitions[j].ID })
	return transitions
}

func (c *Coordinator) buildSnapshot(now time.Time) *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cycleCount++
	c.lastCycle = now
	return &Snapshot{
		Router:      c.cfg.Name,
		Host:        c.cfg.Host,
		Devices:     c.cfg.Registry.SnapshotAll(),
		Status:      c.status,
		LastSuccess: c.lastSuccess,
		CycleCount:  c.cycleCount,
		LastCycle:   now,
	}
}

func (c *Coordinator) cycleResult(devErr, trafErr, statusErr error) error {
	failed := errors.Join(devErr, trafErr, statusErr)
	if failed == nil {
		return nil
	}

	c.mu.Lock()
	c.errorCount++
	c.mu.Unlock()

	c.log.Error().
		AnErr("device_list", devErr).
		AnErr("traffic", trafErr).
		AnErr("status", statusErr).
		Msg("poll cycle degraded")
	return errors.Join(ErrPartialCycle, failed)
}

// fetchWithRetry runs one logical fetch with bounded exponential backoff.
// Malformed responses and auth rejections will not improve on retry and
// fail immediately.
func (c *Coordinator) fetchWithRetry(ctx context.Context, name string, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.RetryBase
	bo.Multiplier = 2

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.cfg.MaxAttempts-1)), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		c.log.Debug().Err(err).Str("fetch", name).Int("attempt", attempt).Msg("fetch failed")
		if dumaos.IsKind(err, dumaos.ErrMalformed) {
			return backoff.Permanent(err)
		}
		var te *dumaos.TransportError
		if errors.As(err, &te) && te.Kind == dumaos.ErrHTTPStatus && te.StatusCode == http.StatusUnauthorized {
			return backoff.Permanent(err)
		}
		return err
	}, policy)

	if err != nil {
		c.log.Warn().Err(err).Str("fetch", name).Msg("fetch exhausted, keeping last known values")
	}
	return err
}

func (c *Coordinator) lastFirmware() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.Firmware
}

// Info returns summary counters about this coordinator.
func (c *Coordinator) Info() Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Info{
		Name:       c.cfg.Name,
		LastCycle:  c.lastCycle,
		CycleCount: c.cycleCount,
		ErrorCount: c.errorCount,
	}
}
