package dumaos

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// DeviceEntry is one device from the router's device manager, with presence
// resolved against the online-interface list.
type DeviceEntry struct {
	ID     string
	Name   string
	MACs   []string
	Online bool
}

// Counters holds cumulative per-device byte totals from the QoS trees.
type Counters struct {
	RxBytes uint64
	TxBytes uint64
}

// SystemInfo is the router status block from the systeminfo app.
type SystemInfo struct {
	UptimeSeconds int64
	Firmware      string
	Board         string
}

// Lease is one DHCP lease entry.
type Lease struct {
	MAC      string
	IP       string
	Hostname string
}

// deviceID tolerates both numeric and string devids; the firmware is not
// consistent across versions.
type deviceID string

func (d *deviceID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = deviceID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*d = deviceID(n.String())
	return nil
}

type rawDevice struct {
	DevID      deviceID `json:"devid"`
	UHost      string   `json:"uhost"`
	Hostname   string   `json:"hostname"`
	Interfaces []struct {
		MAC string `json:"mac"`
	} `json:"interfaces"`
}

type rawOnlineInterface struct {
	MAC string `json:"mac"`
}

type rawLease struct {
	MAC      string `json:"mac"`
	IP       string `json:"ip"`
	Address  string `json:"address"`
	Hostname string `json:"hostname"`
	Host     string `json:"host"`
}

type rawSystemInfo struct {
	Uptime  json.Number `json:"uptime"`
	Version string      `json:"version"`
	Board   string      `json:"board"`
}

// decodeDevices parses get_all_devices and resolves presence from the MAC
// set returned by get_valid_online_interfaces.
func decodeDevices(result json.RawMessage, onlineMACs map[string]bool) ([]DeviceEntry, error) {
	var raw []rawDevice
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("device list: %w", err)
	}

	entries := make([]DeviceEntry, 0, len(raw))
	for i, d := range raw {
		if d.DevID == "" {
			return nil, fmt.Errorf("device list: entry %d missing devid", i)
		}
		e := DeviceEntry{ID: string(d.DevID)}
		e.Name = d.UHost
		if e.Name == "" {
			e.Name = d.Hostname
		}
		if e.Name == "" {
			e.Name = "device_" + e.ID
		}
		for _, iface := range d.Interfaces {
			if iface.MAC == "" {
				continue
			}
			e.MACs = append(e.MACs, iface.MAC)
			if onlineMACs[iface.MAC] {
				e.Online = true
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func decodeOnlineMACs(result json.RawMessage) (map[string]bool, error) {
	var raw []rawOnlineInterface
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("online interfaces: %w", err)
	}
	macs := make(map[string]bool, len(raw))
	for _, iface := range raw {
		if iface.MAC != "" {
			macs[iface.MAC] = true
		}
	}
	return macs, nil
}

func decodeLeases(result json.RawMessage) ([]Lease, error) {
	var raw []rawLease
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("dhcp leases: %w", err)
	}
	leases := make([]Lease, 0, len(raw))
	for _, l := range raw {
		lease := Lease{MAC: l.MAC, IP: l.IP, Hostname: l.Hostname}
		if lease.IP == "" {
			lease.IP = l.Address
		}
		if lease.Hostname == "" {
			lease.Hostname = l.Host
		}
		if lease.MAC == "" {
			continue
		}
		leases = append(leases, lease)
	}
	return leases, nil
}

func decodeSystemInfo(result json.RawMessage) (*SystemInfo, error) {
	// The firmware wraps the info object in a single-element array.
	var list []rawSystemInfo
	var raw rawSystemInfo
	if err := json.Unmarshal(result, &list); err == nil {
		if len(list) == 0 {
			return nil, errors.New("system info: empty result")
		}
		raw = list[0]
	} else if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("system info: %w", err)
	}

	if raw.Uptime == "" {
		return nil, errors.New("system info: missing uptime")
	}
	if raw.Version == "" {
		return nil, errors.New("system info: missing version")
	}
	uptime, err := numberToInt64(raw.Uptime)
	if err != nil {
		return nil, fmt.Errorf("system info: bad uptime %q", raw.Uptime)
	}
	return &SystemInfo{
		UptimeSeconds: uptime,
		Firmware:      raw.Version,
		Board:         raw.Board,
	}, nil
}

type rawAllocation struct {
	Bytes json.Number `json:"bytes"`
	Match struct {
		DevID deviceID `json:"devid"`
	} `json:"match"`
}

type rawTree struct {
	AutoAlloc struct {
		Snake []rawAllocation `json:"bandwidth_allocations"`
		Camel []rawAllocation `json:"BandwidthAllocations"`
	} `json:"AutoAlloc"`
}

// decodeTree parses a QoS upload or download tree into per-devid byte
// totals. The firmware returns either an object or a single-element array
// whose element may itself be a JSON-encoded string.
func decodeTree(result json.RawMessage) (map[string]uint64, error) {
	inner := bytes.TrimSpace(result)

	var list []json.RawMessage
	if err := json.Unmarshal(inner, &list); err == nil {
		if len(list) == 0 {
			return map[string]uint64{}, nil
		}
		inner = list[0]
	}
	if len(inner) > 0 && inner[0] == '"' {
		var embedded string
		if err := json.Unmarshal(inner, &embedded); err != nil {
			return nil, fmt.Errorf("qos tree: %w", err)
		}
		inner = []byte(embedded)
	}

	var tree rawTree
	if err := json.Unmarshal(inner, &tree); err != nil {
		return nil, fmt.Errorf("qos tree: %w", err)
	}

	allocations := tree.AutoAlloc.Snake
	if len(allocations) == 0 {
		allocations = tree.AutoAlloc.Camel
	}

	totals := make(map[string]uint64, len(allocations))
	for _, a := range allocations {
		if a.Match.DevID == "" {
			continue
		}
		n, err := numberToUint64(a.Bytes)
		if err != nil {
			continue
		}
		totals[string(a.Match.DevID)] += n
	}
	return totals, nil
}

func numberToInt64(n json.Number) (int64, error) {
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

func numberToUint64(n json.Number) (uint64, error) {
	if n == "" {
		return 0, nil
	}
	if v, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
		return v, nil
	}
	f, err := n.Float64()
	if err != nil || f < 0 {
		return 0, errors.New("not a byte count")
	}
	return uint64(f), nil
}
