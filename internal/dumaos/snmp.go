package dumaos

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
)

// System OIDs used by the fallback prober.
const (
	oidSysDescr  = "1.3.6.1.2.1.1.1.0"
	oidSysUpTime = "1.3.6.1.2.1.1.3.0"
	oidSysName   = "1.3.6.1.2.1.1.5.0"
)

// SNMPProber reads basic system information over SNMP v2c. DumaOS sits on
// an OpenWrt base, and some installs have snmpd enabled; when the
// systeminfo RPC is unavailable the prober keeps router uptime flowing.
type SNMPProber struct {
	client *gosnmp.GoSNMP
}

// NewSNMPProber creates a prober for the given host and community string.
func NewSNMPProber(host, community string, timeout time.Duration) *SNMPProber {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &SNMPProber{
		client: &gosnmp.GoSNMP{
			Target:    host,
			Port:      161,
			Version:   gosnmp.Version2c,
			Community: community,
			Timeout:   timeout,
			Retries:   2,
		},
	}
}

// Probe fetches uptime and system description. The caller owns mapping the
// result into a router status; firmware version is not available via the
// standard MIB, so only the description is returned alongside uptime.
func (p *SNMPProber) Probe() (uptimeSeconds int64, descr string, err error) {
	if err := p.client.Connect(); err != nil {
		return 0, "", fmt.Errorf("snmp connect: %w", err)
	}
	defer p.client.Conn.Close()

	result, err := p.client.Get([]string{oidSysUpTime, oidSysDescr, oidSysName})
	if err != nil {
		return 0, "", fmt.Errorf("snmp get: %w", err)
	}

	var name string
	for _, v := range result.Variables {
		oid := strings.TrimPrefix(v.Name, ".")
		switch oid {
		case oidSysUpTime:
			// sysUpTime is in hundredths of a second.
			uptimeSeconds = gosnmp.ToBigInt(v.Value).Int64() / 100
		case oidSysDescr:
			if b, ok := v.Value.([]byte); ok {
				descr = string(b)
			}
		case oidSysName:
			if b, ok := v.Value.([]byte); ok {
				name = string(b)
			}
		}
	}
	if descr == "" {
		descr = name
	}
	if uptimeSeconds == 0 && descr == "" {
		return 0, "", fmt.Errorf("snmp: empty system group from %s", p.client.Target)
	}
	return uptimeSeconds, descr, nil
}
