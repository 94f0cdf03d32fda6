// Package network collects connection, routing, neighbour and listening
// socket state.
package network

import (
	"context"
	"fmt"
	stdnet "net"
	"sort"
	"strconv"
	"strings"

	gnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

const (
	sockStream = 1
	sockDgram  = 2
	afINET     = 2
)

// ConnectionRecord is one socket table row, rendered only.
type ConnectionRecord struct {
	Proto   string
	Local   string
	Remote  string
	Status  string
	PID     int32
	Process string
}

// Listening reports whether the socket accepts traffic: a TCP listener or a
// UDP socket with no peer.
func (c ConnectionRecord) Listening() bool {
	if strings.HasPrefix(c.Proto, "udp") {
		return c.Remote == ""
	}
	return c.Status == "LISTEN"
}

// RouteEntry is one interface address, rendered only.
type RouteEntry struct {
	Interface string
	Address   string
	MAC       string
	Flags     string
}

// Source reads the socket and interface tables.
type Source interface {
	Connections(ctx context.Context) ([]ConnectionRecord, error)
	Interfaces(ctx context.Context) ([]RouteEntry, error)
}

// SystemSource reads the tables through the OS. Owning process names may be
// missing without elevated privileges.
type SystemSource struct{}

func (SystemSource) Connections(ctx context.Context) ([]ConnectionRecord, error) {
	stats, err := gnet.ConnectionsWithContext(ctx, "inet")
	if err != nil {
		return nil, err
	}
	names := map[int32]string{}
	records := make([]ConnectionRecord, 0, len(stats))
	for _, s := range stats {
		r := ConnectionRecord{
			Proto:  proto(s.Family, s.Type),
			Local:  addr(s.Laddr),
			Remote: addr(s.Raddr),
			Status: s.Status,
			PID:    s.Pid,
		}
		if s.Pid > 0 {
			name, ok := names[s.Pid]
			if !ok {
				name = processName(ctx, s.Pid)
				names[s.Pid] = name
			}
			r.Process = name
		}
		records = append(records, r)
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Proto != records[j].Proto {
			return records[i].Proto < records[j].Proto
		}
		return records[i].Local < records[j].Local
	})
	return records, nil
}

func (SystemSource) Interfaces(ctx context.Context) ([]RouteEntry, error) {
	ifaces, err := gnet.InterfacesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	var entries []RouteEntry
	for _, i := range ifaces {
		flags := strings.Join(i.Flags, ",")
		if len(i.Addrs) == 0 {
			entries = append(entries, RouteEntry{Interface: i.Name, MAC: i.HardwareAddr, Flags: flags})
			continue
		}
		for _, a := range i.Addrs {
			entries = append(entries, RouteEntry{Interface: i.Name, Address: a.Addr, MAC: i.HardwareAddr, Flags: flags})
		}
	}
	return entries, nil
}

func processName(ctx context.Context, pid int32) string {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return ""
	}
	name, _ := p.NameWithContext(ctx)
	return name
}

func proto(family, typ uint32) string {
	p := "raw"
	switch typ {
	case sockStream:
		p = "tcp"
	case sockDgram:
		p = "udp"
	}
	if family != afINET {
		p += "6"
	}
	return p
}

// addr renders an endpoint. An unspecified address on port 0 is the peer of
// an unconnected socket and renders empty.
func addr(a gnet.Addr) string {
	if a.Port == 0 && (a.IP == "" || stdnet.ParseIP(a.IP).IsUnspecified()) {
		return ""
	}
	return stdnet.JoinHostPort(a.IP, strconv.FormatUint(uint64(a.Port), 10))
}

func renderConnections(records []ConnectionRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-5s %-46s %-46s %-12s %-7s %s\n", "PROTO", "LOCAL", "REMOTE", "STATUS", "PID", "PROCESS")
	for _, r := range records {
		remote := r.Remote
		if remote == "" {
			remote = "-"
		}
		fmt.Fprintf(&b, "%-5s %-46s %-46s %-12s %-7d %s\n", r.Proto, r.Local, remote, r.Status, r.PID, r.Process)
	}
	return b.String()
}

func renderInterfaces(entries []RouteEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-18s %-44s %-18s %s\n", "INTERFACE", "ADDRESS", "MAC", "FLAGS")
	for _, e := range entries {
		fmt.Fprintf(&b, "%-18s %-44s %-18s %s\n", e.Interface, e.Address, e.MAC, e.Flags)
	}
	return b.String()
}
