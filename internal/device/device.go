// Package device collects the host telemetry reported when a call is
// initialized and answers whether a network is available at all.
package device

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/net"

	"kenes-socket-go/pkg/logger"
	"kenes-socket-go/pkg/types"
)

// Collector reads host information through gopsutil
type Collector struct {
	logger     *logger.Logger
	hostInfo   func(ctx context.Context) (*host.InfoStat, error)
	interfaces func(ctx context.Context) (net.InterfaceStatList, error)
}

func NewCollector(log *logger.Logger) *Collector {
	if log == nil {
		log = logger.Nop()
	}
	return &Collector{
		logger:     log.With("component", "device"),
		hostInfo:   host.InfoWithContext,
		interfaces: net.InterfacesWithContext,
	}
}

// Device describes the host. Fields gopsutil cannot read stay empty; a
// failure is logged and yields a device with only the app version.
func (c *Collector) Device(ctx context.Context, appVersion string) *types.Device {
	device := &types.Device{AppVersion: appVersion}

	info, err := c.hostInfo(ctx)
	if err != nil {
		c.logger.Warn("Failed to get host info", "error", err)
		return device
	}

	device.OS = info.OS
	if info.Platform != "" {
		device.OS = info.Platform
	}
	device.OSVersion = info.PlatformVersion
	if device.OSVersion == "" {
		device.OSVersion = info.KernelVersion
	}
	device.Name = info.Hostname

	return device
}

// NetworkAvailable reports whether any non-loopback interface is up and has
// an address.
func (c *Collector) NetworkAvailable(ctx context.Context) bool {
	interfaces, err := c.interfaces(ctx)
	if err != nil {
		c.logger.Warn("Failed to list network interfaces", "error", err)
		// Let the transport find out for itself.
		return true
	}

	for _, iface := range interfaces {
		if hasFlag(iface.Flags, "loopback") || !hasFlag(iface.Flags, "up") {
			continue
		}
		if len(iface.Addrs) > 0 {
			return true
		}
	}
	return false
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, flag) {
			return true
		}
	}
	return false
}
