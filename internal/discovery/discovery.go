// Package discovery advertises the accessory server over mDNS as a _hap._tcp
// service.
package discovery

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/grandcat/zeroconf"

	"github.com/jmylchreest/hapd/internal/events"
)

const (
	// ServiceType is the DNS-SD service type of HAP over IP.
	ServiceType = "_hap._tcp"
	// Domain is the mDNS domain.
	Domain = "local."
	// ProtocolVersion is advertised as pv.
	ProtocolVersion = "1.1"
)

// Info is what the advertisement says about the accessory.
type Info struct {
	Name         string
	Model        string
	DeviceID     string
	SetupID      string
	ConfigNumber int
	Category     int
	Port         int
	Paired       bool
}

// TXTRecords returns the HAP TXT record strings for info.
func TXTRecords(info Info) []string {
	sf := "1"
	if info.Paired {
		sf = "0"
	}
	configNumber := info.ConfigNumber
	if configNumber < 1 {
		configNumber = 1
	}
	txt := []string{
		"c#=" + strconv.Itoa(configNumber),
		"ff=0",
		"id=" + info.DeviceID,
		"md=" + info.Model,
		"pv=" + ProtocolVersion,
		"s#=1",
		"sf=" + sf,
		"ci=" + strconv.Itoa(info.Category),
	}
	if info.SetupID != "" {
		txt = append(txt, "sh="+SetupHash(info.SetupID, info.DeviceID))
	}
	return txt
}

// SetupHash is the base64 of the first four bytes of
// SHA-512(setupID || deviceID).
func SetupHash(setupID, deviceID string) string {
	sum := sha512.Sum512([]byte(setupID + deviceID))
	return base64.StdEncoding.EncodeToString(sum[:4])
}

// registration is the part of a zeroconf server the advertiser uses.
type registration interface {
	SetText(txt []string)
	Shutdown()
}

type registerFunc func(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (registration, error)

func zeroconfRegister(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (registration, error) {
	return zeroconf.Register(instance, service, domain, port, txt, ifaces)
}

// Advertiser keeps the mDNS registration in step with the pairing state.
type Advertiser struct {
	logger   *slog.Logger
	iface    string
	register registerFunc

	mu     sync.Mutex
	info   Info
	server registration
}

// NewAdvertiser creates an advertiser bound to the named interface, or to
// all interfaces when iface is empty.
func NewAdvertiser(logger *slog.Logger, iface string) *Advertiser {
	return &Advertiser{logger: logger, iface: iface, register: zeroconfRegister}
}

func (a *Advertiser) interfaces() []net.Interface {
	if a.iface == "" {
		return nil
	}
	ifi, err := net.InterfaceByName(a.iface)
	if err != nil {
		a.logger.Warn("mDNS interface not found, using all interfaces", "interface", a.iface, "error", err)
		return nil
	}
	return []net.Interface{*ifi}
}

// Start registers the service. Calling Start again replaces the
// registration.
func (a *Advertiser) Start(info Info) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
	server, err := a.register(info.Name, ServiceType, Domain, info.Port, TXTRecords(info), a.interfaces())
	if err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceType, err)
	}
	a.server = server
	a.info = info
	a.logger.Info("Advertising accessory", "name", info.Name, "port", info.Port, "id", info.DeviceID, "paired", info.Paired)
	return nil
}

// SetPaired updates the status flag in the TXT record.
func (a *Advertiser) SetPaired(paired bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil || a.info.Paired == paired {
		a.info.Paired = paired
		return
	}
	a.info.Paired = paired
	a.server.SetText(TXTRecords(a.info))
	a.logger.Debug("Updated mDNS TXT record", "paired", paired)
}

// Listen refreshes the advertisement on pairing events. paired reports the
// current pairing state.
func (a *Advertiser) Listen(em *events.Emitter, paired func(context.Context) (bool, error)) *events.Subscription {
	return em.AddListener(func(ctx context.Context, e events.Event) {
		switch e.(type) {
		case events.ControllerPaired, events.ControllerUnpaired:
		default:
			return
		}
		p, err := paired(ctx)
		if err != nil {
			a.logger.Error("Failed to read pairing state", "error", err)
			return
		}
		a.SetPaired(p)
	})
}

// Stop withdraws the advertisement.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
		a.logger.Info("Stopped mDNS advertisement")
	}
}
