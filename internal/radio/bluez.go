package radio

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/MrKot86/ble-aura-mesh/internal/mesh"
)

const (
	bluezService           = "org.bluez"
	bluezAdapterIface      = "org.bluez.Adapter1"
	bluezDeviceIface       = "org.bluez.Device1"
	bluezAdvManagerIface   = "org.bluez.LEAdvertisingManager1"
	bluezAdvertisementIface = "org.bluez.LEAdvertisement1"
	advObjectPath           = dbus.ObjectPath("/org/auramesh/advertisement0")
)

// BlueZ is a mesh.Radio backed by the system BlueZ stack over D-Bus. It
// scans by subscribing to org.freedesktop.DBus.Properties'
// PropertiesChanged signal for org.bluez.Device1 objects (ObjectManager's
// InterfacesAdded is not watched), and advertises by exporting a minimal
// org.bluez.LEAdvertisement1 object and registering it with the adapter's
// LEAdvertisingManager1.
type BlueZ struct {
	conn    *dbus.Conn
	adapter dbus.BusObject

	mu       sync.Mutex
	scanning bool
	scanDone context.CancelFunc

	advRegistered bool
	advPayload    []byte
}

// NewBlueZ connects to the system bus and binds to the named adapter
// (e.g. "/org/bluez/hci0").
func NewBlueZ(adapterPath string) (*BlueZ, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	return &BlueZ{
		conn:    conn,
		adapter: conn.Object(bluezService, dbus.ObjectPath(adapterPath)),
	}, nil
}

// StartScan implements mesh.Radio.
func (b *BlueZ) StartScan(ctx context.Context, cb mesh.ScanCallback) error {
	b.mu.Lock()
	if b.scanning {
		b.mu.Unlock()
		return fmt.Errorf("bluez: scan already in progress")
	}
	b.mu.Unlock()

	if err := b.adapter.Call(bluezAdapterIface+".SetDiscoveryFilter", 0, map[string]dbus.Variant{
		"Transport": dbus.MakeVariant("le"),
	}).Err; err != nil {
		return fmt.Errorf("set discovery filter: %w", err)
	}
	if err := b.adapter.Call(bluezAdapterIface+".StartDiscovery", 0).Err; err != nil {
		return fmt.Errorf("start discovery: %w", err)
	}

	if err := b.conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		return fmt.Errorf("add signal match: %w", err)
	}

	signals := make(chan *dbus.Signal, 64)
	b.conn.Signal(signals)

	scanCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.scanning = true
	b.scanDone = cancel
	b.mu.Unlock()

	go func() {
		defer b.conn.RemoveSignal(signals)
		for {
			select {
			case <-scanCtx.Done():
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				mac, rssi, payload, ok := decodeDeviceProperties(sig)
				if ok {
					cb(mac, rssi, payload)
				}
			}
		}
	}()
	return nil
}

// decodeDeviceProperties extracts address, RSSI, and manufacturer-data
// payload from a Device1 PropertiesChanged signal, matching the shape BlueZ
// emits while a discovery session is active.
func decodeDeviceProperties(sig *dbus.Signal) (mesh.MAC, int8, []byte, bool) {
	if sig == nil || len(sig.Body) < 2 {
		return mesh.MAC{}, 0, nil, false
	}
	iface, _ := sig.Body[0].(string)
	if iface != bluezDeviceIface {
		return mesh.MAC{}, 0, nil, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return mesh.MAC{}, 0, nil, false
	}

	var rssi int8
	if v, ok := changed["RSSI"]; ok {
		if i, ok := v.Value().(int16); ok {
			rssi = int8(i)
		}
	}

	var payload []byte
	if v, ok := changed["ManufacturerData"]; ok {
		if m, ok := v.Value().(map[uint16]dbus.Variant); ok {
			for _, data := range m {
				if b, ok := data.Value().([]byte); ok {
					payload = b
					break
				}
			}
		}
	}
	if payload == nil {
		return mesh.MAC{}, 0, nil, false
	}

	var addrStr string
	if v, ok := changed["Address"]; ok {
		addrStr, _ = v.Value().(string)
	}
	mac, ok := parseMACString(addrStr)
	if !ok {
		return mesh.MAC{}, 0, nil, false
	}
	return mac, rssi, payload, true
}

func parseMACString(s string) (mesh.MAC, bool) {
	var mac mesh.MAC
	if _, err := fmt.Sscanf(s, "%02X:%02X:%02X:%02X:%02X:%02X",
		&mac[0], &mac[1], &mac[2], &mac[3], &mac[4], &mac[5]); err != nil {
		return mesh.MAC{}, false
	}
	return mac, true
}

// StopScan implements mesh.Radio.
func (b *BlueZ) StopScan() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.scanning {
		return nil
	}
	b.scanning = false
	if b.scanDone != nil {
		b.scanDone()
		b.scanDone = nil
	}
	return b.adapter.Call(bluezAdapterIface+".StopDiscovery", 0).Err
}

// advertisement implements the org.bluez.LEAdvertisement1 method table
// BlueZ calls back into (Release) and reads properties from (Get/GetAll via
// the exported property table below).
type advertisement struct {
	payload []byte
}

// Release implements org.bluez.LEAdvertisement1.Release, invoked by BlueZ
// when the advertisement is unregistered.
func (a *advertisement) Release() *dbus.Error {
	return nil
}

// StartAdvertise implements mesh.Radio. When no advertisement is
// registered it exports the advertisement object and its property table
// and registers them with the adapter. When one is already registered it
// re-exports only the LEAdvertisement1 object; the property table
// exported at registration keeps the earlier manufacturer data, so a new
// payload takes effect after StopAdvertise and a fresh StartAdvertise.
func (b *BlueZ) StartAdvertise(params mesh.AdvParams, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advPayload = append([]byte(nil), payload...)

	if b.advRegistered {
		return b.updateAdvertisementProperties()
	}

	props := map[string]dbus.Variant{
		"Type":             dbus.MakeVariant("broadcast"),
		"ManufacturerData": dbus.MakeVariant(map[uint16]dbus.Variant{0xFFFF: dbus.MakeVariant(b.advPayload)}),
		"Includes":         dbus.MakeVariant([]string{"tx-power"}),
	}
	if err := b.conn.Export(&advertisement{payload: b.advPayload}, advObjectPath, bluezAdvertisementIface); err != nil {
		return fmt.Errorf("export advertisement object: %w", err)
	}
	if err := b.conn.ExportAll(propsServer{props: props}, advObjectPath, "org.freedesktop.DBus.Properties"); err != nil {
		return fmt.Errorf("export advertisement properties: %w", err)
	}
	if err := b.adapter.Call(bluezAdvManagerIface+".RegisterAdvertisement", 0, advObjectPath, map[string]dbus.Variant{}).Err; err != nil {
		return fmt.Errorf("register advertisement: %w", err)
	}
	b.advRegistered = true
	return nil
}

func (b *BlueZ) updateAdvertisementProperties() error {
	return b.conn.Export(&advertisement{payload: b.advPayload}, advObjectPath, bluezAdvertisementIface)
}

// StopAdvertise implements mesh.Radio.
func (b *BlueZ) StopAdvertise() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.advRegistered {
		return nil
	}
	b.advRegistered = false
	return b.adapter.Call(bluezAdvManagerIface+".UnregisterAdvertisement", 0, advObjectPath).Err
}

// propsServer answers org.freedesktop.DBus.Properties.GetAll for the
// exported advertisement object, the minimum BlueZ needs to read back the
// advertisement's fields after RegisterAdvertisement.
type propsServer struct {
	props map[string]dbus.Variant
}

func (p propsServer) GetAll(iface string) (map[string]dbus.Variant, *dbus.Error) {
	if iface != bluezAdvertisementIface {
		return nil, dbus.NewError("org.freedesktop.DBus.Error.UnknownInterface", nil)
	}
	return p.props, nil
}
