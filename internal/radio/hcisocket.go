package radio

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/MrKot86/ble-aura-mesh/internal/mesh"
)

// HCI opcode group/command fields, grounded on the vendored HCI constants
// in spreatty-bluetooth/hci.go (OGF_LE_CTL and its OCF_LE_SET_* commands).
const (
	ogfLECtl = 0x08

	ocfLESetAdvertisingParameters = 0x0006
	ocfLESetAdvertisingData       = 0x0008
	ocfLESetAdvertiseEnable       = 0x000a
	ocfLESetScanParameters        = 0x000b
	ocfLESetScanEnable            = 0x000c

	hciCommandPkt = 0x01
	hciEventPkt   = 0x04

	evtLEMetaEvent          = 0x3e
	evtLEAdvertisingReport = 0x02
)

func opcode(ogf, ocf uint16) uint16 {
	return (ogf << 10) | ocf
}

// HCISocket is a mesh.Radio backed by a raw AF_BLUETOOTH HCI socket bound
// to a single adapter, bypassing BlueZ's daemon for deployments that run
// without it.
type HCISocket struct {
	fd     int
	devID  uint16

	mu       sync.Mutex
	scanning bool
	cancel   context.CancelFunc
}

// NewHCISocket opens and binds a raw HCI socket to the adapter numbered
// devID (e.g. 0 for hci0).
func NewHCISocket(devID uint16) (*HCISocket, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW, unix.BTPROTO_HCI)
	if err != nil {
		return nil, fmt.Errorf("open HCI socket: %w", err)
	}
	sa := &unix.SockaddrHCI{Dev: devID, Channel: unix.HCI_CHANNEL_RAW}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind HCI socket to hci%d: %w", devID, err)
	}
	return &HCISocket{fd: fd, devID: devID}, nil
}

func (h *HCISocket) sendCommand(ogf, ocf uint16, params []byte) error {
	buf := make([]byte, 4+len(params))
	buf[0] = hciCommandPkt
	binary.LittleEndian.PutUint16(buf[1:3], opcode(ogf, ocf))
	buf[3] = byte(len(params))
	copy(buf[4:], params)
	_, err := unix.Write(h.fd, buf)
	return err
}

// StartScan implements mesh.Radio: it configures passive LE scanning with
// duplicate filtering disabled (the mesh needs every advertisement, since
// RSSI and the cycle's peer table depend on fresh per-cycle sightings) and
// reads HCI_EVENT_PKT LE Advertising Report events off the socket.
func (h *HCISocket) StartScan(ctx context.Context, cb mesh.ScanCallback) error {
	h.mu.Lock()
	if h.scanning {
		h.mu.Unlock()
		return fmt.Errorf("hcisocket: scan already in progress")
	}
	h.mu.Unlock()

	scanParams := []byte{
		0x00,       // passive scan
		0x10, 0x00, // scan interval: 0x0010 x 0.625ms = 10ms
		0x10, 0x00, // scan window
		0x00, // own address type: public
		0x00, // filter policy: accept all
	}
	if err := h.sendCommand(ogfLECtl, ocfLESetScanParameters, scanParams); err != nil {
		return fmt.Errorf("set scan parameters: %w", err)
	}
	if err := h.sendCommand(ogfLECtl, ocfLESetScanEnable, []byte{0x01, 0x00}); err != nil {
		return fmt.Errorf("enable scanning: %w", err)
	}

	scanCtx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.scanning = true
	h.cancel = cancel
	h.mu.Unlock()

	go h.readLoop(scanCtx, cb)
	return nil
}

func (h *HCISocket) readLoop(ctx context.Context, cb mesh.ScanCallback) {
	buf := make([]byte, 1024)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := unix.Read(h.fd, buf)
		if err != nil || n < 3 {
			continue
		}
		if buf[0] != hciEventPkt || buf[1] != evtLEMetaEvent {
			continue
		}
		mac, rssi, payload, ok := parseLEAdvertisingReport(buf[3:n])
		if ok {
			cb(mac, rssi, payload)
		}
	}
}

// parseLEAdvertisingReport decodes a single-report LE Advertising Report
// HCI subevent body, grounded on the leAdvertisingReport layout in
// spreatty-bluetooth/hci.go (peerBdaddr, eirData, trailing RSSI byte).
func parseLEAdvertisingReport(body []byte) (mesh.MAC, int8, []byte, bool) {
	// body: subevent(1) num_reports(1) event_type(1) addr_type(1) addr(6)
	// data_length(1) data(data_length) rssi(1)
	if len(body) < 1 || body[0] != evtLEAdvertisingReport {
		return mesh.MAC{}, 0, nil, false
	}
	const headerLen = 1 + 1 + 1 + 1 + 6 + 1
	if len(body) < headerLen+1 {
		return mesh.MAC{}, 0, nil, false
	}
	dataLen := int(body[10])
	if len(body) < headerLen+dataLen+1 {
		return mesh.MAC{}, 0, nil, false
	}

	var mac mesh.MAC
	for i := 0; i < 6; i++ {
		mac[i] = body[4+6-1-i]
	}
	data := body[headerLen : headerLen+dataLen]
	rssi := int8(body[headerLen+dataLen])

	payload, ok := extractManufacturerData(data)
	if !ok {
		return mesh.MAC{}, 0, nil, false
	}
	return mac, rssi, payload, true
}

// extractManufacturerData scans a BLE advertising-data TLV buffer for the
// Manufacturer Specific Data element (AD type 0xFF) and returns its value.
func extractManufacturerData(data []byte) ([]byte, bool) {
	for i := 0; i+1 < len(data); {
		length := int(data[i])
		if length == 0 || i+1+length > len(data) {
			return nil, false
		}
		adType := data[i+1]
		if adType == 0xFF {
			return append([]byte(nil), data[i+2:i+1+length]...), true
		}
		i += 1 + length
	}
	return nil, false
}

// StopScan implements mesh.Radio.
func (h *HCISocket) StopScan() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.scanning {
		return nil
	}
	h.scanning = false
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	return h.sendCommand(ogfLECtl, ocfLESetScanEnable, []byte{0x00, 0x00})
}

// StartAdvertise implements mesh.Radio. params is used only to pick the
// HCI advertising interval field; the unit is 0.625ms ticks.
func (h *HCISocket) StartAdvertise(params mesh.AdvParams, payload []byte) error {
	intervalMin := uint16(params.IntervalMin.Microseconds() / 625)
	intervalMax := uint16(params.IntervalMax.Microseconds() / 625)

	advParams := make([]byte, 15)
	binary.LittleEndian.PutUint16(advParams[0:2], intervalMin)
	binary.LittleEndian.PutUint16(advParams[2:4], intervalMax)
	advParams[4] = 0x03 // ADV_NONCONN_IND
	advParams[5] = 0x00 // own address type: public
	advParams[6] = 0x00 // peer address type: public
	// advParams[7:13] peer address, left zero (broadcast, no peer)
	advParams[13] = 0x07 // channel map: all three
	advParams[14] = 0x00 // filter policy
	if err := h.sendCommand(ogfLECtl, ocfLESetAdvertisingParameters, advParams); err != nil {
		return fmt.Errorf("set advertising parameters: %w", err)
	}

	if len(payload) > 31 {
		return fmt.Errorf("advertising payload of %d bytes exceeds the 31-byte BLE limit", len(payload))
	}
	advData := make([]byte, 32)
	advData[0] = byte(len(payload))
	copy(advData[1:], payload)
	if err := h.sendCommand(ogfLECtl, ocfLESetAdvertisingData, advData); err != nil {
		return fmt.Errorf("set advertising data: %w", err)
	}

	return h.sendCommand(ogfLECtl, ocfLESetAdvertiseEnable, []byte{0x01})
}

// StopAdvertise implements mesh.Radio.
func (h *HCISocket) StopAdvertise() error {
	return h.sendCommand(ogfLECtl, ocfLESetAdvertiseEnable, []byte{0x00})
}

// Close releases the underlying socket file descriptor.
func (h *HCISocket) Close() error {
	return unix.Close(h.fd)
}
