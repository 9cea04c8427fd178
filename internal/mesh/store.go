package mesh

// Storage IDs for the two persisted records (spec.md §6).
const (
	StorageIDDeviceInfo = 1
	StorageIDStaticAddr = 2
)

// Store is the external persistent-storage boundary (spec.md §6):
// read/write by small integer ID. A missing ID is reported by ok=false,
// not an error — spec.md §7 treats a device_info read miss as "not an
// error, use defaults." Implementations live in internal/store.
type Store interface {
	Read(id int) (data []byte, ok bool, err error)
	Write(id int, data []byte) error
}

// LoadDeviceInfo reads storage ID 1, falling back to DefaultDeviceInfo
// on a miss (spec.md §3, §7). A read error is logged by the caller and
// also falls back to defaults, since init must not fail merely because
// the prior record was unreadable.
func LoadDeviceInfo(store Store) (DeviceInfo, error) {
	data, ok, err := store.Read(StorageIDDeviceInfo)
	if err != nil {
		return DefaultDeviceInfo(), err
	}
	if !ok {
		return DefaultDeviceInfo(), nil
	}
	info, decoded := DecodeDeviceInfo(data)
	if !decoded {
		return DefaultDeviceInfo(), nil
	}
	return info, nil
}

// SaveDeviceInfo persists device_info under storage ID 1.
func SaveDeviceInfo(store Store, info DeviceInfo) error {
	buf := EncodeDeviceInfo(info)
	return store.Write(StorageIDDeviceInfo, buf[:])
}

// LoadStaticAddr reads storage ID 2. ok is false if absent; callers must
// generate and persist a fresh address in that case (spec.md §3, §9
// init-failure taxonomy: identity-address creation failure aborts
// startup, but a mere absence of a prior address is expected on first
// boot).
func LoadStaticAddr(store Store) (StaticAddr, bool, error) {
	data, ok, err := store.Read(StorageIDStaticAddr)
	if err != nil || !ok || len(data) < 7 {
		return StaticAddr{}, false, err
	}
	var addr StaticAddr
	addr.AddrType = data[0]
	copy(addr.MAC[:], data[1:7])
	return addr, true, nil
}

// SaveStaticAddr persists the static address under storage ID 2.
func SaveStaticAddr(store Store, addr StaticAddr) error {
	buf := make([]byte, 7)
	buf[0] = addr.AddrType
	copy(buf[1:7], addr.MAC[:])
	return store.Write(StorageIDStaticAddr, buf)
}
