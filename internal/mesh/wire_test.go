package mesh

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeMeshFrameRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		info DeviceInfo
		state bool
	}{
		{"aura magic level2", DeviceInfo{Mode: ModeAura, Affinity: AffinityMagic, Level: 2, DynamicRSSIThreshold: -60}, true},
		{"aura hostile", DeviceInfo{Mode: ModeAura, Affinity: AffinityTechno, Level: HostileEnvironmentLevel, DynamicRSSIThreshold: -70}, false},
		{"aura unity packed", DeviceInfo{Mode: ModeAura, Affinity: AffinityUnity, Level: packUnityLevel(3, 1), DynamicRSSIThreshold: -45}, true},
		{"device mode", DeviceInfo{Mode: ModeDevice, Affinity: AffinityTechno, Level: 1, DynamicRSSIThreshold: -65}, false},
		{"lvlup token", DeviceInfo{Mode: ModeLvlupToken, Affinity: AffinityMagic, Level: 2, DynamicRSSIThreshold: -50}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := EncodeMeshFrame(tc.info, tc.state)
			if buf[0] != meshMagic0 || buf[1] != meshMagic1 {
				t.Fatalf("unexpected magic: %x %x", buf[0], buf[1])
			}
			got, ok := DecodeMeshFrame(buf[:])
			if !ok {
				t.Fatalf("decode failed")
			}
			if got.Mode != tc.info.Mode {
				t.Errorf("mode = %v, want %v", got.Mode, tc.info.Mode)
			}
			if got.Affinity != tc.info.Affinity {
				t.Errorf("affinity = %v, want %v", got.Affinity, tc.info.Affinity)
			}
			if got.State != tc.state {
				t.Errorf("state = %v, want %v", got.State, tc.state)
			}
			if got.DynamicRSSIThreshold != tc.info.DynamicRSSIThreshold {
				t.Errorf("rssi = %v, want %v", got.DynamicRSSIThreshold, tc.info.DynamicRSSIThreshold)
			}
			if tc.info.Affinity == AffinityUnity {
				if SplitUnityLevel(got.Level, AffinityMagic) != SplitUnityLevel(tc.info.Level, AffinityMagic) {
					t.Errorf("magic level = %v, want %v", SplitUnityLevel(got.Level, AffinityMagic), SplitUnityLevel(tc.info.Level, AffinityMagic))
				}
				if SplitUnityLevel(got.Level, AffinityTechno) != SplitUnityLevel(tc.info.Level, AffinityTechno) {
					t.Errorf("techno level = %v, want %v", SplitUnityLevel(got.Level, AffinityTechno), SplitUnityLevel(tc.info.Level, AffinityTechno))
				}
			} else if got.Level != tc.info.Level {
				t.Errorf("level = %v, want %v", got.Level, tc.info.Level)
			}
		})
	}
}

func TestDecodeMeshFrameTooShort(t *testing.T) {
	if _, ok := DecodeMeshFrame([]byte{meshMagic0, meshMagic1, 0x00}); ok {
		t.Fatal("expected decode failure on truncated frame")
	}
}

func TestSplitUnityLevel(t *testing.T) {
	level := packUnityLevel(3, 1)
	if got := SplitUnityLevel(level, AffinityMagic); got != 3 {
		t.Errorf("magic = %d, want 3", got)
	}
	if got := SplitUnityLevel(level, AffinityTechno); got != 1 {
		t.Errorf("techno = %d, want 1", got)
	}
	if got := SplitUnityLevel(level, AffinityUnity); got != 3 {
		t.Errorf("max = %d, want 3", got)
	}
}

func TestEncodeDecodeMasterFrameRoundTrip(t *testing.T) {
	f := MasterFrame{
		TargetMAC: MAC{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF},
		Info:      DeviceInfo{Mode: ModeDevice, Affinity: AffinityMagic, Level: 2, DynamicRSSIThreshold: -55},
	}
	buf := EncodeMasterFrame(f)
	if len(buf) != MasterAdvLen {
		t.Fatalf("len = %d, want %d", len(buf), MasterAdvLen)
	}
	got, ok := DecodeMasterFrame(buf[:])
	if !ok {
		t.Fatal("decode failed")
	}
	if got != f {
		t.Errorf("got %+v, want %+v", got, f)
	}
}

func TestEncodeDecodeOverseerFrameRoundTrip(t *testing.T) {
	f := OverseerFrame{
		Magic:  [MaxAuraLevel + 1]uint8{0, 1, 1, 0},
		Techno: [MaxAuraLevel + 1]uint8{1, 0, 1, 1},
	}
	buf := EncodeOverseerFrame(f)
	if len(buf) != OverseerAdvLen {
		t.Fatalf("len = %d, want %d", len(buf), OverseerAdvLen)
	}
	got, ok := DecodeOverseerFrame(buf[:])
	if !ok {
		t.Fatal("decode failed")
	}
	if got != f {
		t.Errorf("got %+v, want %+v", got, f)
	}
}

func TestExtractManufacturerData(t *testing.T) {
	mesh := EncodeMeshFrame(DeviceInfo{Mode: ModeAura, Affinity: AffinityMagic, Level: 1}, true)
	adv := []byte{
		0x02, 0x01, 0x06, // flags AD element, unrelated
		byte(len(mesh) + 1), 0xFF,
	}
	adv = append(adv, mesh[:]...)

	got, ok := ExtractManufacturerData(adv)
	if !ok {
		t.Fatal("expected manufacturer-data element to be found")
	}
	if !bytes.Equal(got, mesh[:]) {
		t.Errorf("got %x, want %x", got, mesh[:])
	}
}

func TestExtractManufacturerDataMalformed(t *testing.T) {
	adv := []byte{0x10, 0xFF, 0x01} // length claims 16 bytes follow, only 1 present
	if _, ok := ExtractManufacturerData(adv); ok {
		t.Fatal("expected malformed TLV to be rejected")
	}
}

func TestDecodeAdvertisementDispatch(t *testing.T) {
	master := EncodeMasterFrame(MasterFrame{
		TargetMAC: MAC{1, 2, 3, 4, 5, 6},
		Info:      DeviceInfo{Mode: ModeNone},
	})
	adv := append([]byte{byte(len(master) + 1), 0xFF}, master[:]...)

	frame, ok := DecodeAdvertisement(adv)
	if !ok {
		t.Fatal("expected decode to succeed")
	}
	if frame.Kind != FrameKindMaster {
		t.Errorf("kind = %v, want FrameKindMaster", frame.Kind)
	}
}

func TestDecodeManufacturerDataUnknownMagic(t *testing.T) {
	if _, ok := DecodeManufacturerData([]byte{0x00, 0x00, 0x00, 0x00, 0x00}); ok {
		t.Fatal("expected unknown magic to be rejected")
	}
}
