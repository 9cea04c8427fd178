package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrKot86/ble-aura-mesh/internal/mesh"
)

func decodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <hex-payload>",
		Short: "Decode a hex-encoded advertisement payload",
		Long:  "Decodes a captured manufacturer-data payload using the mesh wire codec and prints the parsed frame.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			raw, err := hex.DecodeString(args[0])
			if err != nil {
				return fmt.Errorf("invalid hex payload: %w", err)
			}
			return printDecodedFrame(raw)
		},
	}
}

func printDecodedFrame(raw []byte) error {
	frame, ok := mesh.DecodeManufacturerData(raw)
	if !ok {
		return fmt.Errorf("payload does not match any known frame magic")
	}

	switch frame.Kind {
	case mesh.FrameKindMesh:
		f := frame.Mesh
		fmt.Printf("mesh frame: mode=%s affinity=%s level=%d state=%v dynamic_rssi_threshold=%d\n",
			f.Mode, f.Affinity, f.Level, f.State, f.DynamicRSSIThreshold)
	case mesh.FrameKindMaster:
		f := frame.Master
		fmt.Printf("master frame: target=%x mode=%s affinity=%s level=%d\n",
			f.TargetMAC, f.Info.Mode, f.Info.Affinity, f.Info.Level)
	case mesh.FrameKindOverseer:
		f := frame.Overseer
		fmt.Printf("overseer frame: magic=%v techno=%v\n", f.Magic, f.Techno)
	default:
		fmt.Println("unknown frame kind")
	}
	return nil
}
