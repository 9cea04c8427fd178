package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/reeflective/console"
	"github.com/spf13/cobra"

	"github.com/MrKot86/ble-aura-mesh/internal/led"
	"github.com/MrKot86/ble-aura-mesh/internal/mesh"
	"github.com/MrKot86/ble-aura-mesh/internal/radio"
	"github.com/MrKot86/ble-aura-mesh/internal/store"
)

var (
	shellNodes int
)

func shellCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive inspector over a fresh mesh simulation",
		Long:  "Launches a small in-process simulation and an interactive console (reeflective/console) for inspecting peer tables and mode state as cycles run.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runShell(shellNodes)
		},
	}
	cmd.Flags().IntVar(&shellNodes, "nodes", 3, "number of simulated nodes backing the shell session")
	return cmd
}

// runShell runs an interactive shell on the reeflective console library,
// driving its command tree from a live in-process simulation rather than
// a connection to a running daemon (the auramesh daemon has no shell of
// its own).
func runShell(nodes int) error {
	bus := radio.NewBus()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cores := make([]*mesh.Core, 0, nodes)
	for i := 0; i < nodes; i++ {
		staticAddr, err := mesh.GenerateStaticAddr()
		if err != nil {
			return fmt.Errorf("generate node %d identity: %w", i, err)
		}
		rd := radio.NewSimulated(bus, staticAddr.MAC, -50)
		core := mesh.NewCore(logger, rd, store.NewMemStore(), led.NewSimulated(), mesh.DefaultDeviceInfo(), staticAddr)
		cores = append(cores, core)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for i, core := range cores {
		if err := core.SetMode(ctx, mesh.ModeAura); err != nil {
			return fmt.Errorf("set mode for node %d: %w", i, err)
		}
		c := core
		go func() { _ = c.Run(ctx) }()
	}

	app := console.New("aurameshctl")
	menu := app.ActiveMenu()
	menu.SetCommands(func() *cobra.Command {
		root := &cobra.Command{}
		root.AddCommand(peerListCmd(cores))
		root.AddCommand(modeShowCmd(cores))
		return root
	})

	return app.Start()
}

func peerListCmd(cores []*mesh.Core) *cobra.Command {
	return &cobra.Command{
		Use:   "peer list",
		Short: "List every node's established peers",
		RunE: func(_ *cobra.Command, _ []string) error {
			for i, core := range cores {
				fmt.Printf("node %d (%x):\n", i, core.StaticAddr())
				for _, p := range core.Peers() {
					fmt.Printf("  %x affinity=%s level=%d\n", p.MAC, p.Affinity, p.Level)
				}
			}
			return nil
		},
	}
}

func modeShowCmd(cores []*mesh.Core) *cobra.Command {
	return &cobra.Command{
		Use:   "mode show",
		Short: "Show every node's current mode and identity",
		RunE: func(_ *cobra.Command, _ []string) error {
			for i, core := range cores {
				info := core.DeviceInfo()
				fmt.Printf("node %d (%x): mode=%s affinity=%s level=%d\n", i, core.StaticAddr(), info.Mode, info.Affinity, info.Level)
			}
			return nil
		},
	}
}
