// Command aurameshctl is an offline harness and inspector for the
// aura-mesh protocol: it runs in-process simulations and decodes captured
// advertisement payloads without requiring real BLE hardware.
package main

import "github.com/MrKot86/ble-aura-mesh/cmd/aurameshctl/commands"

func main() {
	commands.Execute()
}
