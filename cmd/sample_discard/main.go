// Command sample_discard asks the simulation to drop a regolith sample at
// the discard point. Useful for clearing the scoop between digging runs
// without restarting a session.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/config"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/sim"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/pkg/core"
)

func main() {
	x := pflag.Float64P("x", "x", 1.5, "discard point easting (m, site frame)")
	y := pflag.Float64P("y", "y", 0.8, "discard point northing (m, site frame)")
	z := pflag.Float64P("z", "z", 0.65, "discard point elevation (m, site frame)")
	modelURI := pflag.String("model", "", "model URI to drop (default from config)")
	timeout := pflag.Duration("timeout", 5*time.Second, "request timeout")
	pflag.Parse()

	if err := run(*x, *y, *z, *modelURI, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(x, y, z float64, modelURI string, timeout time.Duration) error {
	// Defaults are set even when no config file is present
	_ = config.Load(".")

	if modelURI == "" {
		modelURI = viper.GetString("regolith.modelUri")
	}

	client := sim.NewClient(
		viper.GetString("sim.serverUrl"),
		viper.GetString("sim.apiKey"),
		timeout,
	)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := client.SpawnModel(ctx, sim.SpawnModelRequest{
		ModelURI: modelURI,
		Pose: core.Pose{
			Position:    core.Position3D{X: x, Y: y, Z: z},
			Orientation: core.Identity(),
		},
	})
	if err != nil {
		return fmt.Errorf("discard request failed: %w", err)
	}

	fmt.Printf("Dropped %s as %s at (%.2f, %.2f, %.2f)\n",
		modelURI, resp.InstanceName, x, y, z)
	return nil
}
