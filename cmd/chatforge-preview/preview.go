package main

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/chatforge/chatforge/pkg/models"
	"github.com/chatforge/chatforge/pkg/persistence"
	"github.com/chatforge/chatforge/pkg/simulator"
)

type previewOptions struct {
	flowID  string
	noDelay bool
	input   io.Reader
	output  io.Writer
}

// runPreview drives one interactive simulation to completion, echoing the
// timeline as it grows and prompting on question nodes.
func runPreview(ctx context.Context, store persistence.Persistence, opts previewOptions) error {
	flow, err := store.FlowRepository().GetByID(ctx, opts.flowID)
	if err != nil {
		return fmt.Errorf("failed to load flow: %w", err)
	}

	if flow == nil {
		return fmt.Errorf("flow %q not found", opts.flowID)
	}

	simOpts := []simulator.Option{}
	if opts.noDelay {
		simOpts = append(simOpts, simulator.WithMessageDelay(0))
	}

	sim := simulator.New(flow, simOpts...)

	fmt.Fprintf(opts.output, "Previewing %s (%s)\n\n", flow.Name, flow.Slug)

	err = sim.Start(ctx)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(opts.input)
	printed := 0

	for {
		printed = printSteps(opts.output, sim.Steps(), printed)

		if sim.Status() != models.SimulationWaitingForInput {
			break
		}

		fmt.Fprint(opts.output, "> ")

		if !scanner.Scan() {
			sim.Stop()

			break
		}

		err = sim.SubmitInput(ctx, scanner.Text())
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(opts.output, "\nConversation ended after %d steps.\n", len(sim.Steps()))

	return scanner.Err()
}

// printSteps echoes timeline entries added since the last call and returns
// the new high-water mark.
func printSteps(w io.Writer, steps []models.SimulationStep, printed int) int {
	for _, step := range steps[printed:] {
		if step.Input != "" {
			fmt.Fprintf(w, "you: %s\n", step.Input)
		}

		if step.Output != "" {
			fmt.Fprintf(w, "bot: %s\n", step.Output)
		}
	}

	return len(steps)
}
