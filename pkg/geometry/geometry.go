// Package geometry computes the visual path between two nodes on the
// editor canvas. Pure functions only; the canvas renderer is the sole
// consumer.
package geometry

import (
	"fmt"

	"github.com/chatforge/chatforge/pkg/models"
)

// Fixed node box dimensions on the canvas.
const (
	NodeWidth  = 180.0
	NodeHeight = 80.0

	// controlOffset is how far below the source anchor the bezier
	// control point sits.
	controlOffset = 50.0
)

// Path is a renderable edge between two nodes.
type Path struct {
	SVGPath  string          `json:"svg_path"`
	Midpoint models.Position `json:"midpoint"`
}

// PathBetween anchors the edge at the bottom-center of the source box and
// the top-center of the destination box, curved as a quadratic bezier.
// Identical positions yield a degenerate zero-length path, never an error.
func PathBetween(from, to *models.FlowNode) Path {
	start := models.Position{
		X: from.Position.X + NodeWidth/2,
		Y: from.Position.Y + NodeHeight,
	}
	end := models.Position{
		X: to.Position.X + NodeWidth/2,
		Y: to.Position.Y,
	}
	control := models.Position{
		X: start.X,
		Y: start.Y + controlOffset,
	}

	return Path{
		SVGPath: fmt.Sprintf("M %g %g Q %g %g %g %g",
			start.X, start.Y, control.X, control.Y, end.X, end.Y),
		Midpoint: models.Position{
			X: (start.X + end.X) / 2,
			Y: (start.Y + end.Y) / 2,
		},
	}
}
