// Package screen produces frames of the emulator window.
//
// WindowSource grabs the live window on X11. DirSource replays frames saved
// on disk, which is how hunts are dry-run and templates are checked without
// a running emulator. Scaled wraps either one to resize frames to the
// resolution the templates were authored at.
package screen

import (
	"context"
	"image"
)

// Source returns the current frame. A failure means "no frame right now";
// callers treat it as the expected screen not being present.
type Source interface {
	Capture(ctx context.Context) (image.Image, error)
}

// Focuser is implemented by sources that can bring their window to the
// front.
type Focuser interface {
	Focus(ctx context.Context) error
}
