package drm

import "errors"

// Submission error classes the frame scheduler dispatches on.
// Renderer implementations wrap their backend errors into these
var (
	// The device is paused or otherwise not accepting frames right now.
	// Rendering is skipped silently, the next vblank or damage retries
	ErrDeviceInactive = errors.New("device inactive")
	// Access to the device was denied, usually a race around a session
	// switch. Worth a retry on a timer
	ErrPermissionDenied = errors.New("permission denied")
	// The GPU context is gone. The device has to be torn down and added
	// again from scratch
	ErrContextLost = errors.New("render context lost")
	// A frame is already waiting for the next vblank
	ErrAlreadyQueued = errors.New("frame already queued")
)
