package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mstarongithub/tidewm/drm"
	"github.com/mstarongithub/tidewm/geom"
	"github.com/mstarongithub/tidewm/shell"
	"github.com/mstarongithub/tidewm/tiler"

	"github.com/mstarongithub/tidewm/common/ipc"
)

// intent is one unit of work for the compositor loop. The set of variants
// is closed, dispatch matches every one of them explicitly. Everything the
// server does, it does by handling an intent, so ordering is always the
// arrival order and nothing ever runs concurrently with anything else
type intent interface{ isIntent() }

type (
	// hardware
	hotplugIntent struct{ ev drm.HotplugEvent }
	vblankIntent  struct {
		device drm.DeviceID
		ev     drm.VBlank
	}
	renderIntent struct {
		device    drm.DeviceID
		connector drm.ConnectorID
	}
	// a deferred presentation report, carries the vblank it stems from
	feedbackIntent struct {
		device    drm.DeviceID
		connector drm.ConnectorID
		ev        drm.VBlank
	}
	rescanIntent         struct{ device drm.DeviceID }
	releaseDeviceIntent  struct{ device drm.DeviceID }
	recreateDeviceIntent struct {
		device drm.DeviceID
		path   string
	}
	sessionIntent struct{ pause bool }

	// protocol seam
	toplevelCreatedIntent   struct{ handle shell.Toplevel }
	toplevelDestroyedIntent struct{ id uint64 }
	surfaceCommittedIntent  struct{ id uint64 }
	layerCreatedIntent      struct{ handle shell.LayerSurface }
	layerDestroyedIntent    struct{ id uint64 }
	fullscreenIntent        struct {
		id     uint64
		output string
	}
	unfullscreenIntent struct{ id uint64 }
	moveRequestIntent  struct {
		id     uint64
		serial uint32
	}
	resizeRequestIntent struct {
		id     uint64
		serial uint32
		edges  shell.Edges
	}

	// input
	motionIntent struct{ loc geom.Point }
	buttonIntent struct {
		button  uint32
		pressed bool
	}

	// user actions, mostly fed by the repl
	workspaceIntent       struct{ index int }
	moveToWorkspaceIntent struct{ index int }
	focusIntent           struct{ dir tiler.Direction }
	moveWindowIntent      struct{ dir tiler.Direction }
	floatIntent           struct{}
	fullscreenSwapIntent  struct{}
	closeActiveIntent     struct{}
	dragIntent            struct{}
	execIntent            struct{ command string }
	snapshotIntent        struct{ reply chan ipc.State }
	quitIntent            struct{}
)

func (hotplugIntent) isIntent()           {}
func (vblankIntent) isIntent()            {}
func (renderIntent) isIntent()            {}
func (feedbackIntent) isIntent()          {}
func (rescanIntent) isIntent()            {}
func (releaseDeviceIntent) isIntent()     {}
func (recreateDeviceIntent) isIntent()    {}
func (sessionIntent) isIntent()           {}
func (toplevelCreatedIntent) isIntent()   {}
func (toplevelDestroyedIntent) isIntent() {}
func (surfaceCommittedIntent) isIntent()  {}
func (layerCreatedIntent) isIntent()      {}
func (layerDestroyedIntent) isIntent()    {}
func (fullscreenIntent) isIntent()        {}
func (unfullscreenIntent) isIntent()      {}
func (moveRequestIntent) isIntent()       {}
func (resizeRequestIntent) isIntent()     {}
func (motionIntent) isIntent()            {}
func (buttonIntent) isIntent()            {}
func (workspaceIntent) isIntent()         {}
func (moveToWorkspaceIntent) isIntent()   {}
func (focusIntent) isIntent()             {}
func (moveWindowIntent) isIntent()        {}
func (floatIntent) isIntent()             {}
func (fullscreenSwapIntent) isIntent()    {}
func (closeActiveIntent) isIntent()       {}
func (dragIntent) isIntent()              {}
func (execIntent) isIntent()              {}
func (snapshotIntent) isIntent()          {}
func (quitIntent) isIntent()              {}

// Run is the compositor loop. It owns every field of the server, other
// goroutines only ever reach in by posting intents through the inbox
func (s *Server) Run(ctx context.Context) error {
	s.running = true
	s.startupScan()
	for s.running {
		select {
		case <-ctx.Done():
			s.running = false
		case ev := <-s.events:
			s.dispatch(ev)
			s.drainPending()
		}
	}
	s.teardown()
	return nil
}

// startupScan brings up everything already plugged in before the first
// hotplug event can arrive
func (s *Server) startupScan() {
	cards, err := s.backend.ListCards()
	if err != nil {
		logrus.WithError(err).Errorln("Card enumeration failed")
	}
	for _, c := range cards {
		s.addDevice(c.Path, c.ID)
	}
	s.drainPending()
	for _, command := range s.cfg.Autostart {
		s.spawn(command)
	}
}

func (s *Server) dispatch(i intent) {
	switch v := i.(type) {
	case hotplugIntent:
		s.handleHotplug(v.ev)
	case vblankIntent:
		if dev, ok := s.devices[v.device]; ok {
			s.onVBlank(dev, v.ev)
		}
	case renderIntent:
		s.renderConnector(v.device, v.connector)
	case feedbackIntent:
		if surf := s.surfaceOf(v.device, v.connector); surf != nil {
			s.deliverFeedback(surf, v.ev)
		}
	case rescanIntent:
		if dev, ok := s.devices[v.device]; ok {
			s.rescanDevice(dev)
		}
	case releaseDeviceIntent:
		s.releaseDevice(v.device)
	case recreateDeviceIntent:
		s.addDevice(v.path, v.device)
	case sessionIntent:
		if v.pause {
			s.pauseSession()
		} else {
			s.resumeSession()
		}
	case toplevelCreatedIntent:
		s.handleToplevelCreated(v.handle)
	case toplevelDestroyedIntent:
		s.handleToplevelDestroyed(v.id)
	case surfaceCommittedIntent:
		s.handleSurfaceCommitted(v.id)
	case layerCreatedIntent:
		s.handleLayerCreated(v.handle)
	case layerDestroyedIntent:
		s.handleLayerDestroyed(v.id)
	case fullscreenIntent:
		s.handleFullscreenRequested(v.id, v.output)
	case unfullscreenIntent:
		s.handleUnfullscreenRequested(v.id)
	case moveRequestIntent:
		s.handleMoveRequested(v.id, v.serial)
	case resizeRequestIntent:
		s.handleResizeRequested(v.id, v.serial, v.edges)
	case motionIntent:
		s.handleMotion(v.loc)
	case buttonIntent:
		s.handleButton(v.button, v.pressed)
	case workspaceIntent:
		s.switchWorkspace(v.index)
	case moveToWorkspaceIntent:
		s.moveActiveToWorkspace(v.index)
	case focusIntent:
		s.focusDir(v.dir)
	case moveWindowIntent:
		s.moveDir(v.dir)
	case floatIntent:
		s.toggleFloating()
	case fullscreenSwapIntent:
		s.toggleFullscreenActive()
	case closeActiveIntent:
		s.closeActive()
	case dragIntent:
		s.toggleDrag()
	case execIntent:
		s.spawn(v.command)
	case snapshotIntent:
		v.reply <- s.snapshot()
	case quitIntent:
		logrus.Infoln("Quit requested")
		s.running = false
	}
}

// drainPending runs the work queued up by the handlers themselves.
// Handlers append instead of recursing so that device teardown never
// happens underneath the callback that asked for it
func (s *Server) drainPending() {
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.dispatch(next)
	}
}

// queue defers an intent to the end of the current dispatch round.
// Loop internal, handlers only
func (s *Server) queue(i intent) {
	s.pending = append(s.pending, i)
}

// post hands an intent to the loop from any goroutine
func (s *Server) post(i intent) {
	if err := s.inbox.Send(i); err != nil {
		logrus.WithError(err).Debugln("Dropping event, loop is gone")
	}
}

// schedule posts the intent after the delay. The returned timer can be
// stopped to cancel the delivery
func (s *Server) schedule(d time.Duration, i intent) *time.Timer {
	return time.AfterFunc(d, func() {
		s.post(i)
	})
}

func (s *Server) teardown() {
	for id := range s.devices {
		s.releaseDevice(id)
	}
	logrus.Infoln("Compositor loop ended")
}
