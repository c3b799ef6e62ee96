package drm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pilebones/go-udev/netlink"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/mstarongithub/tidewm/util/multiplexer"
)

// HotplugAction says what happened to a card node
type HotplugAction int

const (
	// A new card appeared
	HotplugAdded = HotplugAction(iota)
	// Something about the card changed, usually a connector came or went
	HotplugChanged
	// The card is gone
	HotplugRemoved
)

func (a HotplugAction) String() string {
	switch a {
	case HotplugAdded:
		return "added"
	case HotplugChanged:
		return "changed"
	case HotplugRemoved:
		return "removed"
	}
	return "unknown"
}

// HotplugEvent is one card level hotplug notification
type HotplugEvent struct {
	Action HotplugAction
	Path   string
	ID     DeviceID
}

// mapUEvent filters a raw kernel uevent down to a card hotplug event.
// Connector level events arrive as "change" on their card, so everything
// that is not a card node is dropped here
func mapUEvent(action string, env map[string]string) (HotplugEvent, bool) {
	devname := env["DEVNAME"]
	if !strings.HasPrefix(devname, "dri/card") {
		return HotplugEvent{}, false
	}

	var act HotplugAction
	switch action {
	case "add":
		act = HotplugAdded
	case "change":
		act = HotplugChanged
	case "remove":
		act = HotplugRemoved
	default:
		return HotplugEvent{}, false
	}

	major, errMajor := strconv.ParseUint(env["MAJOR"], 10, 32)
	minor, errMinor := strconv.ParseUint(env["MINOR"], 10, 32)
	if errMajor != nil || errMinor != nil {
		return HotplugEvent{}, false
	}

	return HotplugEvent{
		Action: act,
		Path:   "/dev/" + devname,
		ID:     DeviceID(unix.Mkdev(uint32(major), uint32(minor))),
	}, true
}

// Monitor listens on the kernel's uevent socket for drm hotplug traffic
// and fans the filtered stream out to any number of subscribers.
// Udev itself happily serves many listeners, so do we
type Monitor struct {
	conn *netlink.UEventConn
	plex multiplexer.OneToMany[HotplugEvent]
	quit chan struct{}
	stop chan struct{}
	done chan struct{}
}

func NewMonitor() *Monitor {
	return &Monitor{
		plex: multiplexer.NewOneToMany[HotplugEvent](),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Subscribe registers a named listener for the hotplug stream.
// The channel closes when the monitor stops
func (m *Monitor) Subscribe(name string) (<-chan HotplugEvent, error) {
	return m.plex.MakeReceiver(name)
}

// Unsubscribe drops a listener again
func (m *Monitor) Unsubscribe(name string) {
	m.plex.CloseReceiver(name)
}

// Start connects to the uevent socket and begins filtering.
// Needs no privileges beyond what the compositor already has
func (m *Monitor) Start() error {
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return fmt.Errorf("failed to connect to the uevent socket: %w", err)
	}
	m.conn = conn

	queue := make(chan netlink.UEvent, 16)
	errs := make(chan error, 8)
	matcher := &netlink.RuleDefinitions{
		Rules: []netlink.RuleDefinition{
			{Env: map[string]string{"SUBSYSTEM": "drm"}},
		},
	}
	m.quit = conn.Monitor(queue, errs, matcher)

	go m.plex.StartPlexer()
	go func() {
		// The library never closes queue or errs, the stop channel is
		// the only way out of here
		defer close(m.done)
		for {
			select {
			case <-m.stop:
				return
			case ev := <-queue:
				if mapped, ok := mapUEvent(string(ev.Action), ev.Env); ok {
					m.plex.GetSender() <- mapped
				}
			case err := <-errs:
				logrus.WithError(err).Warnln("Udev monitor hiccup")
			}
		}
	}()
	return nil
}

// Stop ends monitoring. Subscriber channels close once the socket is down
// and the filter goroutine has drained
func (m *Monitor) Stop() {
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	close(m.stop)
	<-m.done
	m.plex.CloseSender()
}
