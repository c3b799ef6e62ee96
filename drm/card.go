package drm

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/sirupsen/logrus"
)

// Card wraps an open card node. The fd doubles as the event source the
// kernel delivers vblank and flip completions on
type Card struct {
	fd   int
	path string
}

// OpenCard opens the node non blocking so event reads never stall the loop
func OpenCard(path string) (*Card, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &Card{fd: fd, path: path}, nil
}

func (c *Card) Fd() int {
	return c.fd
}

func (c *Card) Path() string {
	return c.path
}

func (c *Card) Close() error {
	if c.fd < 0 {
		return nil
	}
	err := unix.Close(c.fd)
	c.fd = -1
	return err
}

// ScanConnectors enumerates every connector of the card with its current
// connection state and advertised modes
func (c *Card) ScanConnectors() ([]Connector, error) {
	_, connectorIDs, _, err := getResources(c.fd)
	if err != nil {
		return nil, fmt.Errorf("failed to get resources of %s: %w", c.path, err)
	}

	connectors := make([]Connector, 0, len(connectorIDs))
	for _, id := range connectorIDs {
		raw, rawModes, err := getConnector(c.fd, id)
		if err != nil {
			// One broken connector must not hide the others
			logrus.WithError(err).WithFields(logrus.Fields{
				"card":      c.path,
				"connector": id,
			}).Warnln("Skipping connector that failed to probe")
			continue
		}
		conn := Connector{
			ID:        ConnectorID(raw.connectorID),
			Type:      raw.connectorType,
			TypeID:    raw.connectorTypeID,
			Connected: raw.connection == connectionConnected,
			MMWidth:   int(raw.mmWidth),
			MMHeight:  int(raw.mmHeight),
			Modes:     make([]Mode, 0, len(rawModes)),
		}
		for _, m := range rawModes {
			conn.Modes = append(conn.Modes, convertMode(m))
		}
		if raw.encoderID != 0 {
			if enc, err := getEncoder(c.fd, raw.encoderID); err == nil {
				conn.CRTC = CRTCID(enc.crtcID)
			}
		}
		connectors = append(connectors, conn)
	}
	return connectors, nil
}

// ReadEvents drains pending scanout events from the card fd.
// Returns nothing when the fd has no data right now
func (c *Card) ReadEvents() ([]VBlank, error) {
	buf := make([]byte, 1024)
	n, err := unix.Read(c.fd, buf)
	if err != nil {
		if err == unix.EAGAIN {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read events from %s: %w", c.path, err)
	}
	return DecodeEvents(buf[:n]), nil
}

// WaitEvents blocks until the card delivers scanout events, then drains
// them. Returns an error once the card is gone or closed, which is the
// signal for the caller's read pump to stop
func (c *Card) WaitEvents() ([]VBlank, error) {
	for {
		if c.fd < 0 {
			return nil, fmt.Errorf("card %s is closed", c.path)
		}
		fds := []unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to poll %s: %w", c.path, err)
		}
		if n == 0 {
			continue
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return nil, fmt.Errorf("card %s went away", c.path)
		}
		events, err := c.ReadEvents()
		if err != nil {
			return nil, err
		}
		if len(events) > 0 {
			return events, nil
		}
	}
}

// convertMode translates a kernel mode line into our Mode.
// The refresh rate is computed from the pixel clock where possible, the
// rounded vrefresh field is only the fallback
func convertMode(m modeInfo) Mode {
	refresh := int(m.vrefresh) * 1000
	if m.htotal > 0 && m.vtotal > 0 && m.clock > 0 {
		refresh = int(uint64(m.clock) * 1_000_000 / (uint64(m.htotal) * uint64(m.vtotal)))
	}
	return Mode{
		Name:       cString(m.name[:]),
		Width:      int(m.hdisplay),
		Height:     int(m.vdisplay),
		RefreshMHz: refresh,
		Clock:      int(m.clock),
		Preferred:  m.typ&modeTypePreferred != 0,
	}
}

// CardInfo is one enumerated card node
type CardInfo struct {
	Path string
	ID   DeviceID
}

// ListCards enumerates the card nodes present right now. Used for the
// initial scan, later devices arrive via the hotplug monitor
func ListCards() ([]CardInfo, error) {
	entries, err := os.ReadDir("/dev/dri")
	if err != nil {
		return nil, fmt.Errorf("failed to list /dev/dri: %w", err)
	}
	var cards []CardInfo
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "card") {
			continue
		}
		path := filepath.Join("/dev/dri", name)
		var st unix.Stat_t
		if err := unix.Stat(path, &st); err != nil {
			logrus.WithError(err).WithField("path", path).Warnln("Failed to stat card node")
			continue
		}
		cards = append(cards, CardInfo{Path: path, ID: DeviceID(st.Rdev)})
	}
	return cards, nil
}

// RenderNodePath guesses the render node belonging to a card node.
// The kernel pairs cardN with renderD(128+N). Returns the card path
// itself when no render node exists, rendering then runs on the card fd
func RenderNodePath(cardPath string) string {
	base := filepath.Base(cardPath)
	numStr := strings.TrimPrefix(base, "card")
	num, err := strconv.Atoi(numStr)
	if err != nil {
		return cardPath
	}
	render := filepath.Join(filepath.Dir(cardPath), fmt.Sprintf("renderD%d", 128+num))
	if _, err := os.Stat(render); err != nil {
		return cardPath
	}
	return render
}
