package tiler

import (
	"github.com/mstarongithub/tidewm/geom"
	"github.com/mstarongithub/tidewm/render"
	"github.com/mstarongithub/tidewm/shell"
)

// Helpers for the tests in this package

// TestWindow is a stand in for a protocol toplevel. It records the
// configures it receives so tests can check what got sent
type TestWindow struct {
	Id         uint64
	App        string
	Configures []geom.Size
	States     [][]shell.State
	Closed     bool
	LastSerial uint32
	Committed  render.Content
}

func (t *TestWindow) ID() uint64              { return t.Id }
func (t *TestWindow) AppID() string           { return t.App }
func (t *TestWindow) Title() string           { return t.App }
func (t *TestWindow) Content() render.Content { return t.Committed }

func (t *TestWindow) Configure(serial uint32, size geom.Size, states []shell.State) {
	t.Configures = append(t.Configures, size)
	t.States = append(t.States, states)
	t.LastSerial = serial
}

func (t *TestWindow) Close() {
	t.Closed = true
}

// spawnWindows inserts count fresh windows into the current workspace
func spawnWindows(ws *Workspaces, count int) []WindowID {
	ids := make([]WindowID, count)
	for i := range ids {
		ids[i] = ws.InsertWindow(&TestWindow{Id: uint64(i + 1)})
	}
	return ids
}
