package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/mstarongithub/tidewm/common/ipc"
	"github.com/mstarongithub/tidewm/repl"
	"github.com/mstarongithub/tidewm/tiler"
	"github.com/mstarongithub/tidewm/util"
	"github.com/mstarongithub/tidewm/util/wrappers"
)

var errReplQuit = errors.New("normal stop")

// replRunner drives the command line on stdin. Every command turns into
// an intent, the loop does the actual work
func replRunner(server *Server) {
	// Wrappers around stdin and stdout so the repl closes those instead of
	// the real things
	commandRepl := repl.NewRepl(wrappers.NewReaderWrapper(os.Stdin), wrappers.NewWriterWrapper(os.Stdout))
	logrus.Debugln("Starting repl")
	err := commandRepl.Run(func(input string, r *repl.Repl) (string, error) {
		return handleReplCommand(server, input)
	})
	if err != nil && !errors.Is(err, errReplQuit) {
		logrus.WithError(err).Warnln("Repl stopped")
	}
}

func handleReplCommand(server *Server, input string) (string, error) {
	input = strings.TrimSpace(input)
	switch {
	case input == "":
		return "", nil
	case input == "help":
		return replHelp, nil
	case input == "quit":
		server.Quit()
		return "Quitting", errReplQuit
	case input == "float":
		server.post(floatIntent{})
		return "Toggled floating", nil
	case input == "fullscreen":
		server.post(fullscreenSwapIntent{})
		return "Toggled fullscreen", nil
	case input == "close":
		server.post(closeActiveIntent{})
		return "Asked the active window to close", nil
	case input == "drag":
		server.post(dragIntent{})
		return "Toggled window drag", nil
	case input == "pause":
		server.PauseSession()
		return "Session paused", nil
	case input == "resume":
		server.ResumeSession()
		return "Session resumed", nil
	}
	if cmdString, ok := strings.CutPrefix(input, "run "); ok {
		server.post(execIntent{command: cmdString})
		return "Running " + cmdString, nil
	}
	if arg, ok := strings.CutPrefix(input, "ws "); ok {
		index, err := strconv.Atoi(arg)
		if err != nil {
			return "Not a workspace number: " + arg, nil
		}
		server.post(workspaceIntent{index: index})
		return "Switching to workspace " + arg, nil
	}
	if arg, ok := strings.CutPrefix(input, "move-ws "); ok {
		index, err := strconv.Atoi(arg)
		if err != nil {
			return "Not a workspace number: " + arg, nil
		}
		server.post(moveToWorkspaceIntent{index: index})
		return "Moving window to workspace " + arg, nil
	}
	if arg, ok := strings.CutPrefix(input, "focus "); ok {
		dir, ok := parseDirection(arg)
		if !ok {
			return "Not a direction: " + arg, nil
		}
		server.post(focusIntent{dir: dir})
		return "Focusing " + arg, nil
	}
	if arg, ok := strings.CutPrefix(input, "move "); ok {
		dir, ok := parseDirection(arg)
		if !ok {
			return "Not a direction: " + arg, nil
		}
		server.post(moveWindowIntent{dir: dir})
		return "Moving window " + arg, nil
	}
	if rawCmdString, ok := strings.CutPrefix(input, "inspect"); ok {
		// Can't unpack slices directly like in Python, so do it this
		// roundabout way
		var target string
		util.Unpack(strings.Fields(rawCmdString), &target)
		return inspect(server, target)
	}
	return "Unknown command, try help", nil
}

func parseDirection(s string) (tiler.Direction, bool) {
	switch s {
	case "left":
		return tiler.DirLeft, true
	case "right":
		return tiler.DirRight, true
	case "up":
		return tiler.DirUp, true
	case "down":
		return tiler.DirDown, true
	}
	return tiler.DirLeft, false
}

// inspect asks the loop for a state snapshot and prints the part asked
// for as yaml. No target means everything
func inspect(server *Server, target string) (string, error) {
	reply := make(chan ipc.State, 1)
	if err := server.inbox.Send(snapshotIntent{reply: reply}); err != nil {
		return "Compositor loop is gone", nil
	}
	state := <-reply
	var out any
	switch target {
	case "", "all":
		out = state
	case "workspaces":
		out = state.Workspaces
	case "outputs":
		out = state.Outputs
	case "pointer":
		out = map[string]int{"x": state.PointerX, "y": state.PointerY}
	case "grab":
		if state.Grab == "" {
			return "No grab running", nil
		}
		return "Grab: " + state.Grab, nil
	default:
		return "Unknown inspect target: " + target, nil
	}
	encoded, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Sprintf("Failed to encode state: %s", err), nil
	}
	return strings.TrimRight(string(encoded), "\n"), nil
}

const replHelp = `Commands:
  run <cmd...>     spawn a program
  ws <n>           switch to workspace n
  move-ws <n>      carry the active window to workspace n
  focus <dir>      move focus left/right/up/down
  move <dir>       swap the active window left/right/up/down
  float            toggle floating on the active window
  fullscreen       toggle fullscreen on the active window
  close            ask the active window to close
  drag             toggle dragging the active window with the pointer
  pause / resume   pause or resume the session
  inspect [target] dump state (all, workspaces, outputs, pointer, grab)
  quit             stop the compositor`
