package ipc

// TODO: Look into adding support for sway and hyprland ipc so that tidewm can interact with those in tool mode

type (
	// A request to list the available outputs
	OutputRequest struct {
		// Whether to include the modes an output supports
		IncludeModes bool `json:"include_modes" yaml:"include_modes"`
		// Name of the one output to report on, empty for all of them
		TargetOutput string `json:"target_output" yaml:"target_output"`
	}

	// A mode an output supports
	OutputMode struct {
		// Mode width in pixel
		Width int `yaml:"width"`
		// Mode height in pixel
		Height int `yaml:"height"`
		// Refresh rate of the mode in millihertz
		RefreshRate int `yaml:"refresh_mhz"`
		// Whether the display itself prefers this mode
		Preferred bool `yaml:"preferred,omitempty"`
	}

	// One output in an OutputResponse
	Output struct {
		// Connector name, "DP-1" style
		Name string `yaml:"name"`
		// Card node the connector hangs off
		Device string `yaml:"device"`
		// Whether a display is plugged in right now
		Connected bool `yaml:"connected"`
		// The modes the display advertises. Only set if IncludeModes was true
		Modes []OutputMode `yaml:"modes,omitempty"`
	}

	// Response to an OutputRequest message
	OutputResponse struct {
		// List of all outputs. Only contains the target output if one was named
		Outputs []Output `yaml:"outputs"`
		// Nr of outputs found
		OutputsFound int `yaml:"outputs_found"`
	}
)

// Snapshot types the repl's inspect command serves. One struct per concern
// so a command can print exactly the part asked for

type (
	WorkspaceState struct {
		Index   int  `yaml:"index"`
		Active  bool `yaml:"active,omitempty"`
		Windows int  `yaml:"windows"`
		// Title of the focused window, empty if none
		Focused string `yaml:"focused,omitempty"`
		// Title of the fullscreen window, empty if none
		Fullscreen string `yaml:"fullscreen,omitempty"`
	}

	OutputState struct {
		Name   string  `yaml:"name"`
		Device string  `yaml:"device"`
		Mode   string  `yaml:"mode"`
		Scale  float64 `yaml:"scale"`
		X      int     `yaml:"x"`
		Y      int     `yaml:"y"`
		// Frame scheduler state, for staring at while debugging stutter
		Frame string `yaml:"frame"`
	}

	State struct {
		Workspaces []WorkspaceState `yaml:"workspaces"`
		Outputs    []OutputState    `yaml:"outputs"`
		PointerX   int              `yaml:"pointer_x"`
		PointerY   int              `yaml:"pointer_y"`
		// Active grab if any, "move" or "resize"
		Grab string `yaml:"grab,omitempty"`
	}
)
