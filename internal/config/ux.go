package config

// UXConfig holds user interface configuration.
type UXConfig struct {
	// Theme for the TUI: "light", "dark" or "auto" (terminal detection)
	Theme string `yaml:"theme"`

	// SidebarWidth is the session sidebar width in cells (0 = automatic)
	SidebarWidth int `yaml:"sidebar_width,omitempty"`
}
