// Package config defines the recognized configuration surface
// (spec.md §6) and a minimal YAML loader. CLI argument parsing and
// config generation/validation are external collaborators and are
// deliberately not implemented here — see SPEC_FULL.md §2.1.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Public  Public  `yaml:"public"`
	Server  Server  `yaml:"server"`
	RCON    RCON    `yaml:"rcon"`
	Time    Time    `yaml:"time"`
	Join    Join    `yaml:"join"`
	Messages Messages `yaml:"messages"`
	Advanced Advanced `yaml:"advanced"`
}

type Public struct {
	Address  string `yaml:"address"`
	Version  string `yaml:"version"`
	Protocol int32  `yaml:"protocol"`
	Favicon  string `yaml:"favicon"`
}

type Server struct {
	Address         string `yaml:"address"`
	Directory       string `yaml:"directory"`
	Command         string `yaml:"command"`
	SendProxyV2     bool   `yaml:"send_proxy_v2"`
	Forge           bool   `yaml:"forge"`
	ProbeOnStart    bool   `yaml:"probe_on_start"`
	BlockBannedIPs  bool   `yaml:"block_banned_ips"`
	DropBannedIPs   bool   `yaml:"drop_banned_ips"`
	WakeWhitelist   bool   `yaml:"wake_whitelist"`
	FreezeOnProbe   bool   `yaml:"freeze_process_on_probe"` // reserved, matches original's freeze-on-probe flag
}

type RCON struct {
	Enabled  bool   `yaml:"enabled"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
}

type Time struct {
	SleepAfterSecs    int `yaml:"sleep_after"`
	MinOnlineTimeSecs int `yaml:"min_online_time"`
}

type Join struct {
	Methods []string    `yaml:"methods"`
	Kick    KickConfig  `yaml:"kick"`
	Hold    HoldConfig  `yaml:"hold"`
	Forward ForwardCfg  `yaml:"forward"`
	Lobby   LobbyConfig `yaml:"lobby"`
}

type KickConfig struct {
	Starting string `yaml:"starting"`
	Stopping string `yaml:"stopping"`
}

type HoldConfig struct {
	TimeoutSecs int `yaml:"timeout"`
}

type ForwardCfg struct {
	Address     string `yaml:"address"`
	SendProxyV2 bool   `yaml:"send_proxy_v2"`
}

type LobbyConfig struct {
	TimeoutSecs int    `yaml:"timeout"`
	Message     string `yaml:"message"`
	ReadySound  string `yaml:"ready_sound"`
}

type Messages struct {
	MotdSleeping   string `yaml:"motd_sleeping"`
	MotdStarting   string `yaml:"motd_starting"`
	MotdStopping   string `yaml:"motd_stopping"`
	LoginStarting  string `yaml:"login_starting"`
	LoginStopping  string `yaml:"login_stopping"`
}

type Advanced struct {
	RewriteServerProperties bool   `yaml:"rewrite_server_properties"`
	LogLevel                string `yaml:"log_level"`
}

// Default returns the configuration's built-in defaults, applied before
// a config file is overlaid on top.
func Default() Config {
	return Config{
		Public: Public{
			Address:  "0.0.0.0:25565",
			Version:  "1.21.1",
			Protocol: 767,
		},
		Server: Server{
			Address:   "127.0.0.1:25566",
			Directory: ".",
			Command:   "java -jar server.jar nogui",
		},
		Time: Time{
			SleepAfterSecs:    60,
			MinOnlineTimeSecs: 60,
		},
		Join: Join{
			Methods: []string{"hold", "kick"},
			Kick: KickConfig{
				Starting: "Server is starting, please wait...",
				Stopping: "Server is stopping, please wait...",
			},
			Hold: HoldConfig{TimeoutSecs: 25},
			Lobby: LobbyConfig{
				TimeoutSecs: 60,
				Message:     "Server is starting\n\nPlease wait...",
			},
		},
		Messages: Messages{
			MotdSleeping:  "☠ Server is sleeping\nJoin to wake it up",
			MotdStarting:  "⏳ Server is starting...\nPlease wait",
			MotdStopping:  "💤 Server is stopping...",
			LoginStarting: "Server is starting, please wait...",
			LoginStopping: "Server is stopping, please wait...",
		},
		Advanced: Advanced{
			RewriteServerProperties: true,
			LogLevel:                "info",
		},
	}
}

// Load reads and decodes a YAML config file at path, overlaying it onto
// Default(). Missing optional sections simply keep their defaults,
// matching dmitrymodder-minewire's "apply defaults if not specified"
// pattern in main.go.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}
