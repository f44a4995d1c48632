package config

import (
	"fmt"
	"time"
)

// This file defines the configuration structures used by viper_config.go
// The actual loading is handled by viper in viper_config.go

// ServerConfig represents the server configuration
type ServerConfig struct {
	Server ServerSettings `yaml:"server"`
	Games  GamesConfig    `yaml:"games"`
}

// ServerSettings contains server-wide settings
type ServerSettings struct {
	Port            string        `yaml:"port"`
	Host            string        `yaml:"host"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"` // 0 for SSE support
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// Stale rooms with no connected subscriber are swept after this age.
	RoomTimeout time.Duration `yaml:"roomTimeout"`

	// SSE heartbeat comment interval.
	HeartbeatInterval time.Duration `yaml:"heartbeatInterval"`

	// Rate limiting (using golang.org/x/time/rate)
	RateLimit      float64 `yaml:"rateLimit"`      // requests per second
	RateLimitBurst int     `yaml:"rateLimitBurst"` // burst size

	// Request limits
	MaxRequestSize int64 `yaml:"maxRequestSize"`

	// Session token verification. Empty means identity comes from
	// trusted gateway headers.
	SessionSecret string `yaml:"sessionSecret"`

	// Monitoring
	EnableMetrics bool   `yaml:"enableMetrics"`
	MetricsPort   string `yaml:"metricsPort"` // must be set if metrics enabled
	LogLevel      string `yaml:"logLevel"`
	LogFormat     string `yaml:"logFormat"`
}

// GamesConfig contains per-game limits and timings.
type GamesConfig struct {
	Bingo  BingoSettings  `yaml:"bingo"`
	Croc   CrocSettings   `yaml:"croc"`
	Memory MemorySettings `yaml:"memory"`
	Gomoku GomokuSettings `yaml:"gomoku"`
}

// BingoSettings bounds Bingo rooms.
type BingoSettings struct {
	MinSize            int           `yaml:"minSize"`
	MaxSize            int           `yaml:"maxSize"`
	TargetLines        int           `yaml:"targetLines"`
	MaxHumans          int           `yaml:"maxHumans"`
	DrawTimeoutChoices []int         `yaml:"drawTimeoutChoices"`
	BotMoveDelay       time.Duration `yaml:"botMoveDelay"`
}

// CrocSettings bounds Crocodile-Tooth rooms.
type CrocSettings struct {
	MinTeethPerJaw int `yaml:"minTeethPerJaw"`
	MaxTeethPerJaw int `yaml:"maxTeethPerJaw"`
}

// MemorySettings bounds Flag Memory rooms.
type MemorySettings struct {
	CardCountChoices []int         `yaml:"cardCountChoices"`
	MaxPlayers       int           `yaml:"maxPlayers"`
	ResolveDelay     time.Duration `yaml:"resolveDelay"`
}

// GomokuSettings bounds Gomoku rooms.
type GomokuSettings struct {
	BoardSize int `yaml:"boardSize"`
	Capacity  int `yaml:"capacity"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Port:            "", // Must be set via env
			Host:            "", // Must be set via env
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    0, // 0 for SSE support
			IdleTimeout:     0, // 0 for SSE support
			ShutdownTimeout: 30 * time.Second,

			RoomTimeout:       24 * time.Hour,
			HeartbeatInterval: 25 * time.Second,

			RateLimit:      10,
			RateLimitBurst: 20,

			MaxRequestSize: 32 * 1024,

			EnableMetrics: false,
			MetricsPort:   "",
			LogLevel:      "info",
			LogFormat:     "text",
		},
		Games: DefaultGames(),
	}
}

// DefaultGames returns the default per-game limits.
func DefaultGames() GamesConfig {
	return GamesConfig{
		Bingo: BingoSettings{
			MinSize:            5,
			MaxSize:            10,
			TargetLines:        5,
			MaxHumans:          8,
			DrawTimeoutChoices: []int{3, 5, 7, 10, 15, 20},
			BotMoveDelay:       1200 * time.Millisecond,
		},
		Croc: CrocSettings{
			MinTeethPerJaw: 8,
			MaxTeethPerJaw: 20,
		},
		Memory: MemorySettings{
			CardCountChoices: []int{20, 30, 40, 50, 60},
			MaxPlayers:       8,
			ResolveDelay:     1100 * time.Millisecond,
		},
		Gomoku: GomokuSettings{
			BoardSize: 15,
			Capacity:  2,
		},
	}
}

// Validate checks if the configuration is valid
func (c *ServerConfig) Validate() error {
	// Required fields
	if c.Server.Port == "" {
		return fmt.Errorf("PORT environment variable must be set")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("HOST environment variable must be set")
	}

	// If metrics are enabled, port must be set
	if c.Server.EnableMetrics && c.Server.MetricsPort == "" {
		return fmt.Errorf("METRICS_PORT must be set when ENABLE_METRICS is true")
	}

	if c.Server.MaxRequestSize < 1024 {
		return fmt.Errorf("maxRequestSize must be at least 1024 bytes")
	}
	if c.Server.HeartbeatInterval < time.Second {
		return fmt.Errorf("heartbeatInterval must be at least 1s")
	}

	g := &c.Games
	if g.Bingo.MinSize < 2 || g.Bingo.MaxSize < g.Bingo.MinSize {
		return fmt.Errorf("invalid bingo size bounds [%d, %d]", g.Bingo.MinSize, g.Bingo.MaxSize)
	}
	if g.Bingo.TargetLines < 1 {
		return fmt.Errorf("bingo targetLines must be at least 1")
	}
	if g.Bingo.MaxHumans < 1 {
		return fmt.Errorf("bingo maxHumans must be at least 1")
	}
	if len(g.Bingo.DrawTimeoutChoices) == 0 {
		return fmt.Errorf("bingo drawTimeoutChoices must not be empty")
	}
	if g.Croc.MinTeethPerJaw < 1 || g.Croc.MaxTeethPerJaw < g.Croc.MinTeethPerJaw {
		return fmt.Errorf("invalid croc teeth bounds [%d, %d]", g.Croc.MinTeethPerJaw, g.Croc.MaxTeethPerJaw)
	}
	for _, n := range g.Memory.CardCountChoices {
		if n < 2 || n%2 != 0 {
			return fmt.Errorf("memory card count %d must be an even number >= 2", n)
		}
	}
	if g.Memory.MaxPlayers < 1 {
		return fmt.Errorf("memory maxPlayers must be at least 1")
	}
	if g.Gomoku.BoardSize < 5 {
		return fmt.Errorf("gomoku boardSize must be at least 5")
	}
	if g.Gomoku.Capacity != 2 {
		return fmt.Errorf("gomoku capacity must be 2")
	}

	return nil
}
