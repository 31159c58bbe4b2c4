// Package mockgen turns a canonical spec into a stateful mock service: a
// runnable in-process handler plus a deployable bundle (server source, seed
// data, deployment descriptors).
package mockgen

import "time"

// MissPolicy decides what a stateful GET on an unknown item id returns.
type MissPolicy string

const (
	// MissPlaceholder synthesizes a fresh record instead of a 404. This is
	// deliberately not REST-strict; it keeps demo clients working before any
	// data has been created.
	MissPlaceholder MissPolicy = "placeholder"
	// MissNotFound returns 404 like a strict REST service.
	MissNotFound MissPolicy = "404"
)

// Config controls the generated mock service.
type Config struct {
	Port             int           `json:"port,omitempty" yaml:"port,omitempty"`
	Host             string        `json:"host,omitempty" yaml:"host,omitempty"`
	ResponseDelay    time.Duration `json:"response_delay,omitempty" yaml:"response_delay,omitempty"`
	ErrorRatePercent int           `json:"error_rate_percent,omitempty" yaml:"error_rate_percent,omitempty"`
	// Stateful enables the in-process record store. Defaults to true.
	Stateful      *bool      `json:"stateful,omitempty" yaml:"stateful,omitempty"`
	RealisticData bool       `json:"realistic_data,omitempty" yaml:"realistic_data,omitempty"`
	OnMiss        MissPolicy `json:"on_miss,omitempty" yaml:"on_miss,omitempty"`
	// PageSize is the default collection page when the spec declares no
	// pagination parameters.
	PageSize int `json:"page_size,omitempty" yaml:"page_size,omitempty"`
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = 4010
	}
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Stateful == nil {
		t := true
		c.Stateful = &t
	}
	if c.OnMiss == "" {
		c.OnMiss = MissPlaceholder
	}
	if c.PageSize <= 0 {
		c.PageSize = 10
	}
	return c
}

func (c Config) stateful() bool { return c.Stateful != nil && *c.Stateful }
