package storage

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrDisabled      = errors.New("storage disabled")
	ErrClosed        = errors.New("storage closed")
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// DefaultRetention is how many entries a store keeps when Retention is 0.
const DefaultRetention = 10000

// Config configures storage. An empty Driver or "none" disables it.
type Config struct {
	Driver      string
	Path        string
	Retention   int
	BusyTimeout time.Duration // sqlite only; 0 means default
}

func (c Config) retention() int {
	if c.Retention <= 0 {
		return DefaultRetention
	}
	return c.Retention
}

// Entry is one journaled event. Data is the event payload as JSON.
type Entry struct {
	At   time.Time       `json:"at"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}
