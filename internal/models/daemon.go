package models

import "time"

// DaemonInfo represents the shell daemon connection information.
// This corresponds to <config dir>/daemon.yaml.
type DaemonInfo struct {
	Version   int       `yaml:"version"`
	Host      string    `yaml:"host"`
	Port      int       `yaml:"port"`
	PID       int       `yaml:"pid"`
	StartedAt time.Time `yaml:"started_at"`
}

// NewDaemonInfo creates a new daemon info with current values.
func NewDaemonInfo(host string, port, pid int) *DaemonInfo {
	return &DaemonInfo{
		Version:   1,
		Host:      host,
		Port:      port,
		PID:       pid,
		StartedAt: time.Now().UTC(),
	}
}

// WindowPlacement is the persisted geometry of the main window.
// This corresponds to <config dir>/window-state.yaml.
type WindowPlacement struct {
	X         int  `yaml:"x" json:"x"`
	Y         int  `yaml:"y" json:"y"`
	Width     int  `yaml:"width" json:"width"`
	Height    int  `yaml:"height" json:"height"`
	Maximized bool `yaml:"maximized" json:"maximized"`
}

// Valid reports whether the placement describes a usable window.
func (p WindowPlacement) Valid() bool {
	return p.Width > 0 && p.Height > 0
}
