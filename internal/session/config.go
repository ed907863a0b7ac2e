package session

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

type Mode string

const (
	// ModeAuto pushes changes on per-item timers and a periodic sweep.
	ModeAuto Mode = "auto"
	// ModeManual only pushes changes when SyncNow is called.
	ModeManual Mode = "manual"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAuto, "":
		return ModeAuto, nil
	case ModeManual:
		return ModeManual, nil
	}
	return "", fmt.Errorf("unknown sync mode %q (want auto or manual)", s)
}

type Config struct {
	Mode Mode
	// A new item is created remotely after a delay drawn uniformly from
	// [CreateDelayMin, CreateDelayMax]. Equal values disable the jitter.
	CreateDelayMin time.Duration
	CreateDelayMax time.Duration
	// UpdateDelay is the debounce window for edits to server-backed items.
	UpdateDelay time.Duration
	// SweepInterval is how often idle local items are batched together.
	SweepInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Mode:           ModeAuto,
		CreateDelayMin: 12 * time.Second,
		CreateDelayMax: 15 * time.Second,
		UpdateDelay:    2 * time.Second,
		SweepInterval:  20 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Mode == "" {
		c.Mode = d.Mode
	}
	if c.CreateDelayMin <= 0 && c.CreateDelayMax <= 0 {
		c.CreateDelayMin, c.CreateDelayMax = d.CreateDelayMin, d.CreateDelayMax
	}
	if c.CreateDelayMin < 0 {
		c.CreateDelayMin = 0
	}
	if c.CreateDelayMax < c.CreateDelayMin {
		c.CreateDelayMax = c.CreateDelayMin
	}
	if c.UpdateDelay <= 0 {
		c.UpdateDelay = d.UpdateDelay
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = d.SweepInterval
	}
	return c
}

func (c Config) createDelay() time.Duration {
	spread := c.CreateDelayMax - c.CreateDelayMin
	if spread <= 0 {
		return c.CreateDelayMin
	}
	return c.CreateDelayMin + time.Duration(rand.Int64N(int64(spread)+1))
}
