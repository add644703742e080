package config

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// BBox represents a geographic bounding box used to filter nodes during
// collection.
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
	IsSet                          bool
}

// Contains checks if a point is within the bounding box.
func (b *BBox) Contains(lat, lon float64) bool {
	if !b.IsSet {
		return true
	}
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

// ParseBBox parses a bbox string in format "minlon,minlat,maxlon,maxlat".
func ParseBBox(s string) (*BBox, error) {
	if s == "" {
		return &BBox{IsSet: false}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox must have 4 values: minlon,minlat,maxlon,maxlat")
	}

	var coords [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bbox coordinate %q: %w", p, err)
		}
		coords[i] = v
	}

	bbox := &BBox{
		MinLon: coords[0],
		MinLat: coords[1],
		MaxLon: coords[2],
		MaxLat: coords[3],
		IsSet:  true,
	}

	if bbox.MinLon > bbox.MaxLon {
		return nil, fmt.Errorf("minlon (%f) must be <= maxlon (%f)", bbox.MinLon, bbox.MaxLon)
	}
	if bbox.MinLat > bbox.MaxLat {
		return nil, fmt.Errorf("minlat (%f) must be <= maxlat (%f)", bbox.MinLat, bbox.MaxLat)
	}

	return bbox, nil
}

// Config holds the global configuration shared by the decode and assemble
// commands.
type Config struct {
	// Input settings
	InputFile string
	BBox      *BBox // geographic filter applied to node locations

	// Pipeline A settings
	Workers        int // worker pool size for BlobDecoder+BlockDecoder
	MaxWorkQueue   int // backpressure: max pending blob-decode tasks
	MaxBufferQueue int // backpressure: max undelivered output buffers

	// Pipeline B settings
	TrackNodes     bool
	TrackWays      bool
	TrackRelations bool

	Verbose bool

	// Logging and metrics
	LogFile         string        // path to log file (empty = no file logging)
	MetricsInterval time.Duration // interval for progress logging
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Workers:         runtime.NumCPU(),
		MaxWorkQueue:    10,
		MaxBufferQueue:  20,
		TrackNodes:      true,
		TrackWays:       true,
		TrackRelations:  true,
		Verbose:         false,
		LogFile:         "",
		MetricsInterval: 30 * time.Second,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.InputFile == "" {
		return fmt.Errorf("input file is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.MaxWorkQueue < 1 {
		return fmt.Errorf("max work queue must be at least 1")
	}
	if c.MaxBufferQueue < 1 {
		return fmt.Errorf("max buffer queue must be at least 1")
	}
	return nil
}
