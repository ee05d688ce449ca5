package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/intersection.report/internal/confirm"
	"github.com/banshee-data/intersection.report/internal/counting"
	"github.com/banshee-data/intersection.report/internal/geometry"
	"github.com/banshee-data/intersection.report/internal/signal"
	"github.com/banshee-data/intersection.report/internal/vehicle"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/defaults.json"

// Config is the flat JSON document shared by the counter, the allocator and
// the HTTP API. Omitted fields fall back to the Get* defaults, so partial
// files are safe.
type Config struct {
	// Detection params
	ConfirmationFrame   *int     `json:"confirmation_frame,omitempty"`
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
	RetentionFrames     *int     `json:"retention_frames,omitempty"` // 0 keeps every window for the run

	// Signal allocator params, seconds
	BaseGreenTime  *int `json:"base_green_time,omitempty"`
	MaxGreenTime   *int `json:"max_green_time,omitempty"`
	YellowTime     *int `json:"yellow_time,omitempty"`
	TotalCycleTime *int `json:"total_cycle_time,omitempty"`

	// Overrides of the default class weights, keyed by class name
	VehicleWeights map[string]float64 `json:"vehicle_weights,omitempty"`

	// Site and runtime
	Intersection  *string      `json:"intersection,omitempty"`
	Roads         []RoadConfig `json:"roads,omitempty"`
	OutputDir     *string      `json:"output_dir,omitempty"`
	DBPath        *string      `json:"db_path,omitempty"`
	FlushInterval *string      `json:"flush_interval,omitempty"` // duration string like "60s"
}

// RoadConfig describes one approach. The length may be given directly or
// measured from surveyed geometry.
type RoadConfig struct {
	Name       string            `json:"name"`
	RoadLength *float64          `json:"road_length,omitempty"`
	Geometry   []geometry.LatLng `json:"geometry,omitempty"`
}

// Length returns road_length if set, otherwise the length of the geometry.
func (r RoadConfig) Length() (float64, error) {
	if r.RoadLength != nil {
		if *r.RoadLength <= 0 {
			return 0, fmt.Errorf("road %q: road_length must be positive, got %f", r.Name, *r.RoadLength)
		}
		return *r.RoadLength, nil
	}
	if len(r.Geometry) == 0 {
		return 0, fmt.Errorf("road %q: one of road_length or geometry is required", r.Name)
	}
	length, err := geometry.PolylineLength(r.Geometry)
	if err != nil {
		return 0, fmt.Errorf("road %q: %w", r.Name, err)
	}
	return length, nil
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// EmptyConfig returns a Config with every field unset.
func EmptyConfig() *Config {
	return &Config{}
}

// LoadConfig loads a Config from a JSON file. The file must have a .json
// extension and be under 1MB.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory or
// one of its parents. Panics if the file cannot be loaded; intended for tests
// and for commands run from a checkout.
func MustLoadDefaultConfig() *Config {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/tools/signal-benchmark/
	}
	for _, path := range candidates {
		if cfg, err := LoadConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run from repository root")
}

// Validate checks every set field, and the combinations of fields that only
// make sense together.
func (c *Config) Validate() error {
	if c.ConfirmationFrame != nil && *c.ConfirmationFrame < 1 {
		return fmt.Errorf("confirmation_frame must be at least 1, got %d", *c.ConfirmationFrame)
	}
	if c.ConfidenceThreshold != nil {
		if *c.ConfidenceThreshold < 0 || *c.ConfidenceThreshold > 1 {
			return fmt.Errorf("confidence_threshold must be between 0 and 1, got %f", *c.ConfidenceThreshold)
		}
	}
	if c.RetentionFrames != nil && *c.RetentionFrames < 0 {
		return fmt.Errorf("retention_frames must be non-negative, got %d", *c.RetentionFrames)
	}

	if err := c.SignalConfig().Validate(); err != nil {
		return err
	}

	if _, err := c.Weights(); err != nil {
		return fmt.Errorf("vehicle_weights: %w", err)
	}

	if c.FlushInterval != nil && *c.FlushInterval != "" {
		if _, err := time.ParseDuration(*c.FlushInterval); err != nil {
			return fmt.Errorf("invalid flush_interval '%s': %w", *c.FlushInterval, err)
		}
	}

	if _, err := c.RoadSpecs(); err != nil && !errors.Is(err, ErrNoRoads) {
		return err
	}
	return nil
}

// GetConfirmationFrame returns the confirmation_frame value or the default.
func (c *Config) GetConfirmationFrame() int {
	if c.ConfirmationFrame == nil {
		return confirm.DefaultConfirmationFrames
	}
	return *c.ConfirmationFrame
}

// GetConfidenceThreshold returns the confidence_threshold value or the default.
func (c *Config) GetConfidenceThreshold() float64 {
	if c.ConfidenceThreshold == nil {
		return counting.DefaultConfidenceThreshold
	}
	return *c.ConfidenceThreshold
}

// GetRetentionFrames returns the retention_frames value or the default.
func (c *Config) GetRetentionFrames() int {
	if c.RetentionFrames == nil {
		return 0
	}
	return *c.RetentionFrames
}

// GetBaseGreenTime returns the base_green_time value or the default.
func (c *Config) GetBaseGreenTime() int {
	if c.BaseGreenTime == nil {
		return signal.DefaultConfig().BaseGreen
	}
	return *c.BaseGreenTime
}

// GetMaxGreenTime returns the max_green_time value or the default.
func (c *Config) GetMaxGreenTime() int {
	if c.MaxGreenTime == nil {
		return signal.DefaultConfig().MaxGreen
	}
	return *c.MaxGreenTime
}

// GetYellowTime returns the yellow_time value or the default.
func (c *Config) GetYellowTime() int {
	if c.YellowTime == nil {
		return signal.DefaultConfig().Yellow
	}
	return *c.YellowTime
}

// GetTotalCycleTime returns the total_cycle_time value or the default.
func (c *Config) GetTotalCycleTime() int {
	if c.TotalCycleTime == nil {
		return signal.DefaultConfig().TotalCycle
	}
	return *c.TotalCycleTime
}

// GetIntersection returns the intersection name or "default".
func (c *Config) GetIntersection() string {
	if c.Intersection == nil || *c.Intersection == "" {
		return "default"
	}
	return *c.Intersection
}

// GetOutputDir returns the report directory or the default.
func (c *Config) GetOutputDir() string {
	if c.OutputDir == nil || *c.OutputDir == "" {
		return "output"
	}
	return *c.OutputDir
}

// GetDBPath returns the sqlite database path or the default.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "intersection.db"
	}
	return *c.DBPath
}

// GetFlushInterval parses and returns the FlushInterval as a time.Duration.
func (c *Config) GetFlushInterval() time.Duration {
	if c.FlushInterval == nil || *c.FlushInterval == "" {
		return 60 * time.Second
	}
	d, err := time.ParseDuration(*c.FlushInterval)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// SignalConfig returns the allocator settings.
func (c *Config) SignalConfig() signal.Config {
	return signal.Config{
		BaseGreen:  c.GetBaseGreenTime(),
		MaxGreen:   c.GetMaxGreenTime(),
		Yellow:     c.GetYellowTime(),
		TotalCycle: c.GetTotalCycleTime(),
	}
}

// DetectionConfig returns the counting settings.
func (c *Config) DetectionConfig() counting.Config {
	return counting.Config{
		Confirm: confirm.Config{
			ConfirmationFrames: c.GetConfirmationFrame(),
			RetentionFrames:    c.GetRetentionFrames(),
		},
		ConfidenceThreshold: c.GetConfidenceThreshold(),
	}
}

// Weights returns the default weight table with vehicle_weights applied.
func (c *Config) Weights() (vehicle.WeightTable, error) {
	return vehicle.DefaultWeights().WithOverrides(c.VehicleWeights)
}

// ErrNoRoads is returned by RoadSpecs when the config lists no roads.
var ErrNoRoads = errors.New("no roads configured")

// RoadSpecs resolves the configured roads to names and lengths.
func (c *Config) RoadSpecs() ([]counting.RoadSpec, error) {
	if len(c.Roads) == 0 {
		return nil, ErrNoRoads
	}
	seen := make(map[string]bool, len(c.Roads))
	specs := make([]counting.RoadSpec, 0, len(c.Roads))
	for _, r := range c.Roads {
		if r.Name == "" {
			return nil, errors.New("road name must not be empty")
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("duplicate road %q", r.Name)
		}
		seen[r.Name] = true
		length, err := r.Length()
		if err != nil {
			return nil, err
		}
		specs = append(specs, counting.RoadSpec{Name: r.Name, Length: length})
	}
	return specs, nil
}
