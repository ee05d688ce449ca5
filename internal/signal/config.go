package signal

import "fmt"

// Config holds the cycle timing parameters, all in whole seconds.
type Config struct {
	BaseGreen  int `json:"base_green_time"`
	MaxGreen   int `json:"max_green_time"`
	Yellow     int `json:"yellow_time"`
	TotalCycle int `json:"total_cycle_time"`
}

// DefaultConfig returns a 60 second cycle with a 5..60 second green range and
// a 3 second yellow.
func DefaultConfig() Config {
	return Config{
		BaseGreen:  5,
		MaxGreen:   60,
		Yellow:     3,
		TotalCycle: 60,
	}
}

// Validate rejects configurations the allocator cannot interpret. A cycle too
// short for base green plus yellow is allowed and surfaces as a Warning.
func (c Config) Validate() error {
	if c.BaseGreen < 0 || c.MaxGreen < 0 || c.Yellow < 0 {
		return fmt.Errorf("signal times must be non-negative (base=%d max=%d yellow=%d)", c.BaseGreen, c.MaxGreen, c.Yellow)
	}
	if c.BaseGreen > c.MaxGreen {
		return fmt.Errorf("base_green_time (%d) must not exceed max_green_time (%d)", c.BaseGreen, c.MaxGreen)
	}
	if c.TotalCycle <= 0 {
		return fmt.Errorf("total_cycle_time must be positive, got %d", c.TotalCycle)
	}
	return nil
}
