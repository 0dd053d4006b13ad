package planner

import "fmt"

// Config holds the planning heuristics.
type Config struct {
	// AntCost is the ant supply charged per newly annexed cell. It is also the
	// default beacon strength on every controlled cell.
	AntCost int
}

// DefaultConfig returns the tuned heuristic (two ants per hop).
func DefaultConfig() Config {
	return Config{AntCost: 2}
}

func (c Config) Validate() error {
	if c.AntCost < 1 {
		return fmt.Errorf("ant cost must be >= 1, got %d", c.AntCost)
	}
	return nil
}
