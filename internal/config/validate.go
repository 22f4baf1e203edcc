package config

import (
	"fmt"
	"strings"
)

const (
	minCatchupMinutes       = 1
	minCheckIntervalSeconds = 2
)

func (l LoggingConfig) validate() []error {
	var errs []error

	if l.Level == "" {
		errs = append(errs, fmt.Errorf("logging.level is required"))
	} else {
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[strings.ToLower(l.Level)] {
			errs = append(errs, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", l.Level))
		}
	}

	if l.Format == "" {
		errs = append(errs, fmt.Errorf("logging.format is required"))
	} else {
		validFormats := map[string]bool{"json": true, "text": true}
		if !validFormats[strings.ToLower(l.Format)] {
			errs = append(errs, fmt.Errorf("invalid logging.format: %s (expected: json, text)", l.Format))
		}
	}

	if l.Output == "" {
		errs = append(errs, fmt.Errorf("logging.output is required"))
	}

	return errs
}

func (a AgentConfig) validate() []error {
	var errs []error
	if a.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("agent.max_iterations must be >= 1"))
	}
	if a.ReactRetries < 1 {
		errs = append(errs, fmt.Errorf("agent.react_retries must be >= 1"))
	}
	if a.MaxHistory < 1 {
		errs = append(errs, fmt.Errorf("agent.max_history must be >= 1"))
	}
	if a.WaitAfterSeconds < 0 {
		errs = append(errs, fmt.Errorf("agent.wait_after_seconds cannot be negative"))
	}
	return errs
}

func (r RoutingConfig) validate() []error {
	var errs []error
	if r.LongMessageChars < 1 {
		errs = append(errs, fmt.Errorf("routing.long_message_chars must be >= 1"))
	}
	for name, temp := range map[string]float64{"fast_temp": r.FastTemp, "balanced_temp": r.BalancedTemp, "deep_temp": r.DeepTemp} {
		if temp < 0 || temp > 2 {
			errs = append(errs, fmt.Errorf("routing.%s must be between 0 and 2 (got %.2f)", name, temp))
		}
	}
	return errs
}

func (d DelegationConfig) validate() []error {
	var errs []error
	if d.Enabled && d.MaxCalls < 1 {
		errs = append(errs, fmt.Errorf("delegation.max_calls must be >= 1 when delegation is enabled"))
	}
	return errs
}

func (s ScheduleConfig) validate() []error {
	var errs []error
	if s.CatchupMinutes < minCatchupMinutes {
		errs = append(errs, fmt.Errorf("schedule.catchup_minutes must be >= %d (got %d)", minCatchupMinutes, s.CatchupMinutes))
	}
	if s.CheckIntervalSeconds < minCheckIntervalSeconds {
		errs = append(errs, fmt.Errorf("schedule.check_interval_seconds must be >= %d (got %d)", minCheckIntervalSeconds, s.CheckIntervalSeconds))
	}
	return errs
}
