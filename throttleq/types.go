/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttleq

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Mutability determines which pending tasks are affected when the default interval of the queue is changed.
type Mutability int

// Mutability values.
const (
	// MutabilityAll makes all pending tasks use the new default interval.
	MutabilityAll Mutability = iota
	// MutabilityDefaultOnly makes only pending tasks without an explicit interval use the new default interval.
	MutabilityDefaultOnly
	// MutabilityNone keeps intervals of all pending tasks.
	MutabilityNone
)

// Monitor determines how the throttle interval separates tasks.
type Monitor int

// Monitor values.
const (
	// MonitorConcurrent spaces dispatching of tasks, tasks may run concurrently.
	MonitorConcurrent Monitor = iota
	// MonitorSerial runs tasks one by one and delays the start of the next task after the previous one has finished.
	MonitorSerial
)

var mutabilityNames = map[Mutability]string{
	MutabilityAll:         "all",
	MutabilityDefaultOnly: "default_only",
	MutabilityNone:        "none",
}

var monitorNames = map[Monitor]string{
	MonitorConcurrent: "concurrent",
	MonitorSerial:     "serial",
}

// String returns a string representation of the mutability.
// Implements fmt.Stringer interface.
func (m Mutability) String() string {
	if name, ok := mutabilityNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mutability(%d)", int(m))
}

// Validate checks that the mutability is a known one.
func (m Mutability) Validate() error {
	if _, ok := mutabilityNames[m]; !ok {
		return fmt.Errorf("%w: unknown mutability %d", ErrInvalidConfiguration, int(m))
	}
	return nil
}

// ParseMutability parses the mutability from its string representation.
func ParseMutability(s string) (Mutability, error) {
	for m, name := range mutabilityNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown mutability %q", ErrInvalidConfiguration, s)
}

// MarshalText implements the encoding.TextMarshaler interface.
func (m Mutability) MarshalText() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (m *Mutability) UnmarshalText(text []byte) error {
	parsed, err := ParseMutability(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MarshalJSON implements the json.Marshaler interface.
func (m Mutability) MarshalJSON() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(m.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (m *Mutability) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	return m.UnmarshalText([]byte(text))
}

// MarshalYAML implements the yaml.Marshaler interface.
func (m Mutability) MarshalYAML() (interface{}, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m.String(), nil
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (m *Mutability) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}
	return m.UnmarshalText([]byte(text))
}

// String returns a string representation of the monitor.
// Implements fmt.Stringer interface.
func (m Monitor) String() string {
	if name, ok := monitorNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Monitor(%d)", int(m))
}

// Validate checks that the monitor is a known one.
func (m Monitor) Validate() error {
	if _, ok := monitorNames[m]; !ok {
		return fmt.Errorf("%w: unknown monitor %d", ErrInvalidConfiguration, int(m))
	}
	return nil
}

// ParseMonitor parses the monitor from its string representation.
func ParseMonitor(s string) (Monitor, error) {
	for m, name := range monitorNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown monitor %q", ErrInvalidConfiguration, s)
}

// MarshalText implements the encoding.TextMarshaler interface.
func (m Monitor) MarshalText() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (m *Monitor) UnmarshalText(text []byte) error {
	parsed, err := ParseMonitor(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MarshalJSON implements the json.Marshaler interface.
func (m Monitor) MarshalJSON() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(m.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (m *Monitor) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	return m.UnmarshalText([]byte(text))
}

// MarshalYAML implements the yaml.Marshaler interface.
func (m Monitor) MarshalYAML() (interface{}, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m.String(), nil
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (m *Monitor) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}
	return m.UnmarshalText([]byte(text))
}
