// Package vehicle defines the fixed set of vehicle classes counted at a road
// approach and the weight table used to turn per-class counts into an
// effective traffic load.
package vehicle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownClass is returned when a label does not name a counted vehicle class.
var ErrUnknownClass = errors.New("unknown vehicle class")

// Class enumerates the vehicle classes the counter confirms.
type Class uint8

const (
	Bicycle Class = iota
	Car
	Bus
	Truck
	Motorcycle

	// NumClasses is the number of counted classes. Any Class value >= NumClasses
	// is outside the enumeration.
	NumClasses int = iota
)

// Classes lists every counted class in canonical output order.
var Classes = [NumClasses]Class{Bicycle, Car, Bus, Truck, Motorcycle}

var classNames = [NumClasses]string{
	Bicycle:    "bicycle",
	Car:        "car",
	Bus:        "bus",
	Truck:      "truck",
	Motorcycle: "motorcycle",
}

// Valid reports whether c is one of the counted classes.
func (c Class) Valid() bool {
	return int(c) < NumClasses
}

func (c Class) String() string {
	if !c.Valid() {
		return fmt.Sprintf("class(%d)", uint8(c))
	}
	return classNames[c]
}

// ParseClass maps a detector label to a Class. Labels are case-insensitive and
// "motorbike" is accepted as an alias for motorcycle.
func ParseClass(label string) (Class, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "bicycle":
		return Bicycle, nil
	case "car":
		return Car, nil
	case "bus":
		return Bus, nil
	case "truck":
		return Truck, nil
	case "motorcycle", "motorbike":
		return Motorcycle, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownClass, label)
}

// MarshalText implements encoding.TextMarshaler so classes can be used as JSON
// object keys.
func (c Class) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownClass, uint8(c))
	}
	return []byte(classNames[c]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Class) UnmarshalText(text []byte) error {
	parsed, err := ParseClass(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Counts holds one non-negative count per class.
type Counts [NumClasses]int

// Total returns the sum over all classes.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Get returns the count for class, or 0 for classes outside the enumeration.
func (c Counts) Get(class Class) int {
	if !class.Valid() {
		return 0
	}
	return c[class]
}

// MarshalJSON writes counts as an object keyed by class name, always listing
// all classes.
func (c Counts) MarshalJSON() ([]byte, error) {
	m := make(map[string]int, NumClasses)
	for _, class := range Classes {
		m[classNames[class]] = c[class]
	}
	return json.Marshal(m)
}

// UnmarshalJSON reads an object keyed by class name. Names that are not
// counted classes are ignored; negative counts are rejected.
func (c *Counts) UnmarshalJSON(data []byte) error {
	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	var out Counts
	for name, n := range m {
		class, err := ParseClass(name)
		if err != nil {
			continue
		}
		if n < 0 {
			return fmt.Errorf("vehicle_counts.%s must be non-negative, got %d", name, n)
		}
		out[class] += n
	}
	*c = out
	return nil
}

// CountsFromNames builds Counts from a name-keyed map, silently dropping names
// that are not counted classes.
func CountsFromNames(m map[string]int) Counts {
	var out Counts
	for name, n := range m {
		class, err := ParseClass(name)
		if err != nil {
			continue
		}
		out[class] += n
	}
	return out
}
