package vehicle

import "fmt"

// WeightTable maps each class to its relative load on a road. A car is 1.
type WeightTable [NumClasses]float64

// DefaultWeights returns the standard table: two-wheelers count half a car,
// buses and trucks count three.
func DefaultWeights() WeightTable {
	return WeightTable{
		Bicycle:    0.5,
		Motorcycle: 0.5,
		Car:        1,
		Bus:        3,
		Truck:      3,
	}
}

// Weight returns the weight for class. Classes outside the enumeration weigh 0.
func (w WeightTable) Weight(class Class) float64 {
	if !class.Valid() {
		return 0
	}
	return w[class]
}

// WithOverrides returns a copy of w with the named weights replaced. Unknown
// names and negative weights are rejected.
func (w WeightTable) WithOverrides(overrides map[string]float64) (WeightTable, error) {
	out := w
	for name, weight := range overrides {
		class, err := ParseClass(name)
		if err != nil {
			return w, err
		}
		if weight < 0 {
			return w, fmt.Errorf("weight for %s must be non-negative, got %f", name, weight)
		}
		out[class] = weight
	}
	return out, nil
}
