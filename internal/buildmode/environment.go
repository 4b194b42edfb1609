// Package buildmode derives the mode-dependent build configuration from a
// single environment signal.
package buildmode

// Environment is the resolved build mode.
type Environment int

const (
	Development Environment = iota
	Production
)

// productionSignal is the only signal value that selects Production.
const productionSignal = "production"

// ParseEnvironment normalises an environment signal. Only the literal
// "production" selects Production; anything else, including the empty
// string, selects Development.
func ParseEnvironment(signal string) Environment {
	if signal == productionSignal {
		return Production
	}
	return Development
}

func (e Environment) IsProduction() bool {
	return e == Production
}

func (e Environment) String() string {
	if e == Production {
		return "production"
	}
	return "development"
}

// MarshalText implements encoding.TextMarshaler.
func (e Environment) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}
