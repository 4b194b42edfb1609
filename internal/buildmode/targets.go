package buildmode

import "maps"

// DefaultBaseline is the language baseline used when a project names none.
const DefaultBaseline = "es2020"

// Baselines lists the recognised named language baselines.
var Baselines = []string{
	"es5", "es2015", "es2016", "es2017", "es2018", "es2019",
	"es2020", "es2021", "es2022", "es2023", "es2024", "esnext",
}

// EngineNames lists the runtimes that may appear in an explicit version list.
var EngineNames = []string{
	"chrome", "edge", "firefox", "ie", "ios", "node", "opera", "safari",
}

// Targets describes the runtime baseline emitted code must satisfy. Script
// lowering and style prefixing both read the same value.
type Targets struct {
	// Named language baseline, e.g. "es2020".
	Baseline string `json:"baseline,omitempty" yaml:"baseline"`
	// Explicit minimum versions keyed by engine name, e.g. chrome: "90".
	Engines map[string]string `json:"engines,omitempty" yaml:"engines"`
}

// DefaultTargets returns the baseline used when a project does not set one.
func DefaultTargets() Targets {
	return Targets{Baseline: DefaultBaseline}
}

func (t Targets) clone() Targets {
	return Targets{
		Baseline: t.Baseline,
		Engines:  maps.Clone(t.Engines),
	}
}
