package sim

// ProviderResult is what one dynamics provider did during a tick.
type ProviderResult struct {
	Provider string             `json:"provider"`
	Events   []Event            `json:"-"`
	Changes  map[string]float64 `json:"changes,omitempty"`
}

// DynamicsProvider is a per-tick subsystem that proposes candidate events
// and applies their impacts through the laws, layered on top of the natural
// decay pass. Providers draw randomness only from their own PartitionedRNG
// subsystem so runs stay reproducible.
type DynamicsProvider interface {
	Name() string
	Apply(s *StateVector) ProviderResult
	Summary() map[string]any
}
