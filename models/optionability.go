package models

// Optionability is the tri-state outcome of an option listing probe
type Optionability string

const (
	OptionableYes     Optionability = "yes"
	OptionableNo      Optionability = "no"
	OptionableUnknown Optionability = "unknown"
)

// OptionabilityResult is the outcome of probing one symbol at one provider
type OptionabilityResult struct {
	Symbol      string        `json:"symbol"`
	Provider    string        `json:"provider"`
	Status      Optionability `json:"status"`
	Expirations int           `json:"expirations"`
	Reason      string        `json:"reason,omitempty"`
}

// Known reports whether the provider answered definitively
func (r OptionabilityResult) Known() bool {
	return r.Status == OptionableYes || r.Status == OptionableNo
}
