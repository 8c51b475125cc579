package server

//go:generate go tool easyjson -all models.go

// SampleRequest asks for a sample of Size plots inside the Poly area.
type SampleRequest struct {
	Poly       string  `json:"poly"`
	Size       int     `json:"nrplots"`
	Seed       *uint64 `json:"seed,omitempty"`
	Method     string  `json:"method,omitempty"`
	Candidates int     `json:"candidates,omitempty"`
	Spacing    float64 `json:"spacing,omitempty"`
}

type SampleResponse struct {
	Seed       uint64       `json:"seed"`
	Method     string       `json:"method"`
	Candidates int          `json:"candidates"`
	Iterations int          `json:"iterations"`
	Converged  bool         `json:"converged"`
	Points     [][2]float64 `json:"points"`
}
