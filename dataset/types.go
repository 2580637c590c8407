package dataset

import (
	"fmt"
	"strings"
)

type Name string

const (
	Full     Name = "swe-bench"
	Verified Name = "swe-bench-verified"
)

// All returns the datasets in processing order.
func All() []Name { return []Name{Full, Verified} }

// ParseName accepts canonical names and the full/verified aliases.
func ParseName(s string) (Name, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "swe-bench", "full":
		return Full, nil
	case "swe-bench-verified", "verified":
		return Verified, nil
	}
	return "", fmt.Errorf("%w %q (valid: swe-bench, swe-bench-verified)", ErrUnknownDataset, s)
}

type Instance struct {
	InstanceID       string `json:"instance_id"`
	Repo             string `json:"repo"`
	ProblemStatement string `json:"problem_statement"`
	HintsText        string `json:"hints_text"`
	CreatedAt        string `json:"created_at"`
	URL              string `json:"url,omitempty"`
	Dataset          Name   `json:"-"`
}

// Set is one loaded dataset.
type Set struct {
	Name      Name
	Instances []Instance
}
