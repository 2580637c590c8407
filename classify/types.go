package classify

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"strings"

	"github.com/urizennnn/swebench-contributions/dataset"
)

// Type is one way a user touched an instance.
type Type uint8

const (
	Author Type = iota
	Commenter
	Assignee
	MentionedInProblem
	MentionedInHints
	numTypes
)

var typeNames = [numTypes]string{
	Author:             "author",
	Commenter:          "commenter",
	Assignee:           "assignee",
	MentionedInProblem: "mentioned_in_problem",
	MentionedInHints:   "mentioned_in_hints",
}

func (t Type) String() string {
	if t >= numTypes {
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
	return typeNames[t]
}

// ParseType reads a serialized type name. Older result files wrote
// "pr_author" for pull request authors.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "pr_author" {
		return Author, nil
	}
	for t, name := range typeNames {
		if name == s {
			return Type(t), nil
		}
	}
	return 0, fmt.Errorf("unknown contribution type %q", s)
}

// Set is a deduplicated set of contribution types.
type Set uint8

func NewSet(types ...Type) Set {
	var s Set
	for _, t := range types {
		s.Add(t)
	}
	return s
}

func (s *Set) Add(t Type) {
	if t < numTypes {
		*s |= 1 << t
	}
}

func (s Set) Has(t Type) bool { return t < numTypes && s&(1<<t) != 0 }

func (s Set) Union(o Set) Set { return s | o }

func (s Set) Len() int { return bits.OnesCount8(uint8(s)) }

func (s Set) Empty() bool { return s == 0 }

// Types lists the members in canonical order.
func (s Set) Types() []Type {
	out := make([]Type, 0, s.Len())
	for t := Type(0); t < numTypes; t++ {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s Set) Strings() []string {
	out := make([]string, 0, s.Len())
	for _, t := range s.Types() {
		out = append(out, t.String())
	}
	return out
}

func (s Set) String() string { return strings.Join(s.Strings(), ", ") }

func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

func (s *Set) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	var out Set
	for _, name := range names {
		t, err := ParseType(name)
		if err != nil {
			return err
		}
		out.Add(t)
	}
	*s = out
	return nil
}

// Record is one output row: an instance the user contributed to.
type Record struct {
	InstanceID        string       `json:"instance_id"`
	Repo              string       `json:"repo"`
	ContributionTypes Set          `json:"contribution_types"`
	Title             string       `json:"title"`
	URL               string       `json:"url"`
	CreatedAt         string       `json:"created_at"`
	Dataset           dataset.Name `json:"dataset"`
	DatasetInfo       DatasetInfo  `json:"dataset_info"`
	GithubInfo        *GithubInfo  `json:"github_info,omitempty"`
}

type DatasetInfo struct {
	ProblemStatement string `json:"problem_statement"`
	HintsText        string `json:"hints_text"`
}

// GithubInfo is only present for records classified with remote evidence.
type GithubInfo struct {
	IssueFound   bool `json:"issue_found"`
	CommentCount int  `json:"comment_count"`
	FromCache    bool `json:"from_cache"`
}
