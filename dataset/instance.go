package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// Ref locates the issue or pull request behind an instance, e.g.
// "sympy__sympy-22914" -> sympy/sympy #22914.
func (i Instance) Ref() (repo string, number int, err error) {
	id := i.InstanceID
	cut := strings.LastIndex(id, "-")
	if cut <= 0 || cut == len(id)-1 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidInstanceID, id)
	}
	number, err = strconv.Atoi(id[cut+1:])
	if err != nil || number <= 0 {
		return "", 0, fmt.Errorf("%w: %q has no issue number", ErrInvalidInstanceID, id)
	}

	repo = strings.TrimSpace(i.Repo)
	if repo == "" {
		repo = strings.Replace(id[:cut], "__", "/", 1)
	}
	if owner, name, ok := strings.Cut(repo, "/"); !ok || owner == "" || name == "" {
		return "", 0, fmt.Errorf("%w: %q has no owner/name", ErrInvalidInstanceID, id)
	}
	return repo, number, nil
}

// IssueURL is the instance URL, derived from the ref when the dataset has none.
func (i Instance) IssueURL() string {
	if i.URL != "" {
		return i.URL
	}
	repo, number, err := i.Ref()
	if err != nil {
		return "Unknown"
	}
	return fmt.Sprintf("https://github.com/%s/issues/%d", repo, number)
}

// Title is the first non-empty line of the problem statement.
func (i Instance) Title() string {
	for _, line := range strings.Split(i.ProblemStatement, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "Title:"); ok {
			return strings.TrimSpace(rest)
		}
		return line
	}
	return "Unknown"
}
