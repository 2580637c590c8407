package classify

import (
	"regexp"
	"strings"

	"github.com/urizennnn/swebench-contributions/dataset"
	"github.com/urizennnn/swebench-contributions/github"
)

// Matcher finds whole-word mentions of one username. Letters and digits of
// any script, '_' and '-' count as word characters, so "al" does not match
// "alpha" or "al-bundy", and "jos" does not match "josé".
type Matcher struct {
	re *regexp.Regexp
}

func NewMatcher(username string) *Matcher {
	username = strings.TrimSpace(username)
	if username == "" {
		return &Matcher{}
	}
	re := regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_-])` + regexp.QuoteMeta(username) + `(?:$|[^\p{L}\p{N}_-])`)
	return &Matcher{re: re}
}

func (m *Matcher) In(text string) bool {
	if m == nil || m.re == nil || text == "" {
		return false
	}
	return m.re.MatchString(text)
}

// MentionedIn reports whether username appears in text as a whole word.
func MentionedIn(text, username string) bool {
	return NewMatcher(username).In(text)
}

// LocalEvidence tags mentions in the instance's own text fields.
func LocalEvidence(inst dataset.Instance, username string) Set {
	return localEvidence(inst, NewMatcher(username))
}

func localEvidence(inst dataset.Instance, m *Matcher) Set {
	var s Set
	if m.In(inst.ProblemStatement) {
		s.Add(MentionedInProblem)
	}
	if m.In(inst.HintsText) {
		s.Add(MentionedInHints)
	}
	return s
}

// RemoteEvidence tags authorship, assignment and comments on the thread.
func RemoteEvidence(t *github.Thread, username string) Set {
	var s Set
	if t == nil || username == "" {
		return s
	}
	if strings.EqualFold(t.Author, username) {
		s.Add(Author)
	}
	for _, login := range t.Assignees {
		if strings.EqualFold(login, username) {
			s.Add(Assignee)
			break
		}
	}
	for _, login := range t.CommentAuthors {
		if strings.EqualFold(login, username) {
			s.Add(Commenter)
			break
		}
	}
	return s
}

func Merge(sets ...Set) Set {
	var out Set
	for _, s := range sets {
		out = out.Union(s)
	}
	return out
}
