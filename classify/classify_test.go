package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/urizennnn/swebench-contributions/dataset"
	"github.com/urizennnn/swebench-contributions/github"
)

func TestMentionedIn(t *testing.T) {
	tests := []struct {
		text, user string
		want       bool
	}{
		{"reported by al yesterday", "al", true},
		{"the alpha release", "al", false},
		{"al-bundy wrote this", "al", false},
		{"cc @Al: please check", "al", true},
		{"AL", "al", true},
		{"al_x", "al", false},
		{"thanks,al.", "al", true},
		{"user john.doe reported", "john.doe", true},
		{"user johnxdoe reported", "john.doe", false},
		{"anything", "", false},
		{"", "al", false},
		{"reported by josé", "jos", false},
		{"Müller wrote a patch", "m", false},
		{"merci josé!", "josé", true},
		{"fixed by ali２", "ali", false},
	}
	for _, tt := range tests {
		if got := MentionedIn(tt.text, tt.user); got != tt.want {
			t.Errorf("MentionedIn(%q, %q) = %v, want %v", tt.text, tt.user, got, tt.want)
		}
	}
}

func TestLocalEvidence(t *testing.T) {
	inst := dataset.Instance{
		InstanceID:       "octo__repo-7",
		ProblemStatement: "Reported by alice on the mailing list.",
		HintsText:        "alicesmith suggested a workaround",
	}
	if diff := cmp.Diff(NewSet(MentionedInProblem), LocalEvidence(inst, "Alice")); diff != "" {
		t.Errorf("problem only (-want +got):\n%s", diff)
	}
	inst.HintsText = "see alice's comment"
	if got := LocalEvidence(inst, "alice"); !got.Has(MentionedInProblem) || !got.Has(MentionedInHints) {
		t.Errorf("LocalEvidence = %v, want both mention types", got)
	}
	if got := LocalEvidence(inst, ""); !got.Empty() {
		t.Errorf("empty username matched: %v", got)
	}
}

func TestSetOperations(t *testing.T) {
	s := NewSet(MentionedInHints, Author)
	s.Add(Author)
	if s.Len() != 2 || !s.Has(Author) || s.Has(Commenter) {
		t.Fatalf("set = %v", s)
	}
	if diff := cmp.Diff([]Type{Author, MentionedInHints}, s.Types()); diff != "" {
		t.Errorf("Types (-want +got):\n%s", diff)
	}
	if got := s.Union(NewSet(Commenter)).String(); got != "author, commenter, mentioned_in_hints" {
		t.Errorf("Union = %q", got)
	}
}

func TestSetJSON(t *testing.T) {
	data, err := json.Marshal(NewSet(MentionedInProblem, Assignee))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["assignee","mentioned_in_problem"]` {
		t.Errorf("marshal = %s", data)
	}

	var s Set
	if err := json.Unmarshal([]byte(`["pr_author","author","commenter"]`), &s); err != nil {
		t.Fatal(err)
	}
	if s != NewSet(Author, Commenter) {
		t.Errorf("unmarshal = %v", s)
	}
	if err := json.Unmarshal([]byte(`["reviewer"]`), &s); err == nil {
		t.Error("unknown type should fail")
	}
}

func TestMergeProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	set := gen.UInt8Range(0, 1<<numTypes-1).Map(func(v uint8) Set { return Set(v) })

	properties.Property("merge is order independent", prop.ForAll(
		func(a, b, c Set) bool {
			return Merge(a, b, c) == Merge(c, a, b) && Merge(a, b) == Merge(b, a)
		},
		set, set, set,
	))
	properties.Property("merge is idempotent", prop.ForAll(
		func(a, b Set) bool {
			m := Merge(a, b)
			return Merge(m, a) == m && Merge(m, m) == m
		},
		set, set,
	))
	properties.Property("merge keeps every member", prop.ForAll(
		func(a, b Set) bool {
			m := Merge(a, b)
			for _, t := range append(a.Types(), b.Types()...) {
				if !m.Has(t) {
					return false
				}
			}
			return m.Len() <= a.Len()+b.Len()
		},
		set, set,
	))
	properties.TestingRun(t)
}

func TestRemoteEvidence(t *testing.T) {
	thread := &github.Thread{
		Author:         "Alice",
		Assignees:      []string{"bob"},
		CommentAuthors: []string{"carol", "ALICE"},
	}
	tests := map[string]Set{
		"alice": NewSet(Author, Commenter),
		"BOB":   NewSet(Assignee),
		"dave":  0,
	}
	for user, want := range tests {
		if got := RemoteEvidence(thread, user); got != want {
			t.Errorf("RemoteEvidence(%s) = %v, want %v", user, got, want)
		}
	}
	if got := RemoteEvidence(nil, "alice"); !got.Empty() {
		t.Errorf("nil thread = %v", got)
	}
}

type fakeSource struct {
	threads map[string]*github.Thread
	errs    map[string]error
	calls   []string
}

func (f *fakeSource) Thread(_ context.Context, repo string, number int) (*github.Thread, error) {
	key := fmt.Sprintf("%s#%d", repo, number)
	f.calls = append(f.calls, key)
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	if t, ok := f.threads[key]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %s", github.ErrNotFound, key)
}

func TestClassifyOffline(t *testing.T) {
	c := New("alice", nil)
	inst := dataset.Instance{
		InstanceID:       "octo__repo-7",
		ProblemStatement: "Title: Crash on import\nreported by alice",
		HintsText:        "alphabet soup",
		Dataset:          dataset.Verified,
	}
	rec, ok, err := c.Classify(context.Background(), inst)
	if err != nil || !ok {
		t.Fatalf("Classify = %v, %v", ok, err)
	}
	want := Record{
		InstanceID:        "octo__repo-7",
		Repo:              "octo/repo",
		ContributionTypes: NewSet(MentionedInProblem),
		Title:             "Crash on import",
		URL:               "https://github.com/octo/repo/issues/7",
		CreatedAt:         "Unknown",
		Dataset:           dataset.Verified,
		DatasetInfo: DatasetInfo{
			ProblemStatement: inst.ProblemStatement,
			HintsText:        inst.HintsText,
		},
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("record (-want +got):\n%s", diff)
	}

	_, ok, err = c.Classify(context.Background(), dataset.Instance{InstanceID: "octo__repo-8", HintsText: "alpha"})
	if err != nil || ok {
		t.Errorf("no evidence: ok=%v err=%v", ok, err)
	}
}

func TestClassifyRemoteMergesEvidence(t *testing.T) {
	src := &fakeSource{threads: map[string]*github.Thread{
		"octo/repo#7": {
			Title:          "Remote title",
			HTMLURL:        "https://github.com/octo/repo/pull/7",
			CreatedAt:      "2021-05-13T11:08:06Z",
			Author:         "alice",
			CommentAuthors: []string{"bob"},
			CommentCount:   1,
			FromCache:      true,
		},
	}}
	c := New("alice", src)
	inst := dataset.Instance{InstanceID: "octo__repo-7", HintsText: "thanks alice"}

	rec, ok, err := c.Classify(context.Background(), inst)
	if err != nil || !ok {
		t.Fatalf("Classify = %v, %v", ok, err)
	}
	if rec.ContributionTypes != NewSet(Author, MentionedInHints) {
		t.Errorf("types = %v", rec.ContributionTypes)
	}
	if rec.Title != "Remote title" || rec.URL != "https://github.com/octo/repo/pull/7" || rec.CreatedAt != "2021-05-13T11:08:06Z" {
		t.Errorf("remote fields not used: %+v", rec)
	}
	if diff := cmp.Diff(&GithubInfo{IssueFound: true, CommentCount: 1, FromCache: true}, rec.GithubInfo); diff != "" {
		t.Errorf("github_info (-want +got):\n%s", diff)
	}
}

func TestClassifyFetchFailureFallsBackToLocal(t *testing.T) {
	src := &fakeSource{errs: map[string]error{
		"octo/repo#7": fmt.Errorf("%w: boom", github.ErrFetchFailed),
	}}
	c := New("alice", src)

	rec, ok, err := c.Classify(context.Background(), dataset.Instance{InstanceID: "octo__repo-7", HintsText: "alice knows"})
	if err != nil || !ok {
		t.Fatalf("Classify = %v, %v", ok, err)
	}
	if rec.ContributionTypes != NewSet(MentionedInHints) {
		t.Errorf("types = %v", rec.ContributionTypes)
	}
	if rec.GithubInfo == nil || rec.GithubInfo.IssueFound {
		t.Errorf("github_info = %+v, want issue_found=false", rec.GithubInfo)
	}

	_, ok, err = c.Classify(context.Background(), dataset.Instance{InstanceID: "octo__repo-9"})
	if err != nil || ok {
		t.Errorf("not found without local evidence: ok=%v err=%v", ok, err)
	}
}

func TestClassifyFatalErrors(t *testing.T) {
	for _, fatal := range []error{github.ErrBadCredentials, context.Canceled} {
		src := &fakeSource{errs: map[string]error{"octo/repo#7": fatal}}
		_, _, err := New("alice", src).Classify(context.Background(), dataset.Instance{InstanceID: "octo__repo-7", HintsText: "alice"})
		if !errors.Is(err, fatal) {
			t.Errorf("err = %v, want %v", err, fatal)
		}
	}
}

func TestClassifySkipsRemoteForUnparseableID(t *testing.T) {
	src := &fakeSource{}
	rec, ok, err := New("alice", src).Classify(context.Background(), dataset.Instance{InstanceID: "weird", ProblemStatement: "alice"})
	if err != nil || !ok {
		t.Fatalf("Classify = %v, %v", ok, err)
	}
	if len(src.calls) != 0 {
		t.Errorf("remote calls = %v", src.calls)
	}
	if rec.URL != "Unknown" {
		t.Errorf("url = %q", rec.URL)
	}
}
