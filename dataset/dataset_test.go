package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func ids(set Set) []string {
	out := make([]string, len(set.Instances))
	for i, inst := range set.Instances {
		out[i] = inst.InstanceID
	}
	return out
}

func TestLoadLayouts(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "array",
			body: `[{"instance_id":"a__b-1","repo":"a/b"},{"instance_id":"a__b-2","repo":"a/b"}]`,
			want: []string{"a__b-1", "a__b-2"},
		},
		{
			name: "instances object",
			body: `{"instances":[{"instance_id":"a__b-3"}]}`,
			want: []string{"a__b-3"},
		},
		{
			name: "keyed object",
			body: `{"a__b-9":{"repo":"a/b"},"a__b-4":{"repo":"a/b"}}`,
			want: []string{"a__b-4", "a__b-9"},
		},
		{
			name: "jsonl",
			body: "{\"instance_id\":\"a__b-5\"}\n{\"instance_id\":\"a__b-6\"}\n\n",
			want: []string{"a__b-5", "a__b-6"},
		},
		{
			name: "duplicates keep first",
			body: `[{"instance_id":"x__y-1","hints_text":"first"},{"instance_id":"x__y-1","hints_text":"second"}]`,
			want: []string{"x__y-1"},
		},
		{
			name: "empty file",
			body: "",
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := Load(writeFile(t, "data.json", tt.body), Verified)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if diff := cmp.Diff(tt.want, ids(set)); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
			for _, inst := range set.Instances {
				if inst.Dataset != Verified {
					t.Errorf("%s: dataset = %q", inst.InstanceID, inst.Dataset)
				}
			}
		})
	}
}

func TestLoadKeepsFirstDuplicate(t *testing.T) {
	set, err := Load(writeFile(t, "d.json", `[{"instance_id":"x__y-1","hints_text":"first"},{"instance_id":"x__y-1","hints_text":"second"}]`), Full)
	if err != nil {
		t.Fatal(err)
	}
	if set.Instances[0].HintsText != "first" {
		t.Errorf("hints = %q, want first", set.Instances[0].HintsText)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json"), Full); !errors.Is(err, ErrLoad) {
		t.Errorf("missing file: err = %v, want ErrLoad", err)
	}
	if _, err := Load(writeFile(t, "bad.json", `[{"instance_id":`), Full); !errors.Is(err, ErrLoad) {
		t.Errorf("bad json: err = %v, want ErrLoad", err)
	}
}

func TestRef(t *testing.T) {
	tests := []struct {
		inst       Instance
		wantRepo   string
		wantNumber int
		wantErr    bool
	}{
		{Instance{InstanceID: "sympy__sympy-22914"}, "sympy/sympy", 22914, false},
		{Instance{InstanceID: "psf__requests-863", Repo: "psf/requests"}, "psf/requests", 863, false},
		{Instance{InstanceID: "scikit-learn__scikit-learn-10297"}, "scikit-learn/scikit-learn", 10297, false},
		{Instance{InstanceID: "nonumber"}, "", 0, true},
		{Instance{InstanceID: "a__b-x"}, "", 0, true},
		{Instance{InstanceID: "norepo-12"}, "", 0, true},
	}
	for _, tt := range tests {
		repo, n, err := tt.inst.Ref()
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidInstanceID) {
				t.Errorf("Ref(%q): err = %v, want ErrInvalidInstanceID", tt.inst.InstanceID, err)
			}
			continue
		}
		if err != nil || repo != tt.wantRepo || n != tt.wantNumber {
			t.Errorf("Ref(%q) = %q, %d, %v; want %q, %d", tt.inst.InstanceID, repo, n, err, tt.wantRepo, tt.wantNumber)
		}
	}
}

func TestTitleAndURL(t *testing.T) {
	inst := Instance{InstanceID: "a__b-12", ProblemStatement: "\n  Title: Crash on import  \nbody"}
	if got := inst.Title(); got != "Crash on import" {
		t.Errorf("Title = %q", got)
	}
	if got := inst.IssueURL(); got != "https://github.com/a/b/issues/12" {
		t.Errorf("IssueURL = %q", got)
	}
	if got := (Instance{}).Title(); got != "Unknown" {
		t.Errorf("empty Title = %q", got)
	}
}

func TestParseName(t *testing.T) {
	for in, want := range map[string]Name{"full": Full, "SWE-bench": Full, "verified": Verified, "swe-bench-verified": Verified} {
		got, err := ParseName(in)
		if err != nil || got != want {
			t.Errorf("ParseName(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseName("lite"); !errors.Is(err, ErrUnknownDataset) {
		t.Errorf("ParseName(lite) err = %v", err)
	}
}
