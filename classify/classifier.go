package classify

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/urizennnn/swebench-contributions/dataset"
	"github.com/urizennnn/swebench-contributions/github"
)

// Source supplies remote evidence. *github.Client implements it.
type Source interface {
	Thread(ctx context.Context, repo string, number int) (*github.Thread, error)
}

type Classifier struct {
	username string
	matcher  *Matcher
	source   Source
}

// New returns a classifier for username. A nil source classifies offline,
// from dataset text only.
func New(username string, source Source) *Classifier {
	return &Classifier{
		username: username,
		matcher:  NewMatcher(username),
		source:   source,
	}
}

func (c *Classifier) Remote() bool { return c.source != nil }

func (c *Classifier) Username() string { return c.username }

// Classify derives the record for one instance. ok is false when the user
// left no evidence on it. Failures to fetch remote evidence fall back to the
// local evidence; only bad credentials and cancellation are returned.
func (c *Classifier) Classify(ctx context.Context, inst dataset.Instance) (rec Record, ok bool, err error) {
	types := localEvidence(inst, c.matcher)

	repo, number, refErr := inst.Ref()
	if repo == "" {
		repo = inst.Repo
	}

	var thread *github.Thread
	if c.source != nil {
		log := logrus.WithFields(logrus.Fields{
			"component":   "classify",
			"instance_id": inst.InstanceID,
		})
		switch {
		case refErr != nil:
			log.WithError(refErr).Warn("cannot locate issue, using dataset evidence only")
		default:
			t, err := c.source.Thread(ctx, repo, number)
			switch {
			case github.IsFatal(err):
				return Record{}, false, err
			case errors.Is(err, github.ErrNotFound):
				log.WithError(err).Debug("issue not found")
			case err != nil:
				log.WithError(err).Warn("remote evidence unavailable, using dataset evidence only")
			default:
				thread = t
				types = Merge(types, RemoteEvidence(t, c.username))
			}
		}
	}

	if types.Empty() {
		return Record{}, false, nil
	}

	rec = Record{
		InstanceID:        inst.InstanceID,
		Repo:              repo,
		ContributionTypes: types,
		Title:             inst.Title(),
		URL:               inst.IssueURL(),
		CreatedAt:         inst.CreatedAt,
		Dataset:           inst.Dataset,
		DatasetInfo: DatasetInfo{
			ProblemStatement: inst.ProblemStatement,
			HintsText:        inst.HintsText,
		},
	}
	if rec.CreatedAt == "" {
		rec.CreatedAt = "Unknown"
	}
	if c.source != nil {
		rec.GithubInfo = &GithubInfo{}
	}
	if thread != nil {
		if thread.Title != "" {
			rec.Title = thread.Title
		}
		if thread.HTMLURL != "" {
			rec.URL = thread.HTMLURL
		}
		if thread.CreatedAt != "" {
			rec.CreatedAt = thread.CreatedAt
		}
		rec.GithubInfo = &GithubInfo{
			IssueFound:   true,
			CommentCount: thread.CommentCount,
			FromCache:    thread.FromCache,
		}
	}
	return rec, true, nil
}
