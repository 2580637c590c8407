package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/urizennnn/swebench-contributions/cache"
	"github.com/urizennnn/swebench-contributions/classify"
	"github.com/urizennnn/swebench-contributions/dataset"
	"github.com/urizennnn/swebench-contributions/metrics"
)

const defaultProgressEvery = 250

// StatsReporter is implemented by *cache.Cache.
type StatsReporter interface {
	Stats(ctx context.Context) cache.Stats
}

// RemoteCounter is implemented by *github.Client.
type RemoteCounter interface {
	RemoteCalls() int64
}

type Analyzer struct {
	classifier    *classify.Classifier
	cache         StatsReporter
	remote        RemoteCounter
	metrics       *metrics.Manager
	now           func() time.Time
	progressEvery int
}

type Option func(*Analyzer)

// WithCache reports cache statistics in the metadata. Leave it out when
// caching is disabled.
func WithCache(s StatsReporter) Option {
	return func(a *Analyzer) { a.cache = s }
}

func WithRemoteCounter(r RemoteCounter) Option {
	return func(a *Analyzer) { a.remote = r }
}

func WithMetrics(m *metrics.Manager) Option {
	return func(a *Analyzer) { a.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

func WithProgressEvery(n int) Option {
	return func(a *Analyzer) { a.progressEvery = n }
}

func NewAnalyzer(c *classify.Classifier, opts ...Option) *Analyzer {
	a := &Analyzer{
		classifier:    c,
		now:           time.Now,
		progressEvery: defaultProgressEvery,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run classifies every instance of sets in order. Any returned error aborts
// the whole run and no output is produced.
func (a *Analyzer) Run(ctx context.Context, sets []dataset.Set) (*Output, error) {
	runID := uuid.NewString()
	start := a.now()
	log := logrus.WithFields(logrus.Fields{
		"component": "analysis",
		"run_id":    runID,
		"username":  a.classifier.Username(),
	})

	mode := ModeOffline
	if a.classifier.Remote() {
		mode = ModeGithubAPI
	}
	log.WithField("mode", mode).Info("analysis started")

	agg := NewAggregator()
	for _, set := range sets {
		agg.StartDataset(set.Name)
		found := 0
		total := len(set.Instances)
		dlog := log.WithField("dataset", set.Name)
		dlog.WithField("instances", total).Info("analyzing dataset")

		for i, inst := range set.Instances {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if inst.Dataset == "" {
				inst.Dataset = set.Name
			}
			rec, ok, err := a.classifier.Classify(ctx, inst)
			if err != nil {
				return nil, fmt.Errorf("classifying %s: %w", inst.InstanceID, err)
			}
			a.metrics.InstanceClassified(string(set.Name), ok)
			if ok {
				agg.Add(rec)
				found++
			}
			if a.progressEvery > 0 && (i+1)%a.progressEvery == 0 {
				dlog.WithFields(logrus.Fields{
					"done":  i + 1,
					"total": total,
					"found": found,
				}).Info("progress")
			}
		}
		dlog.WithField("found", found).Info("dataset done")
	}

	elapsed := a.now().Sub(start)
	meta := Metadata{
		Username:     a.classifier.Username(),
		AnalysisMode: mode,
		DateAnalyzed: start.Format(DateLayout),
		RunID:        runID,
	}
	if mode == ModeGithubAPI {
		meta.Performance = &Performance{ElapsedSeconds: elapsed.Seconds()}
		if a.remote != nil {
			meta.Performance.RemoteCalls = a.remote.RemoteCalls()
		}
		meta.CacheStats = &CacheStats{HitRate: formatRate(0)}
		if a.cache != nil {
			st := a.cache.Stats(ctx)
			meta.CacheStats = &CacheStats{
				Enabled: true,
				Hits:    st.Hits,
				Misses:  st.Misses,
				HitRate: formatRate(st.HitRate()),
			}
		}
	}
	a.metrics.RunFinished(elapsed)

	out := agg.Finish(meta)
	log.WithFields(logrus.Fields{
		"count":   out.Metadata.Count,
		"elapsed": elapsed.Round(time.Millisecond).String(),
	}).Info("analysis finished")
	return out, nil
}

func formatRate(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}
