package analysis

import (
	"slices"

	"github.com/urizennnn/swebench-contributions/classify"
	"github.com/urizennnn/swebench-contributions/dataset"
)

// Aggregator collects records in the order they are added: datasets in
// processing order, instances in dataset order.
type Aggregator struct {
	records  []classify.Record
	datasets []dataset.Name
	counts   map[dataset.Name]int
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		records: make([]classify.Record, 0),
		counts:  make(map[dataset.Name]int),
	}
}

// StartDataset registers a dataset even if it yields no records.
func (a *Aggregator) StartDataset(name dataset.Name) {
	if !slices.Contains(a.datasets, name) {
		a.datasets = append(a.datasets, name)
		a.counts[name] = 0
	}
}

func (a *Aggregator) Add(rec classify.Record) {
	if rec.ContributionTypes.Empty() {
		return
	}
	if rec.Dataset != "" {
		a.StartDataset(rec.Dataset)
		a.counts[rec.Dataset]++
	}
	a.records = append(a.records, rec)
}

// Finish completes meta with the counts and returns the output document.
func (a *Aggregator) Finish(meta Metadata) *Output {
	meta.Count = len(a.records)
	if len(a.datasets) > 0 {
		meta.Datasets = slices.Clone(a.datasets)
		meta.DatasetCounts = make(map[dataset.Name]int, len(a.counts))
		for name, n := range a.counts {
			meta.DatasetCounts[name] = n
		}
	}
	return &Output{
		Metadata: meta,
		Results:  slices.Clone(a.records),
	}
}
