package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/sirupsen/logrus"
)

// Load reads a dataset file. Accepted layouts: a JSON array of instances,
// an object with an "instances" array, an object keyed by instance id, or
// JSON Lines. Instances are deduplicated by id, first occurrence wins.
func Load(path string, name Name) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return Set{}, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	defer f.Close()

	instances, err := decode(bufio.NewReader(f))
	if err != nil {
		return Set{}, fmt.Errorf("%w: %s: %v", ErrLoad, path, err)
	}

	set := Set{Name: name, Instances: dedupe(instances, name)}
	logrus.WithFields(logrus.Fields{
		"component": "dataset",
		"dataset":   name,
		"path":      path,
		"instances": len(set.Instances),
	}).Info("dataset loaded")
	return set, nil
}

func decode(r io.Reader) ([]Instance, error) {
	dec := json.NewDecoder(r)

	var first json.RawMessage
	if err := dec.Decode(&first); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}

	// A second top-level value means JSON Lines.
	if dec.More() {
		out := make([]Instance, 0, 1024)
		var inst Instance
		if err := json.Unmarshal(first, &inst); err != nil {
			return nil, fmt.Errorf("line 1: %w", err)
		}
		out = append(out, inst)
		for line := 2; dec.More(); line++ {
			var inst Instance
			if err := dec.Decode(&inst); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			out = append(out, inst)
		}
		return out, nil
	}

	trimmed := bytes.TrimSpace(first)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var out []Instance
		err := json.Unmarshal(trimmed, &out)
		return out, err
	}
	return decodeObject(trimmed)
}

func decodeObject(raw []byte) ([]Instance, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	if list, ok := obj["instances"]; ok {
		var out []Instance
		err := json.Unmarshal(list, &out)
		return out, err
	}
	if _, ok := obj["instance_id"]; ok {
		var inst Instance
		err := json.Unmarshal(raw, &inst)
		return []Instance{inst}, err
	}

	// Keyed by instance id; encoding/json map order is random, so sort
	// keys to keep the dataset order reproducible.
	keys := slices.Sorted(maps.Keys(obj))
	out := make([]Instance, 0, len(keys))
	for _, id := range keys {
		var inst Instance
		if err := json.Unmarshal(obj[id], &inst); err != nil {
			return nil, fmt.Errorf("instance %s: %w", id, err)
		}
		if inst.InstanceID == "" {
			inst.InstanceID = id
		}
		out = append(out, inst)
	}
	return out, nil
}

func dedupe(in []Instance, name Name) []Instance {
	seen := make(map[string]struct{}, len(in))
	out := make([]Instance, 0, len(in))
	for _, inst := range in {
		if inst.InstanceID == "" {
			logrus.WithField("component", "dataset").Warn("skipping instance without instance_id")
			continue
		}
		if _, dup := seen[inst.InstanceID]; dup {
			continue
		}
		seen[inst.InstanceID] = struct{}{}
		inst.Dataset = name
		out = append(out, inst)
	}
	return out
}
