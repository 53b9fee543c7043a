package memory

import (
	"encoding/json"
	"fmt"
)

// Buckets lists the state buckets written by durable stores, one row each.
var Buckets = []string{"ideas", "experiments", "outcomes", "reflections", "sequences"}

// MarshalBuckets encodes every bucket of the snapshot as JSON keyed by bucket name.
func (s Snapshot) MarshalBuckets() (map[string][]byte, error) {
	out := make(map[string][]byte, len(Buckets))
	for _, bucket := range Buckets {
		target, err := s.bucket(bucket)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(target)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", bucket, err)
		}
		out[bucket] = data
	}
	return out, nil
}

// UnmarshalBucket decodes payload into the named bucket. Unknown buckets are
// ignored so older builds can read state written by newer ones.
func (s *Snapshot) UnmarshalBucket(bucket string, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	var target any
	switch bucket {
	case "ideas":
		target = &s.Ideas
	case "experiments":
		target = &s.Experiments
	case "outcomes":
		target = &s.Outcomes
	case "reflections":
		target = &s.Reflections
	case "sequences":
		target = &s.Sequences
	default:
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}

func (s Snapshot) bucket(name string) (any, error) {
	switch name {
	case "ideas":
		return s.Ideas, nil
	case "experiments":
		return s.Experiments, nil
	case "outcomes":
		return s.Outcomes, nil
	case "reflections":
		return s.Reflections, nil
	case "sequences":
		return s.Sequences, nil
	}
	return nil, fmt.Errorf("unknown bucket %q", name)
}
