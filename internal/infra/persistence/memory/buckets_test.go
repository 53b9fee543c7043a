package memory

import (
	"learnloop/pkg/domain"
	"testing"
)

func TestBucketsRoundTripThroughJSON(t *testing.T) {
	store := NewStore(nil)
	mustRun(t, store, func(tx domain.Transaction) error {
		idea, err := tx.CreateIdea(domain.Idea{Title: "a", Description: "b"})
		if err != nil {
			return err
		}
		exp, err := tx.CreateExperiment(domain.Experiment{Title: "Run", LinkedIdeaID: &idea.ID})
		if err != nil {
			return err
		}
		_, err = tx.CreateOutcome(domain.Outcome{ExperimentID: exp.ID, Result: "Success"})
		return err
	})
	encoded, err := store.ExportState().MarshalBuckets()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(encoded) != len(Buckets) {
		t.Fatalf("expected %d buckets, got %d", len(Buckets), len(encoded))
	}

	var decoded Snapshot
	for bucket, payload := range encoded {
		if err := decoded.UnmarshalBucket(bucket, payload); err != nil {
			t.Fatalf("unmarshal %s: %v", bucket, err)
		}
	}
	if err := decoded.UnmarshalBucket("legacy", []byte(`{}`)); err != nil {
		t.Fatalf("unknown bucket should be ignored: %v", err)
	}
	if len(decoded.Ideas) != 1 || len(decoded.Experiments) != 1 || len(decoded.Outcomes) != 1 {
		t.Fatalf("unexpected decoded snapshot: %+v", decoded)
	}
	if decoded.Sequences[domain.EntityOutcome] != 1 {
		t.Fatalf("expected outcome sequence, got %v", decoded.Sequences)
	}
	if got := decoded.Experiments[1].LinkedIdeaID; got == nil || *got != 1 {
		t.Fatalf("expected linked idea to survive, got %v", got)
	}
}

func TestUnmarshalBucketRejectsCorruptPayload(t *testing.T) {
	var snap Snapshot
	if err := snap.UnmarshalBucket("ideas", []byte("{not json")); err == nil {
		t.Fatalf("expected decode error")
	}
}
