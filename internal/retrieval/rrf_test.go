package retrieval

import (
	"testing"

	"amp/internal/graph"
)

const (
	testIDA = "11111111-1111-1111-1111-111111111111"
	testIDB = "22222222-2222-2222-2222-222222222222"
	testIDC = "33333333-3333-3333-3333-333333333333"
)

func TestFuse_DocumentInAllListsOutranksSingleSource(t *testing.T) {
	vectorList := rankedList{testIDA, testIDB}
	textList := rankedList{testIDA, testIDC}
	graphHits := []graph.Hit{{ObjectID: mustID(testIDA), Depth: 2}}

	out := fuse(vectorList, textList, graphHits, DefaultWeights, nil)
	if len(out) != 3 {
		t.Fatalf("fuse results = %d, want 3 distinct documents", len(out))
	}
	if out[0].ObjectID != testIDA {
		t.Fatalf("top result = %s, want %q (present in all three sources)", out[0].ObjectID, testIDA)
	}
	if len(out[0].Sources) != 3 {
		t.Errorf("Sources for %q = %v, want all 3", out[0].ObjectID, out[0].Sources)
	}
	if out[0].Depth == nil || *out[0].Depth != 2 {
		t.Errorf("Depth for %q = %v, want 2 (carried from the graph hit)", out[0].ObjectID, out[0].Depth)
	}
}

func TestFuse_RankOneBeatsRankTwoInSameSource(t *testing.T) {
	vectorList := rankedList{"a", "b"}

	out := fuse(vectorList, nil, nil, DefaultWeights, nil)
	if out[0].ObjectID != "a" {
		t.Errorf("rank-1 document should score higher, got order %v", out)
	}
}

func TestFuse_ZeroWeightSourceDoesNotContributeScore(t *testing.T) {
	vectorList := rankedList{"a"}
	textList := rankedList{"b"}
	w := Weights{Vector: 1.0, Text: 0, Graph: 0}

	out := fuse(vectorList, textList, nil, w, nil)
	var scoreB float64
	for _, r := range out {
		if r.ObjectID == "b" {
			scoreB = r.Score
		}
	}
	if scoreB != 0 {
		t.Errorf("a zero-weighted source should contribute score 0, got %v", scoreB)
	}
}

func TestFuse_TiebreakAppliedOnEqualScores(t *testing.T) {
	vectorList := rankedList{"x"}
	textList := rankedList{"y"}
	w := Weights{Vector: 0.5, Text: 0.5}

	calledWith := ""
	tiebreak := func(a, b string) bool {
		calledWith = a + "," + b
		return a == "y"
	}
	out := fuse(vectorList, textList, nil, w, tiebreak)
	if calledWith == "" {
		t.Fatal("expected the tiebreak function to be invoked for equal scores")
	}
	if out[0].ObjectID != "y" {
		t.Errorf("tiebreak should have put %q first, got order %v", "y", out)
	}
}

func TestFuse_EmptyInputsProduceNoResults(t *testing.T) {
	out := fuse(nil, nil, nil, DefaultWeights, nil)
	if len(out) != 0 {
		t.Errorf("fuse with no inputs should return no results, got %d", len(out))
	}
}
