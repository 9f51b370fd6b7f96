package simhash

import (
	"testing"
)

func TestFingerprint_Deterministic(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog"
	if Fingerprint(text) != Fingerprint(text) {
		t.Error("identical texts produced different fingerprints")
	}
}

func TestFingerprint_SimilarTexts(t *testing.T) {
	fp1 := Fingerprint("the quick brown fox jumps over the lazy dog")
	fp2 := Fingerprint("the quick brown fox leaps over the lazy dog")

	if dist := Distance(fp1, fp2); dist > 10 {
		t.Errorf("one-word edit produced distance %d", dist)
	}
}

func TestFingerprint_DifferentTexts(t *testing.T) {
	fp1 := Fingerprint("the quick brown fox jumps over the lazy dog")
	fp2 := Fingerprint("completely unrelated content about quantum physics and mathematics")

	if dist := Distance(fp1, fp2); dist < 5 {
		t.Errorf("unrelated texts produced distance %d", dist)
	}
}

func TestFingerprint_EmptyInput(t *testing.T) {
	if fp := Fingerprint(""); fp != 0 {
		t.Errorf("empty input should produce fingerprint 0, got %064b", fp)
	}
}

func TestDistance_Identity(t *testing.T) {
	fp := Fingerprint("hello world")
	if Distance(fp, fp) != 0 {
		t.Error("distance of a fingerprint to itself must be 0")
	}
}

func TestSimilar(t *testing.T) {
	if !Similar(0b1010, 0b1010, 0) {
		t.Error("equal fingerprints must be similar at threshold 0")
	}
	if Similar(0b1111, 0b0000, 3) {
		t.Error("distance 4 must not be similar at threshold 3")
	}
	if !Similar(0b1110, 0b1111, 1) {
		t.Error("distance 1 must be similar at threshold 1")
	}
}
