package random

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestNewSeedIsNonNegative(t *testing.T) {
	for i := 0; i < 32; i++ {
		seed, err := NewSeed()
		if err != nil {
			t.Fatalf("new seed: %v", err)
		}
		if seed < 0 {
			t.Fatalf("seed = %d, want >= 0", seed)
		}
	}
}

func TestSeedFromReadsLittleEndian(t *testing.T) {
	seed, err := seedFrom(bytes.NewReader([]byte{2, 0, 0, 0, 0, 0, 0, 0}))
	if err != nil {
		t.Fatalf("seed from: %v", err)
	}
	if seed != 1 {
		t.Fatalf("seed = %d, want 1", seed)
	}
}

func TestSeedFromShortRead(t *testing.T) {
	_, err := seedFrom(bytes.NewReader([]byte{1, 2}))
	if err == nil {
		t.Fatal("expected short read error")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("err = %v, want wrapped io.ErrUnexpectedEOF", err)
	}
}

func TestNewRandIsDeterministic(t *testing.T) {
	a := NewRand(42)
	b := NewRand(42)
	for i := 0; i < 10; i++ {
		if x, y := a.Int63(), b.Int63(); x != y {
			t.Fatalf("draw %d: %d != %d", i, x, y)
		}
	}
}

func TestIntBetweenStaysInRange(t *testing.T) {
	rng := NewRand(7)
	for i := 0; i < 500; i++ {
		v := IntBetween(rng, 3, 9)
		if v < 3 || v > 9 {
			t.Fatalf("value %d outside [3,9]", v)
		}
	}
	if got := IntBetween(rng, 5, 5); got != 5 {
		t.Fatalf("degenerate range = %d, want 5", got)
	}
	if got := IntBetween(rng, 8, 2); got != 8 {
		t.Fatalf("inverted range = %d, want 8", got)
	}
}
