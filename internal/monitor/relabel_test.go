package monitor

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/DoctorKnockers/ag-trading-bot/internal/domain"
	"github.com/DoctorKnockers/ag-trading-bot/internal/storage/memory"
)

func seedTrail(t *testing.T, samples *memory.PriceSampleStore, messageID string, entry float64, points []struct {
	offsetSec int
	multiple  float64
}) {
	t.Helper()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	batch := make([]*domain.PriceSample, 0, len(points))
	for _, p := range points {
		batch = append(batch, &domain.PriceSample{
			MessageID:  messageID,
			Mint:       testMint,
			ObservedAt: base.Add(time.Duration(p.offsetSec) * time.Second),
			PriceUSD:   entry * p.multiple,
			Multiple:   p.multiple,
		})
	}
	if err := samples.InsertBulk(context.Background(), batch); err != nil {
		t.Fatal(err)
	}
}

func TestRelabeler_LowerMultiple(t *testing.T) {
	outcomes := memory.NewOutcomeStore()
	samples := memory.NewPriceSampleStore()
	ctx := context.Background()

	// Peaked at 6x with a long dwell: no 10x touch at version 1, but the
	// original run's simulation passed during an earlier labeling regime.
	seedTrail(t, samples, "m1", 0.001, []struct {
		offsetSec int
		multiple  float64
	}{
		{0, 1.0},
		{60, 6.0},
		{120, 6.2},
		{300, 6.1},
		{400, 2.0},
	})
	if err := outcomes.Insert(ctx, &domain.Outcome{
		MessageID: "m1", Version: 1, EntryPrice: 0.001,
		MaxPrice24h: 0.0062, Touch10x: false, Sustained10x: true, Win: true,
	}); err != nil {
		t.Fatal(err)
	}

	r := NewRelabeler(RelabelerOptions{
		Outcomes: outcomes,
		Samples:  samples,
		Tunables: Tunables{Multiple: 5.0, Dwell: 180 * time.Second},
	})

	written, err := r.Run(ctx, 1, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if written != 1 {
		t.Fatalf("written = %d", written)
	}

	out, err := outcomes.GetByID(ctx, "m1", 2)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !out.Touch10x {
		t.Error("5x threshold was touched")
	}
	if !out.Sustained10x || !out.Win {
		t.Error("340s above 5x with a passing simulation should sustain")
	}
	if math.Abs(out.MaxPrice24h-0.001*6.2) > 1e-12 {
		t.Errorf("MaxPrice24h = %.12f", out.MaxPrice24h)
	}

	// Version 1 is untouched.
	prev, err := outcomes.GetByID(ctx, "m1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if prev.Touch10x {
		t.Error("prior version mutated")
	}
}

func TestRelabeler_SustainRequiresOriginalSimulation(t *testing.T) {
	outcomes := memory.NewOutcomeStore()
	samples := memory.NewPriceSampleStore()
	ctx := context.Background()

	// Dwell satisfied on replay, but the original run never passed the
	// executability simulation.
	seedTrail(t, samples, "m2", 0.001, []struct {
		offsetSec int
		multiple  float64
	}{
		{0, 1.0},
		{30, 11.0},
		{240, 12.0},
	})
	if err := outcomes.Insert(ctx, &domain.Outcome{
		MessageID: "m2", Version: 1, EntryPrice: 0.001,
		MaxPrice24h: 0.012, Touch10x: true, Sustained10x: false, Win: false,
	}); err != nil {
		t.Fatal(err)
	}

	r := NewRelabeler(RelabelerOptions{Outcomes: outcomes, Samples: samples})

	if _, err := r.Run(ctx, 1, 2); err != nil {
		t.Fatalf("Run: %v", err)
	}

	out, err := outcomes.GetByID(ctx, "m2", 2)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Touch10x {
		t.Error("touch lost in replay")
	}
	if out.Sustained10x || out.Win {
		t.Error("sustain must not appear without a passing simulation")
	}
}

func TestRelabeler_Restartable(t *testing.T) {
	outcomes := memory.NewOutcomeStore()
	samples := memory.NewPriceSampleStore()
	ctx := context.Background()

	seedTrail(t, samples, "m3", 0.001, []struct {
		offsetSec int
		multiple  float64
	}{
		{0, 1.0},
		{60, 2.0},
	})
	if err := outcomes.Insert(ctx, &domain.Outcome{
		MessageID: "m3", Version: 1, EntryPrice: 0.001, MaxPrice24h: 0.002,
	}); err != nil {
		t.Fatal(err)
	}

	r := NewRelabeler(RelabelerOptions{Outcomes: outcomes, Samples: samples})

	if written, err := r.Run(ctx, 1, 2); err != nil || written != 1 {
		t.Fatalf("first run: written=%d err=%v", written, err)
	}
	if written, err := r.Run(ctx, 1, 2); err != nil || written != 0 {
		t.Fatalf("second run: written=%d err=%v", written, err)
	}
}

func TestRelabeler_SkipsMissingTrail(t *testing.T) {
	outcomes := memory.NewOutcomeStore()
	samples := memory.NewPriceSampleStore()
	ctx := context.Background()

	if err := outcomes.Insert(ctx, &domain.Outcome{
		MessageID: "m4", Version: 1, EntryPrice: 0.001,
	}); err != nil {
		t.Fatal(err)
	}

	r := NewRelabeler(RelabelerOptions{Outcomes: outcomes, Samples: samples})

	written, err := r.Run(ctx, 1, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if written != 0 {
		t.Errorf("written = %d", written)
	}
}

func TestRelabeler_RejectsBackwardVersion(t *testing.T) {
	r := NewRelabeler(RelabelerOptions{
		Outcomes: memory.NewOutcomeStore(),
		Samples:  memory.NewPriceSampleStore(),
	})
	if _, err := r.Run(context.Background(), 2, 2); err == nil {
		t.Fatal("expected error for non-increasing version")
	}
}
