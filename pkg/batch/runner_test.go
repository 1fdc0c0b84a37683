package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fabtools/card-collector/pkg/catalog"
	"github.com/fabtools/card-collector/pkg/pacer"
)

// stubFetcher returns canned outcomes per set code and records call order.
type stubFetcher struct {
	cards map[string][]catalog.Card
	errs  map[string]error
	calls []string
}

func (s *stubFetcher) FetchSet(ctx context.Context, code string) ([]catalog.Card, error) {
	s.calls = append(s.calls, code)
	if err, ok := s.errs[code]; ok {
		return nil, err
	}
	return s.cards[code], nil
}

// countingPacer records Wait calls without blocking.
type countingPacer struct {
	waits int
	err   error
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++
	return p.err
}

func cards(ids ...string) []catalog.Card {
	out := make([]catalog.Card, 0, len(ids))
	for _, id := range ids {
		out = append(out, catalog.Card(`{"card_id": "`+id+`"}`))
	}
	return out
}

func TestRun_AllSucceed(t *testing.T) {
	fetcher := &stubFetcher{cards: map[string][]catalog.Card{
		"WTR": cards("WTR001", "WTR002"),
		"ARC": cards("ARC001"),
	}}
	gate := &countingPacer{}

	acc := NewRunner(fetcher, gate).Run(context.Background(), []string{"WTR", "ARC"})

	if len(acc.Succeeded) != 2 || len(acc.Failed) != 0 {
		t.Fatalf("Succeeded=%d Failed=%d, want 2/0", len(acc.Succeeded), len(acc.Failed))
	}
	if acc.LatestCode() != "ARC" {
		t.Errorf("LatestCode() = %q, want %q", acc.LatestCode(), "ARC")
	}
	if acc.TotalCards() != 3 {
		t.Errorf("TotalCards() = %d, want 3", acc.TotalCards())
	}
}

func TestRun_Totality(t *testing.T) {
	// Every input code must land in exactly one ledger.
	fetcher := &stubFetcher{
		cards: map[string][]catalog.Card{
			"AAA": cards("A1"),
			"CCC": cards("C1"),
		},
		errs: map[string]error{
			"BBB": &catalog.Error{SetCode: "BBB", Kind: catalog.ErrorKindNetwork, Err: errors.New("reset")},
			"DDD": &catalog.Error{SetCode: "DDD", Kind: catalog.ErrorKindRemoteStatus, StatusCode: 404},
		},
	}

	codes := []string{"AAA", "BBB", "CCC", "DDD"}
	acc := NewRunner(fetcher, &countingPacer{}).Run(context.Background(), codes)

	if acc.Attempted() != len(codes) {
		t.Errorf("Attempted() = %d, want %d", acc.Attempted(), len(codes))
	}

	seen := map[string]int{}
	for _, s := range acc.Succeeded {
		seen[s.Code]++
	}
	for _, f := range acc.Failed {
		seen[f.Code]++
	}
	for _, code := range codes {
		if seen[code] != 1 {
			t.Errorf("Code %s appears %d times in outcomes, want exactly 1", code, seen[code])
		}
	}
}

func TestRun_FailureIsolation(t *testing.T) {
	// The 2nd fetch fails; the 1st and 3rd must still be attempted.
	fetcher := &stubFetcher{
		cards: map[string][]catalog.Card{
			"AAA": cards("A1"),
			"CCC": cards("C1"),
		},
		errs: map[string]error{
			"BBB": &catalog.Error{SetCode: "BBB", Kind: catalog.ErrorKindNetwork, Err: errors.New("timeout")},
		},
	}

	acc := NewRunner(fetcher, &countingPacer{}).Run(context.Background(), []string{"AAA", "BBB", "CCC"})

	if len(fetcher.calls) != 3 {
		t.Fatalf("Fetch calls = %d, want 3", len(fetcher.calls))
	}
	if len(acc.Succeeded) != 2 {
		t.Errorf("Succeeded = %d, want 2", len(acc.Succeeded))
	}
	if len(acc.Failed) != 1 || acc.Failed[0].Code != "BBB" {
		t.Errorf("Failed = %+v, want single BBB entry", acc.Failed)
	}
}

func TestRun_OrderPreservation(t *testing.T) {
	fetcher := &stubFetcher{
		cards: map[string][]catalog.Card{
			"AAA": cards("A1"), "CCC": cards("C1"), "EEE": cards("E1"),
		},
		errs: map[string]error{
			"BBB": &catalog.Error{Kind: catalog.ErrorKindDecode},
			"DDD": &catalog.Error{Kind: catalog.ErrorKindNetwork},
		},
	}

	acc := NewRunner(fetcher, &countingPacer{}).Run(context.Background(),
		[]string{"AAA", "BBB", "CCC", "DDD", "EEE"})

	wantSucceeded := []string{"AAA", "CCC", "EEE"}
	for i, s := range acc.Succeeded {
		if s.Code != wantSucceeded[i] {
			t.Errorf("Succeeded[%d] = %q, want %q", i, s.Code, wantSucceeded[i])
		}
	}

	wantFailed := []string{"BBB", "DDD"}
	for i, f := range acc.Failed {
		if f.Code != wantFailed[i] {
			t.Errorf("Failed[%d] = %q, want %q", i, f.Code, wantFailed[i])
		}
	}
}

func TestRun_PacerGatesEveryFetch(t *testing.T) {
	fetcher := &stubFetcher{cards: map[string][]catalog.Card{
		"AAA": nil, "BBB": nil, "CCC": nil,
	}}
	gate := &countingPacer{}

	NewRunner(fetcher, gate).Run(context.Background(), []string{"AAA", "BBB", "CCC"})

	if gate.waits != 3 {
		t.Errorf("Pacer waits = %d, want 3", gate.waits)
	}
}

func TestRun_PacingWallClock(t *testing.T) {
	// With a zero-latency fetcher, N sets take at least (N-1) intervals.
	interval := 15 * time.Millisecond
	fetcher := &stubFetcher{cards: map[string][]catalog.Card{
		"AAA": nil, "BBB": nil, "CCC": nil,
	}}

	start := time.Now()
	NewRunner(fetcher, pacer.New(interval)).Run(context.Background(), []string{"AAA", "BBB", "CCC"})
	elapsed := time.Since(start)

	if min := 2 * interval; elapsed < min {
		t.Errorf("Run took %v, want >= %v", elapsed, min)
	}
}

func TestRun_PacerFaultRecordedAsFailure(t *testing.T) {
	fetcher := &stubFetcher{cards: map[string][]catalog.Card{"AAA": nil}}
	gate := &countingPacer{err: context.Canceled}

	acc := NewRunner(fetcher, gate).Run(context.Background(), []string{"AAA"})

	if acc.Attempted() != 1 {
		t.Fatalf("Attempted() = %d, want 1", acc.Attempted())
	}
	if len(acc.Failed) != 1 {
		t.Fatalf("Failed = %d, want 1", len(acc.Failed))
	}
	if acc.Failed[0].Kind != catalog.ErrorKindNetwork {
		t.Errorf("Kind = %q, want %q", acc.Failed[0].Kind, catalog.ErrorKindNetwork)
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("Fetch calls = %d, want 0 when the gate fails", len(fetcher.calls))
	}
}

func TestRun_EndToEndScenario(t *testing.T) {
	// WTR: 2 cards, ARC: 3 cards, XXX: remote 404.
	fetcher := &stubFetcher{
		cards: map[string][]catalog.Card{
			"WTR": cards("WTR001", "WTR002"),
			"ARC": cards("ARC001", "ARC002", "ARC003"),
		},
		errs: map[string]error{
			"XXX": &catalog.Error{SetCode: "XXX", Kind: catalog.ErrorKindRemoteStatus, StatusCode: 404},
		},
	}

	acc := NewRunner(fetcher, &countingPacer{}).Run(context.Background(), []string{"WTR", "ARC", "XXX"})

	if acc.Attempted() != 3 {
		t.Errorf("Attempted() = %d, want 3", acc.Attempted())
	}
	if len(acc.Succeeded) != 2 {
		t.Fatalf("Succeeded = %d, want 2", len(acc.Succeeded))
	}
	if acc.Succeeded[0].Code != "WTR" || len(acc.Succeeded[0].Cards) != 2 {
		t.Errorf("Succeeded[0] = %s (%d cards), want WTR with 2",
			acc.Succeeded[0].Code, len(acc.Succeeded[0].Cards))
	}
	if acc.Succeeded[1].Code != "ARC" || len(acc.Succeeded[1].Cards) != 3 {
		t.Errorf("Succeeded[1] = %s (%d cards), want ARC with 3",
			acc.Succeeded[1].Code, len(acc.Succeeded[1].Cards))
	}
	if len(acc.Failed) != 1 || acc.Failed[0].Code != "XXX" ||
		acc.Failed[0].Kind != catalog.ErrorKindRemoteStatus {
		t.Errorf("Failed = %+v, want XXX remote-status", acc.Failed)
	}
	if acc.LatestCode() != "ARC" {
		t.Errorf("LatestCode() = %q, want %q", acc.LatestCode(), "ARC")
	}
	if acc.TotalCards() != 5 {
		t.Errorf("TotalCards() = %d, want 5", acc.TotalCards())
	}
}

func TestAccumulator_LatestCodeEmpty(t *testing.T) {
	acc := &Accumulator{}
	if acc.LatestCode() != "" {
		t.Errorf("LatestCode() = %q, want empty", acc.LatestCode())
	}
}
