package tick

import (
	"testing"

	"asmm-engine/symbol"
)

func frame(sym, bid, bidSize, ask, askSize string) []byte {
	return []byte(`{"s":"` + sym + `","b":"` + bid + `","B":"` + bidSize + `","a":"` + ask + `","A":"` + askSize + `"}`)
}

func TestParseValidFrame(t *testing.T) {
	p := NewParser()
	got, err := p.Parse(frame("BTCUSDT", "100.50", "1.2", "100.60", "0.8"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Symbol != symbol.BTCUSDT {
		t.Errorf("symbol = %v, want BTCUSDT", got.Symbol)
	}
	if got.Bid != 100.50 || got.Ask != 100.60 {
		t.Errorf("bid/ask = %v/%v", got.Bid, got.Ask)
	}
	if got.BidSize != 1.2 || got.AskSize != 0.8 {
		t.Errorf("sizes = %v/%v", got.BidSize, got.AskSize)
	}
}

func TestParseKeyOrderIndependent(t *testing.T) {
	p := NewParser()
	raw := []byte(`{"A":"0.8","a":"100.60","B":"1.2","b":"100.50","s":"ETHUSDT"}`)
	got, err := p.Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Symbol != symbol.ETHUSDT {
		t.Errorf("symbol = %v, want ETHUSDT", got.Symbol)
	}
}

func TestParseRejectsCrossedBook(t *testing.T) {
	p := NewParser()
	_, err := p.Parse(frame("BTCUSDT", "100.60", "1.0", "100.50", "1.0"))
	if err != ErrMalformed {
		t.Errorf("expected ErrMalformed for crossed book, got %v", err)
	}
}

func TestParseRejectsNonPositivePrice(t *testing.T) {
	p := NewParser()
	_, err := p.Parse(frame("BTCUSDT", "0", "1.0", "1.0", "1.0"))
	if err != ErrMalformed {
		t.Errorf("expected ErrMalformed for non-positive bid, got %v", err)
	}
}

func TestParseMissingKeyIsMalformed(t *testing.T) {
	p := NewParser()
	_, err := p.Parse([]byte(`{"s":"BTCUSDT","b":"1.0","a":"1.1"}`))
	if err != ErrMalformed {
		t.Errorf("expected ErrMalformed for missing size keys, got %v", err)
	}
	if p.Malformed != 1 {
		t.Errorf("Malformed = %d, want 1", p.Malformed)
	}
}

func TestLatchesToFastPathAfterWindow(t *testing.T) {
	p := NewParser()
	for i := 0; i < validationWindow; i++ {
		if _, err := p.Parse(frame("BTCUSDT", "100.5", "1.0", "100.6", "1.0")); err != nil {
			t.Fatalf("unexpected parse error at frame %d: %v", i, err)
		}
	}
	if !p.UseFastPath() {
		t.Error("expected parser to latch onto fast path after clean window")
	}
	count, passed := p.Validated()
	if count != validationWindow || passed != validationWindow {
		t.Errorf("Validated() = %d/%d, want %d/%d", passed, count, validationWindow, validationWindow)
	}
}

func TestFastAtof(t *testing.T) {
	cases := map[string]float64{
		"100.5":   100.5,
		"-3.25":   -3.25,
		"0.0001":  0.0001,
		"45000":   45000,
		"":        0,
		"abc":     0,
		"1.2.3":   0,
	}
	for in, want := range cases {
		got, ok := fastAtof(in)
		if in == "" || in == "abc" || in == "1.2.3" {
			if ok {
				t.Errorf("fastAtof(%q) unexpectedly succeeded", in)
			}
			continue
		}
		if !ok || got != want {
			t.Errorf("fastAtof(%q) = %v,%v want %v", in, got, ok, want)
		}
	}
}
