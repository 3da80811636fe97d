// Package tick parses top-of-book frames into MarketTick records. It
// implements the fast scanner / reference-decode validation-then-latch
// procedure: the fast path is only trusted after it agrees with a general
// decimal parser on the first window of frames.
package tick

import (
	"errors"
	"strconv"
	"strings"

	"asmm-engine/symbol"
)

// ErrMalformed is returned for a frame missing a required key, or one that
// fails the price-sanity check (bid > 0, ask > 0, ask > bid).
var ErrMalformed = errors.New("tick: malformed frame")

// MarketTick is one parsed top-of-book snapshot. Volatility is populated by
// the caller after the estimator runs; it is not part of the wire frame.
type MarketTick struct {
	Symbol     symbol.Symbol
	Bid        float64
	Ask        float64
	BidSize    float64
	AskSize    float64
	Volatility float64
}

// Mid returns the arithmetic mean of bid and ask.
func (t MarketTick) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

// Spread returns ask minus bid.
func (t MarketTick) Spread() float64 {
	return t.Ask - t.Bid
}

// validationWindow is the number of frames over which the fast parser's
// output is checked against the reference decimal parser before the engine
// trusts it exclusively.
const validationWindow = 1000

// tolerance is the maximum absolute disagreement between the fast and
// reference parse allowed during validation.
const tolerance = 1e-10

// Parser extracts symbol/bid/ask/bid-size/ask-size from text frames of the
// form `..."s":"BTCUSDT"...,"b":"100.5","B":"1.2","a":"100.6","A":"0.8"...`.
// Key order is not guaranteed. It starts on the reference (strconv) decimal
// path and latches onto the fast scanner once the fast path has agreed with
// the reference on every one of the first 1000 frames.
type Parser struct {
	count       int
	passed      int
	useFastPath bool

	// Malformed counts frames dropped for a missing key or failed sanity
	// check; it is exposed for status reporting, not used internally.
	Malformed int
}

// NewParser returns a Parser that starts on the reference decode path.
func NewParser() *Parser {
	return &Parser{}
}

// UseFastPath reports whether the parser has latched onto the fast scanner.
func (p *Parser) UseFastPath() bool {
	return p.useFastPath
}

// Validated returns how many frames were compared against the reference
// parser and how many of those comparisons passed.
func (p *Parser) Validated() (count, passed int) {
	return p.count, p.passed
}

// Parse extracts a MarketTick from a single frame. Malformed frames are
// reported via the returned error; callers must count and skip them rather
// than treat the error as fatal.
func (p *Parser) Parse(frame []byte) (MarketTick, error) {
	s := string(frame)

	sym, ok := findValue(s, `"s":"`)
	if !ok {
		p.Malformed++
		return MarketTick{}, ErrMalformed
	}
	bidStr, ok := findValue(s, `"b":"`)
	if !ok {
		p.Malformed++
		return MarketTick{}, ErrMalformed
	}
	askStr, ok := findValue(s, `"a":"`)
	if !ok {
		p.Malformed++
		return MarketTick{}, ErrMalformed
	}
	bidSizeStr, ok := findValue(s, `"B":"`)
	if !ok {
		p.Malformed++
		return MarketTick{}, ErrMalformed
	}
	askSizeStr, ok := findValue(s, `"A":"`)
	if !ok {
		p.Malformed++
		return MarketTick{}, ErrMalformed
	}

	bid, ask, ok := p.parsePrices(bidStr, askStr)
	if !ok {
		p.Malformed++
		return MarketTick{}, ErrMalformed
	}

	bidSize, err1 := strconv.ParseFloat(bidSizeStr, 64)
	askSize, err2 := strconv.ParseFloat(askSizeStr, 64)
	if err1 != nil || err2 != nil {
		p.Malformed++
		return MarketTick{}, ErrMalformed
	}

	if !(bid > 0 && ask > 0 && ask > bid) {
		p.Malformed++
		return MarketTick{}, ErrMalformed
	}

	return MarketTick{
		Symbol:  symbol.Parse(sym),
		Bid:     bid,
		Ask:     ask,
		BidSize: bidSize,
		AskSize: askSize,
	}, nil
}

// parsePrices returns the bid/ask decode, running the validation-then-latch
// procedure while the parser hasn't yet latched onto the fast path.
func (p *Parser) parsePrices(bidStr, askStr string) (bid, ask float64, ok bool) {
	if p.useFastPath {
		fb, fbOK := fastAtof(bidStr)
		fa, faOK := fastAtof(askStr)
		if fbOK && faOK {
			return fb, fa, true
		}
		// Fall back to the reference decode on an unexpected fast-path miss.
		return referenceParse(bidStr, askStr)
	}

	refBid, refAsk, refOK := referenceParse(bidStr, askStr)
	if !refOK {
		return 0, 0, false
	}

	if p.count < validationWindow {
		fb, fbOK := fastAtof(bidStr)
		fa, faOK := fastAtof(askStr)
		agree := fbOK && faOK &&
			absDiff(fb, refBid) < tolerance &&
			absDiff(fa, refAsk) < tolerance
		p.count++
		if agree {
			p.passed++
		}
		if p.count == validationWindow && p.passed == p.count {
			p.useFastPath = true
		}
	}

	return refBid, refAsk, true
}

func referenceParse(bidStr, askStr string) (bid, ask float64, ok bool) {
	b, err := strconv.ParseFloat(bidStr, 64)
	if err != nil {
		return 0, 0, false
	}
	a, err := strconv.ParseFloat(askStr, 64)
	if err != nil {
		return 0, 0, false
	}
	return b, a, true
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

// findValue locates key and returns the quoted string value following it,
// up to (not including) the closing double quote. It does not assume key
// order within the frame.
func findValue(s, key string) (string, bool) {
	idx := strings.Index(s, key)
	if idx < 0 {
		return "", false
	}
	start := idx + len(key)
	end := strings.IndexByte(s[start:], '"')
	if end < 0 {
		return "", false
	}
	return s[start : start+end], true
}

// fastAtof is a manual sign/integer/fraction scanner with no scientific
// notation support, matching the upstream feed's frame shape: it never
// emits an exponent. ok is false on an empty or non-numeric input.
func fastAtof(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	i := 0
	sign := 1.0
	if s[i] == '-' {
		sign = -1.0
		i++
	}
	result := 0.0
	scale := 1.0
	sawDigit := false
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		result = result*10 + float64(s[i]-'0')
		i++
		sawDigit = true
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			result = result*10 + float64(s[i]-'0')
			scale *= 10
			i++
			sawDigit = true
		}
	}
	if !sawDigit || i != len(s) {
		return 0, false
	}
	return sign * result / scale, true
}
