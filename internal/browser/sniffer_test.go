package browser

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var tokenPattern = regexp.MustCompile(`[?&]access_token=([0-9a-f]{32})`)

func newTestSniffer() *TokenSniffer {
	return &TokenSniffer{
		pattern:    tokenPattern,
		logger:     zap.NewNop(),
		candidates: make(chan string, 16),
	}
}

func TestSnifferCapturesMatchingURL(t *testing.T) {
	s := newTestSniffer()
	s.Offer("https://www.dsrdata.com.au/api/stats?access_token=0123456789abcdef0123456789abcdef&state=NSW")

	tok, ok := s.Wait(context.Background(), time.Second)
	require.True(t, ok)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", tok)
}

func TestSnifferIgnoresNonMatchingTraffic(t *testing.T) {
	s := newTestSniffer()
	s.Offer("https://www.dsrdata.com.au/assets/app.js")
	s.Offer("https://cdn.example.com/pixel.gif?access_token=short")

	_, ok := s.Wait(context.Background(), 50*time.Millisecond)
	assert.False(t, ok, "no candidate should be buffered for non-matching URLs")
}

func TestSnifferReturnsFirstCandidate(t *testing.T) {
	s := newTestSniffer()
	s.Offer("https://x/api?access_token=aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	s.Offer("https://x/api?access_token=bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	tok, ok := s.Wait(context.Background(), time.Second)
	require.True(t, ok)
	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", tok)
}

func TestSnifferDropsWhenBufferFull(t *testing.T) {
	s := &TokenSniffer{
		pattern:    tokenPattern,
		logger:     zap.NewNop(),
		candidates: make(chan string, 1),
	}
	s.Offer("https://x/api?access_token=aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	// Must not block even though the buffer is full.
	s.Offer("https://x/api?access_token=bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	tok, ok := s.Wait(context.Background(), time.Second)
	require.True(t, ok)
	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", tok)
}

func TestSnifferWaitHonorsCancellation(t *testing.T) {
	s := newTestSniffer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, ok := s.Wait(ctx, 5*time.Second)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second, "cancelled wait must return promptly")
}
