package binance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/candle-trade-bot/internal/exchange"
)

func TestClient_TestnetEndpointPerAccount(t *testing.T) {
	c := NewClient(5)

	testnet := c.client(exchange.Account{UserID: "alice", APIKey: "k", APISecret: "s", Testnet: true})
	assert.Equal(t, testnetBaseURL, testnet.BaseURL)

	live := c.client(exchange.Account{UserID: "bob", APIKey: "k", APISecret: "s"})
	assert.NotEqual(t, testnetBaseURL, live.BaseURL,
		"a live account must not inherit another account's testnet endpoint")
}

func TestClient_CachesPerAccount(t *testing.T) {
	c := NewClient(5)
	account := exchange.Account{UserID: "alice", APIKey: "k", APISecret: "s", Testnet: true}

	first := c.client(account)
	second := c.client(account)
	assert.Same(t, first, second)

	other := c.client(exchange.Account{UserID: "bob", APIKey: "k2", APISecret: "s2"})
	assert.NotSame(t, first, other)
}

func TestFloatParser(t *testing.T) {
	p := &floatParser{}
	assert.Equal(t, 1.5, p.parse("1.5"))
	assert.Equal(t, -2.0, p.parse("-2"))
	require.NoError(t, p.err)

	assert.Equal(t, 0.0, p.parse("not-a-number"))
	require.Error(t, p.err)
	first := p.err

	// Later fields still convert, and the first failure is the one reported.
	assert.Equal(t, 3.0, p.parse("3"))
	assert.Equal(t, 0.0, p.parse("also-bad"))
	assert.Same(t, first, p.err)
	assert.Contains(t, p.err.Error(), "not-a-number")
}

func TestFillPrice(t *testing.T) {
	assert.Equal(t, 100.25, fillPrice("100.25"))
	// A placed order must not fail on a malformed fill price.
	assert.Equal(t, 0.0, fillPrice(""))
	assert.Equal(t, 0.0, fillPrice("garbage"))
}
