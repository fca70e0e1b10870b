package exchange

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
)

const defaultQuoteCacheSize = 256

type quoteKey struct {
	direction string
	amount    string
}

// CachedQuoter wraps an Adapter with an LRU cache for quotes. Quotes feed
// display and SafeQuoteIn only; Execute always goes to the adapter and
// clears the cache because execution moves the price.
type CachedQuoter struct {
	Adapter
	cache *lru.Cache
}

// NewCachedQuoter wraps adapter with a cache of size entries (default 256 when size <= 0).
func NewCachedQuoter(adapter Adapter, size int) (*CachedQuoter, error) {
	if size <= 0 {
		size = defaultQuoteCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create quote cache: %w", err)
	}
	return &CachedQuoter{Adapter: adapter, cache: cache}, nil
}

func (c *CachedQuoter) QuoteOut(amountIn decimal.Decimal) (decimal.Decimal, error) {
	return c.cached("out", amountIn, c.Adapter.QuoteOut)
}

func (c *CachedQuoter) QuoteIn(amountOut decimal.Decimal) (decimal.Decimal, error) {
	return c.cached("in", amountOut, c.Adapter.QuoteIn)
}

func (c *CachedQuoter) Execute(amountIn, minAmountOut decimal.Decimal, source, recipient core.Address) (decimal.Decimal, error) {
	defer c.cache.Purge()
	return c.Adapter.Execute(amountIn, minAmountOut, source, recipient)
}

// Len returns the number of cached quotes.
func (c *CachedQuoter) Len() int {
	return c.cache.Len()
}

func (c *CachedQuoter) cached(direction string, amount decimal.Decimal, quote func(decimal.Decimal) (decimal.Decimal, error)) (decimal.Decimal, error) {
	key := quoteKey{direction: direction, amount: amount.String()}
	if v, ok := c.cache.Get(key); ok {
		return v.(decimal.Decimal), nil
	}

	result, err := quote(amount)
	if err != nil {
		return decimal.Zero, err
	}
	c.cache.Add(key, result)
	return result, nil
}
