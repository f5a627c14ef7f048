package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/ensgate/ensgate/core"
	"github.com/ensgate/ensgate/ports"
)

const (
	// priceURL is CoinGecko's free, keyless price endpoint
	priceURL = "https://api.coingecko.com/api/v3/simple/price?ids=ethereum&vs_currencies=usd"

	// avatarURLFormat is the public ENS metadata service, the same
	// fallback wallets use when a resolver has no avatar record
	avatarURLFormat = "https://metadata.ens.domains/mainnet/avatar/%s"

	priceCacheTTL  = 5 * time.Minute
	upstreamBudget = 5 * time.Second
)

// fallbackPrice is used when no price was ever fetched successfully
var fallbackPrice = decimal.NewFromInt(2500)

// BalanceReader is the slice of ethclient.Client the profile reader needs
type BalanceReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Reader fetches the auxiliary profile data attached to a login
// response. Every lookup fails soft: an unreachable upstream yields
// default values, never an error.
type Reader struct {
	chain BalanceReader
	http  *http.Client

	mu          sync.Mutex
	cachedPrice decimal.Decimal
	cachedAt    time.Time
}

// NewReader creates a profile reader on an existing chain client
func NewReader(chain BalanceReader) *Reader {
	return &Reader{
		chain: chain,
		http:  &http.Client{Timeout: upstreamBudget},
	}
}

var _ ports.ProfileReader = (*Reader)(nil)

// Fetch returns the profile for a signer. Balance and price lookups
// run inside the upstream budget and degrade independently.
func (r *Reader) Fetch(ctx context.Context, addr common.Address, ensName string) core.Profile {
	p := core.Profile{Balance: "0.0", BalanceUSD: "0"}

	callCtx, cancel := context.WithTimeout(ctx, upstreamBudget)
	defer cancel()

	if r.chain != nil {
		if wei, err := r.chain.BalanceAt(callCtx, addr, nil); err == nil && wei != nil {
			balance := decimal.NewFromBigInt(wei, -18)
			p.Balance = balance.String()
			p.BalanceUSD = balance.Mul(r.ethPrice(callCtx)).Round(2).String()
		}
	}

	if ensName != "" && !common.IsHexAddress(ensName) {
		p.Avatar = fmt.Sprintf(avatarURLFormat, ensName)
	}

	return p
}

// ethPrice returns the cached ETH/USD price, refreshing it when stale.
// A failed refresh keeps the last known price, or the fallback when
// there has never been one.
func (r *Reader) ethPrice(ctx context.Context) decimal.Decimal {
	r.mu.Lock()
	if !r.cachedAt.IsZero() && time.Since(r.cachedAt) < priceCacheTTL {
		price := r.cachedPrice
		r.mu.Unlock()
		return price
	}
	last := r.cachedPrice
	hasLast := !r.cachedAt.IsZero()
	r.mu.Unlock()

	price, err := r.fetchPrice(ctx)
	if err != nil {
		if hasLast {
			return last
		}
		return fallbackPrice
	}

	r.mu.Lock()
	r.cachedPrice = price
	r.cachedAt = time.Now()
	r.mu.Unlock()

	return price
}

func (r *Reader) fetchPrice(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, priceURL, nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("price feed returned %d", resp.StatusCode)
	}

	var body struct {
		Ethereum struct {
			USD float64 `json:"usd"`
		} `json:"ethereum"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, err
	}
	if body.Ethereum.USD <= 0 {
		return decimal.Zero, fmt.Errorf("price feed returned no price")
	}

	return decimal.NewFromFloat(body.Ethereum.USD), nil
}
