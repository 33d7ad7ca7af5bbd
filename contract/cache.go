package contract

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jellydator/ttlcache/v3"
	"github.com/pkg/errors"
	"github.com/shadowmint/go-token-client/entities"
)

const faucetSettingsKey = "faucet-settings"
const tokenInfoKey = "token-info"

// ReadProvider is the uncached contract read surface.
type ReadProvider interface {
	BalanceHandle(ctx context.Context, account common.Address) (entities.EncryptedHandle, error)
	TotalSupplyHandle(ctx context.Context) (entities.EncryptedHandle, error)
	Owner(ctx context.Context) (common.Address, error)
	FaucetSettings(ctx context.Context) (FaucetSettings, error)
	TimeUntilNextClaim(ctx context.Context, account common.Address) (uint64, error)
	TokenInfo(ctx context.Context) (TokenInfo, error)
}

// CachedReader is the read-through cache in front of the contract reads.
// Mutating operations invalidate the affected keys explicitly; a successful
// transfer for example invalidates the sender's balance handle so that the
// next read hits the chain.
type CachedReader struct {
	provider ReadProvider

	balanceCache  *ttlcache.Cache[string, entities.EncryptedHandle]
	balanceLock   sync.Mutex
	settingsCache *ttlcache.Cache[string, FaucetSettings]
	settingsLock  sync.Mutex
	infoCache     *ttlcache.Cache[string, TokenInfo]
	infoLock      sync.Mutex
	cooldownCache *ttlcache.Cache[string, uint64]
	cooldownLock  sync.Mutex
}

func NewCachedReader(provider ReadProvider, readTTL, cooldownTTL time.Duration) *CachedReader {
	return &CachedReader{
		provider:      provider,
		balanceCache:  ttlcache.New[string, entities.EncryptedHandle](ttlcache.WithTTL[string, entities.EncryptedHandle](readTTL)),
		settingsCache: ttlcache.New[string, FaucetSettings](ttlcache.WithTTL[string, FaucetSettings](readTTL)),
		infoCache:     ttlcache.New[string, TokenInfo](ttlcache.WithTTL[string, TokenInfo](readTTL)),
		cooldownCache: ttlcache.New[string, uint64](ttlcache.WithTTL[string, uint64](cooldownTTL)),
	}
}

func accountKey(account common.Address) string {
	return strings.ToLower(account.Hex())
}

func (c *CachedReader) BalanceHandle(ctx context.Context, account common.Address) (entities.EncryptedHandle, error) {
	c.balanceLock.Lock() // lock so that we do not get multiple threads inside the `if`
	defer c.balanceLock.Unlock()

	item := c.balanceCache.Get(accountKey(account))
	if item == nil {
		handle, err := c.provider.BalanceHandle(ctx, account)
		if err != nil {
			return entities.EncryptedHandle{}, errors.Wrap(err, "reading balance handle")
		}
		c.balanceCache.Set(accountKey(account), handle, ttlcache.DefaultTTL)
		return handle, nil
	}
	return item.Value(), nil
}

func (c *CachedReader) FaucetSettings(ctx context.Context) (FaucetSettings, error) {
	c.settingsLock.Lock()
	defer c.settingsLock.Unlock()

	item := c.settingsCache.Get(faucetSettingsKey)
	if item == nil {
		settings, err := c.provider.FaucetSettings(ctx)
		if err != nil {
			return FaucetSettings{}, errors.Wrap(err, "reading faucet settings")
		}
		c.settingsCache.Set(faucetSettingsKey, settings, ttlcache.DefaultTTL)
		return settings, nil
	}
	return item.Value(), nil
}

func (c *CachedReader) TokenInfo(ctx context.Context) (TokenInfo, error) {
	c.infoLock.Lock()
	defer c.infoLock.Unlock()

	item := c.infoCache.Get(tokenInfoKey)
	if item == nil {
		info, err := c.provider.TokenInfo(ctx)
		if err != nil {
			return TokenInfo{}, errors.Wrap(err, "reading token info")
		}
		c.infoCache.Set(tokenInfoKey, info, ttlcache.DefaultTTL)
		return info, nil
	}
	return item.Value(), nil
}

func (c *CachedReader) TimeUntilNextClaim(ctx context.Context, account common.Address) (uint64, error) {
	c.cooldownLock.Lock()
	defer c.cooldownLock.Unlock()

	item := c.cooldownCache.Get(accountKey(account))
	if item == nil {
		remaining, err := c.provider.TimeUntilNextClaim(ctx, account)
		if err != nil {
			return 0, errors.Wrap(err, "reading time until next claim")
		}
		c.cooldownCache.Set(accountKey(account), remaining, ttlcache.DefaultTTL)
		return remaining, nil
	}
	return item.Value(), nil
}

// Owner is never cached: ownership changes must be visible immediately.
func (c *CachedReader) Owner(ctx context.Context) (common.Address, error) {
	return c.provider.Owner(ctx)
}

func (c *CachedReader) TotalSupplyHandle(ctx context.Context) (entities.EncryptedHandle, error) {
	return c.provider.TotalSupplyHandle(ctx)
}

func (c *CachedReader) InvalidateBalance(account common.Address) {
	c.balanceCache.Delete(accountKey(account))
}

func (c *CachedReader) InvalidateFaucetSettings() {
	c.settingsCache.Delete(faucetSettingsKey)
}

func (c *CachedReader) InvalidateCooldown(account common.Address) {
	c.cooldownCache.Delete(accountKey(account))
}
