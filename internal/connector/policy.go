package connector

// DefaultBookLimit is the book depth requested from venues with no override.
const DefaultBookLimit = 50

// Policy holds per-exchange capture settings.
type Policy struct {
	// DepthLimit is the number of levels per side requested for books.
	DepthLimit int

	// Params are extra query parameters passed with book requests.
	Params map[string]string

	// RepeatsLastPage marks venues that answer a trades request past the end
	// of their data with the same page again instead of an empty one.
	RepeatsLastPage bool
}

// policies overrides DefaultPolicy per exchange id.
var policies = map[string]Policy{
	"kucoin":   {DepthLimit: 100},
	"fcoin":    {DepthLimit: 150},
	"fcoinjp":  {DepthLimit: 150},
	"bitfinex": {DepthLimit: DefaultBookLimit, Params: map[string]string{"precision": "R0"}},
	"kraken":   {DepthLimit: DefaultBookLimit, RepeatsLastPage: true},
	"bitstamp": {DepthLimit: DefaultBookLimit, Params: map[string]string{"group": "0"}, RepeatsLastPage: true},
}

// Disabled lists exchanges excluded from wildcard selection.
// Each entry is historical breakage observed in production, not derived logic.
var Disabled = []string{
	"bitfinex2", "anxpro", "bcex", "vaultoro", "coss", "coolcoin", "btctradeim", "cobinhood",
	"coingi", "flowbtc", "stronghold", "xbtce", "stex", "zb", "rightbtc", "hitbtc2",
	"braziliex", "bitforex",
	"adara", // comparison of missing prices in book
	"tidex", // "not available"
	"liquid", // DDoS protection
}

// DefaultPolicy is used for exchanges without an override.
func DefaultPolicy() Policy {
	return Policy{DepthLimit: DefaultBookLimit}
}

// PolicyFor returns the capture policy of an exchange.
func PolicyFor(exchangeID string) Policy {
	if p, ok := policies[exchangeID]; ok {
		return p
	}
	return DefaultPolicy()
}

// IsDisabled reports whether the exchange is on the deny-list.
func IsDisabled(exchangeID string) bool {
	for _, d := range Disabled {
		if d == exchangeID {
			return true
		}
	}
	return false
}
