// Package assets holds the static lookup tables for supported crypto
// assets and forex currencies, plus the entity-resolution primitives
// built on them. The alias map intentionally prefers well known assets
// to avoid matching obscure tokens.
package assets

import (
	"sort"
	"strings"
)

var cryptoAliases = map[string]string{
	// Major cryptocurrencies
	"BTC":              "bitcoin",
	"BITCOIN":          "bitcoin",
	"XBT":              "bitcoin",
	"ETH":              "ethereum",
	"ETHEREUM":         "ethereum",
	"XRP":              "ripple",
	"RIPPLE":           "ripple",
	"LTC":              "litecoin",
	"LITECOIN":         "litecoin",
	"BCH":              "bitcoin-cash",
	"BITCOIN CASH":     "bitcoin-cash",
	"SOL":              "solana",
	"SOLANA":           "solana",
	"ADA":              "cardano",
	"CARDANO":          "cardano",
	"DOT":              "polkadot",
	"POLKADOT":         "polkadot",
	"DOGE":             "dogecoin",
	"DOGECOIN":         "dogecoin",
	"MATIC":            "matic-network",
	"POLYGON":          "matic-network",
	"AVAX":             "avalanche-2",
	"AVALANCHE":        "avalanche-2",
	"LINK":             "chainlink",
	"CHAINLINK":        "chainlink",
	"UNI":              "uniswap",
	"UNISWAP":          "uniswap",
	"ATOM":             "cosmos",
	"COSMOS":           "cosmos",
	"BNB":              "binancecoin",
	"BINANCE COIN":     "binancecoin",
	"USDT":             "tether",
	"TETHER":           "tether",
	"USDC":             "usd-coin",
	"TRX":              "tron",
	"TRON":             "tron",
	"TON":              "the-open-network",
	"XLM":              "stellar",
	"STELLAR":          "stellar",
	"SHIB":             "shiba-inu",
	"SHIBA INU":        "shiba-inu",
	"APT":              "aptos",
	"APTOS":            "aptos",
	"ARB":              "arbitrum",
	"ARBITRUM":         "arbitrum",
	"OP":               "optimism",
	"OPTIMISM":         "optimism",
	"INJ":              "injective-protocol",
	"INJECTIVE":        "injective-protocol",
	"SUI":              "sui",
	"NEAR":             "near",
	"FET":              "fetch-ai",
	"FETCH":            "fetch-ai",
	"PEPE":             "pepe",
	"WIF":              "dogwifcoin",
	"DOGWIFCOIN":       "dogwifcoin",
	"BONK":             "bonk",
	"FTM":              "fantom",
	"FANTOM":           "fantom",
	"ALGO":             "algorand",
	"ALGORAND":         "algorand",
	"VET":              "vechain",
	"VECHAIN":          "vechain",
	"ICP":              "internet-computer",
	"INTERNET COMPUTER": "internet-computer",
	"FIL":              "filecoin",
	"FILECOIN":         "filecoin",
	"HBAR":             "hedera-hashgraph",
	"HEDERA":           "hedera-hashgraph",
	"APE":              "apecoin",
	"APECOIN":          "apecoin",
	"SAND":             "the-sandbox",
	"THE SANDBOX":      "the-sandbox",
	"MANA":             "decentraland",
	"DECENTRALAND":     "decentraland",
	"AXS":              "axie-infinity",
	"AXIE":             "axie-infinity",
	"THETA":            "theta-token",
	"XTZ":              "tezos",
	"TEZOS":            "tezos",
	"EOS":              "eos",
	"AAVE":             "aave",
	"MKR":              "maker",
	"MAKER":            "maker",
	"GRT":              "the-graph",
	"THE GRAPH":        "the-graph",
	"SNX":              "synthetix-network-token",
	"SYNTHETIX":        "synthetix-network-token",
	"CRV":              "curve-dao-token",
	"CURVE":            "curve-dao-token",
	"LDO":              "lido-dao",
	"LIDO":             "lido-dao",
	"QNT":              "quant-network",
	"QUANT":            "quant-network",
	"STX":              "blockstack",
	"STACKS":           "blockstack",
	"IMX":              "immutable-x",
	"IMMUTABLE":        "immutable-x",
	"RUNE":             "thorchain",
	"THORCHAIN":        "thorchain",
	"KAVA":             "kava",
	"ZEC":              "zcash",
	"ZCASH":            "zcash",
	"DASH":             "dash",
	"XMR":              "monero",
	"MONERO":           "monero",
	"ETC":              "ethereum-classic",
	"ETHEREUM CLASSIC": "ethereum-classic",
	"GALA":             "gala",
	"GALA GAMES":       "gala",
}

// prioritySymbols always win alias conflicts and must resolve O(1)
// without ever touching the slow LLM path.
var prioritySymbols = map[string]struct{}{
	"BTC": {}, "ETH": {}, "XRP": {}, "LTC": {}, "BCH": {},
	"SOL": {}, "ADA": {}, "DOT": {}, "DOGE": {}, "MATIC": {},
	"AVAX": {}, "LINK": {}, "UNI": {}, "ATOM": {}, "BNB": {},
	"USDT": {}, "USDC": {}, "TRX": {}, "TON": {}, "XLM": {},
	"SHIB": {}, "APT": {}, "ARB": {}, "OP": {}, "INJ": {},
	"SUI": {}, "NEAR": {}, "FET": {}, "PEPE": {}, "FTM": {},
}

// fallbackCoins is the small curated dictionary of the most common
// coins, matched by name substring when the alias table misses.
var fallbackCoins = map[string]string{
	"bitcoin":      "bitcoin",
	"ethereum":     "ethereum",
	"litecoin":     "litecoin",
	"ripple":       "ripple",
	"dogecoin":     "dogecoin",
	"cardano":      "cardano",
	"polkadot":     "polkadot",
	"solana":       "solana",
	"polygon":      "matic-network",
	"chainlink":    "chainlink",
	"avalanche":    "avalanche-2",
	"uniswap":      "uniswap",
	"cosmos":       "cosmos",
	"binance coin": "binancecoin",
	"bnb":          "binancecoin",
	"tether":       "tether",
	"usdc":         "usd-coin",
}

// stopWords are common English function and command words that must
// never be mistaken for tickers even when uppercase.
var stopWords = map[string]struct{}{
	"THE": {}, "IS": {}, "ARE": {}, "AND": {}, "OR": {}, "FOR": {},
	"OF": {}, "TO": {}, "IN": {}, "ON": {}, "AT": {}, "AN": {},
	"IT": {}, "MY": {}, "ME": {}, "WE": {}, "BE": {}, "BY": {},
	"DO": {}, "CAN": {}, "YOU": {}, "WHAT": {}, "HOW": {}, "WILL": {},
	"THIS": {}, "THAT": {}, "WITH": {}, "ABOUT": {}, "PLEASE": {},
	"SHOW": {}, "GET": {}, "TELL": {}, "CHECK": {}, "GIVE": {},
	"PRICE": {}, "RATE": {}, "NEWS": {}, "MARKET": {}, "TODAY": {},
	"NOW": {}, "LATEST": {}, "CURRENT": {}, "ANALYSIS": {},
	"ANALYZE": {}, "UPDATE": {},
}

// knownCurrencyCodes are the fiat codes accepted when parsing forex pairs.
var knownCurrencyCodes = map[string]struct{}{
	"USD": {}, "EUR": {}, "GBP": {}, "JPY": {}, "AUD": {}, "CAD": {},
	"CHF": {}, "NZD": {}, "CNY": {}, "SEK": {}, "NOK": {}, "DKK": {},
	"SGD": {}, "HKD": {}, "KRW": {}, "INR": {}, "MXN": {}, "ZAR": {},
	"TRY": {}, "BRL": {}, "RUB": {}, "PLN": {}, "THB": {}, "MYR": {},
}

// LookupAlias resolves a single alias to its canonical coin id.
// Case-insensitive, O(1).
func LookupAlias(token string) (string, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	id, ok := cryptoAliases[strings.ToUpper(token)]
	return id, ok
}

// IsPrioritySymbol reports whether the token is one of the major
// tickers that always win conflicts.
func IsPrioritySymbol(token string) bool {
	_, ok := prioritySymbols[strings.ToUpper(token)]
	return ok
}

// IsStopWord reports whether the token is a function word that must
// not resolve as a ticker.
func IsStopWord(token string) bool {
	_, ok := stopWords[strings.ToUpper(token)]
	return ok
}

// IsCurrencyCode reports whether code is a known fiat currency code.
func IsCurrencyCode(code string) bool {
	_, ok := knownCurrencyCodes[strings.ToUpper(code)]
	return ok
}

// CoinMeta describes a supported coin.
type CoinMeta struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// SupportedCoins returns metadata for every coin in the alias table,
// sorted by symbol. Used by the agent manifest endpoint.
func SupportedCoins() []CoinMeta {
	bySlug := make(map[string][]string)
	for alias, id := range cryptoAliases {
		bySlug[id] = append(bySlug[id], alias)
	}
	out := make([]CoinMeta, 0, len(bySlug))
	for id, aliases := range bySlug {
		out = append(out, CoinMeta{
			ID:     id,
			Symbol: pickSymbol(aliases),
			Name:   pickName(id, aliases),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func pickSymbol(aliases []string) string {
	best := ""
	for _, a := range aliases {
		if strings.Contains(a, " ") || len(a) > 5 {
			continue
		}
		if best == "" || len(a) < len(best) || (len(a) == len(best) && a < best) {
			best = a
		}
	}
	if best != "" {
		return best
	}
	shortest := aliases[0]
	for _, a := range aliases[1:] {
		if len(a) < len(shortest) {
			shortest = a
		}
	}
	shortest = strings.ReplaceAll(shortest, " ", "")
	if len(shortest) > 5 {
		shortest = shortest[:5]
	}
	return shortest
}

func pickName(id string, aliases []string) string {
	for _, a := range aliases {
		if strings.Contains(a, " ") {
			return titleCase(strings.ToLower(a))
		}
	}
	return titleCase(strings.ReplaceAll(id, "-", " "))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

