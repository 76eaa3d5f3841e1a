package tokens

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed known_tokens.yaml
var knownTokensYAML []byte

type knownToken struct {
	Name        string `yaml:"name"`
	Symbol      string `yaml:"symbol"`
	Contract    string `yaml:"contract"`
	Precision   int    `yaml:"precision"`
	Logo        string `yaml:"logo"`
	Price       string `yaml:"price"`
	CoingeckoID string `yaml:"coingecko_id"`
}

var loadKnown = sync.OnceValues(func() ([]Metadata, error) {
	var doc struct {
		Tokens []knownToken `yaml:"tokens"`
	}
	if err := yaml.Unmarshal(knownTokensYAML, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse known tokens: %w", err)
	}

	out := make([]Metadata, 0, len(doc.Tokens))
	for _, kt := range doc.Tokens {
		price := decimal.Zero
		if kt.Price != "" {
			p, err := decimal.NewFromString(kt.Price)
			if err != nil {
				return nil, fmt.Errorf("invalid price for %s: %w", kt.Symbol, err)
			}
			price = p
		}
		out = append(out, Metadata{
			Name:        kt.Name,
			Symbol:      kt.Symbol,
			Contract:    kt.Contract,
			Precision:   kt.Precision,
			Logo:        kt.Logo,
			Price:       price,
			CoingeckoID: kt.CoingeckoID,
		})
	}
	return out, nil
})

// Known returns a fresh copy of the built-in token list.
func Known() []Metadata {
	known, err := loadKnown()
	if err != nil {
		panic(err)
	}
	return append([]Metadata(nil), known...)
}

// KnownContracts lists the distinct token contracts of the built-in list in
// first-seen order.
func KnownContracts() []string {
	seen := make(map[string]bool)
	var contracts []string
	for _, t := range Known() {
		if seen[t.Contract] {
			continue
		}
		seen[t.Contract] = true
		contracts = append(contracts, t.Contract)
	}
	return contracts
}
