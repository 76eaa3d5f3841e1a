// Package network holds the fixed set of XPR Network descriptors the wallet
// can talk to.
package network

import (
	"errors"
	"fmt"
	"strings"
)

// Name identifies a network descriptor.
type Name string

const (
	Mainnet Name = "mainnet"
	Testnet Name = "testnet"

	// Default is the network selected when nothing was persisted.
	Default = Mainnet
)

// ErrUnknownNetwork is returned for names outside the fixed descriptor set.
var ErrUnknownNetwork = errors.New("unknown network")

// Network is an immutable network descriptor. Values returned by Get are
// copies, so callers may modify them freely.
type Network struct {
	Name         Name     `json:"name"`
	ChainID      string   `json:"chainId"`
	Endpoints    []string `json:"endpoints"`
	Hyperion     string   `json:"hyperion"`
	LightAPI     string   `json:"lightApi"`
	AtomicAPI    string   `json:"atomicApi"`
	Explorer     string   `json:"explorerUrl"`
	TokenInfoURL string   `json:"tokenInfoUrl"`
	Marketplace  string   `json:"marketplaceUrl"`
}

var descriptors = map[Name]Network{
	Mainnet: {
		Name:         Mainnet,
		ChainID:      "384da888112027f0321850a169f737c33e53b388aad48b5adace4bab97f437e0",
		Endpoints:    []string{"https://proton.eoscafeblock.com"},
		Hyperion:     "https://api-xprnetwork-main.saltant.io",
		LightAPI:     "https://lightapi.eosamsterdam.net",
		AtomicAPI:    "https://aa-xprnetwork-main.saltant.io",
		Explorer:     "https://explorer.xprnetwork.org",
		TokenInfoURL: "https://api.metalx.com/v1/coins",
		Marketplace:  "https://soon.market",
	},
	Testnet: {
		Name:         Testnet,
		ChainID:      "71ee83bcf52142d61019d95f9cc5427ba6a0d7ff8accd9e2088ae2abeaf3d3dd",
		Endpoints:    []string{"https://testnet.rockerone.io"},
		Hyperion:     "https://testnet.api.protondex.com",
		LightAPI:     "https://testnet-lightapi.eosams.xeos.me",
		AtomicAPI:    "https://aa-xprnetwork-test.saltant.io",
		Explorer:     "https://testnet.explorer.xprnetwork.org",
		TokenInfoURL: "https://api-test.metalx.com/v1/coins",
		Marketplace:  "https://testnet.nfts.xprnetwork.org",
	},
}

// Names lists the known networks in a stable order.
func Names() []Name {
	return []Name{Mainnet, Testnet}
}

// Get returns the descriptor for name.
func Get(name string) (Network, error) {
	n, ok := descriptors[Name(strings.ToLower(strings.TrimSpace(name)))]
	if !ok {
		return Network{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
	n.Endpoints = append([]string(nil), n.Endpoints...)
	return n, nil
}

// Valid reports whether name is one of the known networks.
func Valid(name string) bool {
	_, err := Get(name)
	return err == nil
}

// Overrides replaces individual upstream URLs of a descriptor. Empty fields
// keep the built-in value.
type Overrides struct {
	Endpoints    []string `mapstructure:"endpoints" validate:"omitempty,dive,url"`
	Hyperion     string   `mapstructure:"hyperion" validate:"omitempty,url"`
	LightAPI     string   `mapstructure:"light_api" validate:"omitempty,url"`
	AtomicAPI    string   `mapstructure:"atomic_api" validate:"omitempty,url"`
	TokenInfoURL string   `mapstructure:"token_info_url" validate:"omitempty,url"`
}

// WithOverrides returns a copy of n with the non-empty override values applied.
func (n Network) WithOverrides(o Overrides) Network {
	if len(o.Endpoints) > 0 {
		n.Endpoints = append([]string(nil), o.Endpoints...)
	}
	if o.Hyperion != "" {
		n.Hyperion = o.Hyperion
	}
	if o.LightAPI != "" {
		n.LightAPI = o.LightAPI
	}
	if o.AtomicAPI != "" {
		n.AtomicAPI = o.AtomicAPI
	}
	if o.TokenInfoURL != "" {
		n.TokenInfoURL = o.TokenInfoURL
	}
	return n
}

// TxURL links a transaction on the block explorer.
func (n Network) TxURL(transactionID string) string {
	return fmt.Sprintf("%s/transaction/%s", strings.TrimRight(n.Explorer, "/"), transactionID)
}

// AccountURL links an account on the block explorer.
func (n Network) AccountURL(account string) string {
	return fmt.Sprintf("%s/account/%s", strings.TrimRight(n.Explorer, "/"), account)
}

// AssetURL links an NFT on the network's marketplace.
func (n Network) AssetURL(assetID string) string {
	return fmt.Sprintf("%s/asset/%s", strings.TrimRight(n.Marketplace, "/"), assetID)
}
