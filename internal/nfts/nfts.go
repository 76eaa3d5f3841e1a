// Package nfts lists AtomicAssets NFTs owned by an account.
package nfts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"strconv"
	"strings"

	"github.com/matrixise/xpr-wallet/internal/indexer"
	"github.com/matrixise/xpr-wallet/internal/network"
)

const (
	// PageSize is the number of assets requested per page.
	PageSize = 20

	ipfsGateway = "https://ipfs.io/ipfs/"
)

// Collection is the collection an asset belongs to.
type Collection struct {
	CollectionName string `json:"collection_name"`
	Name           string `json:"name"`
	Img            string `json:"img"`
	Author         string `json:"author"`
}

type Schema struct {
	SchemaName string `json:"schema_name"`
}

type Template struct {
	TemplateID string `json:"template_id"`
}

// Asset is an asset as returned by the AtomicAssets API.
type Asset struct {
	AssetID       string         `json:"asset_id"`
	Collection    Collection     `json:"collection"`
	Schema        Schema         `json:"schema"`
	Template      *Template      `json:"template"`
	Name          string         `json:"name"`
	Owner         string         `json:"owner"`
	Data          map[string]any `json:"data"`
	ImmutableData map[string]any `json:"immutable_data"`
	MintedAtTime  string         `json:"minted_at_time"`
}

// Display is an asset ready to be listed.
type Display struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	CollectionName        string `json:"collectionName"`
	CollectionDisplayName string `json:"collectionDisplayName"`
	Image                 string `json:"image"`
	Video                 string `json:"video,omitempty"`
	Owner                 string `json:"owner"`
	MintedAt              string `json:"mintedAt"`
	MarketURL             string `json:"marketUrl"`
}

// Options selects a page of assets.
type Options struct {
	Limit      int
	Page       int
	Collection string
}

// Result is one page of assets. Total is the number of assets in the page;
// the assets endpoint reports no overall count.
type Result struct {
	NFTs  []Display `json:"nfts"`
	Total int       `json:"total"`
}

// MergeData merges the immutable and mutable attributes of an asset. A key
// present in mutable always wins over the same key in immutable.
func MergeData(immutable, mutable map[string]any) map[string]any {
	merged := make(map[string]any, len(immutable)+len(mutable))
	maps.Copy(merged, immutable)
	maps.Copy(merged, mutable)
	return merged
}

// ResolveMedia turns an asset media reference into a URL. IPFS hashes and
// other relative references go through the public IPFS gateway.
func ResolveMedia(path string) string {
	switch {
	case path == "":
		return ""
	case strings.HasPrefix(path, "Qm"), strings.HasPrefix(path, "bafy"):
		return ipfsGateway + path
	case strings.HasPrefix(path, "http"):
		return path
	}
	return ipfsGateway + path
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

// ToDisplay maps an asset for net.
func ToDisplay(a Asset, net network.Network) Display {
	data := MergeData(a.ImmutableData, a.Data)

	name := stringField(data, "name")
	if name == "" {
		name = a.Name
	}
	if name == "" {
		name = "#" + a.AssetID
	}

	image := stringField(data, "img")
	if image == "" {
		image = stringField(data, "image")
	}

	collectionName := a.Collection.Name
	if collectionName == "" {
		collectionName = a.Collection.CollectionName
	}

	return Display{
		ID:                    a.AssetID,
		Name:                  name,
		CollectionName:        a.Collection.CollectionName,
		CollectionDisplayName: collectionName,
		Image:                 ResolveMedia(image),
		Video:                 ResolveMedia(stringField(data, "video")),
		Owner:                 a.Owner,
		MintedAt:              a.MintedAtTime,
		MarketURL:             net.AssetURL(a.AssetID),
	}
}

var errUnsuccessful = errors.New("atomicassets api returned an error")

type assetsResponse struct {
	Success   bool    `json:"success"`
	Data      []Asset `json:"data"`
	QueryTime int64   `json:"query_time"`
}

type accountResponse struct {
	Success bool `json:"success"`
	Data    *struct {
		Collections []struct {
			Collection struct {
				CollectionName string `json:"collection_name"`
			} `json:"collection"`
			Assets string `json:"assets"`
		} `json:"collections"`
	} `json:"data"`
}

// Client queries the AtomicAssets API.
type Client struct {
	client *indexer.Client
	logger *slog.Logger
}

func NewClient(client *indexer.Client) *Client {
	return &Client{client: client, logger: slog.Default().With("component", "nfts")}
}

// FetchNFTs returns one page of assets owned by account, newest first.
// Failures are logged and produce an empty result.
func (c *Client) FetchNFTs(ctx context.Context, account string, net network.Network, opts Options) Result {
	nfts, err := c.fetchNFTs(ctx, account, net, opts)
	if err != nil {
		c.logger.Error("Failed to fetch NFTs", "network", net.Name, "account", account, "error", err)
		return Result{NFTs: []Display{}}
	}
	return Result{NFTs: nfts, Total: len(nfts)}
}

func (c *Client) fetchNFTs(ctx context.Context, account string, net network.Network, opts Options) ([]Display, error) {
	if opts.Limit <= 0 {
		opts.Limit = PageSize
	}
	if opts.Page <= 0 {
		opts.Page = 1
	}

	q := url.Values{}
	q.Set("owner", account)
	q.Set("page", strconv.Itoa(opts.Page))
	q.Set("limit", strconv.Itoa(opts.Limit))
	q.Set("order", "desc")
	q.Set("sort", "asset_id")
	if opts.Collection != "" {
		q.Set("collection_name", opts.Collection)
	}

	var resp assetsResponse
	if err := c.client.GetJSON(ctx, indexer.BuildURL(net.AtomicAPI, "/atomicassets/v1/assets", q), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch assets: %w", err)
	}
	if !resp.Success {
		return nil, errUnsuccessful
	}

	out := make([]Display, 0, len(resp.Data))
	for _, a := range resp.Data {
		out = append(out, ToDisplay(a, net))
	}
	return out, nil
}

// FetchCollections lists the collections account holds assets in. Any
// failure yields an empty list.
func (c *Client) FetchCollections(ctx context.Context, account string, net network.Network) []string {
	u := indexer.BuildURL(net.AtomicAPI, "/atomicassets/v1/accounts/"+url.PathEscape(account), nil)

	var resp accountResponse
	if err := c.client.GetJSON(ctx, u, &resp); err != nil {
		c.logger.Warn("Failed to fetch NFT collections", "network", net.Name, "account", account, "error", err)
		return []string{}
	}
	if !resp.Success || resp.Data == nil {
		return []string{}
	}

	names := make([]string, 0, len(resp.Data.Collections))
	for _, col := range resp.Data.Collections {
		names = append(names, col.Collection.CollectionName)
	}
	return names
}
