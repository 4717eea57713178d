package config

import "sort"

// Chain 支持的 EVM 链
type Chain struct {
	ID           uint64 `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	NativeSymbol string `json:"nativeSymbol" yaml:"native_symbol"`
	ExplorerURL  string `json:"explorerUrl" yaml:"explorer_url"`
}

// DefaultChainID 钱包未连接或链不受支持时使用的链
const DefaultChainID uint64 = 1

var supportedChains = map[uint64]Chain{
	1:     {ID: 1, Name: "Ethereum", NativeSymbol: "ETH", ExplorerURL: "https://etherscan.io"},
	56:    {ID: 56, Name: "BNB Smart Chain", NativeSymbol: "BNB", ExplorerURL: "https://bscscan.com"},
	42161: {ID: 42161, Name: "Arbitrum One", NativeSymbol: "ETH", ExplorerURL: "https://arbiscan.io"},
	10:    {ID: 10, Name: "OP Mainnet", NativeSymbol: "ETH", ExplorerURL: "https://optimistic.etherscan.io"},
	8453:  {ID: 8453, Name: "Base", NativeSymbol: "ETH", ExplorerURL: "https://basescan.org"},
	137:   {ID: 137, Name: "Polygon", NativeSymbol: "POL", ExplorerURL: "https://polygonscan.com"},
}

// SupportedChains 按链 ID 排序
func SupportedChains() []Chain {
	out := make([]Chain, 0, len(supportedChains))
	for _, c := range supportedChains {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ChainByID 查找链
func ChainByID(id uint64) (Chain, bool) {
	c, ok := supportedChains[id]
	return c, ok
}

// IsChainSupported 0 视为未连接
func IsChainSupported(id uint64) bool {
	_, ok := supportedChains[id]
	return ok
}

// TransactionLink 区块浏览器交易链接；未知链返回哈希本身
func TransactionLink(hash string, chainID uint64) string {
	c, ok := supportedChains[chainID]
	if !ok || c.ExplorerURL == "" {
		return hash
	}
	return c.ExplorerURL + "/tx/" + hash
}
