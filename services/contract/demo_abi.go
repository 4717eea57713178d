package contract

import (
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// PureFiDemoContractABI PureFi 演示合约（ERC-4626 风格金库，每次调用附带 _purefidata）
const PureFiDemoContractABI = `[
  {
    "type": "function",
    "name": "deposit",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "assets", "type": "uint256"},
      {"name": "receiver", "type": "address"},
      {"name": "_purefidata", "type": "bytes"}
    ],
    "outputs": [{"name": "shares", "type": "uint256"}]
  },
  {
    "type": "function",
    "name": "withdraw",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "shares", "type": "uint256"},
      {"name": "receiver", "type": "address"},
      {"name": "owner", "type": "address"},
      {"name": "_purefidata", "type": "bytes"}
    ],
    "outputs": [{"name": "shares", "type": "uint256"}]
  },
  {
    "type": "function",
    "name": "whitelist",
    "stateMutability": "nonpayable",
    "inputs": [{"name": "_purefidata", "type": "bytes"}],
    "outputs": [{"name": "succeed", "type": "bool"}]
  }
]`

var demoABI = sync.OnceValues(func() (*abi.ABI, error) {
	return ParseABI(PureFiDemoContractABI)
})

// DemoABI 解析后的演示合约 ABI
func DemoABI() *abi.ABI {
	parsed, err := demoABI()
	if err != nil {
		panic("contract: invalid demo abi: " + err.Error())
	}
	return parsed
}
