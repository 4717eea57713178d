package client

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CallMsg eth_call / eth_estimateGas 参数
type CallMsg struct {
	From  common.Address
	To    *common.Address // nil 表示合约创建
	Data  []byte
	Value *big.Int
	Gas   uint64
}

// BlockHeader 区块头（只包含本 SDK 使用的字段）
type BlockHeader struct {
	Number    uint64
	Hash      common.Hash
	BaseFee   *big.Int // EIP-1559 之前的链为 nil
	Timestamp uint64
}

// 交易收据状态
const (
	ReceiptStatusFailed     uint64 = 0
	ReceiptStatusSuccessful uint64 = 1
)

// Receipt 交易收据
type Receipt struct {
	TxHash            common.Hash     `json:"transactionHash"`
	BlockHash         common.Hash     `json:"blockHash"`
	BlockNumber       uint64          `json:"blockNumber"`
	Status            uint64          `json:"status"`
	GasUsed           uint64          `json:"gasUsed"`
	EffectiveGasPrice *big.Int        `json:"effectiveGasPrice,omitempty"`
	ContractAddress   *common.Address `json:"contractAddress,omitempty"`
	Logs              []*Log          `json:"logs"`
}

// Succeeded 交易是否执行成功
func (r *Receipt) Succeeded() bool {
	return r != nil && r.Status == ReceiptStatusSuccessful
}

// Log 合约事件日志
type Log struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    []byte         `json:"data"`
	Index   uint64         `json:"logIndex"`
}
