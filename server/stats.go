package server

import (
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/axiomhq/hyperloglog"

	"github.com/purefi/playground-sdk-go/utils"
)

// Stats 运行统计：计数器 + HyperLogLog 去重钱包数
type Stats struct {
	startTime time.Time

	sessions             atomic.Int64
	events               atomic.Int64
	signatures           atomic.Int64
	verifications        atomic.Int64
	verificationFailures atomic.Int64
	forbidden            atomic.Int64
	transactions         atomic.Int64

	mu         sync.Mutex
	wallets    *hyperloglog.Sketch
	chainUsers map[uint64]*hyperloglog.Sketch
	rulesByID  map[string]int64
}

// StatsSnapshot /api/stats 响应
type StatsSnapshot struct {
	UptimeSeconds        int64             `json:"uptimeSeconds"`
	Sessions             int64             `json:"sessions"`
	Events               int64             `json:"events"`
	Signatures           int64             `json:"signatures"`
	Verifications        int64             `json:"verifications"`
	VerificationFailures int64             `json:"verificationFailures"`
	Forbidden            int64             `json:"forbidden"`
	Transactions         int64             `json:"transactions"`
	UniqueWallets        uint64            `json:"uniqueWallets"`
	UniqueWalletsByChain map[string]uint64 `json:"uniqueWalletsByChain"`
	VerificationsByRule  map[string]int64  `json:"verificationsByRule"`
}

// NewStats 创建统计
func NewStats() *Stats {
	return &Stats{
		startTime:  time.Now(),
		wallets:    hyperloglog.New16(),
		chainUsers: make(map[uint64]*hyperloglog.Sketch),
		rulesByID:  make(map[string]int64),
	}
}

// RecordSession 新建会话
func (s *Stats) RecordSession() { s.sessions.Add(1) }

// RecordEvent 会话事件
func (s *Stats) RecordEvent() { s.events.Add(1) }

// RecordSignature 签名成功
func (s *Stats) RecordSignature() { s.signatures.Add(1) }

// RecordTransaction 合约交易已提交
func (s *Stats) RecordTransaction() { s.transactions.Add(1) }

// RecordWallet 记录连接的钱包（地址不区分大小写）
func (s *Stats) RecordWallet(address string, chainID uint64) {
	if address == "" {
		return
	}
	// 校验和格式统一大小写；非法地址按原样小写计数
	key := []byte(strings.ToLower(address))
	if sum, err := utils.ChecksumAddress(address); err == nil {
		key = []byte(sum)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets.Insert(key)
	if chainID == 0 {
		return
	}
	sk, ok := s.chainUsers[chainID]
	if !ok {
		sk = hyperloglog.New14()
		s.chainUsers[chainID] = sk
	}
	sk.Insert(key)
}

// RecordVerification 验证结果
func (s *Stats) RecordVerification(ruleID string, failed, forbidden bool) {
	s.verifications.Add(1)
	if failed {
		s.verificationFailures.Add(1)
	}
	if forbidden {
		s.forbidden.Add(1)
	}
	if ruleID == "" {
		return
	}
	s.mu.Lock()
	s.rulesByID[ruleID]++
	s.mu.Unlock()
}

// Snapshot 当前统计
func (s *Stats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		UptimeSeconds:        int64(time.Since(s.startTime).Seconds()),
		Sessions:             s.sessions.Load(),
		Events:               s.events.Load(),
		Signatures:           s.signatures.Load(),
		Verifications:        s.verifications.Load(),
		VerificationFailures: s.verificationFailures.Load(),
		Forbidden:            s.forbidden.Load(),
		Transactions:         s.transactions.Load(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	snap.UniqueWallets = s.wallets.Estimate()
	snap.UniqueWalletsByChain = make(map[string]uint64, len(s.chainUsers))
	for id, sk := range s.chainUsers {
		snap.UniqueWalletsByChain[strconv.FormatUint(id, 10)] = sk.Estimate()
	}
	snap.VerificationsByRule = make(map[string]int64, len(s.rulesByID))
	for id, n := range s.rulesByID {
		snap.VerificationsByRule[id] = n
	}
	return snap
}
