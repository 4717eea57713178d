package server

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/purefi/playground-sdk-go/services/payload"
)

// eventBatch 单个事件对象或事件数组
type eventBatch []payload.EventEnvelope

func (b *eventBatch) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []payload.EventEnvelope
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*b = list
		return nil
	}
	var one payload.EventEnvelope
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*b = eventBatch{one}
	return nil
}

// applyEvents 按顺序应用事件，遇到第一个错误即停止（之前的事件已生效）
func (s *Server) applyEvents(id string, batch eventBatch) (payload.Session, error) {
	if len(batch) == 0 {
		return payload.Session{}, fmt.Errorf("event is required")
	}
	var session payload.Session
	for i, env := range batch {
		event, err := env.Event()
		if err != nil {
			return session, fmt.Errorf("event %d: %w", i, err)
		}
		if session, err = s.store.Apply(id, event); err != nil {
			return session, err
		}
		s.stats.RecordEvent()
		if cw, ok := event.(payload.ConnectWallet); ok {
			s.stats.RecordWallet(cw.Address, cw.ChainID)
		}
	}
	return session, nil
}
