package utils

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// BatchConfig 批量操作配置
type BatchConfig struct {
	// BatchSize 批量大小
	BatchSize int
	// Concurrency 并发数量
	Concurrency int
	// OnProgress 进度回调函数（串行调用）
	OnProgress func(progress BatchProgress)
}

// BatchProgress 批量操作进度
type BatchProgress struct {
	// Completed 已完成数量
	Completed int
	// Total 总数量
	Total int
	// Percentage 进度百分比（0-100）
	Percentage int
	// Success 成功数量
	Success int
	// Failed 失败数量
	Failed int
}

// DefaultBatchConfig 返回默认批量配置
func DefaultBatchConfig() *BatchConfig {
	return &BatchConfig{
		BatchSize:   50,
		Concurrency: 5,
	}
}

// BatchItemResult 单个项目的结果，Index 为输入中的位置
type BatchItemResult[R any] struct {
	Index int
	Value R
	Err   error
}

// BatchQueryResult 批量查询结果
type BatchQueryResult[R any] struct {
	// Items 与输入一一对应，顺序与输入一致
	Items []BatchItemResult[R]
	// Total 总数量
	Total int
	// Success 成功数量
	Success int
	// Failed 失败数量
	Failed int
}

// Values 成功项目的值（保持输入顺序）
func (r *BatchQueryResult[R]) Values() []R {
	out := make([]R, 0, r.Success)
	for _, it := range r.Items {
		if it.Err == nil {
			out = append(out, it.Value)
		}
	}
	return out
}

// Errors 失败项目
func (r *BatchQueryResult[R]) Errors() []BatchItemResult[R] {
	var out []BatchItemResult[R]
	for _, it := range r.Items {
		if it.Err != nil {
			out = append(out, it)
		}
	}
	return out
}

// BatchQuery 批量查询
//
// 对一组输入按批次并发调用 queryFn。单个项目失败不影响其他项目；
// ctx 取消后尚未开始的项目以 ctx.Err() 失败。
//
// 示例：
//
//	res, err := BatchQuery(ctx, payloads, func(ctx context.Context, p *types.PureFIRuleV5Payload, index int) (string, error) {
//	    return issuer.VerifyRuleV5(ctx, url, p, types.SignatureTypeECDSA)
//	}, DefaultBatchConfig())
func BatchQuery[T any, R any](
	ctx context.Context,
	items []T,
	queryFn func(ctx context.Context, item T, index int) (R, error),
	config *BatchConfig,
) (*BatchQueryResult[R], error) {
	if queryFn == nil {
		return nil, fmt.Errorf("query function is nil")
	}
	cfg := DefaultBatchConfig()
	if config != nil {
		cfg.OnProgress = config.OnProgress
		if config.BatchSize > 0 {
			cfg.BatchSize = config.BatchSize
		}
		if config.Concurrency > 0 {
			cfg.Concurrency = config.Concurrency
		}
	}

	result := &BatchQueryResult[R]{
		Items: make([]BatchItemResult[R], len(items)),
		Total: len(items),
	}

	var mu sync.Mutex
	completed := 0
	record := func(idx int, value R, err error) {
		mu.Lock()
		defer mu.Unlock()
		result.Items[idx] = BatchItemResult[R]{Index: idx, Value: value, Err: err}
		if err != nil {
			result.Failed++
		} else {
			result.Success++
		}
		completed++
		if cfg.OnProgress != nil {
			cfg.OnProgress(BatchProgress{
				Completed:  completed,
				Total:      len(items),
				Percentage: completed * 100 / len(items),
				Success:    result.Success,
				Failed:     result.Failed,
			})
		}
	}

	// 分批处理
	for batchIdx, batch := range batchArray(items, cfg.BatchSize) {
		var wg sync.WaitGroup
		sem := make(chan struct{}, cfg.Concurrency)

		for i, item := range batch {
			idx := batchIdx*cfg.BatchSize + i
			if err := ctx.Err(); err != nil {
				var zero R
				record(idx, zero, err)
				continue
			}

			wg.Add(1)
			go func(idx int, item T) {
				defer wg.Done()

				sem <- struct{}{}
				defer func() { <-sem }()

				value, err := queryFn(ctx, item, idx)
				record(idx, value, err)
			}(idx, item)
		}

		wg.Wait()
	}

	return result, nil
}

// batchArray 将数组分批次处理
func batchArray[T any](array []T, batchSize int) [][]T {
	if batchSize <= 0 {
		batchSize = 1
	}
	batches := make([][]T, 0, (len(array)+batchSize-1)/batchSize)
	for i := 0; i < len(array); i += batchSize {
		end := i + batchSize
		if end > len(array) {
			end = len(array)
		}
		batches = append(batches, array[i:end])
	}
	return batches
}

// ParallelExecute 并行执行多个操作，全部成功时返回按输入顺序排列的结果
//
// 任一操作失败时返回所有失败的合并错误。
func ParallelExecute[T any, R any](
	ctx context.Context,
	items []T,
	executeFn func(ctx context.Context, item T) (R, error),
	concurrency int,
) ([]R, error) {
	if concurrency <= 0 {
		concurrency = 5
	}

	results := make([]R, len(items))
	errs := make([]error, len(items))
	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for i, item := range items {
		wg.Add(1)
		go func(index int, item T) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			result, err := executeFn(ctx, item)
			if err != nil {
				errs[index] = fmt.Errorf("item %d: %w", index, err)
				return
			}
			results[index] = result
		}(i, item)
	}

	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("parallel execute failed: %w", err)
	}
	return results, nil
}
