package pipeline

import (
	"fmt"
	"sync"
)

// Map applies apply to each element of arr and returns the results in the
// same order, implementing spec.md §4.5 "Map operation". Per the Open
// Question resolution in SPEC_FULL.md §G.1, results are ordered even though
// apply runs concurrently, one goroutine per element: each result is placed
// by index regardless of completion order. If any apply call fails, Map
// returns nil and one of the errors.
func Map(arr []interface{}, apply func(elem interface{}, index int) (interface{}, error)) ([]interface{}, error) {
	out := make([]interface{}, len(arr))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for i, el := range arr {
		i, el := i, el
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := apply(el, i)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("pipeline: map element %d: %w", i, err)
				}
				mu.Unlock()
				return
			}
			out[i] = v
		}()
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
