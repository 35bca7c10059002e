// Package parallel contains the bounded parallel loops used by layers and data loaders.
package parallel

import "sync"

// ForEach executes body for every integer in [0, length) using at most
// limit concurrent goroutines.
func ForEach(length, limit int, body func(i int)) {
	_ = ForEachErr(length, limit, func(i int) error {
		body(i)
		return nil
	})
}

// ForEachErr is ForEach with a failing body. Iterations not yet started when
// the first error occurs are skipped, and that first error is returned.
func ForEachErr(length, limit int, body func(i int) error) error {
	if length <= 0 {
		return nil
	}
	if limit <= 0 {
		limit = 1
	}
	if limit == 1 || length == 1 {
		for i := 0; i < length; i++ {
			if err := body(i); err != nil {
				return err
			}
		}
		return nil
	}

	var (
		sem   = make(chan struct{}, limit)
		wg    sync.WaitGroup
		once  sync.Once
		mut   sync.Mutex
		first error
	)
	failed := func() bool {
		mut.Lock()
		defer mut.Unlock()
		return first != nil
	}

	for i := 0; i < length; i++ {
		sem <- struct{}{}
		if failed() {
			<-sem
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := body(i); err != nil {
				once.Do(func() {
					mut.Lock()
					first = err
					mut.Unlock()
				})
			}
		}(i)
	}

	wg.Wait()
	return first
}
