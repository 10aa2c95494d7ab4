package main

import (
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// materializeProgress returns a callback that drives a progress bar on w,
// or nil when w is not a terminal.
func materializeProgress(w io.Writer) func(done, total int) {
	if !shouldColorize(w) {
		return nil
	}
	var once sync.Once
	var bar *progressbar.ProgressBar
	return func(done, total int) {
		once.Do(func() {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription("materialize"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetPredictTime(true),
				progressbar.OptionClearOnFinish(),
			)
		})
		_ = bar.Set(done)
	}
}

// fetchProgress returns a per-dataset byte progress callback for downloads,
// or nil when w is not a terminal.
func fetchProgress(w io.Writer) func(dataset string, written, total int64) {
	if !shouldColorize(w) {
		return nil
	}
	var mu sync.Mutex
	bars := map[string]*progressbar.ProgressBar{}
	return func(dataset string, written, total int64) {
		mu.Lock()
		defer mu.Unlock()
		bar, ok := bars[dataset]
		if !ok {
			bar = progressbar.NewOptions64(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription("fetch "+dataset),
				progressbar.OptionShowBytes(true),
				progressbar.OptionClearOnFinish(),
			)
			bars[dataset] = bar
		}
		_ = bar.Set64(written)
	}
}
