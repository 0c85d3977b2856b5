/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package common

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// ProgressCallbackFunc is a function type for progress reporting
type ProgressCallbackFunc func(bytesTransferred int64, totalBytes int64)

// NoOpProgressCallback is a no-op progress callback for when progress tracking is not needed
func NoOpProgressCallback(bytesTransferred int64, totalBytes int64) {}

// ProgressReader reports the bytes read from an object body
type ProgressReader struct {
	reader   io.Reader
	total    int64
	read     atomic.Int64
	callback ProgressCallbackFunc
}

// NewProgressReader wraps r; total may be -1 when the size is unknown
func NewProgressReader(r io.Reader, total int64, callback ProgressCallbackFunc) *ProgressReader {
	if callback == nil {
		callback = NoOpProgressCallback
	}
	return &ProgressReader{reader: r, total: total, callback: callback}
}

// Read implements io.Reader
func (p *ProgressReader) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)
	if n > 0 {
		p.callback(p.read.Add(int64(n)), p.total)
	}
	return n, err
}

// BytesRead returns the number of bytes read so far
func (p *ProgressReader) BytesRead() int64 {
	return p.read.Load()
}

// WrapTransferError wraps an object transfer error with the bucket and key
func WrapTransferError(operation, bucket, key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s %s/%s failed: %w", operation, bucket, key, err)
}

// Rewinder hands the same upload body to successive attempts of a retried
// call. Bodies that cannot seek are only sent once.
type Rewinder struct {
	body  io.Reader
	start int64
	sent  bool
}

// NewRewinder records the current offset of body when it is an io.Seeker
func NewRewinder(body io.Reader) *Rewinder {
	r := &Rewinder{body: body}
	if s, ok := body.(io.Seeker); ok {
		if off, err := s.Seek(0, io.SeekCurrent); err == nil {
			r.start = off
		}
	}
	return r
}

// Reader returns the body positioned for the next attempt
func (r *Rewinder) Reader() (io.Reader, error) {
	if !r.sent {
		r.sent = true
		return r.body, nil
	}
	s, ok := r.body.(io.Seeker)
	if !ok {
		return nil, contracts.NewProviderInternalError("upload body cannot be replayed after a failed attempt", nil)
	}
	if _, err := s.Seek(r.start, io.SeekStart); err != nil {
		return nil, contracts.NewProviderInternalError("rewinding upload body", err)
	}
	return r.body, nil
}
