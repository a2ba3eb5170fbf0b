// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package frame provides pooled scratch buffers for bus transactions.
//
// Register writes need a short-lived buffer holding the command byte, the
// 4-byte AHB address and the payload; event stack reads need a frame-sized
// buffer on every interrupt. Pooling keeps the interrupt path allocation-free.
package frame

import "sync"

// BufferPool manages reusable byte slices for different size categories
type BufferPool struct {
	// Small buffers for command bytes and single register words (1-16 bytes)
	smallPool sync.Pool
	// Medium buffers for event stack frames (17-64 bytes)
	mediumPool sync.Pool
	// Chunk buffers for one indirect transfer plus address and command (65-261 bytes)
	chunkPool sync.Pool
}

// Size thresholds for buffer categories
const (
	SmallBufferSize  = 16
	MediumBufferSize = 64
	ChunkBufferSize  = 256 + 4 + 1
	// MaxBufferSize is the largest transfer the controller accepts in one
	// transaction. Requests above it are refused rather than allocated.
	MaxBufferSize = 8191
)

// Global buffer pool instance
var defaultPool = NewBufferPool()

func newClass(size int) sync.Pool {
	return sync.Pool{
		New: func() any {
			buf := make([]byte, size)
			return &buf
		},
	}
}

// NewBufferPool creates a new buffer pool
func NewBufferPool() *BufferPool {
	return &BufferPool{
		smallPool:  newClass(SmallBufferSize),
		mediumPool: newClass(MediumBufferSize),
		chunkPool:  newClass(ChunkBufferSize),
	}
}

func take(pool *sync.Pool, size int) []byte {
	bufPtr, ok := pool.Get().(*[]byte)
	if !ok {
		return make([]byte, size)
	}
	return (*bufPtr)[:size]
}

// GetBuffer acquires a buffer of exactly size bytes. It returns nil when size
// is negative or larger than MaxBufferSize.
// The returned buffer should be returned via PutBuffer when done
func (p *BufferPool) GetBuffer(size int) []byte {
	switch {
	case size < 0 || size > MaxBufferSize:
		return nil
	case size <= SmallBufferSize:
		return take(&p.smallPool, size)
	case size <= MediumBufferSize:
		return take(&p.mediumPool, size)
	case size <= ChunkBufferSize:
		return take(&p.chunkPool, size)
	default:
		// Oversized requests bypass the pool to avoid pinning large slices
		return make([]byte, size)
	}
}

// PutBuffer returns a buffer to the pool for reuse
// The buffer must not be used after calling this function
func (p *BufferPool) PutBuffer(buf []byte) {
	if buf == nil {
		return
	}

	full := buf[:cap(buf)]
	clear(full)

	switch cap(buf) {
	case SmallBufferSize:
		p.smallPool.Put(&full)
	case MediumBufferSize:
		p.mediumPool.Put(&full)
	case ChunkBufferSize:
		p.chunkPool.Put(&full)
	default:
		// Buffer was directly allocated (oversized), let GC handle it
	}
}

// GetBuffer acquires a buffer from the default pool
func GetBuffer(size int) []byte {
	return defaultPool.GetBuffer(size)
}

// PutBuffer returns a buffer to the default pool
func PutBuffer(buf []byte) {
	defaultPool.PutBuffer(buf)
}
