// Package output_storage captures the combined output of a subprocess as an
// append-only list of tagged chunks that can be replayed or followed live.
package output_storage

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/bsundman/nodle/pkg/lib"
)

var logger = lib.NewLogger("output_storage: ")

// Chunk is one write from a subprocess pipe.
type Chunk struct {
	Stream lib.Stream
	Data   []byte
}

// node is an element of the singly linked chunk list. The list starts with a
// sentinel head so readers can walk it without locks.
type node struct {
	chunk Chunk
	next  atomic.Pointer[node]
}

// OutputStorage keeps chunks in arrival order across both pipes. Appends are
// serialized by a mutex because exec.Cmd copies stdout and stderr from
// separate goroutines; reads walk the atomic next pointers without locking.
type OutputStorage struct {
	mu   sync.Mutex
	head *node // sentinel, immutable
	tail *node // guarded by mu

	size atomic.Int64

	broadcaster *Broadcaster[struct{}]
}

// New creates an empty OutputStorage.
func New() *OutputStorage {
	sentinel := &node{}
	return &OutputStorage{
		head:        sentinel,
		tail:        sentinel,
		broadcaster: NewBroadcaster[struct{}](),
	}
}

// Append stores data as-is. Callers that reuse the slice must pass a copy.
func (s *OutputStorage) Append(stream lib.Stream, data []byte) {
	if s == nil {
		return
	}
	n := &node{chunk: Chunk{Stream: stream, Data: data}}

	s.mu.Lock()
	s.tail.next.Store(n)
	s.tail = n
	s.mu.Unlock()

	s.size.Add(int64(len(data)))
	s.broadcaster.Publish(struct{}{})
}

// Stop marks the storage complete. Live subscriptions drain and close.
func (s *OutputStorage) Stop() {
	if s == nil {
		return
	}
	s.broadcaster.Stop()
}

// Writer returns an io.Writer that appends a copy of every write, tagged with
// the given stream.
func (s *OutputStorage) Writer(stream lib.Stream) io.Writer {
	return &streamWriter{storage: s, stream: stream}
}

type streamWriter struct {
	storage *OutputStorage
	stream  lib.Stream
}

func (w *streamWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	w.storage.Append(w.stream, append([]byte(nil), p...))
	return len(p), nil
}

// Subscribe replays every stored chunk and then follows new ones until Stop.
// The returned channel is closed once all chunks have been delivered.
func (s *OutputStorage) Subscribe(capacity int) <-chan Chunk {
	ch := make(chan Chunk, capacity)
	notifier, err := s.broadcaster.Subscribe()
	if err != nil {
		go s.replay(ch)
		return ch
	}
	go s.follow(notifier, ch)
	return ch
}

func (s *OutputStorage) replay(ch chan<- Chunk) {
	for cur := s.head.next.Load(); cur != nil; cur = cur.next.Load() {
		ch <- cur.chunk
	}
	close(ch)
}

func (s *OutputStorage) follow(notifier <-chan struct{}, ch chan<- Chunk) {
	prev := s.head
	for {
		if cur := prev.next.Load(); cur != nil {
			prev = cur
			ch <- cur.chunk
			continue
		}
		if _, ok := <-notifier; !ok {
			// Stopped: flush anything appended after the last wake-up.
			for cur := prev.next.Load(); cur != nil; cur = cur.next.Load() {
				ch <- cur.chunk
			}
			logger.Printf("subscription drained")
			close(ch)
			return
		}
	}
}

// ForEach iterates over stored chunks in insertion order until iter returns false.
func (s *OutputStorage) ForEach(iter func(Chunk) bool) {
	if s == nil || iter == nil {
		return
	}
	for cur := s.head.next.Load(); cur != nil; cur = cur.next.Load() {
		if !iter(cur.chunk) {
			return
		}
	}
}

// Len returns the number of bytes stored across both streams.
func (s *OutputStorage) Len() int64 {
	if s == nil {
		return 0
	}
	return s.size.Load()
}

// Bytes returns the combined output of both streams in arrival order.
func (s *OutputStorage) Bytes() []byte {
	out := make([]byte, 0, s.Len())
	s.ForEach(func(c Chunk) bool {
		out = append(out, c.Data...)
		return true
	})
	return out
}

// StreamBytes returns the output of one stream only.
func (s *OutputStorage) StreamBytes(stream lib.Stream) []byte {
	var out []byte
	s.ForEach(func(c Chunk) bool {
		if c.Stream == stream {
			out = append(out, c.Data...)
		}
		return true
	})
	return out
}

// Tail returns at most max trailing bytes of the combined output.
func (s *OutputStorage) Tail(max int) []byte {
	all := s.Bytes()
	if max <= 0 || len(all) <= max {
		return all
	}
	return all[len(all)-max:]
}

func (s *OutputStorage) String() string {
	return string(s.Bytes())
}
