// Package secure keeps operator-supplied secret values encrypted in memory
// between CLI parsing and rotation dispatch.
package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// Buffer wraps memguard.Enclave so a secret value is encrypted at rest in
// memory and protected from swapping while the process prepares a rotation.
type Buffer struct {
	enclave *memguard.Enclave
	mu      sync.RWMutex
	sealed  bool
}

// NewBuffer copies data into a protected memory region. The caller should
// zero its own copy afterwards.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{enclave: memguard.NewEnclave(data)}
}

// NewBufferFromString is a convenience wrapper for flag values.
func NewBufferFromString(value string) *Buffer {
	return NewBuffer([]byte(value))
}

// Open decrypts the buffer. The caller MUST call Destroy() on the returned
// LockedBuffer when done so the plaintext is wiped.
func (b *Buffer) Open() (*memguard.LockedBuffer, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.sealed || b.enclave == nil {
		return memguard.NewBufferFromBytes([]byte{}), nil
	}
	return b.enclave.Open()
}

// String decrypts the buffer and returns the value as a string. The copy is
// no longer protected; use only at the point of dispatch.
func (b *Buffer) String() (string, error) {
	locked, err := b.Open()
	if err != nil {
		return "", err
	}
	defer locked.Destroy()
	// locked.String() aliases the protected region, which Destroy unmaps;
	// copy the bytes out so the returned string stays valid.
	return string(locked.Bytes()), nil
}

// Seal prevents further use of the buffer. Idempotent. The encrypted enclave
// is left for the garbage collector; call memguard.Purge() at process exit
// for full cleanup.
func (b *Buffer) Seal() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed {
		return
	}
	b.enclave = nil
	b.sealed = true
}
