// Package dcrypt implements the key management layer used for encrypted
// mail storage: streaming symmetric cipher and HMAC contexts, PBKDF2,
// RSA and EC keypair generation and key agreement, and the textual
// "Dovecot" key serialization formats (see the dkey subpackage).
//
// All cryptographic operations go through a process-wide backend record
// so the underlying toolkit can be swapped at initialization. The
// default backend lives in the stdcrypto subpackage:
//
//	import _ "github.com/shogo82148/dcrypt/stdcrypto"
package dcrypt

import (
	"fmt"
	"sync"
)

// Mode selects the direction of a symmetric cipher context.
type Mode int

const (
	// Decrypt configures a context for decryption.
	Decrypt Mode = iota

	// Encrypt configures a context for encryption.
	Encrypt
)

func (m Mode) String() string {
	switch m {
	case Decrypt:
		return "decrypt"
	case Encrypt:
		return "encrypt"
	}
	return "(unknown)"
}

var backendMu sync.Mutex
var backends = map[string]func() Backend{}
var installed Backend
var installedName string

// RegisterBackend registers a backend constructor under name.
// It is intended to be called from the init function of
// backend implementation packages.
func RegisterBackend(name string, f func() Backend) {
	backendMu.Lock()
	defer backendMu.Unlock()
	if f == nil {
		panic("dcrypt: RegisterBackend with nil constructor")
	}
	if _, ok := backends[name]; ok {
		panic("dcrypt: RegisterBackend of already registered backend " + name)
	}
	backends[name] = f
}

// Install installs the named backend as the process-wide backend.
// Once a backend is installed, explicitly or implicitly by
// CurrentBackend, it cannot be replaced, so Install takes effect only
// when called before any cryptographic operation. Installing the same
// backend twice is a no-op.
func Install(name string) error {
	backendMu.Lock()
	defer backendMu.Unlock()
	if installed != nil {
		if installedName == name {
			return nil
		}
		return fmt.Errorf("dcrypt: backend %s is already installed", installedName)
	}
	f, ok := backends[name]
	if !ok {
		return fmt.Errorf("dcrypt: unknown backend %s", name)
	}
	installed = f()
	installedName = name
	return nil
}

// CurrentBackend returns the installed backend. If no backend has been
// installed and exactly one is registered, it is installed implicitly.
// CurrentBackend panics if no backend is available.
func CurrentBackend() Backend {
	backendMu.Lock()
	defer backendMu.Unlock()
	if installed != nil {
		return installed
	}
	if len(backends) == 1 {
		for name, f := range backends {
			installed = f()
			installedName = name
		}
		return installed
	}
	panic("dcrypt: no backend installed (import github.com/shogo82148/dcrypt/stdcrypto)")
}
