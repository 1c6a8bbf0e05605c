package provider

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

type Factory func(opts Options) Provider

var (
	regMu sync.RWMutex
	reg   = map[string]Factory{}
)

// Register makes a backend available under name. Backends register
// themselves from init.
func Register(name string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	reg[strings.ToLower(name)] = f
}

func New(name string, opts Options) (Provider, error) {
	regMu.RLock()
	f, ok := reg[strings.ToLower(strings.TrimSpace(name))]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownProvider, name, strings.Join(Names(), ", "))
	}
	return f(opts), nil
}

func Names() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(reg))
	for k := range reg {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
