// Package secrets holds tracker and code host credentials in memory,
// separate from the plain configuration, with reload and log masking.
package secrets

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// minRedactLen is the shortest value RedactString masks; shorter values
// would match ordinary words.
const minRedactLen = 4

// Loader returns secret values by name.
type Loader func() (map[string]string, error)

// Vault is safe for concurrent use.
type Vault struct {
	loader Loader

	mu     sync.RWMutex
	values map[string]string
	// byLength holds the maskable values, longest first, so a secret that
	// contains another is masked whole.
	byLength []string
}

// NewVault loads the initial values.
func NewVault(loader Loader) (*Vault, error) {
	v := &Vault{loader: loader}
	if err := v.load(); err != nil {
		return nil, fmt.Errorf("initial secret load: %w", err)
	}
	return v, nil
}

// Get returns the secret for key, or "".
func (v *Vault) Get(key string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.values[key]
}

// Keys returns the loaded secret names, sorted.
func (v *Vault) Keys() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	keys := make([]string, 0, len(v.values))
	for k := range v.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Redacted returns the secret masked for display: the first two characters
// and "****". Short values are fully masked and missing keys yield "".
func (v *Vault) Redacted(key string) string {
	return mask(v.Get(key))
}

// RedactString masks every known secret occurring in s.
func (v *Vault) RedactString(s string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, val := range v.byLength {
		if strings.Contains(s, val) {
			s = strings.ReplaceAll(s, val, mask(val))
		}
	}
	return s
}

// Reload swaps in freshly loaded values. On error the old values stay.
func (v *Vault) Reload() error {
	if err := v.load(); err != nil {
		return fmt.Errorf("reload secrets: %w", err)
	}
	return nil
}

func (v *Vault) load() error {
	vals, err := v.loader()
	if err != nil {
		return err
	}
	byLength := make([]string, 0, len(vals))
	for _, val := range vals {
		if len(val) >= minRedactLen {
			byLength = append(byLength, val)
		}
	}
	slices.SortFunc(byLength, func(a, b string) int { return cmp.Compare(len(b), len(a)) })

	v.mu.Lock()
	v.values, v.byLength = vals, byLength
	v.mu.Unlock()
	return nil
}

func mask(val string) string {
	switch {
	case val == "":
		return ""
	case len(val) <= minRedactLen:
		return "****"
	default:
		return val[:2] + "****"
	}
}
