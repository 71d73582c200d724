package card

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrSealed is returned for composition after Seal.
	ErrSealed = errors.New("card registry is sealed")
	// ErrDuplicate is returned when a card name is registered twice.
	ErrDuplicate = errors.New("duplicate card name")
	// ErrNotFound is returned for unknown card names.
	ErrNotFound = errors.New("card not found")
)

// Registry is the ordered set of known cards. Registration and
// composition take the write lock and fail once the registry is sealed;
// reads may run concurrently at any time.
type Registry struct {
	mu     sync.RWMutex
	cards  []*Meta
	index  map[string]*Meta
	names  map[string]map[string]string
	sealed bool
	logger *zap.Logger
}

// NewRegistry creates an empty registry. A nil logger uses zap.L().
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.L()
	}
	return &Registry{
		index:  make(map[string]*Meta),
		names:  make(map[string]map[string]string),
		logger: logger,
	}
}

// Register appends cards in order. Nothing is registered when any name
// is already taken.
func (r *Registry) Register(cards ...*Meta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrSealed
	}
	seen := make(map[string]bool, len(cards))
	for _, c := range cards {
		if _, ok := r.index[c.Name]; ok || seen[c.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicate, c.Name)
		}
		seen[c.Name] = true
	}
	for _, c := range cards {
		r.cards = append(r.cards, c)
		r.index[c.Name] = c
		r.logger.Debug("card registered", zap.String("card", c.Name), zap.String("parent", c.Parent))
	}
	return nil
}

// Lookup returns the card with the given name.
func (r *Registry) Lookup(name string) (*Meta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.index[name]
	return c, ok
}

// Cards returns the cards in registration order.
func (r *Registry) Cards() []*Meta {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Meta, len(r.cards))
	copy(out, r.cards)
	return out
}

// Under returns the cards whose parent namespace starts with prefix
// ("action" or "trigger"), in registration order.
func (r *Registry) Under(prefix string) []*Meta {
	var out []*Meta
	for _, c := range r.Cards() {
		if c.Parent == prefix || strings.HasPrefix(c.Parent, prefix+".") {
			out = append(out, c)
		}
	}
	return out
}

// Extend applies ext to the named card.
func (r *Registry) Extend(name string, ext Extension) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrSealed
	}
	c, ok := r.index[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	c.Extend(ext)
	return nil
}

// Override applies ov to the named card. A renamed card is re-indexed.
func (r *Registry) Override(name string, ov Override) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrSealed
	}
	c, ok := r.index[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if ov.Name != nil && *ov.Name != name {
		if _, taken := r.index[*ov.Name]; taken {
			return fmt.Errorf("%w: %s", ErrDuplicate, *ov.Name)
		}
	}
	c.Override(ov)
	if c.Name != name {
		delete(r.index, name)
		r.index[c.Name] = c
	}
	return nil
}

// Seal ends the composition phase.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal was called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// AddDisplayName registers the localized names of one namespace key and
// returns itself for chaining.
type AddDisplayName func(key string, names map[string]string) AddDisplayName

// RegisterDisplayName returns a registrar for keys under namespace:
//
//	reg.RegisterDisplayName("action")("web", webNames)("debug", debugNames)
func (r *Registry) RegisterDisplayName(namespace string) AddDisplayName {
	var add AddDisplayName
	add = func(key string, names map[string]string) AddDisplayName {
		r.mu.Lock()
		r.names[namespace+"."+key] = names
		r.mu.Unlock()
		return add
	}
	return add
}

// DisplayName returns the localized name of a dotted namespace such as
// "action.web", falling back to English and then the last path segment.
func (r *Registry) DisplayName(namespace, locale string) string {
	r.mu.RLock()
	names := r.names[namespace]
	r.mu.RUnlock()
	if s, ok := names[locale]; ok {
		return s
	}
	if s, ok := names["en"]; ok {
		return s
	}
	if i := strings.LastIndex(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
