// Package lifecycle installs a set of named bindings onto a global scope and reverses the
// installation on teardown.
package lifecycle

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrAlreadyTornDown is returned by a second call to Snapshot.Teardown.
var ErrAlreadyTornDown = errors.New("lifecycle: teardown already ran")

// Global is a mutable, string-keyed scope of bindings, such as the simulated window or the
// scope that test code sees.
type Global interface {
	Lookup(name string) (interface{}, bool)
	Set(name string, value interface{}) error
	Delete(name string) error
	Names() []string
}

// Bindings is a map-backed Global. It is safe for concurrent use.
type Bindings struct {
	values map[string]interface{}
	lock   sync.RWMutex
}

func NewBindings() *Bindings {
	return &Bindings{values: make(map[string]interface{})}
}

func (b *Bindings) Lookup(name string) (interface{}, bool) {
	b.lock.RLock()
	defer b.lock.RUnlock()
	v, ok := b.values[name]
	return v, ok
}

func (b *Bindings) Set(name string, value interface{}) error {
	b.lock.Lock()
	b.values[name] = value
	b.lock.Unlock()
	return nil
}

func (b *Bindings) Delete(name string) error {
	b.lock.Lock()
	delete(b.values, name)
	b.lock.Unlock()
	return nil
}

// Names returns the binding names in sorted order.
func (b *Bindings) Names() []string {
	b.lock.RLock()
	ret := make([]string, 0, len(b.values))
	for k := range b.values {
		ret = append(ret, k)
	}
	b.lock.RUnlock()
	sort.Strings(ret)
	return ret
}

// Snapshot records what Install changed on its target. Only the Snapshot itself should use
// Keys and Originals to modify the target.
type Snapshot struct {
	// Keys are the names that did not exist on the target before Install.
	Keys []string
	// Originals holds the prior value of every name that Install overwrote.
	Originals map[string]interface{}

	torndown bool
	lock     sync.Mutex
}

// Install copies every binding of source onto target. If setting a binding fails, the
// bindings installed so far are reverted and the error is returned.
func Install(target Global, source Global) (*Snapshot, error) {
	s := &Snapshot{Originals: make(map[string]interface{})}
	for _, name := range source.Names() {
		value, ok := source.Lookup(name)
		if !ok {
			continue
		}
		prior, existed := target.Lookup(name)
		if err := target.Set(name, value); err != nil {
			revertErr := s.restore(target)
			return nil, errors.Join(fmt.Errorf("cannot install binding %q: %w", name, err), revertErr)
		}
		if existed {
			s.Originals[name] = prior
		} else {
			s.Keys = append(s.Keys, name)
		}
	}
	sort.Strings(s.Keys)
	return s, nil
}

// Teardown runs providerTeardown (if not nil), then deletes every binding that Install
// added, then restores every binding that Install overwrote. It keeps going after a failure
// and returns every fault it saw.
func (s *Snapshot) Teardown(target Global, providerTeardown func() error) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.torndown {
		return ErrAlreadyTornDown
	}
	s.torndown = true

	var errs []error
	if providerTeardown != nil {
		if err := providerTeardown(); err != nil {
			errs = append(errs, fmt.Errorf("provider teardown: %w", err))
		}
	}
	if err := s.restore(target); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Snapshot) restore(target Global) error {
	var errs []error
	for _, name := range s.Keys {
		if err := target.Delete(name); err != nil {
			errs = append(errs, fmt.Errorf("cannot delete binding %q: %w", name, err))
		}
	}
	names := make([]string, 0, len(s.Originals))
	for name := range s.Originals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := target.Set(name, s.Originals[name]); err != nil {
			errs = append(errs, fmt.Errorf("cannot restore binding %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
