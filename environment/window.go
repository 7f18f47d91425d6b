package environment

import (
	"net/http"
	"sync"

	"github.com/apptest/simenv/lifecycle"
)

// Well-known binding names on the simulated window.
const (
	BindingDocument             = "document"
	BindingLocation             = "location"
	BindingHeaders              = "Headers"
	BindingFetch                = "fetch"
	BindingClientFetch          = "$fetch"
	BindingRegistry             = "__registry"
	BindingApp                  = "__app"
	BindingBootstrapState       = "__NUXT__"
	BindingIntersectionObserver = "IntersectionObserver"
	BindingIndexedDB            = "indexedDB"
)

// Window is the simulated global scope. Its bindings are what gets installed onto the
// target scope during setup.
type Window struct {
	lifecycle.Global
	URL      string
	Document *Document
}

// NewWindow creates a window at url with an empty document and the standard bindings of a
// browser-like scope, except for a network primitive.
func NewWindow(url string) *Window {
	w, _ := NewWindowWithScope(url, lifecycle.NewBindings())
	return w
}

// NewWindowWithScope is like NewWindow but keeps the window's bindings in scope, for
// providers that bring their own global object.
func NewWindowWithScope(url string, scope lifecycle.Global) (*Window, error) {
	w := &Window{
		Global:   scope,
		URL:      url,
		Document: NewDocument(),
	}
	for name, value := range map[string]interface{}{
		BindingDocument: w.Document,
		BindingLocation: url,
		BindingHeaders:  func() http.Header { return make(http.Header) },
	} {
		if err := w.Set(name, value); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Fetch returns the window's network primitive, if it has one.
func (w *Window) Fetch() (http.RoundTripper, bool) {
	v, ok := w.Lookup(BindingFetch)
	if !ok {
		return nil, false
	}
	rt, ok := v.(http.RoundTripper)
	return rt, ok
}

// Element is a node of the simulated document tree.
type Element struct {
	Tag      string
	ID       string
	Children []*Element
}

// Document is a minimal document tree: enough for application code to find its mount point.
type Document struct {
	Body *Element
	lock sync.Mutex
}

func NewDocument() *Document {
	return &Document{Body: &Element{Tag: "body"}}
}

func (d *Document) CreateElement(tag string) *Element {
	return &Element{Tag: tag}
}

// AppendChild adds child as the last child of parent.
func (d *Document) AppendChild(parent, child *Element) {
	d.lock.Lock()
	parent.Children = append(parent.Children, child)
	d.lock.Unlock()
}

// GetElementByID does a depth-first search of the tree under Body.
func (d *Document) GetElementByID(id string) *Element {
	d.lock.Lock()
	defer d.lock.Unlock()
	var find func(*Element) *Element
	find = func(e *Element) *Element {
		if e.ID == id {
			return e
		}
		for _, c := range e.Children {
			if found := find(c); found != nil {
				return found
			}
		}
		return nil
	}
	if d.Body == nil {
		return nil
	}
	return find(d.Body)
}

// Clear removes every element from the body.
func (d *Document) Clear() {
	d.lock.Lock()
	d.Body.Children = nil
	d.lock.Unlock()
}

// IntersectionObserver is a stub that never reports intersections.
type IntersectionObserver struct{}

func (IntersectionObserver) Observe(target *Element)   {}
func (IntersectionObserver) Unobserve(target *Element) {}
func (IntersectionObserver) Disconnect()               {}

// NewIntersectionObserver is the constructor installed on the window when the stub is enabled.
func NewIntersectionObserver() *IntersectionObserver {
	return &IntersectionObserver{}
}

// MemoryStore is an in-memory key/value store standing in for the browser's indexed storage.
type MemoryStore struct {
	values map[string][]byte
	lock   sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryStore) Put(key string, value []byte) {
	s.lock.Lock()
	s.values[key] = append([]byte(nil), value...)
	s.lock.Unlock()
}

func (s *MemoryStore) Delete(key string) {
	s.lock.Lock()
	delete(s.values, key)
	s.lock.Unlock()
}

func (s *MemoryStore) Clear() {
	s.lock.Lock()
	s.values = make(map[string][]byte)
	s.lock.Unlock()
}
