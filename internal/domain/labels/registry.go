package labels

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Category groups labelled addresses
type Category string

const (
	CategoryExchange Category = "exchange"
	CategoryDeFi     Category = "defi"
)

// Label is a human readable name for a well-known address
type Label struct {
	Name     string   `mapstructure:"name"`
	Category Category `mapstructure:"category"`
}

// Registry is an immutable address -> label table. Lookups are case-insensitive.
type Registry struct {
	entries map[string]Label
}

// NewRegistry copies entries into a new registry
func NewRegistry(entries map[string]Label) *Registry {
	r := &Registry{entries: make(map[string]Label, len(entries))}
	for addr, l := range entries {
		r.entries[strings.ToLower(addr)] = l
	}
	return r
}

// Lookup returns the label for address, if known
func (r *Registry) Lookup(address string) (Label, bool) {
	if r == nil {
		return Label{}, false
	}
	l, ok := r.entries[strings.ToLower(address)]
	return l, ok
}

// IsExchange reports whether address is labelled as an exchange
func (r *Registry) IsExchange(address string) bool {
	l, ok := r.Lookup(address)
	return ok && l.Category == CategoryExchange
}

// Len returns the number of labelled addresses
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// With returns a new registry containing r's entries overlaid by extra
func (r *Registry) With(extra map[string]Label) *Registry {
	merged := make(map[string]Label, r.Len()+len(extra))
	if r != nil {
		for addr, l := range r.entries {
			merged[addr] = l
		}
	}
	for addr, l := range extra {
		merged[strings.ToLower(addr)] = l
	}
	return NewRegistry(merged)
}

type fileEntry struct {
	Address  string   `mapstructure:"address"`
	Name     string   `mapstructure:"name"`
	Category Category `mapstructure:"category"`
}

// LoadFile reads a YAML/JSON/TOML labels file and overlays it on base.
//
//	labels:
//	  - address: "0x..."
//	    name: "Some Exchange"
//	    category: exchange
func LoadFile(path string, base *Registry) (*Registry, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read labels file: %w", err)
	}

	var entries []fileEntry
	if err := v.UnmarshalKey("labels", &entries); err != nil {
		return nil, fmt.Errorf("failed to decode labels file: %w", err)
	}

	extra := make(map[string]Label, len(entries))
	for i, e := range entries {
		if e.Address == "" || e.Name == "" {
			return nil, fmt.Errorf("labels[%d]: address and name are required", i)
		}
		switch e.Category {
		case CategoryExchange, CategoryDeFi:
		default:
			return nil, fmt.Errorf("labels[%d]: unknown category %q", i, e.Category)
		}
		extra[e.Address] = Label{Name: e.Name, Category: e.Category}
	}

	return base.With(extra), nil
}
