// Package settings provides the economy configuration: embedded YAML defaults,
// an optional YAML file on top and admin overrides stored in the database.
package settings

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fastprodman/fortunefloor/internal/repos/settings"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Provider struct {
	store  settings.Settings
	layers [][]byte
	ttl    time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	cur      *Economy
	loadedAt time.Time
}

// NewProvider builds a provider from the embedded defaults, overlaid with the YAML
// file at path when path is set and the file exists. A nil store disables overrides.
func NewProvider(store settings.Settings, path string, ttl time.Duration) (*Provider, error) {
	layers := [][]byte{defaultsYAML}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read settings file: %w", err)
		}

		if len(bytes.TrimSpace(data)) > 0 {
			layers = append(layers, data)
		}
	}

	econ, err := parse(layers...)
	if err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}

	return &Provider{
		store:  store,
		layers: layers,
		ttl:    ttl,
		now:    time.Now,
		cur:    econ,
	}, nil
}

// Defaults returns the embedded economy without any overrides.
func Defaults() *Economy {
	econ, err := parse(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded settings are invalid: %v", err))
	}

	return econ
}

// Economy returns the current settings, reloading them once they are older than ttl.
// A failed reload is logged and the previous values stay in use.
func (p *Provider) Economy(ctx context.Context) *Economy {
	p.mu.RLock()
	cur, loadedAt := p.cur, p.loadedAt
	p.mu.RUnlock()

	if !loadedAt.IsZero() && p.now().Sub(loadedAt) < p.ttl {
		return cur
	}

	err := p.Refresh(ctx)
	if err != nil {
		slog.Warn("settings refresh failed, serving cached settings", "error", err)

		p.mu.Lock()
		p.loadedAt = p.now()
		p.mu.Unlock()

		return cur
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.cur
}

// Refresh rebuilds the economy from the base YAML and the stored overrides.
func (p *Provider) Refresh(ctx context.Context) error {
	econ, err := parse(p.layers...)
	if err != nil {
		return fmt.Errorf("parse base settings: %w", err)
	}

	if p.store != nil {
		rows, err := p.store.List(ctx)
		if err != nil {
			return fmt.Errorf("list overrides: %w", err)
		}

		for _, o := range rows {
			err = applyOverride(econ, o)
			if err != nil {
				return fmt.Errorf("override %q: %w", o.Key, err)
			}
		}

		err = econ.Validate()
		if err != nil {
			return err
		}
	}

	p.mu.Lock()
	p.cur = econ
	p.loadedAt = p.now()
	p.mu.Unlock()

	return nil
}

// Invalidate forces the next read to reload. Call it after settings are edited.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.loadedAt = time.Time{}
	p.mu.Unlock()
}

// parse decodes each layer on top of the previous ones.
func parse(layers ...[]byte) (*Economy, error) {
	econ := new(Economy)

	for i, data := range layers {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)

		err := dec.Decode(econ)
		if err != nil {
			return nil, fmt.Errorf("decode yaml layer %d: %w", i, err)
		}
	}

	err := econ.Validate()
	if err != nil {
		return nil, err
	}

	return econ, nil
}

// applyOverride decodes o.Value as the value of the top-level key o.Key.
func applyOverride(econ *Economy, o settings.Override) error {
	var value yaml.Node

	err := yaml.Unmarshal([]byte(o.Value), &value)
	if err != nil {
		return fmt.Errorf("decode value: %w", err)
	}

	if value.Kind != yaml.DocumentNode || len(value.Content) == 0 {
		return errors.New("empty value")
	}

	doc := &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: o.Key},
			value.Content[0],
		},
	}

	err = doc.Decode(econ)
	if err != nil {
		return fmt.Errorf("decode into economy: %w", err)
	}

	return nil
}
