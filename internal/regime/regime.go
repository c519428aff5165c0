// Package regime holds the corporate tax regimes a simulation can run under.
package regime

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ErrUnknownRegime is returned when a regime key is not in the catalog.
var ErrUnknownRegime = eris.New("regime: unknown regime")

// Default regime keys.
const (
	ProPymeTransitorio = "pro-pyme-transitorio"
	ProPymeGeneral     = "pro-pyme-general"
	General            = "general"
)

// Regime is a named corporate tax rate.
type Regime struct {
	Key  string          `yaml:"key" json:"key"`
	Name string          `yaml:"name" json:"name"`
	Rate decimal.Decimal `yaml:"rate" json:"rate"`
}

// Catalog is an ordered, immutable set of regimes.
type Catalog struct {
	regimes []Regime
	byKey   map[string]int
}

// Default returns the built-in catalog of the three first-category regimes.
func Default() *Catalog {
	c, _ := NewCatalog([]Regime{
		{Key: ProPymeTransitorio, Name: "Pro-Pyme Transitorio (12.5%)", Rate: decimal.RequireFromString("0.125")},
		{Key: ProPymeGeneral, Name: "Pro-Pyme General (25%)", Rate: decimal.RequireFromString("0.25")},
		{Key: General, Name: "Régimen General (27%)", Rate: decimal.RequireFromString("0.27")},
	})
	return c
}

// NewCatalog validates regimes and builds a catalog preserving their order.
func NewCatalog(regimes []Regime) (*Catalog, error) {
	if len(regimes) == 0 {
		return nil, eris.New("regime: catalog is empty")
	}

	c := &Catalog{
		regimes: make([]Regime, 0, len(regimes)),
		byKey:   make(map[string]int, len(regimes)),
	}
	for _, r := range regimes {
		r.Key = strings.TrimSpace(r.Key)
		if r.Key == "" {
			return nil, eris.New("regime: key is required")
		}
		if !r.Rate.IsPositive() || r.Rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return nil, eris.Errorf("regime: %s rate must be in (0, 1), got %s", r.Key, r.Rate)
		}
		if _, dup := c.byKey[r.Key]; dup {
			return nil, eris.Errorf("regime: duplicate key %s", r.Key)
		}
		if r.Name == "" {
			r.Name = r.Key
		}
		c.byKey[r.Key] = len(c.regimes)
		c.regimes = append(c.regimes, r)
	}
	return c, nil
}

// LoadCatalog reads a catalog from a YAML file with a top-level "regimes" list.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "regime: read catalog %s", path)
	}

	var wrapper struct {
		Regimes []Regime `yaml:"regimes"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "regime: parse catalog")
	}

	return NewCatalog(wrapper.Regimes)
}

// All returns the regimes in catalog order.
func (c *Catalog) All() []Regime {
	out := make([]Regime, len(c.regimes))
	copy(out, c.regimes)
	return out
}

// Lookup returns the regime with the given key.
func (c *Catalog) Lookup(key string) (Regime, error) {
	i, ok := c.byKey[strings.TrimSpace(key)]
	if !ok {
		return Regime{}, eris.Wrapf(ErrUnknownRegime, "key %q", key)
	}
	return c.regimes[i], nil
}

// Resolve picks the tax rate for an evaluation. An explicit rate wins over a
// regime key; with neither, fallbackKey is used. Explicit rates are returned
// as a custom regime and are not checked against the catalog, but share its
// (0, 1) bound.
func (c *Catalog) Resolve(key, rate, fallbackKey string) (Regime, error) {
	if rate = strings.TrimSpace(rate); rate != "" {
		r, err := decimal.NewFromString(rate)
		if err != nil {
			return Regime{}, eris.Wrapf(err, "regime: parse tax rate %q", rate)
		}
		if !r.IsPositive() || r.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return Regime{}, eris.Errorf("regime: tax rate must be in (0, 1), got %s", r)
		}
		return Regime{Key: "custom", Name: "Custom (" + r.Mul(decimal.NewFromInt(100)).String() + "%)", Rate: r}, nil
	}

	if strings.TrimSpace(key) == "" {
		key = fallbackKey
	}
	return c.Lookup(key)
}
