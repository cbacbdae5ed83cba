// Package brokers generates people-search URLs on data-broker sites for a
// subject, driven by a YAML catalog.
package brokers

import (
	_ "embed"
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/profile-cli/internal/model"
)

// Source is stamped on every generated listing.
const Source = "broker_generator"

//go:embed catalog.yaml
var defaultCatalog []byte

// Broker is one catalog entry.
type Broker struct {
	Name      string `yaml:"name"`
	SearchURL string `yaml:"search_url"`
}

// Catalog is a set of brokers.
type Catalog struct {
	Brokers []Broker `yaml:"brokers"`
}

// Query identifies the subject to search for.
type Query struct {
	FullName string
	City     string
	State    string
}

// Parse decodes a catalog and validates every entry.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "brokers: parse catalog")
	}
	for i, b := range c.Brokers {
		if strings.TrimSpace(b.Name) == "" || strings.TrimSpace(b.SearchURL) == "" {
			return nil, eris.Errorf("brokers: entry %d missing name or search_url", i)
		}
	}
	return &c, nil
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads a catalog file, or returns the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "brokers: read catalog %s", path)
	}
	return Parse(data)
}

// Generate builds one pending listing per broker. It returns nil when the
// query lacks a first and last name or a state.
func (c *Catalog) Generate(q Query) []model.BrokerListing {
	words := strings.Fields(q.FullName)
	if len(words) < 2 || strings.TrimSpace(q.State) == "" {
		return nil
	}

	state := strings.TrimSpace(q.State)
	r := strings.NewReplacer(
		"{first}", slug(words[0]),
		"{last}", slug(words[len(words)-1]),
		"{full}", strings.Join(slugWords(words), "%20"),
		"{city}", slug(q.City),
		"{state}", slug(StateCode(state)),
		"{state_name}", slug(StateName(state)),
	)

	out := make([]model.BrokerListing, 0, len(c.Brokers))
	for _, b := range c.Brokers {
		out = append(out, model.BrokerListing{
			Broker: b.Name,
			URL:    r.Replace(b.SearchURL),
			Status: model.BrokerPendingCheck,
			Source: Source,
		})
	}
	return out
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-"), "-")
}

func slugWords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if s := slug(w); s != "" {
			out = append(out, s)
		}
	}
	return out
}
