package assistant

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed companies.yaml
var defaultCatalog []byte

// Profile is the research data held for one company.
type Profile struct {
	Name            string   `yaml:"name" json:"-"`
	Aliases         []string `yaml:"aliases,omitempty" json:"-"`
	RecentNews      string   `yaml:"recent_news" json:"recent_news"`
	StockInfo       string   `yaml:"stock_info" json:"stock_info"`
	KeyDevelopments string   `yaml:"key_developments" json:"key_developments"`
}

// labels returns the name followed by the aliases.
func (p Profile) labels() []string {
	return append([]string{p.Name}, p.Aliases...)
}

// Directory is a read-only catalog of company profiles. It is safe for
// concurrent use.
type Directory struct {
	profiles []Profile
}

type catalogFile struct {
	Companies []Profile `yaml:"companies"`
}

// DefaultDirectory returns the built-in catalog.
func DefaultDirectory() *Directory {
	dir, err := ParseDirectory(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("assistant: built-in catalog is invalid: %v", err))
	}
	return dir
}

// LoadDirectory reads a YAML catalog from path.
func LoadDirectory(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return ReadDirectory(f)
}

// ReadDirectory reads a YAML catalog from r.
func ReadDirectory(r io.Reader) (*Directory, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseDirectory(data)
}

// ParseDirectory parses a YAML catalog.
func ParseDirectory(data []byte) (*Directory, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for i, p := range file.Companies {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("catalog entry %d has no name", i)
		}
	}
	return &Directory{profiles: file.Companies}, nil
}

// Names returns every company name in catalog order.
func (d *Directory) Names() []string {
	names := make([]string, 0, len(d.profiles))
	for _, p := range d.profiles {
		names = append(names, p.Name)
	}
	return names
}

// Lookup finds the profile for name. An exact match on a name or alias
// wins over a case-insensitive one, which wins over a partial match in
// either direction.
func (d *Directory) Lookup(name string) (Profile, bool) {
	needle := strings.TrimSpace(name)
	if needle == "" {
		return Profile{}, false
	}
	lower := strings.ToLower(needle)

	for _, p := range d.profiles {
		for _, l := range p.labels() {
			if l == needle {
				return p, true
			}
		}
	}
	for _, p := range d.profiles {
		for _, l := range p.labels() {
			if strings.ToLower(l) == lower {
				return p, true
			}
		}
	}
	for _, p := range d.profiles {
		for _, l := range p.labels() {
			ll := strings.ToLower(l)
			if strings.Contains(ll, lower) || strings.Contains(lower, ll) {
				return p, true
			}
		}
	}
	return Profile{}, false
}

// Mention returns the first catalog label (name or alias) that text
// mentions, ignoring case.
func (d *Directory) Mention(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, p := range d.profiles {
		for _, l := range p.labels() {
			if strings.Contains(lower, strings.ToLower(l)) {
				return l, true
			}
		}
	}
	return "", false
}
