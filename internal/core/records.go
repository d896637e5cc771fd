package core

import (
	"eats/pkg/domain"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// RecordDetails are the identifier and URL of a new authority record.
type RecordDetails struct {
	ID            string
	IsCompleteID  bool
	URL           string
	IsCompleteURL bool
}

// Record builds an authority record for the authority from the details.
func (d RecordDetails) Record(authorityID domain.ID) domain.AuthorityRecord {
	return domain.AuthorityRecord{
		AuthorityID:   authorityID,
		SystemID:      d.ID,
		IsCompleteID:  d.IsCompleteID,
		SystemURL:     d.URL,
		IsCompleteURL: d.IsCompleteURL,
	}
}

// RecordDetailsGenerator allocates identifiers for new authority records.
type RecordDetailsGenerator interface {
	NewRecordDetails(view domain.TransactionView, authority domain.Authority) (RecordDetails, error)
}

// PrefixScheme numbers records as Prefix followed by a zero padded counter
// of Digits digits, one past the highest identifier already using the
// prefix. The URL is the identifier followed by URLSuffix.
type PrefixScheme struct {
	Prefix      string `yaml:"prefix"`
	Digits      int    `yaml:"digits"`
	URLSuffix   string `yaml:"url_suffix"`
	CompleteURL bool   `yaml:"complete_url"`
}

// DefaultScheme yields "entity-000001", "entity-000002", ... with
// incomplete "<id>.html" URLs.
func DefaultScheme() PrefixScheme {
	return PrefixScheme{Prefix: "entity-", Digits: 6, URLSuffix: ".html"}
}

// ErrRecordScheme reports an identifier that does not fit its scheme.
var ErrRecordScheme = errors.New("authority record scheme")

func (p PrefixScheme) withDefaults() PrefixScheme {
	if p.Digits <= 0 {
		p.Digits = 6
	}
	if p.URLSuffix == "" {
		p.URLSuffix = ".html"
	}
	return p
}

// NewRecordDetails implements RecordDetailsGenerator.
func (p PrefixScheme) NewRecordDetails(view domain.TransactionView, authority domain.Authority) (RecordDetails, error) {
	p = p.withDefaults()
	last := p.Prefix + strings.Repeat("0", p.Digits)
	var existing []string
	for _, r := range domain.RecordsForAuthority(view, authority.ID) {
		if strings.HasPrefix(r.SystemID, p.Prefix) {
			existing = append(existing, r.SystemID)
			last = max(last, r.SystemID)
		}
	}
	if len(last) < p.Digits {
		return RecordDetails{}, fmt.Errorf("%w: %q is shorter than %d digits", ErrRecordScheme, last, p.Digits)
	}
	n, err := strconv.Atoi(last[len(last)-p.Digits:])
	if err != nil {
		return RecordDetails{}, fmt.Errorf("%w: %q does not end in a number: %v", ErrRecordScheme, last, err)
	}
	var id string
	for {
		n++
		id = fmt.Sprintf("%s%0*d", p.Prefix, p.Digits, n)
		if !slices.Contains(existing, id) {
			break
		}
	}
	return RecordDetails{
		ID:            id,
		IsCompleteID:  true,
		URL:           id + p.URLSuffix,
		IsCompleteURL: p.CompleteURL,
	}, nil
}

// SchemeRegistry selects a record scheme per authority name, falling back to
// Default.
type SchemeRegistry struct {
	Default RecordDetailsGenerator

	mu      sync.RWMutex
	schemes map[string]RecordDetailsGenerator
}

// NewSchemeRegistry returns a registry that uses the default scheme for
// every authority.
func NewSchemeRegistry() *SchemeRegistry {
	return &SchemeRegistry{Default: DefaultScheme(), schemes: make(map[string]RecordDetailsGenerator)}
}

// Register assigns a generator to the authority with the given name.
func (r *SchemeRegistry) Register(authorityName string, g RecordDetailsGenerator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemes[authorityName] = g
}

// NewRecordDetails implements RecordDetailsGenerator.
func (r *SchemeRegistry) NewRecordDetails(view domain.TransactionView, authority domain.Authority) (RecordDetails, error) {
	r.mu.RLock()
	g, ok := r.schemes[authority.Name]
	r.mu.RUnlock()
	if !ok {
		g = r.Default
	}
	if g == nil {
		g = DefaultScheme()
	}
	return g.NewRecordDetails(view, authority)
}

type schemesFile struct {
	Schemes map[string]PrefixScheme `yaml:"schemes"`
}

// LoadSchemes reads a YAML document of the form
//
//	schemes:
//	  "Some Authority":
//	    prefix: "sa-"
//	    digits: 4
//
// into a registry.
func LoadSchemes(r io.Reader) (*SchemeRegistry, error) {
	var file schemesFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode record schemes: %w", err)
	}
	reg := NewSchemeRegistry()
	for name, scheme := range file.Schemes {
		if scheme.Prefix == "" {
			return nil, fmt.Errorf("%w: authority %q has no prefix", ErrRecordScheme, name)
		}
		reg.Register(name, scheme)
	}
	return reg, nil
}

// LoadSchemeFile reads record schemes from a YAML file.
func LoadSchemeFile(path string) (*SchemeRegistry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open record schemes: %w", err)
	}
	defer func() { _ = f.Close() }()
	return LoadSchemes(f)
}
