// Package registry holds the set of known organization names collected from
// type "1" records during the first pass over the input.
//
// A Registry is built once by a single goroutine and never mutated afterwards,
// so any number of matcher goroutines may read it without locking.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ginjaninja78/irs527-splitter/internal/record"
	"github.com/ginjaninja78/irs527-splitter/internal/types"
)

// Registry is an immutable, deduplicated set of lower-cased organization
// names.
type Registry struct {
	names []string
}

// New builds a Registry from already collected names. Names are lower-cased
// and deduplicated; empty names are ignored.
func New(names ...string) *Registry {
	b := newBuilder()
	for _, name := range names {
		b.add(name)
	}
	return b.freeze()
}

// BuildOptions configures Build.
type BuildOptions struct {
	// Delimiter separates fields on each line.
	Delimiter string

	// ProgressEvery logs progress every N lines. Zero disables it.
	ProgressEvery int

	// Logger receives progress output. Defaults to slog.Default().
	Logger *slog.Logger
}

// Build streams every line from reader and collects the organization name of
// each type "1" record that is long enough to carry one.
func Build(reader *record.Reader, opts BuildOptions) (*Registry, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "registry"))

	b := newBuilder()
	for reader.Next() {
		fields := record.Split(strings.TrimSpace(reader.Line()), opts.Delimiter)
		if types.RecordType(fields[0]) == types.TypeOrganization && len(fields) > types.OrganizationNameIndex {
			b.add(fields[types.OrganizationNameIndex])
		}

		if opts.ProgressEvery > 0 && reader.LineNumber()%opts.ProgressEvery == 0 {
			logger.Info("collecting organization names",
				slog.Int("lines", reader.LineNumber()),
				slog.Int("names", len(b.set)))
		}
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("failed to build name registry: %w", err)
	}

	r := b.freeze()
	logger.Info("name registry built",
		slog.Int("lines", reader.LineNumber()),
		slog.Int("names", r.Len()))
	return r, nil
}

// Len returns the number of distinct names.
func (r *Registry) Len() int {
	return len(r.names)
}

// Names returns the names in ascending byte order. This is the iteration
// order the matcher uses to break ties; the returned slice must not be
// modified.
func (r *Registry) Names() []string {
	return r.names
}

type builder struct {
	set map[string]struct{}
}

func newBuilder() *builder {
	return &builder{set: make(map[string]struct{})}
}

func (b *builder) add(name string) {
	name = strings.ToLower(name)
	if name == "" {
		return
	}
	b.set[name] = struct{}{}
}

func (b *builder) freeze() *Registry {
	names := make([]string, 0, len(b.set))
	for name := range b.set {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Registry{names: names}
}
