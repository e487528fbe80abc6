package directory

import (
	"context"
	"fmt"
	"time"

	ldapc "github.com/dcc-ufrj/alumnic/internal/ldap"
)

// resolveAttributes is what a credential mutation needs to know about
// an entry: where it lives, who it is, and which object classes decide
// the attribute set to rewrite.
var resolveAttributes = []string{"uid", "objectClass", "dre", "mail"}

// Resolver locates user entries under a fixed base DN.
type Resolver struct {
	client  ldapc.Client
	baseDN  string
	timeout time.Duration
	log     ldapc.Logger
}

// NewResolver creates a resolver scoped to baseDN.
func NewResolver(client ldapc.Client, baseDN string, log ldapc.Logger) *Resolver {
	if log == nil {
		log = ldapc.NopLogger{}
	}
	return &Resolver{
		client:  client,
		baseDN:  baseDN,
		timeout: 30 * time.Second,
		log:     log,
	}
}

// SetTimeout sets the per-search time limit.
func (r *Resolver) SetTimeout(timeout time.Duration) {
	r.timeout = timeout
}

// ResolveUID locates the entry whose uid equals the given identifier.
// Exactly one entry must match: zero matches fail with KindNotFound,
// and two or more fail with KindAmbiguousMatch — picking the first
// would paper over a data-integrity problem.
func (r *Resolver) ResolveUID(ctx context.Context, uid string) (*UserEntry, error) {
	if uid == "" {
		return nil, newOpError(KindNotFound, "user identifier cannot be empty", nil)
	}

	filter := fmt.Sprintf("(uid=%s)", ldapc.EscapeFilterValue(uid))
	return r.resolve(ctx, filter, uid)
}

// ResolveDRE locates the entry whose dre (student registry number)
// equals the given value. Same cardinality rules as ResolveUID.
func (r *Resolver) ResolveDRE(ctx context.Context, dre string) (*UserEntry, error) {
	if dre == "" {
		return nil, newOpError(KindNotFound, "registry number cannot be empty", nil)
	}

	filter := fmt.Sprintf("(dre=%s)", ldapc.EscapeFilterValue(dre))
	return r.resolve(ctx, filter, dre)
}

func (r *Resolver) resolve(ctx context.Context, filter, identifier string) (*UserEntry, error) {
	result, err := r.client.Search(ctx, &ldapc.SearchRequest{
		BaseDN:     r.baseDN,
		Scope:      ldapc.ScopeWholeSubtree,
		Filter:     filter,
		Attributes: resolveAttributes,
		TimeLimit:  r.timeout,
	})
	if err != nil {
		return nil, classifyDirectoryError("search for user entry failed", err)
	}

	switch len(result.Entries) {
	case 0:
		return nil, newOpError(KindNotFound,
			fmt.Sprintf("no entry matches %q", identifier), nil)
	case 1:
		// Fall through.
	default:
		r.log.Warn("Multiple entries match identifier", map[string]any{
			"identifier": identifier,
			"matches":    len(result.Entries),
		})
		return nil, newOpError(KindAmbiguousMatch,
			fmt.Sprintf("%d entries match %q", len(result.Entries), identifier), nil)
	}

	raw := result.Entries[0]
	entry := &UserEntry{
		DN:         raw.DN,
		UID:        raw.GetAttributeValue("uid"),
		Attributes: make(map[string][]string, len(raw.Attributes)),
	}
	for _, attr := range raw.Attributes {
		entry.Attributes[attr.Name] = attr.Values
	}

	return entry, nil
}

// UIDExists reports whether any entry carries the given uid. Used by
// username generation, where only presence matters.
func (r *Resolver) UIDExists(ctx context.Context, uid string) (bool, error) {
	filter := fmt.Sprintf("(uid=%s)", ldapc.EscapeFilterValue(uid))

	result, err := r.client.Search(ctx, &ldapc.SearchRequest{
		BaseDN:     r.baseDN,
		Scope:      ldapc.ScopeWholeSubtree,
		Filter:     filter,
		Attributes: []string{"uid"},
		TimeLimit:  r.timeout,
	})
	if err != nil {
		return false, classifyDirectoryError("search for uid failed", err)
	}

	return len(result.Entries) > 0, nil
}
