package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	ldapc "github.com/dcc-ufrj/alumnic/internal/ldap"
)

const testBaseDN = "dc=dcc,dc=ufrj,dc=br"

func TestResolveUIDSingleMatch(t *testing.T) {
	client := &MockClient{}
	resolver := NewResolver(client, testBaseDN, nil)

	entry := userEntry("uid=joao,ou=alunos,ou=academicos,ou=usuarios,"+testBaseDN, "joao")
	entry.Attributes = append(entry.Attributes,
		&ldap.EntryAttribute{Name: "mail", Values: []string{"joao@dcc.ufrj.br"}})

	client.On("Search", mock.Anything, mock.MatchedBy(func(req *ldapc.SearchRequest) bool {
		return req.Filter == "(uid=joao)" && req.BaseDN == testBaseDN &&
			req.Scope == ldapc.ScopeWholeSubtree
	})).Return(searchResult(entry), nil)

	got, err := resolver.ResolveUID(context.Background(), "joao")
	require.NoError(t, err)

	assert.Equal(t, "joao", got.UID)
	assert.Equal(t, entry.DN, got.DN)
	assert.Equal(t, "joao@dcc.ufrj.br", got.Attribute("mail"))
	assert.True(t, got.HasObjectClass("dccAluno"))
	client.AssertExpectations(t)
}

func TestResolveUIDNotFound(t *testing.T) {
	client := &MockClient{}
	resolver := NewResolver(client, testBaseDN, nil)

	client.On("Search", mock.Anything, mock.Anything).Return(searchResult(), nil)

	_, err := resolver.ResolveUID(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestResolveUIDAmbiguous(t *testing.T) {
	client := &MockClient{}
	resolver := NewResolver(client, testBaseDN, nil)

	client.On("Search", mock.Anything, mock.Anything).Return(searchResult(
		userEntry("uid=joao,ou=alunos,ou=academicos,ou=usuarios,"+testBaseDN, "joao"),
		userEntry("uid=joao,ou=professores,ou=usuarios,"+testBaseDN, "joao"),
	), nil)

	_, err := resolver.ResolveUID(context.Background(), "joao")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindAmbiguousMatch))
	// Never modify anything on an ambiguous match.
	client.AssertNotCalled(t, "Modify", mock.Anything, mock.Anything)
}

func TestResolveUIDEscapesFilter(t *testing.T) {
	client := &MockClient{}
	resolver := NewResolver(client, testBaseDN, nil)

	client.On("Search", mock.Anything, mock.MatchedBy(func(req *ldapc.SearchRequest) bool {
		return req.Filter == `(uid=jo\2aao)`
	})).Return(searchResult(), nil)

	_, err := resolver.ResolveUID(context.Background(), "jo*ao")
	require.Error(t, err) // not found, but with the injection neutralized
	client.AssertExpectations(t)
}

func TestResolveUIDEmpty(t *testing.T) {
	client := &MockClient{}
	resolver := NewResolver(client, testBaseDN, nil)

	_, err := resolver.ResolveUID(context.Background(), "")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))
	client.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestResolveDRE(t *testing.T) {
	client := &MockClient{}
	resolver := NewResolver(client, testBaseDN, nil)

	client.On("Search", mock.Anything, mock.MatchedBy(func(req *ldapc.SearchRequest) bool {
		return req.Filter == "(dre=119876543)"
	})).Return(searchResult(
		userEntry("uid=joao,ou=alunos,ou=academicos,ou=usuarios,"+testBaseDN, "joao"),
	), nil)

	got, err := resolver.ResolveDRE(context.Background(), "119876543")
	require.NoError(t, err)
	assert.Equal(t, "joao", got.UID)
}

func TestResolveSearchFailure(t *testing.T) {
	client := &MockClient{}
	resolver := NewResolver(client, testBaseDN, nil)

	client.On("Search", mock.Anything, mock.Anything).
		Return(nil, errors.New("network unreachable"))

	_, err := resolver.ResolveUID(context.Background(), "joao")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConnection))
}

func TestUIDExists(t *testing.T) {
	client := &MockClient{}
	resolver := NewResolver(client, testBaseDN, nil)

	client.On("Search", mock.Anything, mock.MatchedBy(func(req *ldapc.SearchRequest) bool {
		return req.Filter == "(uid=taken)"
	})).Return(searchResult(
		userEntry("uid=taken,ou=alunos,ou=academicos,ou=usuarios,"+testBaseDN, "taken"),
	), nil)
	client.On("Search", mock.Anything, mock.MatchedBy(func(req *ldapc.SearchRequest) bool {
		return req.Filter == "(uid=free)"
	})).Return(searchResult(), nil)

	taken, err := resolver.UIDExists(context.Background(), "taken")
	require.NoError(t, err)
	assert.True(t, taken)

	free, err := resolver.UIDExists(context.Background(), "free")
	require.NoError(t, err)
	assert.False(t, free)
}
