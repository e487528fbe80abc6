package directory

import (
	"context"
	"fmt"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/mock"

	ldapc "github.com/dcc-ufrj/alumnic/internal/ldap"
)

// ldapResultErr builds a protocol-level error with the given result
// code, the way go-ldap surfaces server responses.
func ldapResultErr(code uint16, msg string) error {
	return &ldap.Error{ResultCode: code, Err: fmt.Errorf("%s", msg)}
}

// MockClient implements the LDAP Client interface for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockClient) Search(ctx context.Context, req *ldapc.SearchRequest) (*ldapc.SearchResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	result, ok := args.Get(0).(*ldapc.SearchResult)
	if !ok {
		return nil, args.Error(1)
	}
	return result, args.Error(1)
}

func (m *MockClient) Add(ctx context.Context, req *ldapc.AddRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockClient) Modify(ctx context.Context, req *ldapc.ModifyRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockClient) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockClient) Stats() ldapc.PoolStats {
	args := m.Called()
	stats, _ := args.Get(0).(ldapc.PoolStats)
	return stats
}

// userEntry builds a search entry the way the directory returns them.
func userEntry(dn, uid string, objectClasses ...string) *ldap.Entry {
	if len(objectClasses) == 0 {
		objectClasses = []string{"dcc", "dccAluno", "posixAccount", "inetOrgPerson"}
	}
	return &ldap.Entry{
		DN: dn,
		Attributes: []*ldap.EntryAttribute{
			{Name: "uid", Values: []string{uid}},
			{Name: "objectClass", Values: objectClasses},
		},
	}
}

func searchResult(entries ...*ldap.Entry) *ldapc.SearchResult {
	return &ldapc.SearchResult{Entries: entries}
}
