package exempt

import (
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authTable() Table {
	return Table{
		Groups: []Group{
			{
				Prefix: "/api/auth",
				NoAuth: true,
				Routes: []Route{
					{Method: http.MethodPost, Pattern: "/login"},
					{Method: http.MethodPost, Pattern: "/refresh"},
				},
			},
			{
				Prefix: "/api",
				Routes: []Route{
					{Method: http.MethodPost, Pattern: "/logout"},
					{Method: http.MethodGet, Pattern: "/me"},
					{Method: http.MethodGet, Pattern: "/docs/**", NoAuth: true},
				},
			},
		},
	}
}

func TestBuildCollectsNoAuthRoutes(t *testing.T) {
	reg := NewRegistry("/api")
	reg.Build(authTable())

	require.Equal(t, 3, reg.Size())

	assert.True(t, reg.IsExempt(http.MethodPost, "/api/auth/login"))
	assert.True(t, reg.IsExempt(http.MethodPost, "/api/auth/refresh"))
	assert.True(t, reg.IsExempt(http.MethodGet, "/api/docs/handbook/intro"))

	assert.False(t, reg.IsExempt(http.MethodPost, "/api/logout"))
	assert.False(t, reg.IsExempt(http.MethodGet, "/api/me"))
	assert.False(t, reg.IsExempt(http.MethodGet, "/api/auth/login"), "exemption is method-scoped")
}

func TestEnforcedPrefixes(t *testing.T) {
	reg := NewRegistry("/api")
	reg.Build(authTable())

	// Outside every enforced prefix nothing requires authentication.
	assert.True(t, reg.IsExempt(http.MethodGet, "/healthz"))
	assert.True(t, reg.IsExempt(http.MethodGet, "/metrics"))

	// Without prefixes every path is enforced.
	all := NewRegistry()
	all.Build(Table{})
	assert.False(t, all.IsExempt(http.MethodGet, "/healthz"))
}

func TestPatternMatching(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/api/users/:id", "/api/users/42", true},
		{"/api/users/:id", "/api/users/42/posts", false},
		{"/api/users/*", "/api/users/42", true},
		{"/api/users/*", "/api/users", false},
		{"/api/**", "/api", true},
		{"/api/**", "/api/a/b/c", true},
		{"/api/auth/login", "/api/auth/login", true},
		{"/api/auth/login", "/api/auth/login/extra", false},
		{"/", "/", true},
		{"/", "/anything", false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, matchPattern(tc.pattern, tc.path),
			"matchPattern(%q, %q)", tc.pattern, tc.path)
	}
}

func TestAddIsAppendOnly(t *testing.T) {
	reg := NewRegistry("/api")
	reg.Build(authTable())
	before := reg.Size()

	reg.Add("/api/public/**")

	require.Equal(t, before+1, reg.Size())
	assert.True(t, reg.IsExempt(http.MethodDelete, "/api/public/anything"),
		"Add registers for all methods")
}

func TestConcurrentBuildIsIdempotent(t *testing.T) {
	reg := NewRegistry("/api")
	table := authTable()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.Build(table)
		}()
	}
	wg.Wait()

	require.Equal(t, 3, reg.Size(), "repeated builds must not duplicate entries")
	assert.True(t, reg.IsExempt(http.MethodPost, "/api/auth/login"))
}
