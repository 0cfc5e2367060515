package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_Match(t *testing.T) {
	m := NewMatcher()

	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/test", "/test", true},
		{"test", "test", true},
		{"/test", "test", false},
		{"test", "/test", false},
		{"/test", "/test/", false},
		{"/test/", "/test/", true},
		{"/test/", "/test", false},
		{"/a//b", "/a/b", true},

		{"t?st", "test", true},
		{"??st", "test", true},
		{"tes?", "tes", false},
		{"tes?", "testt", false},

		{"*", "test", true},
		{"test*", "test", true},
		{"test*", "testTest", true},
		{"test/*", "test/Test", true},
		{"test/*", "test/", true},
		{"test/*", "test", false},
		{"*test*", "AnothertestTest", true},
		{"*.*", "test.test", true},
		{"*.*", "test", false},

		{"/**", "/testing/testing", true},
		{"/*/**", "/testing/testing", true},
		{"/**/*", "/testing/testing", true},
		{"/bla/**/bla", "/bla/testing/testing/bla", true},
		{"/bla/**/bla", "/bla/testing/testing/bla/bla", true},
		{"/bla/**/bla", "/bla/bla", true},
		{"/bla/**/bla", "/bla/testing/testing/blaX", false},
		{"/**/test", "/bla/bla/test", true},
		{"/bla*bla/test", "/blaXXXbla/test", true},
		{"/*bla/test", "/XXXbla/test", true},
		{"/bla*bla/test", "/blaXXXbl/test", false},
		{"/x/x/**/bla", "/x/x/x/", false},
		{"/foo/bar/**", "/foo/bar", true},
		{"/**/*bla", "/bla/bla/bla/bbb", false},
		{"/*bla*/**/bla/**", "/XXXblaXXXX/testing/testing/bla/testing/testing/", true},
		{"/*bla*/**/bla/*", "/XXXblaXXXX/testing/testing/bla/testing", true},
		{"/*bla*/**/bla/**", "/XXXblaXXXX/testing/testing/bla/testing/testing", true},
		{"*bla*/**/bla/**", "XXXblaXXXX/testing/testing/bla/testing/testing", true},
		{"*bla*/**/bla/*", "XXXblaXXXX/testing/testing/bla/testing/testing", false},
		{"/x/x/**/bla", "/x/x/x/", false},
		{"/**/**/**", "/x", true},
		{"/abc/**/*/def", "/abc/x/y/def", true},

		{"/testing/{last}/{first}", "/testing/bloggs/joe", true},
		{"/testing/{last}/{first}", "/testing/bloggs", false},
		{"/testing/{last}/{first}", "/testing/bloggs/joe/x", false},
		{"/orders/{id:[0-9]+}", "/orders/42", true},
		{"/orders/{id:[0-9]+}", "/orders/abc", false},
		{"/files/{name}.{ext}", "/files/report.pdf", true},

		{"", "", true},
		{"/", "/", true},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.pattern, tt.path))
		})
	}
}

func TestMatcher_ExtractVariables(t *testing.T) {
	m := NewMatcher()

	tests := []struct {
		pattern string
		path    string
		want    map[string]string
	}{
		{"/testing/{last}/{first}", "/testing/bloggs/joe", map[string]string{"last": "bloggs", "first": "joe"}},
		{"/hotels/{hotel}", "/hotels/1", map[string]string{"hotel": "1"}},
		{"/h?tels/{hotel}", "/hotels/1", map[string]string{"hotel": "1"}},
		{"/hotels/{hotel}/bookings/{booking}", "/hotels/1/bookings/2", map[string]string{"hotel": "1", "booking": "2"}},
		{"/**/hotels/**/{hotel}", "/foo/hotels/bar/1", map[string]string{"hotel": "1"}},
		{"/{page}.html", "/42.html", map[string]string{"page": "42"}},
		{"/{page}.*", "/42.html", map[string]string{"page": "42"}},
		{"/A-{B}-C", "/A-b-C", map[string]string{"B": "b"}},
		{"/{name}.{extension}", "/test.html", map[string]string{"name": "test", "extension": "html"}},
		{"/{symbolicName:[\\w\\.]+}-{version:[\\w\\.]+}.jar", "/com.example-1.0.0.jar",
			map[string]string{"symbolicName": "com.example", "version": "1.0.0"}},
		{"/web/{id:foo|bar}", "/web/bar", map[string]string{"id": "bar"}},
		{"/static", "/static", map[string]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			vars, ok := m.ExtractVariables(tt.pattern, tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.want, vars)
		})
	}
}

func TestMatcher_ExtractVariables_NoMatch(t *testing.T) {
	vars, ok := NewMatcher().ExtractVariables("/hotels/{hotel}", "/motels/1")
	assert.False(t, ok)
	assert.Empty(t, vars)
}

func TestMatcher_VariablesFromFailedTrialsAreDiscarded(t *testing.T) {
	vars, ok := NewMatcher().ExtractVariables("/**/{a}/x/**", "/p/q/x/r")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"a": "q"}, vars)
}

func TestMatcher_Validate(t *testing.T) {
	m := NewMatcher()
	assert.NoError(t, m.Validate("/people/{id}/**/*.json"))
	assert.ErrorIs(t, m.Validate("/bad/{id:(a|b)}"), ErrInvalidPattern)
	assert.ErrorIs(t, m.Validate("/bad/{id:[}"), ErrInvalidPattern)
}

func TestMatcher_LiteralMetacharacters(t *testing.T) {
	m := NewMatcher()
	assert.True(t, m.Match("/a.b/{x}", "/a.b/1"))
	assert.False(t, m.Match("/a.b/{x}", "/aXb/1"))
	assert.True(t, m.Match("/a+b*", "/a+bcd"))
}
