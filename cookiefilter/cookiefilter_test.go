package cookiefilter

import (
	"testing"

	"github.com/filterwall/blockengine/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCookieApi struct {
	removed  []string
	modified []*BrowserCookie
	stored   map[string][]*BrowserCookie
}

func newFakeCookieApi() *fakeCookieApi {
	return &fakeCookieApi{stored: map[string][]*BrowserCookie{}}
}

func (f *fakeCookieApi) RemoveCookie(name, _ string) error {
	f.removed = append(f.removed, name)
	return nil
}

func (f *fakeCookieApi) ModifyCookie(c *BrowserCookie, _ string) error {
	f.modified = append(f.modified, c)
	return nil
}

func (f *fakeCookieApi) GetCookies(name, _ string) ([]*BrowserCookie, error) {
	return f.stored[name], nil
}

func blockingCookieRule(t *testing.T, value string) *rules.NetworkRule {
	t.Helper()

	r, err := rules.NewNetworkRule("||example.org^$cookie="+value, 0)
	require.NoError(t, err)

	return r
}

func TestCookieFilter_RequestHeadersPhase_blocks(t *testing.T) {
	api := newFakeCookieApi()
	f := New(api)

	rule := blockingCookieRule(t, "sessionid")
	newHeader, modified := f.RequestHeadersPhase(
		"req1",
		"http://example.org",
		map[string]string{"Cookie": "sessionid=abc; lang=en"},
		[]*rules.NetworkRule{rule},
	)

	assert.True(t, modified)
	assert.Equal(t, "lang=en", newHeader)

	f.ResponsePhase("req1")
	assert.Equal(t, []string{"sessionid"}, api.removed)
}

func TestCookieFilter_RequestHeadersPhase_noMatch(t *testing.T) {
	api := newFakeCookieApi()
	f := New(api)

	rule := blockingCookieRule(t, "other")
	newHeader, modified := f.RequestHeadersPhase(
		"req2",
		"http://example.org",
		map[string]string{"Cookie": "sessionid=abc"},
		[]*rules.NetworkRule{rule},
	)

	assert.False(t, modified)
	assert.Equal(t, "sessionid=abc", newHeader)

	f.ResponsePhase("req2")
	assert.Empty(t, api.removed)
}

func TestCookieFilter_ResponsePhase_modifies(t *testing.T) {
	api := newFakeCookieApi()
	api.stored["sessionid"] = []*BrowserCookie{{Name: "sessionid", SameSite: "none", MaxAge: 86400}}

	f := New(api)

	rule := blockingCookieRule(t, "sessionid;maxAge=60;sameSite=lax")
	_, modified := f.RequestHeadersPhase(
		"req3",
		"http://example.org",
		map[string]string{"Cookie": "sessionid=abc"},
		[]*rules.NetworkRule{rule},
	)
	assert.False(t, modified)

	f.ResponsePhase("req3")

	require.Len(t, api.modified, 1)
	assert.Equal(t, "lax", api.modified[0].SameSite)
	assert.Equal(t, 60, api.modified[0].MaxAge)
	assert.Empty(t, api.removed)
}

func TestNewRequestID(t *testing.T) {
	a := NewRequestID()
	b := NewRequestID()

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestCookieFilter_ResponsePhase_maxAgeNeverExtends(t *testing.T) {
	api := newFakeCookieApi()
	api.stored["sessionid"] = []*BrowserCookie{{Name: "sessionid", MaxAge: 30}}

	f := New(api)

	rule := blockingCookieRule(t, "sessionid;maxAge=3600")
	f.RequestHeadersPhase(
		"req4",
		"http://example.org",
		map[string]string{"Cookie": "sessionid=abc"},
		[]*rules.NetworkRule{rule},
	)

	f.ResponsePhase("req4")

	assert.Empty(t, api.modified)
}
