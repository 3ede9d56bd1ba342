package storageservice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cuemby/podcore/pkg/access"
	"github.com/cuemby/podcore/pkg/auth"
	"github.com/cuemby/podcore/pkg/ingress"
	"github.com/cuemby/podcore/pkg/objectstore"
	"github.com/cuemby/podcore/pkg/podset"
	"github.com/cuemby/podcore/pkg/repo"
	"github.com/cuemby/podcore/pkg/repo/layer"
	"github.com/cuemby/podcore/pkg/slot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRoot = "http://pod.example/alice/"

// newTestService builds a single-pod Service with a permissive (nil) access
// engine, mirroring cmd/podcored's wiring minus access control, so handler/marshalling
// behavior can be exercised without also standing up an ACR document.
func newTestService(t *testing.T) *Service {
	t.Helper()
	backend := objectstore.NewMemoryBackend()
	engine := repo.NewEngine(testRoot, backend)
	require.NoError(t, engine.Initialize(context.Background()))

	auxPolicy := slot.DefaultAuxPolicy()
	chain := layer.Chain(layer.Operator(engine),
		layer.NewValidating(testRoot, auxPolicy),
		layer.NewPatching(repo.NewDefaultPatcherResolver()),
		layer.NewDerivedContentNegotiating(),
	)

	pod := &podset.Pod{RootURI: testRoot, OwnerID: "https://pod.example/alice/profile/card#me", AuxPolicy: auxPolicy}
	pods := podset.NewStaticPodSet([]*podset.Pod{pod})
	bindings := map[string]*PodBinding{
		testRoot: {Pod: pod, Operator: chain, Access: nil},
	}
	return NewService(pods, bindings, nil, false)
}

// PUT creates a container and the response
// carries Location plus acl/describedby Link relations.
func TestHandlePutCreatesContainer(t *testing.T) {
	svc := newTestService(t)
	body := "<https://ex/a>\n    <https://ex/b> <https://ex/c> .\n"
	req := httptest.NewRequest(http.MethodPut, testRoot+"notes/", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/turtle")
	w := httptest.NewRecorder()

	svc.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, testRoot+"notes/", w.Header().Get("Location"))
	link := w.Header().Get("Link")
	assert.Contains(t, link, `rel="acl"`)
	assert.Contains(t, link, `rel="describedby"`)
	assert.Contains(t, link, "BasicContainer")
}

func TestHandlePutThenGetRoundTrips(t *testing.T) {
	svc := newTestService(t)
	router := svc.Router()

	putReq := httptest.NewRequest(http.MethodPut, testRoot+"notes/x", strings.NewReader("hello"))
	putReq.Header.Set("Content-Type", "text/plain")
	putW := httptest.NewRecorder()
	router.ServeHTTP(putW, putReq)
	require.Equal(t, http.StatusCreated, putW.Code)

	getReq := httptest.NewRequest(http.MethodGet, testRoot+"notes/x", nil)
	getW := httptest.NewRecorder()
	router.ServeHTTP(getW, getReq)

	require.Equal(t, http.StatusOK, getW.Code)
	assert.Equal(t, "hello", getW.Body.String())
	assert.NotEmpty(t, getW.Header().Get("ETag"))
	assert.Equal(t, "text/plain", getW.Header().Get("Content-Type"))
}

func TestHandlePutOnExistingIsUpdateNotCreate(t *testing.T) {
	svc := newTestService(t)
	router := svc.Router()

	first := httptest.NewRequest(http.MethodPut, testRoot+"notes/x", strings.NewReader("v1"))
	first.Header.Set("Content-Type", "text/plain")
	w1 := httptest.NewRecorder()
	router.ServeHTTP(w1, first)
	require.Equal(t, http.StatusCreated, w1.Code)

	second := httptest.NewRequest(http.MethodPut, testRoot+"notes/x", strings.NewReader("v2"))
	second.Header.Set("Content-Type", "text/plain")
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, second)
	require.Equal(t, http.StatusNoContent, w2.Code)

	getReq := httptest.NewRequest(http.MethodGet, testRoot+"notes/x", nil)
	getW := httptest.NewRecorder()
	router.ServeHTTP(getW, getReq)
	assert.Equal(t, "v2", getW.Body.String())
}

func TestHandleGetMissingResourceReturns404(t *testing.T) {
	svc := newTestService(t)
	req := httptest.NewRequest(http.MethodGet, testRoot+"nope", nil)
	w := httptest.NewRecorder()
	svc.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// A non-normal target URI gets a 307 redirect to its
// normalized form.
func TestNormalizeRedirect(t *testing.T) {
	svc := newTestService(t)
	req := httptest.NewRequest(http.MethodGet, "http://pod.example/alice//notes/../notes/x", nil)
	w := httptest.NewRecorder()
	svc.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, testRoot+"notes/x", w.Header().Get("Location"))
}

// DELETE on a non-empty container is rejected with 409.
func TestHandleDeleteNonEmptyContainerConflict(t *testing.T) {
	svc := newTestService(t)
	router := svc.Router()

	mkContainer := httptest.NewRequest(http.MethodPut, testRoot+"notes/", nil)
	mkContainer.Header.Set("Content-Type", "text/turtle")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, mkContainer)
	require.Equal(t, http.StatusCreated, w.Code)

	mkChild := httptest.NewRequest(http.MethodPut, testRoot+"notes/x", strings.NewReader("body"))
	mkChild.Header.Set("Content-Type", "text/plain")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, mkChild)
	require.Equal(t, http.StatusCreated, w.Code)

	del := httptest.NewRequest(http.MethodDelete, testRoot+"notes/", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, del)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandleDeleteSucceedsOnEmptyResource(t *testing.T) {
	svc := newTestService(t)
	router := svc.Router()

	put := httptest.NewRequest(http.MethodPut, testRoot+"notes/x", strings.NewReader("body"))
	put.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, put)
	require.Equal(t, http.StatusCreated, w.Code)

	del := httptest.NewRequest(http.MethodDelete, testRoot+"notes/x", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, del)
	require.Equal(t, http.StatusNoContent, w.Code)

	get := httptest.NewRequest(http.MethodGet, testRoot+"notes/x", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, get)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// A conditional GET with a matching If-None-Match yields
// 304 and no body.
func TestHandleGetConditionalNotModified(t *testing.T) {
	svc := newTestService(t)
	router := svc.Router()

	put := httptest.NewRequest(http.MethodPut, testRoot+"notes/x", strings.NewReader("body"))
	put.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, put)
	require.Equal(t, http.StatusCreated, w.Code)

	get := httptest.NewRequest(http.MethodGet, testRoot+"notes/x", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, get)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	conditional := httptest.NewRequest(http.MethodGet, testRoot+"notes/x", nil)
	conditional.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, conditional)

	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestHandlePostCreatesChildUnderContainer(t *testing.T) {
	svc := newTestService(t)
	router := svc.Router()

	mkContainer := httptest.NewRequest(http.MethodPut, testRoot+"notes/", nil)
	mkContainer.Header.Set("Content-Type", "text/turtle")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, mkContainer)
	require.Equal(t, http.StatusCreated, w.Code)

	post := httptest.NewRequest(http.MethodPost, testRoot+"notes/", strings.NewReader("body"))
	post.Header.Set("Content-Type", "text/plain")
	post.Header.Set("Slug", "first")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, post)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, testRoot+"notes/first", w.Header().Get("Location"))
}

func TestHandlePostRejectedOnNonContainer(t *testing.T) {
	svc := newTestService(t)
	router := svc.Router()

	put := httptest.NewRequest(http.MethodPut, testRoot+"notes/x", strings.NewReader("body"))
	put.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, put)
	require.Equal(t, http.StatusCreated, w.Code)

	post := httptest.NewRequest(http.MethodPost, testRoot+"notes/x", strings.NewReader("body"))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, post)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandlePatchAppliesReplacePatch(t *testing.T) {
	svc := newTestService(t)
	router := svc.Router()

	put := httptest.NewRequest(http.MethodPut, testRoot+"notes/x", strings.NewReader("v1"))
	put.Header.Set("Content-Type", "text/turtle")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, put)
	require.Equal(t, http.StatusCreated, w.Code)

	patch := httptest.NewRequest(http.MethodPatch, testRoot+"notes/x", strings.NewReader("v2"))
	patch.Header.Set("Content-Type", "text/turtle")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, patch)
	require.Equal(t, http.StatusNoContent, w.Code)

	get := httptest.NewRequest(http.MethodGet, testRoot+"notes/x", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, get)
	assert.Equal(t, "v2", w.Body.String())
}

func TestHandleHeadOmitsBody(t *testing.T) {
	svc := newTestService(t)
	router := svc.Router()

	put := httptest.NewRequest(http.MethodPut, testRoot+"notes/x", strings.NewReader("body"))
	put.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, put)
	require.Equal(t, http.StatusCreated, w.Code)

	head := httptest.NewRequest(http.MethodHead, testRoot+"notes/x", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, head)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestCORSPreflightAllowsAnyOrigin(t *testing.T) {
	svc := newTestService(t)
	req := httptest.NewRequest(http.MethodOptions, testRoot+"notes/x", nil)
	req.Header.Set("Origin", "https://client.example")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	w := httptest.NewRecorder()
	svc.Router().ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNoOwningPodReturns404(t *testing.T) {
	svc := newTestService(t)
	req := httptest.NewRequest(http.MethodGet, "http://other.example/bob/x", nil)
	w := httptest.NewRecorder()
	svc.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// The ingress middleware is actually wired into Router(),
// not merely constructed and left dead: an IP denied by AccessControl never
// reaches a handler.
func TestAccessControlDeniesBlockedIP(t *testing.T) {
	svc := newTestService(t)
	svc.AccessControl = &ingress.AccessControlConfig{DeniedIPs: []string{"10.0.0.9"}}

	req := httptest.NewRequest(http.MethodGet, testRoot+"notes/x", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	w := httptest.NewRecorder()
	svc.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

// Likewise for the rate limiter: once a client's burst is exhausted, the
// router itself starts returning 429 rather than only Middleware.CheckRateLimit
// in isolation doing so.
func TestRateLimitExceededReturns429(t *testing.T) {
	svc := newTestService(t)
	svc.RateLimit = &ingress.RateLimitConfig{RequestsPerSecond: 1, Burst: 1}
	router := svc.Router()

	req1 := httptest.NewRequest(http.MethodGet, testRoot+"notes/x", nil)
	req1.RemoteAddr = "10.0.0.10:1234"
	w1 := httptest.NewRecorder()
	router.ServeHTTP(w1, req1)
	assert.NotEqual(t, http.StatusTooManyRequests, w1.Code)

	req2 := httptest.NewRequest(http.MethodGet, testRoot+"notes/x", nil)
	req2.RemoteAddr = "10.0.0.10:1234"
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusTooManyRequests, w2.Code)
}

func TestHandleGetRangeServesPartialContent(t *testing.T) {
	svc := newTestService(t)
	router := svc.Router()

	put := httptest.NewRequest(http.MethodPut, testRoot+"notes/x", strings.NewReader("0123456789"))
	put.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, put)
	require.Equal(t, http.StatusCreated, w.Code)

	get := httptest.NewRequest(http.MethodGet, testRoot+"notes/x", nil)
	get.Header.Set("Range", "bytes=2-5")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, get)

	require.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "2345", w.Body.String())
	assert.Equal(t, "bytes 2-5/10", w.Header().Get("Content-Range"))
	assert.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))
}

func TestHandleGetRangeBeyondRepresentationReturns416(t *testing.T) {
	svc := newTestService(t)
	router := svc.Router()

	put := httptest.NewRequest(http.MethodPut, testRoot+"notes/x", strings.NewReader("0123456789"))
	put.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, put)
	require.Equal(t, http.StatusCreated, w.Code)

	get := httptest.NewRequest(http.MethodGet, testRoot+"notes/x", nil)
	get.Header.Set("Range", "bytes=50-60")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, get)

	require.Equal(t, http.StatusRequestedRangeNotSatisfiable, w.Code)
	assert.Equal(t, "bytes */10", w.Header().Get("Content-Range"))
}

func TestHandleGetStaleIfRangeServesFullRepresentation(t *testing.T) {
	svc := newTestService(t)
	router := svc.Router()

	put := httptest.NewRequest(http.MethodPut, testRoot+"notes/x", strings.NewReader("0123456789"))
	put.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, put)
	require.Equal(t, http.StatusCreated, w.Code)

	get := httptest.NewRequest(http.MethodGet, testRoot+"notes/x", nil)
	get.Header.Set("Range", "bytes=2-5")
	get.Header.Set("If-Range", `"some-other-version"`)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, get)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0123456789", w.Body.String())
}

func TestHandleGetPreferMinimalContainerOmitsContainment(t *testing.T) {
	svc := newTestService(t)
	router := svc.Router()

	mkContainer := httptest.NewRequest(http.MethodPut, testRoot+"notes/", nil)
	mkContainer.Header.Set("Content-Type", "text/turtle")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, mkContainer)
	require.Equal(t, http.StatusCreated, w.Code)

	mkChild := httptest.NewRequest(http.MethodPut, testRoot+"notes/x", strings.NewReader("body"))
	mkChild.Header.Set("Content-Type", "text/plain")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, mkChild)
	require.Equal(t, http.StatusCreated, w.Code)

	plain := httptest.NewRequest(http.MethodGet, testRoot+"notes/", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, plain)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ldp#contains")
	assert.Empty(t, w.Header().Get("Preference-Applied"))

	minimal := httptest.NewRequest(http.MethodGet, testRoot+"notes/", nil)
	minimal.Header.Set("Prefer", `return=representation; include="http://www.w3.org/ns/ldp#PreferMinimalContainer"`)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, minimal)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "ldp#contains")
	assert.Equal(t, "return=representation", w.Header().Get("Preference-Applied"))
}

// withACPAccess turns on ACP enforcement for the test pod, resolving ACRs
// through the pod's own operator chain. With no acl resource stored the
// engine default-denies everything.
func withACPAccess(svc *Service) {
	b := svc.Bindings[testRoot]
	b.Access = access.NewAccessEngine(access.KindACP, access.NewPRP(testRoot, access.NewEngineReader(b.Operator), nil))
}

// A PATCH denied for an anonymous requester is challenged with 401 +
// WWW-Authenticate, not silently refused with 403.
func TestHandlePatchWithoutAuthorizationRequiresChallenge(t *testing.T) {
	svc := newTestService(t)
	svc.Auth = auth.NewSchemeSet()
	router := svc.Router()

	put := httptest.NewRequest(http.MethodPut, testRoot+"notes/x", strings.NewReader("body"))
	put.Header.Set("Content-Type", "text/n3")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, put)
	require.Equal(t, http.StatusCreated, w.Code)

	withACPAccess(svc)

	patch := httptest.NewRequest(http.MethodPatch, testRoot+"notes/x", strings.NewReader("_:patch a solid:InsertDeletePatch."))
	patch.Header.Set("Content-Type", "text/n3")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, patch)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), "DPoP")
}

// An anonymous PUT must succeed when the root ACR grants the public agent
// write access, even with an authentication scheme configured: a missing
// credential falls through to the access decision instead of being
// challenged outright.
func TestAnonymousPutAllowedByPublicAgentPolicy(t *testing.T) {
	svc := newTestService(t)
	svc.Auth = auth.NewSchemeSet()
	router := svc.Router()

	rootACL := slot.AuxURI(testRoot, slot.AuxACL)
	acr := "<" + rootACL + ">\n" +
		"    <http://www.w3.org/ns/solid/acp#accessControl> _:ac ;\n" +
		"    <http://www.w3.org/ns/solid/acp#memberAccessControl> _:ac .\n" +
		"_:ac\n" +
		"    <http://www.w3.org/ns/solid/acp#apply> _:pol .\n" +
		"_:pol\n" +
		"    <http://www.w3.org/ns/solid/acp#allow> \"read\" ;\n" +
		"    <http://www.w3.org/ns/solid/acp#allow> \"write\" ;\n" +
		"    <http://www.w3.org/ns/solid/acp#anyOf> _:m .\n" +
		"_:m\n" +
		"    <http://www.w3.org/ns/solid/acp#agent> <http://www.w3.org/ns/solid/acp#PublicAgent> .\n"

	putACL := httptest.NewRequest(http.MethodPut, rootACL, strings.NewReader(acr))
	putACL.Header.Set("Content-Type", "text/turtle")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, putACL)
	require.Equal(t, http.StatusCreated, w.Code)

	withACPAccess(svc)

	put := httptest.NewRequest(http.MethodPut, testRoot+"notes/", strings.NewReader("<https://ex/a>\n    <https://ex/b> <https://ex/c> .\n"))
	put.Header.Set("Content-Type", "text/turtle")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, put)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, testRoot+"notes/", w.Header().Get("Location"))
	assert.Contains(t, w.Header().Get("WAC-Allow"), `public="`)
}

// A denial that authenticating could not remedy gets 403 + WAC-Allow; the
// 401 challenge is reserved for anonymous denials with a scheme configured.
func TestDeniedRequestWithoutConfiguredSchemeGets403(t *testing.T) {
	svc := newTestService(t)
	router := svc.Router()

	put := httptest.NewRequest(http.MethodPut, testRoot+"notes/x", strings.NewReader("body"))
	put.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, put)
	require.Equal(t, http.StatusCreated, w.Code)

	// No SchemeSet configured: the request context stays anonymous and the
	// denial cannot be remedied by authenticating, so no challenge applies.
	withACPAccess(svc)

	del := httptest.NewRequest(http.MethodDelete, testRoot+"notes/x", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, del)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, `user="", public=""`, w.Header().Get("WAC-Allow"))
}
