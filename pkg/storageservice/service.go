// Package storageservice implements the HTTP binding of the repository
// engine. It resolves each request to the pod that owns it, authenticates
// mutating requests, enforces the pod's access-control policy, negotiates
// preconditions, and drives the matching layered repo operator, composed
// as one handler per concern rather than a hand-rolled multiplexer.
package storageservice

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/cuemby/podcore/pkg/access"
	"github.com/cuemby/podcore/pkg/auth"
	"github.com/cuemby/podcore/pkg/httpheader"
	"github.com/cuemby/podcore/pkg/ingress"
	"github.com/cuemby/podcore/pkg/log"
	"github.com/cuemby/podcore/pkg/metrics"
	"github.com/cuemby/podcore/pkg/objectstore"
	"github.com/cuemby/podcore/pkg/podset"
	"github.com/cuemby/podcore/pkg/problem"
	"github.com/cuemby/podcore/pkg/repo"
	"github.com/cuemby/podcore/pkg/repo/layer"
	"github.com/cuemby/podcore/pkg/slot"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// mutatingMethods lists the methods the authentication pipeline runs
// against by default.
var mutatingMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
	http.MethodPut:    true,
}

// negotiatingReader is implemented by an operator chain carrying a
// layer.DerivedContentNegotiating somewhere in it.
type negotiatingReader interface {
	ReadNegotiated(ctx context.Context, uri, preferredMediaType string) (*objectstore.Object, error)
}

// preferenceReader is implemented by an operator chain whose base engine
// honors container representation levels.
type preferenceReader interface {
	ReadWithPreference(ctx context.Context, uri string, level repo.ContainerRepLevel) (*objectstore.Object, error)
}

// containerRepLevel maps a parsed Prefer representation preference to the
// repo engine's container representation level.
func containerRepLevel(p httpheader.RepPreference) repo.ContainerRepLevel {
	switch p {
	case httpheader.RepContainment:
		return repo.RepLevelContainment
	case httpheader.RepMinimal:
		return repo.RepLevelMinimal
	default:
		return repo.RepLevelAll
	}
}

// patchingOperator is implemented by an operator chain carrying a
// layer.Patching somewhere in it.
type patchingOperator interface {
	ApplyPatch(ctx context.Context, resolver repo.PatcherResolver, uri, patchContentType string, patchBody []byte) error
}

// PodBinding is everything the storage service needs to serve one pod: its
// layered repo operator chain and the access engine gating it.
type PodBinding struct {
	Pod      *podset.Pod
	Operator layer.Operator
	Access   *access.AccessEngine
}

// Service is the storage service bound to a PodSet and a per-pod binding
// (one layered operator chain and access engine per pod, keyed by root URI).
type Service struct {
	Pods            podset.PodSet
	Bindings        map[string]*PodBinding
	PatcherResolver repo.PatcherResolver
	Middleware      *ingress.Middleware
	RateLimit       *ingress.RateLimitConfig
	AccessControl   *ingress.AccessControlConfig
	Auth            *auth.SchemeSet
	TrustProxy      bool
	CORSOrigins     []string
	DevMode         bool
}

// NewService builds a Service. bindings maps each pod's RootURI to the
// PodBinding that serves it. authSchemes may be nil, in which case mutating
// requests are never authenticated (all access decisions reduce to public).
func NewService(pods podset.PodSet, bindings map[string]*PodBinding, authSchemes *auth.SchemeSet, trustProxy bool) *Service {
	return &Service{
		Pods:            pods,
		Bindings:        bindings,
		PatcherResolver: repo.NewDefaultPatcherResolver(),
		Middleware:      ingress.NewMiddleware(trustProxy),
		Auth:            authSchemes,
		TrustProxy:      trustProxy,
	}
}

// Router builds the chi router exposing this service.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.normalizeRedirect)

	r.Use(s.rateLimitAndACL)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins(),
		AllowedMethods:   []string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "DPoP", "Content-Type", "If-Match", "If-None-Match", "Slug", "Link", "Accept", "Prefer", "Range", "If-Range"},
		ExposedHeaders:   []string{"ETag", "Last-Modified", "Link", "WAC-Allow", "Location", "Accept-Patch", "Accept-Post", "Accept-Put", "Preference-Applied", "Accept-Ranges", "Content-Range"},
		AllowCredentials: false,
	}))

	r.Get("/*", s.handleGet)
	r.Head("/*", s.handleGet)
	r.Put("/*", s.handlePut)
	r.Post("/*", s.handlePost)
	r.Patch("/*", s.handlePatch)
	r.Delete("/*", s.handleDelete)
	return r
}

func (s *Service) corsOrigins() []string {
	if len(s.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return s.CORSOrigins
}

// normalizeRedirect 307-redirects a request whose URI is not already in
// slot-normal form to its normalized equivalent, so no operator ever sees
// an un-normalized URI.
func (s *Service) normalizeRedirect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		base := httpheader.ReconstructedURI(r, s.TrustProxy)
		raw := base + r.URL.Path
		normalized, err := slot.Normalize(raw)
		if err != nil {
			problem.New(problem.TypeInvalidURI, http.StatusBadRequest, err.Error()).WriteTo(w)
			return
		}
		if normalized != raw {
			w.Header().Set("Location", normalized)
			w.WriteHeader(http.StatusTemporaryRedirect)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitAndACL applies the ingress middleware (per-client
// IP access control, then per-client rate limiting) ahead of routing. Both
// checks are no-ops when their respective config is nil, so a deployment
// that never sets Service.RateLimit/AccessControl pays only the ClientIP
// lookup already needed for X-Forwarded-For handling.
func (s *Service) rateLimitAndACL(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Middleware == nil {
			next.ServeHTTP(w, r)
			return
		}
		if allowed, reason := s.Middleware.CheckAccessControl(r, s.AccessControl); !allowed {
			problem.New(problem.TypeUnauthorized, http.StatusForbidden, reason).WriteTo(w)
			return
		}
		if !s.Middleware.CheckRateLimit(r, s.RateLimit) {
			problem.New(problem.TypeRateLimited, http.StatusTooManyRequests, "rate limit exceeded").WriteTo(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// resolveBinding locates the pod owning the request's reconstructed target
// URI and returns its binding alongside that URI.
func (s *Service) resolveBinding(r *http.Request) (*PodBinding, string, *problem.Detail) {
	base := httpheader.ReconstructedURI(r, s.TrustProxy)
	uri := base + r.URL.Path

	pod, err := s.Pods.Resolve(uri)
	if err != nil {
		return nil, "", problem.New(problem.TypeNotFound, http.StatusNotFound, "no pod owns this uri")
	}
	binding, ok := s.Bindings[pod.RootURI]
	if !ok {
		return nil, "", problem.New(problem.TypeInternal, http.StatusInternalServerError, "no operator bound to pod")
	}
	return binding, uri, nil
}

// authenticate resolves the request's credential via the configured
// SchemeSet on mutating methods (POST/PATCH/DELETE/PUT by default). A
// missing Authorization header resolves to a nil (anonymous) credential
// rather than an immediate challenge: whether anonymous access suffices is
// the access decision's call, and enforceAccess issues the 401 challenge
// when it denies an anonymous request. Only a credential that is present
// but fails verification is rejected here.
func (s *Service) authenticate(w http.ResponseWriter, r *http.Request, targetURI string) (*auth.Credential, bool) {
	if s.Auth == nil || !mutatingMethods[r.Method] {
		return nil, true
	}
	if r.Header.Get("Authorization") == "" {
		return nil, true
	}
	cred, err := s.Auth.Authenticate(auth.RequestHeaders{
		Authorization: r.Header.Get("Authorization"),
		DPoP:          r.Header.Get("DPoP"),
		Method:        r.Method,
		TargetURI:     targetURI,
	})
	if err != nil {
		w.Header().Set("WWW-Authenticate", auth.Challenge())
		problem.New(problem.TypeUnauthenticated, http.StatusUnauthorized, err.Error()).WriteTo(w)
		return nil, false
	}
	return cred, true
}

// enforceAccess builds the request's access.Context from cred and the pod,
// resolves the allowed/public modes via the binding's AccessEngine, and
// denies unless every mode in required is allowed. A denied anonymous
// request gets 401 + WWW-Authenticate (authenticating could change the
// decision); a denied authenticated request gets 403 + WAC-Allow. Once
// Decide succeeds the WAC-Allow header is written on the success path too;
// with no AccessEngine (b.Access nil) the request is allowed and no
// WAC-Allow header is written.
func (s *Service) enforceAccess(w http.ResponseWriter, r *http.Request, b *PodBinding, targetURI string, cred *auth.Credential, required access.ModeSet) (access.Decision, bool) {
	reqCtx := access.Context{
		Owner:  b.Pod.OwnerID,
		Target: targetURI,
	}
	if cred != nil {
		reqCtx.Agent = cred.WebID
		reqCtx.Client = cred.ClientID
		reqCtx.Issuer = cred.Issuer
	}

	if b.Access == nil {
		return access.Decision{Required: required, Allowed: required.Expand(), Public: required.Expand()}, true
	}

	decision, err := b.Access.Decide(r.Context(), reqCtx, required)
	if err != nil {
		s.writeInternal(w, r, err)
		return decision, false
	}

	w.Header().Set("WAC-Allow", httpheader.WACAllow(decision.Allowed.Sorted(), decision.Public.Sorted()))

	if !decision.Permitted() {
		if cred == nil && s.Auth != nil {
			w.Header().Set("WWW-Authenticate", auth.Challenge())
			problem.New(problem.TypeUnauthenticated, http.StatusUnauthorized, "this operation requires a credential").WriteTo(w)
			metrics.RequestsTotal.WithLabelValues(r.Method, "401").Inc()
			return decision, false
		}
		body := problem.New(problem.TypeUnauthorized, http.StatusForbidden, "insufficient access modes for this operation")
		if s.DevMode {
			body.Extra = map[string]string{
				"required": strings.Join(required.Sorted(), " "),
				"allowed":  strings.Join(decision.Allowed.Sorted(), " "),
				"public":   strings.Join(decision.Public.Sorted(), " "),
			}
		}
		body.WriteTo(w)
		metrics.RequestsTotal.WithLabelValues(r.Method, "403").Inc()
		return decision, false
	}
	return decision, true
}

func (s *Service) writeResourceLinks(w http.ResponseWriter, uri string, isContainer bool) {
	typeIRI := "http://www.w3.org/ns/ldp#Resource"
	if isContainer {
		typeIRI = "http://www.w3.org/ns/ldp#BasicContainer"
	}
	links := []string{
		`<` + typeIRI + `>; rel="type"`,
		`<` + slot.AuxURI(uri, slot.AuxACL) + `>; rel="acl"`,
		`<` + slot.AuxURI(uri, slot.AuxDescribedBy) + `>; rel="describedby"`,
	}
	w.Header().Set("Link", strings.Join(links, ", "))
	w.Header().Set("Accept-Patch", "text/turtle")
	w.Header().Set("Accept-Post", "text/turtle, application/octet-stream")
	w.Header().Set("Accept-Put", "text/turtle, application/octet-stream")
}

func (s *Service) handleGet(w http.ResponseWriter, r *http.Request) {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDurationVec(metrics.RequestDuration, r.Method)
	}()

	b, uri, problemDetail := s.resolveBinding(r)
	if problemDetail != nil {
		problemDetail.WriteTo(w)
		metrics.RequestsTotal.WithLabelValues(r.Method, "error").Inc()
		return
	}

	cred, ok := s.authenticate(w, r, uri)
	if !ok {
		return
	}

	required := access.RequiredModes(r.Method, slot.KindOfURI(uri) == slot.Container)
	if _, ok := s.enforceAccess(w, r, b, uri, cred, required); !ok {
		return
	}

	status, err := b.Operator.ResolveStatus(r.Context(), uri)
	if err != nil {
		s.writeInternal(w, r, err)
		return
	}
	if !status.IsExisting() {
		problem.New(problem.TypeNotFound, http.StatusNotFound, "no representation at this uri").WriteTo(w)
		metrics.RequestsTotal.WithLabelValues(r.Method, "404").Inc()
		return
	}

	pre := httpheader.ParsePreconditions(r)
	switch httpheader.Evaluate(pre, status.ETag, status.LastModified, true) {
	case httpheader.FailPreconditionFailed:
		problem.New(problem.TypePreconditionFailed, http.StatusPreconditionFailed, "").WriteTo(w)
		return
	case httpheader.FailNotModified:
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if etag := httpheader.FormatETag(status.ETag, status.LastModified); etag != "" {
		w.Header().Set("ETag", etag)
	}
	if !status.LastModified.IsZero() {
		w.Header().Set("Last-Modified", status.LastModified.UTC().Format(http.TimeFormat))
	}
	contentType := status.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	isContainer := slot.KindOfURI(uri) == slot.Container
	s.writeResourceLinks(w, uri, isContainer)
	if !isContainer {
		w.Header().Set("Accept-Ranges", "bytes")
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		metrics.RequestsTotal.WithLabelValues(r.Method, "200").Inc()
		return
	}

	obj, ok := s.readRepresentation(w, r, b, uri, isContainer)
	if !ok {
		return
	}

	if !isContainer && r.Header.Get("Range") != "" {
		if s.writePartial(w, r, status, obj) {
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(obj.Data)
	metrics.RequestsTotal.WithLabelValues(r.Method, "200").Inc()
}

// readRepresentation drives the operator chain's read, honoring a Prefer
// representation level for containers (echoed via Preference-Applied) and
// derived content negotiation otherwise. Writes the error response
// itself and returns ok=false on failure.
func (s *Service) readRepresentation(w http.ResponseWriter, r *http.Request, b *PodBinding, uri string, isContainer bool) (*objectstore.Object, bool) {
	level, expressed := httpheader.ParsePrefer(r.Header.Get("Prefer"))
	if expressed && isContainer {
		if pr, ok := b.Operator.(preferenceReader); ok {
			obj, err := pr.ReadWithPreference(r.Context(), uri, containerRepLevel(level))
			if err != nil {
				s.writeInternal(w, r, err)
				return nil, false
			}
			w.Header().Set("Preference-Applied", httpheader.PreferenceApplied)
			return obj, true
		}
	}
	if neg, ok := b.Operator.(negotiatingReader); ok {
		obj, err := neg.ReadNegotiated(r.Context(), uri, preferredMediaType(r))
		if err != nil {
			s.writeInternal(w, r, err)
			return nil, false
		}
		return obj, true
	}
	obj, err := b.Operator.Read(r.Context(), uri)
	if err != nil {
		s.writeInternal(w, r, err)
		return nil, false
	}
	return obj, true
}

// writePartial serves a Range request over obj's bytes, honoring If-Range.
// Returns true when it
// wrote the response (206 or 416); false means the caller should serve the
// complete representation.
func (s *Service) writePartial(w http.ResponseWriter, r *http.Request, status *repo.Status, obj *objectstore.Object) bool {
	if !httpheader.EvaluateIfRange(r.Header.Get("If-Range"), status.ETag, status.LastModified) {
		return false
	}
	size := int64(len(obj.Data))
	br, ok, satisfiable := httpheader.ParseRange(r.Header.Get("Range"), size)
	if !ok {
		return false
	}
	if !satisfiable {
		w.Header().Set("Content-Range", httpheader.ContentRangeUnsatisfied(size))
		problem.New(problem.TypeRangeNotSatisfiable, http.StatusRequestedRangeNotSatisfiable, "requested range is outside the representation").WriteTo(w)
		metrics.RequestsTotal.WithLabelValues(r.Method, "416").Inc()
		return true
	}
	w.Header().Set("Content-Range", br.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)
	_, _ = w.Write(obj.Data[br.Start : br.End+1])
	metrics.RequestsTotal.WithLabelValues(r.Method, "206").Inc()
	return true
}

func (s *Service) handlePut(w http.ResponseWriter, r *http.Request) {
	b, uri, problemDetail := s.resolveBinding(r)
	if problemDetail != nil {
		problemDetail.WriteTo(w)
		return
	}

	cred, ok := s.authenticate(w, r, uri)
	if !ok {
		return
	}

	required := access.RequiredModes(r.Method, slot.KindOfURI(uri) == slot.Container)
	if _, ok := s.enforceAccess(w, r, b, uri, cred, required); !ok {
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		problem.New(problem.TypeInternal, http.StatusBadRequest, err.Error()).WriteTo(w)
		return
	}
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	status, err := b.Operator.ResolveStatus(r.Context(), uri)
	if err != nil {
		s.writeInternal(w, r, err)
		return
	}

	pre := httpheader.ParsePreconditions(r)
	if outcome := httpheader.Evaluate(pre, status.ETag, status.LastModified, status.IsExisting()); outcome == httpheader.FailPreconditionFailed {
		problem.New(problem.TypePreconditionFailed, http.StatusPreconditionFailed, "").WriteTo(w)
		return
	}

	if status.MutexBlocked() {
		problem.New(problem.TypeMutexConflict, http.StatusConflict, "mutex peer already occupies this slot").WriteTo(w)
		return
	}

	existed := status.IsExisting()
	if existed {
		err = b.Operator.Update(r.Context(), uri, data, contentType)
	} else {
		err = b.Operator.Create(r.Context(), uri, data, contentType)
	}
	if err != nil {
		s.writeInternal(w, r, err)
		return
	}

	s.writeResourceLinks(w, uri, slot.KindOfURI(uri) == slot.Container)
	if existed {
		w.WriteHeader(http.StatusNoContent)
	} else {
		w.Header().Set("Location", uri)
		w.WriteHeader(http.StatusCreated)
	}
	logger := log.WithResourceURI(uri)
	logger.Info().Msg("put resource")
}

func (s *Service) handlePost(w http.ResponseWriter, r *http.Request) {
	b, containerURI, problemDetail := s.resolveBinding(r)
	if problemDetail != nil {
		problemDetail.WriteTo(w)
		return
	}
	if slot.KindOfURI(containerURI) != slot.Container {
		problem.New(problem.TypeInvalidURI, http.StatusMethodNotAllowed, "POST only targets containers").WriteTo(w)
		return
	}

	cred, ok := s.authenticate(w, r, containerURI)
	if !ok {
		return
	}

	required := access.RequiredModes(r.Method, true)
	if _, ok := s.enforceAccess(w, r, b, containerURI, cred, required); !ok {
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		problem.New(problem.TypeInternal, http.StatusBadRequest, err.Error()).WriteTo(w)
		return
	}
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	targetKind := slot.NonContainer
	if link := r.Header.Get("Link"); containsContainerLink(link) {
		targetKind = slot.Container
	}

	childURI := slot.SuggestResURI(containerURI, r.Header.Get("Slug"), targetKind)
	if err := b.Operator.Create(r.Context(), childURI, data, contentType); err != nil {
		s.writeInternal(w, r, err)
		return
	}

	s.writeResourceLinks(w, childURI, targetKind == slot.Container)
	w.Header().Set("Location", childURI)
	w.WriteHeader(http.StatusCreated)
}

func (s *Service) handlePatch(w http.ResponseWriter, r *http.Request) {
	b, uri, problemDetail := s.resolveBinding(r)
	if problemDetail != nil {
		problemDetail.WriteTo(w)
		return
	}

	cred, ok := s.authenticate(w, r, uri)
	if !ok {
		return
	}

	required := access.RequiredModes(r.Method, slot.KindOfURI(uri) == slot.Container)
	if _, ok := s.enforceAccess(w, r, b, uri, cred, required); !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		problem.New(problem.TypeInternal, http.StatusBadRequest, err.Error()).WriteTo(w)
		return
	}

	patcher, ok := b.Operator.(patchingOperator)
	if !ok {
		problem.New(problem.TypeInternal, http.StatusInternalServerError, "operator chain has no patching layer").WriteTo(w)
		return
	}
	if err := patcher.ApplyPatch(r.Context(), s.PatcherResolver, uri, r.Header.Get("Content-Type"), body); err != nil {
		if err == repo.ErrUnsupportedPatchType {
			problem.New(problem.TypeUnsupportedMediaType, http.StatusUnsupportedMediaType, err.Error()).WriteTo(w)
			return
		}
		s.writeInternal(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleDelete(w http.ResponseWriter, r *http.Request) {
	b, uri, problemDetail := s.resolveBinding(r)
	if problemDetail != nil {
		problemDetail.WriteTo(w)
		return
	}

	cred, ok := s.authenticate(w, r, uri)
	if !ok {
		return
	}

	required := access.RequiredModes(r.Method, slot.KindOfURI(uri) == slot.Container)
	if _, ok := s.enforceAccess(w, r, b, uri, cred, required); !ok {
		return
	}

	status, err := b.Operator.ResolveStatus(r.Context(), uri)
	if err != nil {
		s.writeInternal(w, r, err)
		return
	}
	if !status.IsExisting() {
		problem.New(problem.TypeNotFound, http.StatusNotFound, "").WriteTo(w)
		return
	}

	if err := b.Operator.Delete(r.Context(), uri); err != nil {
		if err == repo.ErrDeleteTargetsNonEmptyContainer || err == repo.ErrDeleteTargetsStorageRoot {
			problem.New(problem.TypeInvalidURI, http.StatusConflict, err.Error()).WriteTo(w)
			return
		}
		s.writeInternal(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) writeInternal(w http.ResponseWriter, r *http.Request, err error) {
	log.Error("storage service error: " + err.Error())
	metrics.RequestsTotal.WithLabelValues(r.Method, "500").Inc()
	problem.New(problem.TypeInternal, http.StatusInternalServerError, err.Error()).WriteTo(w)
}

func containsContainerLink(linkHeader string) bool {
	return linkHeader != "" && (strings.Contains(linkHeader, "#BasicContainer") || strings.Contains(linkHeader, "#Container"))
}

// preferredMediaType extracts the single highest-priority media range from
// an Accept header, ignoring q-values beyond ordering by first-listed
// (sufficient for the derived-content negotiator's exact-match lookup).
func preferredMediaType(r *http.Request) string {
	accept := r.Header.Get("Accept")
	if accept == "" || accept == "*/*" {
		return ""
	}
	first, _, _ := strings.Cut(accept, ",")
	mediaType, _, _ := strings.Cut(strings.TrimSpace(first), ";")
	return strings.TrimSpace(mediaType)
}
