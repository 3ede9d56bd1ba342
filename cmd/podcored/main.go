// Command podcored serves one Solid storage space over HTTP,
// wiring the repository engine, access-control engine, and authentication
// pipeline together per a YAML configuration document.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/podcore/internal/config"
	"github.com/cuemby/podcore/pkg/access"
	"github.com/cuemby/podcore/pkg/auth"
	"github.com/cuemby/podcore/pkg/log"
	"github.com/cuemby/podcore/pkg/metrics"
	"github.com/cuemby/podcore/pkg/objectstore"
	"github.com/cuemby/podcore/pkg/podset"
	"github.com/cuemby/podcore/pkg/repo"
	"github.com/cuemby/podcore/pkg/repo/layer"
	"github.com/cuemby/podcore/pkg/slot"
	"github.com/cuemby/podcore/pkg/storageservice"
	"github.com/spf13/cobra"
)

// Version information, set via ldflags during build.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "podcored --config <path>",
	Short:   "podcored serves Solid storage spaces over HTTP",
	Version: Version,
	RunE:    run,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("podcored version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime))
	rootCmd.Flags().String("config", "", "path to the podcored YAML configuration file (required)")
	rootCmd.Flags().Bool("debug", false, "enable debug-level logging")
	_ = rootCmd.MarkFlagRequired("config")
}

func run(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	log.Init(log.Config{Level: level, JSONOutput: !debug})

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	metrics.SetVersion(Version)

	binding, pod, err := buildBinding(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("building storage space: %w", err)
	}

	pods := podset.NewStaticPodSet([]*podset.Pod{pod})
	bindings := map[string]*storageservice.PodBinding{pod.RootURI: binding}

	var schemes *auth.SchemeSet
	if len(cfg.Auth.TrustedIssuers) > 0 {
		scheme, err := buildAuthScheme(cfg)
		if err != nil {
			return fmt.Errorf("building authentication scheme: %w", err)
		}
		schemes = auth.NewSchemeSet(scheme)
	}

	svc := storageservice.NewService(pods, bindings, schemes, cfg.Server.TrustProxy)
	svc.DevMode = cfg.DevMode

	mux := http.NewServeMux()
	mux.Handle("/-/metrics", metrics.Handler())
	mux.HandleFunc("/-/healthz", metrics.HealthHandler())
	mux.HandleFunc("/-/readyz", metrics.ReadyHandler())
	mux.Handle("/", svc.Router())

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: mux,
	}

	metrics.RegisterComponent("storage-space", true, pod.RootURI)
	metrics.RegisterComponent("objectstore", true, cfg.Storage.Repo.Backend.Kind)
	metrics.RegisterComponent("storageservice", true, pod.RootURI)
	errCh := make(chan error, 1)
	go func() {
		log.Logger.Info().Str("addr", cfg.Server.Addr).Str("root_uri", pod.RootURI).Msg("starting podcored")
		var serveErr error
		if cfg.Server.TLS.Enabled() {
			serveErr = server.ListenAndServeTLS(cfg.Server.TLS.CertPath, cfg.Server.TLS.KeyPath)
		} else {
			serveErr = server.ListenAndServe()
		}
		if serveErr != nil && serveErr != http.ErrServerClosed {
			errCh <- serveErr
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigCh:
		log.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

// buildBinding constructs the repo engine, layer chain, and access engine
// for the one storage space a config document names.
func buildBinding(ctx context.Context, cfg *config.Config) (*storageservice.PodBinding, *podset.Pod, error) {
	backend, err := buildBackend(ctx, cfg.Storage.Repo.Backend)
	if err != nil {
		return nil, nil, err
	}

	rootURI := cfg.Storage.Space.RootURI
	engine := repo.NewEngine(rootURI, backend)
	if err := engine.Initialize(ctx); err != nil {
		return nil, nil, fmt.Errorf("initializing storage root: %w", err)
	}

	auxPolicy := slot.DefaultAuxPolicy()
	pod := &podset.Pod{RootURI: rootURI, OwnerID: cfg.Storage.Space.OwnerID, AuxPolicy: auxPolicy}

	var base layer.Operator = engine
	chain := layer.Chain(base,
		layer.NewValidating(rootURI, auxPolicy),
		layer.NewPatching(repo.NewDefaultPatcherResolver()),
		layer.NewDerivedContentNegotiating(),
	)

	engineKind := access.KindACP
	if cfg.Storage.Repo.AccessControlEngine == "wac" {
		engineKind = access.KindWAC
	}
	prp := access.NewPRP(rootURI, access.NewEngineReader(chain), nil)
	accessEngine := access.NewAccessEngine(engineKind, prp)

	return &storageservice.PodBinding{Pod: pod, Operator: chain, Access: accessEngine}, pod, nil
}

func buildBackend(ctx context.Context, cfg config.BackendConfig) (objectstore.Backend, error) {
	switch cfg.Kind {
	case "memory":
		return objectstore.NewMemoryBackend(), nil
	case "fs":
		return objectstore.NewFSBackend(cfg.FS.Root)
	case "embedded":
		return objectstore.NewEmbeddedBackend(cfg.Embedded.DataDir)
	case "s3":
		return objectstore.NewS3Backend(ctx, cfg.S3.Bucket, cfg.S3.Endpoint)
	default:
		return nil, fmt.Errorf("unknown backend kind %q", cfg.Kind)
	}
}

func buildAuthScheme(cfg *config.Config) (auth.Scheme, error) {
	trusted := make(auth.StaticTrustedIssuers, len(cfg.Auth.TrustedIssuers))
	for _, iss := range cfg.Auth.TrustedIssuers {
		trusted[iss] = true
	}
	fetcher := auth.NewHTTPJWKSFetcher(nil)
	scheme, err := auth.NewDPoPBoundBearerScheme(trusted, fetcher.Fetch, cfg.Auth.CacheCapacity, cfg.Auth.CacheTTL)
	if err != nil {
		return nil, err
	}
	webidFetcher := auth.NewWebIDProfileFetcher(nil)
	webidResolver, err := auth.NewCachedWebIDResolver(webidFetcher, cfg.Auth.CacheCapacity, cfg.Auth.CacheTTL)
	if err != nil {
		return nil, err
	}
	scheme.WebIDProfile = webidResolver
	return scheme, nil
}
