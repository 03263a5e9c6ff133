// Package main runs an HTTP demonstration service around the license
// validation core: POST a License Document, get back its usability
// outcome as JSON.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/readium/r2-lcp-go/internal/adapters/crl"
	"github.com/readium/r2-lcp-go/internal/adapters/device"
	"github.com/readium/r2-lcp-go/internal/adapters/httpfetch"
	"github.com/readium/r2-lcp-go/internal/adapters/nativecrypto"
	"github.com/readium/r2-lcp-go/internal/adapters/passphrase"
	"github.com/readium/r2-lcp-go/internal/adapters/repository"
	"github.com/readium/r2-lcp-go/internal/config"
	"github.com/readium/r2-lcp-go/internal/lcpdoc"
	"github.com/readium/r2-lcp-go/internal/obsmetrics"
	"github.com/readium/r2-lcp-go/internal/platformctx"
	"github.com/readium/r2-lcp-go/internal/ratelimit"
	"github.com/readium/r2-lcp-go/internal/validation"
	"github.com/readium/r2-lcp-go/internal/validation/embedded"
)

func main() {
	_ = godotenv.Load(".env")
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("component", "lcp_validate_server").Logger()

	serverCfg := config.LoadServerConfig()
	logger.Info().Str("environment", string(serverCfg.Environment)).Msg("starting")

	appCfg, err := config.LoadDefault()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	if serverCfg.Environment == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	httpClient, err := httpfetch.NewClient(httpfetch.Options{Timeout: 15 * time.Second})
	if err != nil {
		logger.Fatal().Err(err).Msg("build http client")
	}

	store, err := repository.NewSQLiteStore(appCfg.StoreDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open license store")
	}
	defer store.Close()

	srv := &server{
		cfg:        appCfg,
		serverCfg:  serverCfg,
		httpClient: httpClient,
		store:      store,
		metrics:    obsmetrics.New(),
		logger:     logger,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ratelimit.New(30, time.Minute))

	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.POST("/v1/validate", srv.handleValidate)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	logger.Info().Str("addr", addr).Msg("listening")
	if err := router.Run(addr); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

type server struct {
	cfg        *config.Config
	serverCfg  config.ServerConfig
	httpClient *http.Client
	store      *repository.SQLiteStore
	metrics    *obsmetrics.Metrics
	logger     zerolog.Logger
}

type validateResponse struct {
	LicenseID string `json:"license_id,omitempty"`
	Usable    bool   `json:"usable"`
	Reason    string `json:"reason,omitempty"`
}

func (s *server) handleValidate(c *gin.Context) {
	passphraseParam := c.Query("passphrase")

	body, err := c.GetRawData()
	if err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty request body"})
		return
	}

	fetcher := httpfetch.New(s.httpClient)
	crlCache := crl.NewMemoryCache(crl.HTTPSource(s.httpClient, s.cfg.CrlURL), time.Duration(s.cfg.CrlCacheTTL)*time.Second)
	platform := platformctx.Detect("")
	deviceSvc := device.New(s.httpClient, platform, []byte("lcp-validate-server-signing-key"))
	passSvc := passphrase.New(s.cfg.PassphraseCache)
	auth := serverAuthenticator{presetPassphrase: passphraseParam}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	start := time.Now()
	facade := validation.NewFacade(ctx, validation.FacadeConfig{
		Network:             fetcher,
		Crl:                 crlCache,
		Passphrase:          passSvc,
		Device:              deviceSvc,
		Repository:          s.store,
		Crypto:              nativecrypto.New(),
		Platform:            platform,
		Authenticator:       auth,
		Logger:              s.logger,
		ProdProbeLicense:    embedded.ProdProbeLicense,
		ProdProbePassphrase: embedded.ProdProbePassphrase,
	})
	defer facade.Close()

	done := make(chan struct {
		docs *validation.ValidatedDocuments
		err  error
	}, 1)
	facade.Validate(validation.Seed{Kind: validation.SeedLicense, Bytes: body}, func(docs *validation.ValidatedDocuments, err error) {
		done <- struct {
			docs *validation.ValidatedDocuments
			err  error
		}{docs, err}
	})
	facade.Subscribe(s.metrics.Observer(start), validation.Once)

	select {
	case r := <-done:
		writeOutcome(c, r.docs, r.err, s.serverCfg.ExposeErrorDetail())
	case <-ctx.Done():
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "validation timed out"})
	}
}

func writeOutcome(c *gin.Context, docs *validation.ValidatedDocuments, err error, exposeDetail bool) {
	reason := func(err error) string {
		if exposeDetail {
			return err.Error()
		}
		return "validation failed"
	}

	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, validateResponse{Usable: false, Reason: reason(err)})
		return
	}
	if docs == nil {
		c.JSON(http.StatusUnprocessableEntity, validateResponse{Usable: false, Reason: "passphrase prompt cancelled"})
		return
	}
	resp := validateResponse{LicenseID: docs.License.ID(), Usable: docs.Context.IsUsable()}
	if !resp.Usable {
		resp.Reason = reason(docs.Context.StatusErr())
	}
	c.JSON(http.StatusOK, resp)
}

// serverAuthenticator resolves a passphrase from the request query
// string; a real deployment would plug in its own interactive or
// server-to-server lookup instead.
type serverAuthenticator struct {
	presetPassphrase string
}

func (a serverAuthenticator) RequestPassphrase(ctx context.Context, license *lcpdoc.License) (string, bool, error) {
	return a.presetPassphrase, a.presetPassphrase != "", nil
}
