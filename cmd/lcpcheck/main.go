// Package main is the entrypoint for the lcpcheck CLI, a standalone
// tool that drives the license validation core against a License
// Document on disk.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/readium/r2-lcp-go/internal/adapters/crl"
	"github.com/readium/r2-lcp-go/internal/adapters/device"
	"github.com/readium/r2-lcp-go/internal/adapters/httpfetch"
	"github.com/readium/r2-lcp-go/internal/adapters/nativecrypto"
	"github.com/readium/r2-lcp-go/internal/adapters/passphrase"
	"github.com/readium/r2-lcp-go/internal/adapters/repository"
	"github.com/readium/r2-lcp-go/internal/auditlog"
	"github.com/readium/r2-lcp-go/internal/config"
	"github.com/readium/r2-lcp-go/internal/lcpdoc"
	"github.com/readium/r2-lcp-go/internal/obsmetrics"
	"github.com/readium/r2-lcp-go/internal/platformctx"
	"github.com/readium/r2-lcp-go/internal/validation"
	"github.com/readium/r2-lcp-go/internal/validation/embedded"
)

// Build-time variables set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	_ = godotenv.Load(".env")
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lcpcheck",
		Short: "lcpcheck validates a Readium LCP license against its status service",
		Long: `lcpcheck drives the license validation core against a License
Document on disk, fetching its Status Document and checking device
registration the same way a reading application would.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newValidateCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("lcpcheck %s (%s)\n", Version, Commit)
			return nil
		},
	}
}

func newValidateCmd() *cobra.Command {
	var passphraseFlag string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "validate <license.lcpl>",
		Short: "Validate a License Document and report the outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), args[0], passphraseFlag, timeout)
		},
	}
	cmd.Flags().StringVar(&passphraseFlag, "passphrase", "", "passphrase used to unlock the license; there is no interactive prompt")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall validation timeout")
	return cmd
}

func runValidate(parent context.Context, licensePath, passphraseFlag string, timeout time.Duration) error {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("component", "lcpcheck").Logger()

	cfg, err := config.LoadDefault()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	licenseBytes, err := os.ReadFile(licensePath)
	if err != nil {
		return fmt.Errorf("read license: %w", err)
	}

	httpClient, err := httpfetch.NewClient(httpfetch.Options{Timeout: 15 * time.Second})
	if err != nil {
		return fmt.Errorf("build http client: %w", err)
	}
	fetcher := httpfetch.New(httpClient)

	crlCache := crl.NewMemoryCache(crl.HTTPSource(httpClient, cfg.CrlURL), time.Duration(cfg.CrlCacheTTL)*time.Second)

	store, err := repository.NewSQLiteStore(cfg.StoreDir, logger)
	if err != nil {
		return fmt.Errorf("open license store: %w", err)
	}
	defer store.Close()

	platform := platformctx.Detect("")
	deviceSvc := device.New(httpClient, platform, []byte("lcpcheck-dev-signing-key"))
	passSvc := passphrase.New(cfg.PassphraseCache)
	metrics := obsmetrics.New()
	audit := auditlog.New(func(line string) { logger.Info().Msg(line) })

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	facade := validation.NewFacade(ctx, validation.FacadeConfig{
		Network:             fetcher,
		Crl:                 crlCache,
		Passphrase:          passSvc,
		Device:              deviceSvc,
		Repository:          store,
		Crypto:              nativecrypto.New(),
		Platform:            platform,
		Authenticator:       cliAuthenticator{presetPassphrase: passphraseFlag},
		Logger:              logger,
		ProdProbeLicense:    embedded.ProdProbeLicense,
		ProdProbePassphrase: embedded.ProdProbePassphrase,
	})
	defer facade.Close()

	start := time.Now()
	done := make(chan struct {
		docs *validation.ValidatedDocuments
		err  error
	}, 1)

	facade.Validate(validation.Seed{Kind: validation.SeedLicense, Bytes: licenseBytes}, func(docs *validation.ValidatedDocuments, err error) {
		done <- struct {
			docs *validation.ValidatedDocuments
			err  error
		}{docs, err}
	})
	facade.Subscribe(metrics.Observer(start), validation.Once)
	facade.Subscribe(audit.Observer(licensePath), validation.Once)

	select {
	case r := <-done:
		if data, ferr := audit.Flush(); ferr == nil && data != nil {
			logger.Debug().Int("bytes", len(data)).Msg("audit log flushed")
		}
		return report(r.docs, r.err)
	case <-ctx.Done():
		return fmt.Errorf("validation timed out: %w", ctx.Err())
	}
}

func report(docs *validation.ValidatedDocuments, err error) error {
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if docs == nil {
		return fmt.Errorf("passphrase prompt was cancelled")
	}
	if docs.Context.IsUsable() {
		fmt.Printf("license %s is valid\n", docs.License.ID())
		return nil
	}
	fmt.Printf("license %s is not usable: %v\n", docs.License.ID(), docs.Context.StatusErr())
	return nil
}

// cliAuthenticator is a minimal Authenticator/PassphraseService that
// returns a preset passphrase instead of prompting.
type cliAuthenticator struct {
	presetPassphrase string
}

func (a cliAuthenticator) RequestPassphrase(ctx context.Context, license *lcpdoc.License) (string, bool, error) {
	return a.presetPassphrase, a.presetPassphrase != "", nil
}

func (a cliAuthenticator) Request(ctx context.Context, license *lcpdoc.License, authenticator lcpdoc.Authenticator) (string, bool) {
	passphrase, ok, _ := a.RequestPassphrase(ctx, license)
	return passphrase, ok
}
