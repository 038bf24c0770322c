package setup

import (
	"fmt"

	"github.com/opinio-dev/opinio/internal/config"
	"github.com/opinio-dev/opinio/internal/email"
	"github.com/opinio-dev/opinio/internal/handler"
	"github.com/opinio-dev/opinio/internal/jwt"
	"github.com/opinio-dev/opinio/internal/service"
	"github.com/opinio-dev/opinio/internal/session"
	"github.com/opinio-dev/opinio/internal/storage/pg"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	Config  *config.Config
	Storage *pg.Storage
	Issuer  session.Issuer
	Handler *handler.Handler
	Auth    *service.Auth
}

// SetupDependencies wires storage, the session strategy, the OTP pipeline
// and the handlers, then seeds the bootstrap admin.
func SetupDependencies(cfg *config.Config) (*Dependencies, error) {
	storage, err := pg.New(&cfg.Private.Pg)
	if err != nil {
		return nil, err
	}

	jwtService := jwt.New(cfg.JwtKey(), cfg.JwtTTL())
	issuer, err := buildIssuer(cfg, storage, jwtService)
	if err != nil {
		return nil, err
	}

	ledger := service.NewOtpLedger(storage, cfg.OtpExpiry(), cfg.OtpResendWindow(), cfg.Public.OtpMaxAttempts)
	gateway := email.NewGateway(buildTransports(cfg)...)

	auth := service.NewAuth(storage, ledger, gateway, issuer, cfg.Public.RequireOtp, cfg.Public.OtpExpiryMinutes)
	feedback := service.NewFeedback(storage)

	// seed admin; password resync only ever happens outside production
	if err := auth.EnsureDefaultAdmin(cfg.Private.SeedEmail, cfg.Private.SeedPass, !cfg.IsProduction()); err != nil {
		return nil, err
	}

	return &Dependencies{
		Config:  cfg,
		Storage: storage,
		Issuer:  issuer,
		Handler: handler.New(auth, feedback),
		Auth:    auth,
	}, nil
}

func buildIssuer(cfg *config.Config, storage *pg.Storage, jwtService jwt.Service) (session.Issuer, error) {
	switch cfg.Public.AuthMode {
	case config.AuthModeToken:
		return session.NewTokenIssuer(jwtService), nil
	case config.AuthModeSession:
		return session.NewCookieIssuer(storage, jwtService, cfg.Private.SessionKey, cfg.JwtTTL(), cfg.Public.SecureCookies), nil
	default:
		return nil, fmt.Errorf("unknown auth_mode %q", cfg.Public.AuthMode)
	}
}

// buildTransports assembles the delivery chain in priority order. The
// console fallback only exists outside production.
func buildTransports(cfg *config.Config) []email.Transport {
	var transports []email.Transport

	if smtp := email.NewSMTPTransport(&cfg.Private.Smtp); smtp.Configured() {
		transports = append(transports, smtp)
	}
	if api := email.NewAPITransport(&cfg.Private.EmailAPI); api.Configured() {
		transports = append(transports, api)
	}
	if !cfg.IsProduction() {
		transports = append(transports, email.NewConsoleTransport())
	}

	return transports
}
