package cli

import (
	"errors"
	"fmt"

	"github.com/auditportal/auditportal/internal/api"
	"github.com/auditportal/auditportal/internal/catalog"
	"github.com/auditportal/auditportal/internal/config"
	"github.com/auditportal/auditportal/internal/events"
	"github.com/auditportal/auditportal/internal/logging"
	"github.com/auditportal/auditportal/internal/services"
	"github.com/auditportal/auditportal/internal/session"
)

// commandEnv is what a command needs to talk to the portal.
type commandEnv struct {
	cfg     *config.Config
	session *session.Session
	client  *api.Client
	logger  *logging.Logger
	bus     *events.EventBus
}

// loadConfig reads the config file and applies environment and flag
// overrides, in that order.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg.MergeWithEnv()
	cfg.MergeWithFlags(apiBaseURL, proxyMode, proxyHost, proxyPort)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

func sessionPath() string {
	if sessionFile != "" {
		return sessionFile
	}
	return config.DefaultSessionPath()
}

// newEnv loads config and session and builds the API client. With
// requireAuth, a missing token is an error. A token from the environment
// takes precedence over the stored one.
func newEnv(requireAuth bool, log *logging.Logger) (*commandEnv, error) {
	if log == nil {
		log = GetLogger()
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	sess, err := session.Load(sessionPath())
	if err != nil {
		return nil, err
	}
	if cfg.Token != "" {
		sess.Token = cfg.Token
	}
	if requireAuth {
		if err := sess.Require(); err != nil {
			return nil, withSigninHint(err)
		}
	}

	client, err := api.NewClient(cfg, sess.Token, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return &commandEnv{cfg: cfg, session: sess, client: client, logger: log, bus: GetEventBus()}, nil
}

// username is the identity the files feed is requested for.
func (e *commandEnv) username() string {
	return e.session.Identity.Username
}

func (e *commandEnv) catalogService() *services.CatalogService {
	return services.NewCatalogService(e.client, e.bus, e.logger, catalog.ParseLanguage(e.cfg.CollationLanguage))
}

// withSigninHint points the user at signin when the error is about
// missing or rejected credentials.
func withSigninHint(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, session.ErrNoSession) || api.IsUnauthorized(err) {
		return fmt.Errorf("%w (run 'auditportal signin')", err)
	}
	return err
}
