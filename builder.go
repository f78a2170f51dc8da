package jwtpair

import (
	"errors"
	"time"

	"github.com/MrEthical07/jwtpair/internal/audit"
	"github.com/MrEthical07/jwtpair/jwt"
	"github.com/MrEthical07/jwtpair/tracking"
	"github.com/MrEthical07/jwtpair/tracking/pgstore"
	"github.com/MrEthical07/jwtpair/tracking/redisstore"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Builder assembles an Authenticator. Configure it during initialization;
// Build may be called once.
type Builder[ID comparable] struct {
	config Config

	store    tracking.Store
	redis    redis.UniversalClient
	postgres pgstore.DB

	logger    logrus.FieldLogger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New[ID comparable]() *Builder[ID] {
	return &Builder[ID]{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The key slices are copied.
func (b *Builder[ID]) WithConfig(cfg Config) *Builder[ID] {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore uses store as the tracking store.
func (b *Builder[ID]) WithStore(store tracking.Store) *Builder[ID] {
	b.store = store
	return b
}

// WithRedis tracks renewal identifiers in Redis under
// Config.Tracking.RedisPrefix.
func (b *Builder[ID]) WithRedis(client redis.UniversalClient) *Builder[ID] {
	b.redis = client
	return b
}

// WithPostgres tracks renewal identifiers in the Config.Tracking.PostgresTable
// table. db is usually a *pgxpool.Pool. The table must already exist; see
// pgstore.(*Store).EnsureSchema.
func (b *Builder[ID]) WithPostgres(db pgstore.DB) *Builder[ID] {
	b.postgres = db
	return b
}

// WithLogger sets the logger for warnings. Defaults to the logrus standard
// logger.
func (b *Builder[ID]) WithLogger(logger logrus.FieldLogger) *Builder[ID] {
	b.logger = logger
	return b
}

func (b *Builder[ID]) WithAuditSink(sink AuditSink) *Builder[ID] {
	b.auditSink = sink
	return b
}

func (b *Builder[ID]) WithMetricsEnabled(enabled bool) *Builder[ID] {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder[ID]) WithLatencyHistograms(enabled bool) *Builder[ID] {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock overrides the clock used to stamp and verify tokens.
func (b *Builder[ID]) WithClock(now func() time.Time) *Builder[ID] {
	b.now = now
	return b
}

// Build validates the configuration, parses key material and returns the
// Authenticator. Exactly one tracking backend must be configured.
func (b *Builder[ID]) Build() (*Authenticator[ID], error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	// -------- TRACKING STORE --------
	backends := 0
	for _, set := range []bool{b.store != nil, b.redis != nil, b.postgres != nil} {
		if set {
			backends++
		}
	}
	switch {
	case backends == 0:
		return nil, errors.New("tracking store required")
	case backends > 1:
		return nil, errors.New("only one tracking store may be configured")
	}

	store := b.store
	switch {
	case b.redis != nil:
		store = redisstore.NewStore(b.redis, cfg.Tracking.RedisPrefix)
	case b.postgres != nil:
		store = pgstore.NewStore(b.postgres, cfg.Tracking.PostgresTable)
	}

	// -------- SIGNING --------
	manager, err := jwt.NewManager[ID](jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		Now:           b.now,
	})
	if err != nil {
		return nil, err
	}

	for _, w := range cfg.Lint().BySeverity(LintWarn) {
		logger.WithFields(logrus.Fields{
			"code":     w.Code,
			"severity": w.Severity.String(),
		}).Warn("jwtpair: " + w.Message)
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	a := &Authenticator[ID]{
		config:  cfg,
		manager: manager,
		store:   store,
		logger:  logger,
		metrics: NewMetrics(cfg.Metrics),
		now:     now,
		newJTI:  newJTI,
	}
	a.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true

	return a, nil
}
