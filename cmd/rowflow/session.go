package main

import (
	"github.com/aretw0/rowflow/pkg/adapters/file"
	"github.com/aretw0/rowflow/pkg/adapters/memory"
	redisadapter "github.com/aretw0/rowflow/pkg/adapters/redis"
	"github.com/aretw0/rowflow/pkg/persistence/middleware"
	"github.com/aretw0/rowflow/pkg/ports"
	"github.com/aretw0/rowflow/pkg/session"
	backend "github.com/redis/go-redis/v9"
)

// newSessionManager builds the row tracker from the configuration. Redis wins
// when an address is set; otherwise results go to the store directory, or stay
// in memory when persist is false. The returned function releases the backend.
func newSessionManager(persist bool) (*session.Manager, func() error, error) {
	mws, err := storeMiddlewares()
	if err != nil {
		return nil, nil, err
	}

	if cfg.RedisAddr == "" {
		var store ports.ResultStore = memory.NewStore()
		if persist {
			store = file.NewStore(cfg.StoreDir)
		}
		mgr := session.NewManager(middleware.Chain(store, mws...), session.WithLogger(logger))
		return mgr, func() error { return nil }, nil
	}

	client := backend.NewClient(&backend.Options{Addr: cfg.RedisAddr})
	var store ports.ResultStore = redisadapter.NewFromClient(client, redisadapter.WithTTL(cfg.ResultTTL))
	locker := redisadapter.NewLocker(client, "rowflow:")

	mgr := session.NewManager(middleware.Chain(store, mws...),
		session.WithLocker(locker),
		session.WithLogger(logger),
	)
	return mgr, client.Close, nil
}

// storeMiddlewares returns redaction (outermost) and encryption as configured.
func storeMiddlewares() ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(cfg.Redact) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.Redact)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}
	if cfg.EncryptionKey != "" {
		key, err := middleware.DecodeKey(cfg.EncryptionKey)
		if err != nil {
			return nil, err
		}
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return mws, nil
}
