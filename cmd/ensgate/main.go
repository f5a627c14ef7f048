package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"flag"
	"log"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"

	"github.com/ensgate/ensgate/adapters/ens"
	"github.com/ensgate/ensgate/adapters/events"
	"github.com/ensgate/ensgate/adapters/profile"
	"github.com/ensgate/ensgate/adapters/store"
	"github.com/ensgate/ensgate/adapters/tokenizer"
	"github.com/ensgate/ensgate/core"
	"github.com/ensgate/ensgate/internal/config"
	"github.com/ensgate/ensgate/ports"
	"github.com/ensgate/ensgate/service"
	transport "github.com/ensgate/ensgate/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Sessions do not survive a restart with an ephemeral key; load
	// the signing key from secure storage when that matters
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		log.Fatalf("Failed to generate signing key: %v", err)
	}

	chain, err := ethclient.Dial(cfg.Ethereum.RPCURL)
	if err != nil {
		log.Fatalf("Failed to dial Ethereum RPC %s: %v", cfg.Ethereum.RPCURL, err)
	}

	resolver, err := ens.NewResolver(chain, common.HexToAddress(cfg.Ethereum.Registry), ens.DefaultCallTimeout)
	if err != nil {
		log.Fatalf("Failed to create ENS resolver: %v", err)
	}

	var (
		nonces   ports.NonceStore
		users    ports.UserStore
		eventPub ports.EventPublisher
	)

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient := redis.NewClient(opts)

		nonces = store.NewRedisNonceStore(redisClient, core.ChallengeTTL)
		users = store.NewRedisUserStore(redisClient)

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			log.Fatalf("Failed to create Redis publisher: %v", err)
		}
		eventPub = events.NewWatermillPublisher(publisher)
	} else {
		log.Println("No Redis configured, using in-memory stores")
		nonces = store.NewMemoryNonceStore(core.ChallengeTTL)
		users = store.NewMemoryUserStore()
	}

	authService := service.NewAuthService(
		nonces,
		users,
		resolver,
		profile.NewReader(chain),
		tokenizer.NewJWTTokenizer(signKey),
		eventPub,
		service.WithSessionTTL(time.Duration(cfg.Auth.SessionTTLHours)*time.Hour),
		service.WithUnresolvedNamePolicy(cfg.Auth.AllowUnresolvedNames),
	)

	router := transport.SetupRouter(authService)

	log.Printf("Listening on %s", cfg.Server.Listen)
	if err := router.Run(cfg.Server.Listen); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
