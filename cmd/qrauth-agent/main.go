// Command qrauth-agent runs a headless observer over a qrauth record store:
// it tails the live view, surfaces elevation prompts on stdout, and writes
// the engine's audit trail as JSON lines. Useful for operating and debugging
// a deployment without the mobile client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"

	"github.com/thecodeprism/qrauth"
	"github.com/thecodeprism/qrauth/realtime"
	"github.com/thecodeprism/qrauth/record"
)

type config struct {
	RedisAddr     string        `env:"QRAUTH_REDIS_ADDR"     envDefault:"localhost:6379"`
	RedisPrefix   string        `env:"QRAUTH_REDIS_PREFIX"   envDefault:"qa"`
	OperatorEmail string        `env:"QRAUTH_OPERATOR_EMAIL" envDefault:"agent@localhost"`
	BaseURL       string        `env:"QRAUTH_BASE_URL"       envDefault:"https://app.thecodeprism.com"`
	Route         string        `env:"QRAUTH_ROUTE"          envDefault:"thecodeprism-admin"`
	SettleWindow  time.Duration `env:"QRAUTH_SETTLE_WINDOW"  envDefault:"3s"`
}

// staticVerifier lets the agent assume an operator identity without an auth
// provider round trip. The agent only observes; approvals still require a
// store it can reach.
type staticVerifier struct {
	email string
}

func (v staticVerifier) Verify(ctx context.Context, email, password string) (qrauth.Principal, error) {
	return qrauth.Principal{UserID: "agent", Email: v.email}, nil
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "parse env: %v\n", err)
		os.Exit(2)
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{cfg.RedisAddr},
	})
	defer client.Close()

	engineCfg := qrauth.DefaultConfig()
	engineCfg.Store.RedisPrefix = cfg.RedisPrefix
	engineCfg.Links.BaseURL = cfg.BaseURL
	engineCfg.Links.Route = cfg.Route
	engineCfg.Scan.SettleWindow = cfg.SettleWindow

	engine, err := qrauth.New().
		WithRedis(client).
		WithConfig(engineCfg).
		WithCredentialVerifier(staticVerifier{email: cfg.OperatorEmail}).
		WithAuditSink(qrauth.NewJSONAuditSink(os.Stdout)).
		WithElevationHandler(func(link record.SharedLink) {
			fmt.Fprintf(os.Stderr, "elevation requested: link=%s visitor=%s type=%s access=%s duration=%s\n",
				link.ID, link.VisitorID, link.UserType, link.AccessType, link.Duration)
		}).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	ctx := context.Background()
	if _, err := engine.Login(ctx, cfg.OperatorEmail, "agent-session"); err != nil {
		fmt.Fprintf(os.Stderr, "login: %v\n", err)
		os.Exit(1)
	}

	updates, cancel := engine.ViewUpdates()
	defer cancel()

	fmt.Fprintf(os.Stderr, "observing %s (prefix %s), remote enabled: %v\n",
		cfg.RedisAddr, cfg.RedisPrefix, engine.RemoteEnabled())
	printView(engine.ActiveView())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case view := <-updates:
			printView(view)
		case <-stop:
			fmt.Fprintln(os.Stderr, "shutting down")
			engine.Logout(ctx)
			return
		}
	}
}

func printView(view []realtime.Entry) {
	fmt.Fprintf(os.Stderr, "active view: %d entries\n", len(view))
	for _, entry := range view {
		fmt.Fprintf(os.Stderr, "  %-11s %-12s expires %s\n",
			entry.Kind, entry.ID, entry.ExpiresAt.Format(time.RFC3339))
	}
}
