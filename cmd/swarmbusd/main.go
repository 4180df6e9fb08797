// Command swarmbusd runs swarmbus's in-process event bus behind a small
// bot-swarm router: chat channel adapters publish inbound messages onto the
// bus, listeners reply with outbound messages, and an admin console lets an
// operator drive the bus directly.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sipeed/picoclaw/pkg/bus"
	"github.com/sipeed/picoclaw/pkg/channels"
	"github.com/sipeed/picoclaw/pkg/config"
	"github.com/sipeed/picoclaw/pkg/console"
	"github.com/sipeed/picoclaw/pkg/eventbus"
	"github.com/sipeed/picoclaw/pkg/scheduler"
	"github.com/sipeed/picoclaw/pkg/store"
)

func main() {
	configPath := flag.String("config", "swarmbus.yaml", "path to the swarmbus YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("swarmbusd: %v", err)
	}

	engine := eventbus.New(cfg.Engine.Bus())
	router := bus.NewRouter(engine)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Store.Enabled {
		deadLetters, err := store.Open(cfg.Store.Path)
		if err != nil {
			log.Fatalf("swarmbusd: dead-letter store: %v", err)
		}
		defer deadLetters.Close()
		engine.AddErrorHandler(deadLetters)
	}

	router.Start()
	defer router.Shutdown()

	if cfg.Discord.Enabled {
		discord, err := channels.NewDiscordAdapter(router, cfg.Discord.Token)
		if err != nil {
			log.Fatalf("swarmbusd: discord adapter: %v", err)
		}
		if err := discord.Open(); err != nil {
			log.Fatalf("swarmbusd: discord adapter: %v", err)
		}
		defer discord.Close()
	}

	var wsAdapter *channels.WebSocketAdapter
	if cfg.WebSocket.Enabled {
		wsAdapter = channels.NewWebSocketAdapter(router)
		if err := wsAdapter.Subscribe(); err != nil {
			log.Fatalf("swarmbusd: websocket adapter: %v", err)
		}
		srv := &http.Server{Addr: cfg.WebSocket.Addr, Handler: wsAdapter}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("swarmbusd: websocket server: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			srv.Close()
		}()
	}

	if cfg.Scheduler.Enabled {
		hb := scheduler.NewHeartbeatScheduler(router, cfg.Scheduler.CronExpr)
		go hb.Run(ctx)
	}

	admin, err := console.New(router)
	if err != nil {
		log.Fatalf("swarmbusd: console: %v", err)
	}
	defer admin.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("swarmbusd: shutting down")
		cancel()
		admin.Close()
	}()

	if err := admin.Run(); err != nil {
		log.Fatalf("swarmbusd: console: %v", err)
	}
}
