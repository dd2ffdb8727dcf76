package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/glovebox/server/internal/config"
	"github.com/glovebox/server/internal/core/event"
	"github.com/glovebox/server/internal/data"
	"github.com/glovebox/server/internal/gameplay"
	"github.com/glovebox/server/internal/match"
	"github.com/glovebox/server/internal/netplay"
	"github.com/glovebox/server/internal/netplay/packet"
	"github.com/glovebox/server/internal/scripting"
	"github.com/glovebox/server/internal/spectate"
)

// lingerTicks keeps the loop running after the result is sent so the
// writers can deliver it before the sessions close.
const lingerTicks = 50

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name, matchID string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             glovebox  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s \033[90m(match %s)\033[0m\n\n", name, matchID)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	cfgFlag := flag.String("config", "", "config file (default $"+config.EnvPath+" or "+config.DefaultPath+")")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(config.Path(*cfgFlag))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	log = log.With(zap.String("match", cfg.Server.MatchID))

	printBanner(cfg.Server.Name, cfg.Server.MatchID)

	// 3. Tuning and hit rules
	printSection("data")
	tuning, err := loadTuning(cfg.Match)
	if err != nil {
		return err
	}
	printOK(fmt.Sprintf("tuning loaded (%d inputs per packet)", tuning.MaxInputs))

	rules, err := scripting.NewEngine(cfg.Match.HitScript, tuning, log)
	if err != nil {
		return fmt.Errorf("hit script: %w", err)
	}
	defer rules.Close()
	if cfg.Match.HitScript == "" {
		printOK("built-in hit script")
	} else {
		printOK("hit script " + cfg.Match.HitScript)
	}
	fmt.Println()

	// 4. Match state
	bus := event.NewBus()
	subscribeLogging(bus, log)

	gm := match.NewGameManager(log, tuning, rules)
	clients := netplay.NewBroadcaster()
	server := match.NewServer(log, gm, clients, cfg.Network.StartDelay)
	server.SetEventBus(bus)

	// 5. Network server
	netServer, err := netplay.NewServer(cfg.Network.BindAddress, netplay.Options{
		InQueueSize:      cfg.Network.InQueueSize,
		OutQueueSize:     cfg.Network.OutQueueSize,
		PacketsPerSecond: cfg.Network.PacketsPerSecond,
		ReadTimeout:      cfg.Network.ReadTimeout,
		WriteTimeout:     cfg.Network.WriteTimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("net server: %w", err)
	}
	go netServer.AcceptLoop()
	defer netServer.Shutdown()

	// 6. Spectators
	var hub *spectate.Hub
	if cfg.Spectate.Enabled {
		hub = spectate.NewHub(log)
		httpServer := &http.Server{Addr: cfg.Spectate.BindAddress, Handler: hub}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("spectate server stopped", zap.Error(err))
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpServer.Shutdown(ctx)
			hub.Close()
		}()
	}

	// 7. Packet handlers
	loop := &gameLoop{
		log:     log,
		server:  server,
		clients: clients,
		joined:  make(map[uint64]uuid.UUID),
	}
	reg := packet.NewRegistry(log)
	loop.register(reg)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Network.FixedStep)
	defer ticker.Stop()

	printSection("ready")
	printReady("listening on " + netServer.Addr().String())
	if hub != nil {
		printReady("spectators on ws://" + cfg.Spectate.BindAddress)
	}
	printReady(fmt.Sprintf("game loop started (step %s)", cfg.Network.FixedStep))
	fmt.Println()

	linger := 0
	for {
		select {
		case <-ticker.C:
			loop.acceptSessions(netServer)
			loop.dropDeadSessions(netServer)
			loop.drainInput(reg, cfg.Network.MaxPacketsPerTick)
			if loop.fatal != nil {
				clients.Flush()
				return loop.fatal
			}
			clients.Flush()
			bus.Flush()

			if hub != nil {
				if err := hub.Publish(spectate.Capture(gm)); err != nil {
					log.Warn("publish snapshot", zap.Error(err))
				}
			}

			if server.Finished() {
				linger++
				if linger >= lingerTicks {
					log.Info("match over, stopping")
					return nil
				}
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			server.Abort()
			clients.Flush()
			log.Info("server stopped")
			return nil
		}
	}
}

// gameLoop owns the per-session bookkeeping of the main goroutine.
type gameLoop struct {
	log     *zap.Logger
	server  *match.Server
	clients *netplay.Broadcaster
	joined  map[uint64]uuid.UUID // session id -> client id
	fatal   error
}

func (l *gameLoop) register(reg *packet.Registry) {
	reg.Register(packet.OpJoin, []packet.SessionState{packet.StateJoining, packet.StateInMatch},
		func(s any, msg packet.Message) {
			sess := s.(*netplay.Session)
			m := msg.(*packet.Join)
			if id, ok := l.joined[sess.ID]; ok && id != m.ClientID {
				l.log.Warn("client id changed on session", zap.Uint64("session", sess.ID))
				sess.Close()
				return
			}
			if _, err := l.server.Join(m); err != nil {
				sess.Close()
				return
			}
			l.joined[sess.ID] = m.ClientID
			sess.SetState(packet.StateInMatch)
		})

	reg.Register(packet.OpPlayerInput, []packet.SessionState{packet.StateInMatch},
		func(s any, msg packet.Message) {
			sess := s.(*netplay.Session)
			m := msg.(*packet.PlayerInput)
			if p, ok := l.server.Player(l.joined[sess.ID]); !ok || p != m.Player {
				l.log.Warn("input for another player", zap.Uint64("session", sess.ID), zap.Uint8("player", uint8(m.Player)))
				sess.Close()
				return
			}
			if err := l.server.PlayerInput(m); err != nil {
				l.fatal = err
			}
		})
}

func (l *gameLoop) acceptSessions(srv *netplay.Server) {
	for {
		select {
		case sess := <-srv.NewSessions():
			l.clients.Add(sess)
		default:
			return
		}
	}
}

func (l *gameLoop) dropDeadSessions(srv *netplay.Server) {
	for {
		select {
		case id := <-srv.DeadSessions():
			l.clients.Remove(id)
			if clientID, ok := l.joined[id]; ok {
				delete(l.joined, id)
				if !l.server.Finished() {
					l.server.Disconnect(clientID)
				}
			}
		default:
			return
		}
	}
}

// drainInput dispatches at most maxPerSession packets of every session.
func (l *gameLoop) drainInput(reg *packet.Registry, maxPerSession int) {
	for _, sess := range l.sessions() {
		for i := 0; i < maxPerSession && l.fatal == nil; i++ {
			var data []byte
			select {
			case data = <-sess.InQueue:
			default:
			}
			if data == nil {
				break
			}
			if err := reg.Dispatch(sess, sess.State(), data); err != nil {
				l.log.Warn("bad packet, closing session", zap.Uint64("session", sess.ID), zap.Error(err))
				sess.Close()
				break
			}
		}
	}
}

func (l *gameLoop) sessions() []*netplay.Session {
	out := make([]*netplay.Session, 0, l.clients.Len())
	l.clients.Each(func(s *netplay.Session) { out = append(out, s) })
	return out
}

func subscribeLogging(bus *event.Bus, log *zap.Logger) {
	event.Subscribe(bus, func(e event.MatchStarted) {
		log.Info("match starting", zap.Time("at", time.UnixMilli(e.StartAtMillis)))
	})
	event.Subscribe(bus, func(e event.HitLanded) {
		log.Info("hit",
			zap.Uint32("frame", e.Frame),
			zap.Uint8("attacker", e.Attacker),
			zap.Uint8("victim", e.Victim),
			zap.Float32("damage", e.DamagePercent))
	})
	event.Subscribe(bus, func(e event.GloveClash) {
		log.Debug("clash", zap.Uint32("frame", e.Frame), zap.Bool("parry", e.Parry))
	})
	event.Subscribe(bus, func(e event.PlayerLeft) {
		log.Info("player left", zap.Uint8("player", e.Player), zap.Stringer("client", e.ClientID))
	})
	event.Subscribe(bus, func(e event.MatchWon) {
		log.Info("match won", zap.Uint32("frame", e.Frame), zap.Int("winner", e.Winner))
	})
}

// loadTuning reads the tuning file named by cfg, or the defaults, and
// applies the configured input window.
func loadTuning(cfg config.MatchConfig) (*gameplay.Tuning, error) {
	var tuning *gameplay.Tuning
	if cfg.TuningFile == "" {
		t := gameplay.DefaultTuning()
		tuning = &t
	} else {
		t, err := data.LoadTuning(cfg.TuningFile)
		if err != nil {
			return nil, fmt.Errorf("load tuning: %w", err)
		}
		tuning = t
	}
	tuning.MaxInputs = cfg.InputWindow
	if err := tuning.Validate(); err != nil {
		return nil, fmt.Errorf("match.input_window: %w", err)
	}
	return tuning, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
