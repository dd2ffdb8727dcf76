// glovebench plays a headless match between two scripted clients and the
// server over simulated links, then checks that all three ended up with
// the same validated state.
//
// Profiling:
//
//	go build ./cmd/glovebench
//	./glovebench -profile cpu -frames 20000
//	go tool pprof -http=":8000" ./glovebench cpu.pprof
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/pkg/profile"
	"go.uber.org/zap"

	"github.com/glovebox/server/internal/data"
	"github.com/glovebox/server/internal/gameplay"
	"github.com/glovebox/server/internal/match"
	"github.com/glovebox/server/internal/netplay"
	"github.com/glovebox/server/internal/scripting"
)

type options struct {
	profile    string
	frames     int
	delay      time.Duration
	margin     time.Duration
	loss       float64
	seed       int64
	hold       int
	tuningFile string
	hitScript  string
	verbose    bool
}

func main() {
	var o options
	flag.StringVar(&o.profile, "profile", "", "write a cpu or mem profile to the working directory")
	flag.IntVar(&o.frames, "frames", 3000, "frames each client plays")
	flag.DurationVar(&o.delay, "delay", 60*time.Millisecond, "average one-way link delay")
	flag.DurationVar(&o.margin, "margin", 20*time.Millisecond, "maximum deviation from the average delay")
	flag.Float64Var(&o.loss, "loss", 0.05, "probability that an unreliable message is lost")
	flag.Int64Var(&o.seed, "seed", 1, "seed for links and scripted inputs")
	flag.IntVar(&o.hold, "hold", 12, "frames a scripted input is held")
	flag.StringVar(&o.tuningFile, "tuning", "", "tuning file (default built-in)")
	flag.StringVar(&o.hitScript, "hit-script", "", "hit script (default built-in)")
	flag.BoolVar(&o.verbose, "v", false, "debug logging")
	flag.Parse()

	var prof interface{ Stop() }
	switch o.profile {
	case "":
	case "cpu":
		prof = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	case "mem":
		prof = profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	default:
		fmt.Fprintf(os.Stderr, "unknown profile %q\n", o.profile)
		os.Exit(2)
	}

	err := run(o)
	if prof != nil {
		prof.Stop()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(o options) error {
	var log *zap.Logger
	var err error
	if o.verbose {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	tuning := gameplay.DefaultTuning()
	if o.tuningFile != "" {
		t, err := data.LoadTuning(o.tuningFile)
		if err != nil {
			return err
		}
		tuning = *t
	}
	rules, err := scripting.NewEngine(o.hitScript, &tuning, log)
	if err != nil {
		return fmt.Errorf("hit script: %w", err)
	}
	defer rules.Close()

	link := netplay.LinkConfig{
		AvgDelay:   o.delay,
		Margin:     o.margin,
		PacketLoss: o.loss,
		Seed:       o.seed,
	}
	sim := match.NewSimulation(log, &tuning, rules, link, 200*time.Millisecond)
	inputs := newScript(o.seed, o.hold)

	began := time.Now()
	played := 0
	for !sim.Done() && sim.Clients[0].Frame() < uint32(o.frames) {
		if err := sim.Tick(inputs.next()); err != nil {
			return fmt.Errorf("tick %d: %w", played, err)
		}
		played++
	}
	if err := sim.Drain(2 * time.Second); err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	elapsed := time.Since(began)

	server := sim.Server.GameManager()
	want := server.Rollback().StateDigest()
	for p, c := range sim.Clients {
		gm := c.GameManager()
		if got := gm.Rollback().StateDigest(); got != want {
			return fmt.Errorf("client %d diverged at validated frame %d: %s != %s", p,
				gm.LastValidatedFrame(), hex.EncodeToString(got[:8]), hex.EncodeToString(want[:8]))
		}
	}

	sent, lost := sim.LinkStats()
	log.Info("bench finished",
		zap.Int("ticks", played),
		zap.Uint32("validated", server.LastValidatedFrame()),
		zap.Bool("match_over", sim.Done()),
		zap.Int("winner", winner(server)),
		zap.Int("messages_sent", sent),
		zap.Int("messages_lost", lost),
		zap.Duration("elapsed", elapsed),
		zap.Duration("per_tick", elapsed/time.Duration(max(played, 1))),
		zap.String("digest", hex.EncodeToString(want[:8])))
	return nil
}

func winner(gm *match.GameManager) int {
	if w := gm.Winner(); w != gameplay.InvalidPlayer {
		return int(w)
	}
	return -1
}

// script produces pseudo-random inputs, each held for a few frames the
// way a human would.
type script struct {
	rng     *rand.Rand
	hold    int
	left    int
	current [gameplay.MaxPlayers]gameplay.Input
}

func newScript(seed int64, hold int) *script {
	return &script{rng: rand.New(rand.NewSource(seed)), hold: max(hold, 1)}
}

var buttons = [...]gameplay.Input{
	gameplay.InputUp,
	gameplay.InputDown,
	gameplay.InputLeft,
	gameplay.InputRight,
	gameplay.InputPunch,
	gameplay.InputPunch2,
}

func (s *script) next() [gameplay.MaxPlayers]gameplay.Input {
	if s.left == 0 {
		for p := range s.current {
			var in gameplay.Input
			for _, b := range buttons {
				if s.rng.Intn(3) == 0 {
					in |= b
				}
			}
			s.current[p] = in
		}
		s.left = s.hold
	}
	s.left--
	return s.current
}
