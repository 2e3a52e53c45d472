// Command play renders a set of media files in parallel: videos and
// audios start aligned on a shared interval, unsupported files still
// stretch the timeline. An optional web monitor exposes transport
// controls and the frame feed.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/annolab/mediasync/internal/config"
	"github.com/annolab/mediasync/internal/log"
	"github.com/annolab/mediasync/pkg/audioio"
	"github.com/annolab/mediasync/pkg/player"
	"github.com/annolab/mediasync/pkg/web"
)

func main() {
	from := flag.Float64("from", 0, "interval start in seconds")
	to := flag.Float64("to", 0, "interval end in seconds (0 = full duration)")
	monitor := flag.String("monitor", config.MonitorAddr(), "web monitor listen address, e.g. "+config.DefaultMonitorAddr+" (empty = disabled)")
	playerBin := flag.String("player", config.AudioPlayer(), "external audio player binary")
	level := flag.String("log-level", config.LogLevel(), "log level: debug, info, warn, error")
	flag.Parse()

	log.Init(*level)
	logger := log.L()

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] media-file...\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	sched := player.NewScheduler(logger, player.WithSinkFactory(func() audioio.Sink {
		return audioio.NewExecSink(*playerBin, logger)
	}))
	defer sched.Close()

	for _, f := range files {
		m, err := sched.AddMedia(f)
		if err != nil {
			logger.Error("load failed, member stays inert", "file", f, "error", err)
			continue
		}
		logger.Info("loaded", "file", f,
			"type", m.Player.MediaType().String(),
			"duration", fmt.Sprintf("%.3fs", m.Player.Duration()))
	}
	if sched.Duration() == 0 {
		logger.Error("nothing loaded")
		os.Exit(1)
	}

	var srv *web.Server
	if *monitor != "" {
		addr := *monitor
		if !strings.Contains(addr, ":") {
			addr = ":" + addr
		}
		srv = web.NewServer(addr, sched, logger)
		srv.StartAsync()
		defer srv.Shutdown()
	}

	end := *to
	if end == 0 {
		end = sched.Duration()
	}
	if !sched.PlayInterval(*from, end) {
		logger.Error("no member accepted playback")
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(40 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-sig:
			logger.Info("interrupted, stopping")
			sched.Stop()
			return
		case <-ticker.C:
			sched.UpdatePlaying()
			if !sched.Playing() && !sched.Paused() {
				logger.Info("playback finished")
				return
			}
		}
	}
}
