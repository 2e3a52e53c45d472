// Package web exposes a monitoring and transport-control surface over a
// running scheduler: a JSON status API, play control endpoints, and a
// websocket feed of the current video frame.
package web

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/annolab/mediasync/pkg/hub"
	"github.com/annolab/mediasync/pkg/imaging"
	"github.com/annolab/mediasync/pkg/player"
)

// paintPeriod is the host paint cadence: the status feed and audio
// state polling tick at this rate.
const paintPeriod = 40 * time.Millisecond

// Server drives a scheduler over HTTP. The scheduler stays ignorant of
// the server; the server polls and commands it.
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger

	sched *player.Scheduler

	frameHub  *hub.Hub
	statusHub *hub.Hub

	done chan struct{}
}

// NewServer creates a monitor bound to the scheduler.
func NewServer(addr string, sched *player.Scheduler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		addr:      addr,
		logger:    logger,
		sched:     sched,
		frameHub:  hub.New("frames", logger),
		statusHub: hub.New("status", logger),
		done:      make(chan struct{}),
	}

	app := fiber.New(fiber.Config{
		AppName:               "mediasync monitor",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/play", s.handlePlay)
	api.Post("/pause", s.handlePause)
	api.Post("/stop", s.handleStop)
	api.Post("/seek", s.handleSeek)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/frames", websocket.New(s.handleFramesWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// Start runs the hubs, the paint loop and the listener. It blocks until
// the listener fails or Shutdown is called.
func (s *Server) Start() error {
	go s.frameHub.Run()
	go s.statusHub.Run()
	go s.paintLoop()
	s.logger.Info("monitor listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// StartAsync runs Start in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("monitor server failed", "error", err)
		}
	}()
}

// paintLoop is the host timer: it polls audio members so finished
// sinks transition to stopped, and pushes a status update per tick.
func (s *Server) paintLoop() {
	ticker := time.NewTicker(paintPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sched.UpdatePlaying()
			if s.statusHub.ClientCount() > 0 {
				s.statusHub.BroadcastJSON(s.status())
			}
			s.paintFrames()
		}
	}
}

// paintFrames reads the current image of every playing video and
// pushes it to the frame feed.
func (s *Server) paintFrames() {
	if s.frameHub.ClientCount() == 0 {
		return
	}
	for _, m := range s.sched.Members() {
		v, ok := m.Player.(*player.VideoPlayer)
		if !ok || v.State() != player.StatePlaying {
			continue
		}
		if img := v.CurrentImage(); img != nil {
			s.PublishFrame(img)
			img.Close()
		}
	}
}

// PublishFrame encodes a frame as JPEG and broadcasts it to the frame
// feed. Wire it to the video players with FrameHook.
func (s *Server) PublishFrame(img *imaging.Image) {
	if s.frameHub.ClientCount() == 0 {
		return
	}
	buf, err := img.Encode(".jpg")
	if err != nil {
		s.logger.Warn("frame encode failed", "error", err)
		return
	}
	s.frameHub.BroadcastBinary(buf)
}

// FrameHook adapts PublishFrame to the video player hook signature.
func (s *Server) FrameHook() player.FrameHook {
	return func(img *imaging.Image, _ float64) {
		s.PublishFrame(img)
	}
}

// Shutdown stops the paint loop and the listener.
func (s *Server) Shutdown() error {
	close(s.done)
	return s.app.Shutdown()
}
