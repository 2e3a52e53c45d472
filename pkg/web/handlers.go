package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/annolab/mediasync/pkg/hub"
)

// MemberStatus is one scheduled stream in the status payload.
type MemberStatus struct {
	ID       string  `json:"id"`
	File     string  `json:"file"`
	Type     string  `json:"type"`
	State    string  `json:"state"`
	Enabled  bool    `json:"enabled"`
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
}

// Status is the scheduler snapshot served by the API and the feed.
type Status struct {
	Playing  bool           `json:"playing"`
	Paused   bool           `json:"paused"`
	Position float64        `json:"position"`
	Duration float64        `json:"duration"`
	Members  []MemberStatus `json:"members"`
}

func (s *Server) status() Status {
	members := s.sched.Members()
	out := Status{
		Playing:  s.sched.Playing(),
		Paused:   s.sched.Paused(),
		Position: s.sched.Tell(),
		Duration: s.sched.Duration(),
		Members:  make([]MemberStatus, 0, len(members)),
	}
	for _, m := range members {
		out.Members = append(out.Members, MemberStatus{
			ID:       m.ID,
			File:     m.Player.Filename(),
			Type:     m.Player.MediaType().String(),
			State:    m.Player.State().String(),
			Enabled:  m.Enabled(),
			Position: m.Player.Tell(),
			Duration: m.Player.Duration(),
		})
	}
	return out
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.status())
}

// IntervalRequest optionally narrows playback to [from, to].
type IntervalRequest struct {
	From *float64 `json:"from"`
	To   *float64 `json:"to"`
}

func (s *Server) handlePlay(c *fiber.Ctx) error {
	var req IntervalRequest
	c.BodyParser(&req)

	var ok bool
	if req.From != nil || req.To != nil {
		from := 0.0
		to := s.sched.Duration()
		if req.From != nil {
			from = *req.From
		}
		if req.To != nil {
			to = *req.To
		}
		ok = s.sched.PlayInterval(from, to)
	} else {
		ok = s.sched.Play()
	}
	if !ok {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "no member accepted playback",
		})
	}
	return c.JSON(s.status())
}

func (s *Server) handlePause(c *fiber.Ctx) error {
	if !s.sched.Pause() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "nothing is playing",
		})
	}
	return c.JSON(s.status())
}

func (s *Server) handleStop(c *fiber.Ctx) error {
	s.sched.Stop()
	return c.JSON(s.status())
}

// SeekRequest moves the shared cursor.
type SeekRequest struct {
	Position float64 `json:"position"`
}

func (s *Server) handleSeek(c *fiber.Ctx) error {
	var req SeekRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid seek request",
		})
	}
	if !s.sched.Seek(req.Position) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "no member accepted the seek",
		})
	}
	return c.JSON(s.status())
}

func (s *Server) handleFramesWS(c *websocket.Conn) {
	hub.NewClient(s.frameHub, c).Run()
}

func (s *Server) handleStatusWS(c *websocket.Conn) {
	// Push one snapshot so a new client paints immediately.
	c.WriteJSON(s.status())
	hub.NewClient(s.statusHub, c).Run()
}
