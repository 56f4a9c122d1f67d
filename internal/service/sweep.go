package service

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/log"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/metrics"
)

// StartSessionSweeper evicts idle sessions every interval until the returned
// stop function is called.
func (s *Service) StartSessionSweeper(interval time.Duration) (func(), error) {
	if interval <= 0 {
		return func() {}, nil
	}
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", interval), s.sweepSessions); err != nil {
		return nil, fmt.Errorf("failed to schedule session sweeper: %w", err)
	}
	c.Start()
	return func() {
		<-c.Stop().Done()
	}, nil
}

func (s *Service) sweepSessions() {
	evicted := s.sessions.Evict(s.now())
	metrics.ActiveSessions.Set(float64(s.sessions.Len()))
	if len(evicted) == 0 {
		return
	}
	metrics.EvictedSessionsTotal.Add(float64(len(evicted)))
	log.Info("evicted idle sessions", zap.Strings("usernames", evicted))
}
