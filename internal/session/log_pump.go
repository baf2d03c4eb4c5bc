package session

import (
	"bufio"
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kswarrior/ks-wings/internal/logger"
	"github.com/kswarrior/ks-wings/internal/pubsub"
	"github.com/kswarrior/ks-wings/internal/runtime"
)

// logPump is the single upstream log subscription shared by every exec
// session attached to the same container (spec §4.6 "Exec session": two
// sessions attached to the same container_id share one upstream log
// subscription instead of each opening a second stream against the
// runtime). It is started on first attach and torn down on last detach.
type logPump struct {
	cancel context.CancelFunc
	refs   int
}

// attachLogPump starts a pump for containerID if none is running yet,
// otherwise joins the existing one.
func (s *Server) attachLogPump(containerID string) {
	s.pumpMu.Lock()
	defer s.pumpMu.Unlock()

	if p, ok := s.pumps[containerID]; ok {
		p.refs++
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.pumps[containerID] = &logPump{cancel: cancel, refs: 1}
	go s.runLogPump(ctx, containerID)
}

// detachLogPump releases one reference, cancelling the pump once the last
// attached session has gone.
func (s *Server) detachLogPump(containerID string) {
	s.pumpMu.Lock()
	defer s.pumpMu.Unlock()

	p, ok := s.pumps[containerID]
	if !ok {
		return
	}
	p.refs--
	if p.refs <= 0 {
		p.cancel()
		delete(s.pumps, containerID)
	}
}

// runLogPump subscribes to the container's follow-mode log stream and
// republishes every line as a LogLineEvent on InstanceLogTopic, which is
// what backlog replay and live forwarding in runExecSession actually read
// from (spec §4.6: attach -> subscribe to a follow-mode log stream -> each
// chunk appended to the buffer -> split on newlines).
func (s *Server) runLogPump(ctx context.Context, containerID string) {
	log := logger.GetLogger(ctx).With(zap.String("container_id", containerID))

	demux := false
	if info, err := s.rt.Inspect(ctx, containerID); err == nil && info.Config != nil {
		demux = !info.Config.Tty
	}

	stream, err := s.rt.Logs(ctx, containerID, runtime.LogOptions{
		Follow:     true,
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		log.Warn("log pump failed to attach to container logs", zap.Error(err))
		return
	}
	defer stream.Close()

	topic := pubsub.InstanceLogTopic(containerID)

	// Non-TTY containers (none are created by this agent today, but the
	// runtime's Logs contract permits them) multiplex stdout/stderr and
	// must be demultiplexed before splitting on newlines; StdCopy only
	// returns once the stream ends, so this path delivers in one batch
	// rather than line-by-line.
	if demux {
		stdout, stderr, err := runtime.Demux(stream)
		if err != nil {
			log.Warn("log pump demux failed", zap.Error(err))
			return
		}
		s.publishLines(ctx, topic, containerID, string(stdout))
		s.publishLines(ctx, topic, containerID, string(stderr))
		return
	}

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.publishLine(ctx, topic, containerID, scanner.Text())
	}
}

func (s *Server) publishLines(ctx context.Context, topic, containerID, chunk string) {
	for _, line := range strings.Split(chunk, "\n") {
		if line == "" {
			continue
		}
		s.publishLine(ctx, topic, containerID, line)
	}
}

func (s *Server) publishLine(ctx context.Context, topic, containerID, line string) {
	event := pubsub.LogLineEvent{
		Type:        pubsub.EventTypeLogLine,
		ContainerID: containerID,
		Line:        line,
		Timestamp:   time.Now(),
	}
	if err := s.ps.Publish(ctx, topic, event); err != nil {
		logger.GetLogger(ctx).Warn("log pump publish failed",
			zap.String("container_id", containerID), zap.Error(err))
	}
}
