package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kswarrior/ks-wings/internal/logger"
	"github.com/kswarrior/ks-wings/internal/pubsub"
)

// logForwardBound is the per-session outbound backpressure bound (spec §9
// "Backpressure on log streaming" — a bounded queue with an explicit
// drop-oldest policy, diverging from the source's drop-on-any-congestion
// behavior as the spec explicitly permits).
const logForwardBound = 256

// runExecSession attaches to the container's shared log topic, replays its
// backlog, then forwards new lines while handling cmd/power:* control
// frames (spec §4.6 "Exec session").
func (s *Server) runExecSession(ctx context.Context, conn *websocket.Conn, containerID string) {
	log := logger.GetLogger(ctx).With(zap.String("container_id", containerID))

	s.attachLogPump(containerID)
	defer s.detachLogPump(containerID)

	topic := pubsub.InstanceLogTopic(containerID)
	for _, buffered := range s.ps.Backlog(ctx, topic) {
		writeLogLine(conn, buffered)
	}

	logCh, unsubscribe := s.ps.Subscribe(ctx, topic)
	defer unsubscribe()

	forwarded := make(chan []byte, logForwardBound)
	go drainWithDropOldest(ctx, logCh, forwarded)

	frames := make(chan Frame, 16)
	go s.readFrames(conn, frames)

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-forwarded:
			if !ok {
				return
			}
			if err := writeLogLine(conn, line); err != nil {
				return
			}
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := s.handleExecFrame(ctx, conn, containerID, frame); err != nil {
				log.Warn("exec frame handling failed", zap.String("event", frame.Event), zap.Error(err))
			}
		}
	}
}

// drainWithDropOldest relays in to out, dropping the oldest queued message
// when out is full rather than blocking the publisher (spec §9).
func drainWithDropOldest(ctx context.Context, in <-chan []byte, out chan<- []byte) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- msg:
			default:
				select {
				case <-out:
				default:
				}
				select {
				case out <- msg:
				default:
				}
			}
		}
	}
}

func (s *Server) readFrames(conn *websocket.Conn, out chan<- Frame) {
	defer close(out)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			conn.WriteMessage(websocket.TextMessage, []byte("Invalid JSON"))
			continue
		}
		out <- frame
	}
}

func (s *Server) handleExecFrame(ctx context.Context, conn *websocket.Conn, containerID string, frame Frame) error {
	switch frame.Event {
	case eventCmd:
		return s.injectCommand(ctx, conn, containerID, frame.Command)
	case eventPowerStart:
		return s.reportPowerError(conn, s.rt.Start(ctx, containerID))
	case eventPowerStop:
		return s.reportPowerError(conn, s.rt.Stop(ctx, containerID))
	case eventPowerRestart:
		return s.reportPowerError(conn, s.rt.Restart(ctx, containerID))
	default:
		return conn.WriteMessage(websocket.TextMessage, []byte("Unsupported event"))
	}
}

// injectCommand sends command into the container's primary TTY via an exec
// handle (spec §4.6 "cmd" event; exec wiring is a C1 concern).
func (s *Server) injectCommand(ctx context.Context, conn *websocket.Conn, containerID, command string) error {
	if command == "" {
		return nil
	}
	if err := s.rt.Exec(ctx, containerID, []string{"sh", "-c", command}); err != nil {
		return conn.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf("command failed: %v", err)))
	}
	return nil
}

func (s *Server) reportPowerError(conn *websocket.Conn, err error) error {
	if err == nil {
		return nil
	}
	return conn.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf("power action failed: %v", err)))
}

// writeLogLine decodes a LogLineEvent and writes it as the ANSI-styled text
// frame the spec requires (§4.6 "each line wrapped as
// \r\n[34m[docker] [0m<line>\r\n").
func writeLogLine(conn *websocket.Conn, raw []byte) error {
	var event pubsub.LogLineEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil
	}
	for _, line := range strings.Split(event.Line, "\n") {
		if line == "" {
			continue
		}
		styled := fmt.Sprintf("\r\n[34m[docker] [0m%s\r\n", line)
		if err := conn.WriteMessage(websocket.TextMessage, []byte(styled)); err != nil {
			return err
		}
	}
	return nil
}
