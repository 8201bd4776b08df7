package transfer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"ropix/pkg/gateway"
	"ropix/pkg/types"
)

// DefaultSessionTTL bounds how long an announced upload may sit without
// progress before the tracker entry is reclaimed.
const DefaultSessionTTL = 5 * time.Minute

// session is one in-flight broadcast-notification cycle for a room. It
// coordinates the cooperative "receiving" handshake, not the byte transfer
// itself.
type session struct {
	uploader  types.ConnectionID
	filename  string
	receivers int
	dismissed int
	lastEvent time.Time
}

// Manager tracks at most one active upload session per room and relays
// start/progress/complete/cancel notifications through the gateway.
type Manager struct {
	logger *zap.Logger
	gw     gateway.Gateway
	ttl    time.Duration

	mu     sync.Mutex
	active map[types.RoomCode]*session
}

func NewManager(gw gateway.Gateway, ttl time.Duration, logger *zap.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Manager{
		logger: logger,
		gw:     gw,
		ttl:    ttl,
		active: make(map[types.RoomCode]*session),
	}
}

// Start announces a new upload to every room member except the uploader.
// receiverCount is the number of devices in the room minus the uploader.
// A second start while one session is announced replaces it: last writer
// wins, uploads are not queued.
func (m *Manager) Start(room types.RoomCode, uploader types.ConnectionID, filename string, size int64, info types.DeviceInfo, receiverCount int) {
	if receiverCount < 0 {
		receiverCount = 0
	}

	m.mu.Lock()
	m.active[room] = &session{
		uploader:  uploader,
		filename:  filename,
		receivers: receiverCount,
		lastEvent: time.Now(),
	}
	m.mu.Unlock()

	m.logger.Debug("upload announced",
		zap.String("room", string(room)),
		zap.String("filename", filename),
		zap.Int("receivers", receiverCount))

	m.gw.EmitToRoom(room, gateway.EventReceivingFile, gateway.ReceivingFilePayload{
		Filename:   filename,
		Size:       size,
		DeviceInfo: info,
		Progress:   0,
	}, uploader)
}

// Progress relays an upload progress update. No state transition.
func (m *Manager) Progress(room types.RoomCode, sender types.ConnectionID, filename string, progress int, info types.DeviceInfo) {
	m.touch(room)
	m.gw.EmitToRoom(room, gateway.EventReceivingProgress, gateway.ReceivingProgressPayload{
		Filename:   filename,
		Progress:   progress,
		DeviceInfo: info,
	}, sender)
}

// Complete clears the room's session and notifies the receivers.
func (m *Manager) Complete(room types.RoomCode, sender types.ConnectionID, filename string, info types.DeviceInfo) {
	m.mu.Lock()
	delete(m.active, room)
	m.mu.Unlock()

	m.gw.EmitToRoom(room, gateway.EventReceivingComplete, gateway.ReceivingCompletePayload{
		Filename:   filename,
		DeviceInfo: info,
	}, sender)
}

// Dismiss records that one receiver waved off the announced upload. Once
// every receiver has dismissed, the uploader alone is told to cancel and
// the session is cleared; further dismissals are no-ops. A room whose
// session has no receivers can never trip cancellation.
func (m *Manager) Dismiss(room types.RoomCode) {
	m.mu.Lock()
	sess, ok := m.active[room]
	if !ok {
		m.mu.Unlock()
		return
	}
	sess.dismissed++
	sess.lastEvent = time.Now()
	cancelled := sess.receivers > 0 && sess.dismissed >= sess.receivers
	uploader := sess.uploader
	filename := sess.filename
	if cancelled {
		delete(m.active, room)
	}
	m.mu.Unlock()

	if cancelled {
		m.logger.Info("upload cancelled by receivers",
			zap.String("room", string(room)),
			zap.String("filename", filename))
		m.gw.EmitTo(uploader, gateway.EventCancelUpload, gateway.CancelUploadPayload{
			Reason: "All receivers dismissed the transfer",
		})
	}
}

// HandleDisconnect clears the room's session when its uploader drops; a
// leaver that was only a receiver leaves the session untouched.
func (m *Manager) HandleDisconnect(room types.RoomCode, conn types.ConnectionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.active[room]; ok && sess.uploader == conn {
		delete(m.active, room)
	}
}

// Active reports whether a room currently has an announced session, with
// its receiver and dismissal counts.
func (m *Manager) Active(room types.RoomCode) (receivers, dismissed int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.active[room]
	if !ok {
		return 0, 0, false
	}
	return sess.receivers, sess.dismissed, true
}

// Sweep reclaims sessions that saw no event for longer than the TTL and
// returns how many were removed. An abandoned uploader would otherwise
// leave one stale tracker entry per room forever.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for room, sess := range m.active {
		if now.Sub(sess.lastEvent) > m.ttl {
			delete(m.active, room)
			removed++
			m.logger.Warn("reclaimed stale upload session",
				zap.String("room", string(room)),
				zap.String("filename", sess.filename))
		}
	}
	return removed
}

// Run sweeps periodically until the context is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}

func (m *Manager) touch(room types.RoomCode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.active[room]; ok {
		sess.lastEvent = time.Now()
	}
}
