package room

import (
	"crypto/rand"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"ropix/pkg/types"
)

const (
	codeLength   = 6
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// Registry owns the set of live rooms, each with its files and connected
// devices. All room state lives in process memory only and is lost on
// restart. The registry-level lock guards the room and connection indexes;
// each room carries its own lock for file/device mutations so two rooms
// never contend with each other.
type Registry struct {
	logger     *zap.Logger
	maxDevices int

	mu     sync.RWMutex
	rooms  map[types.RoomCode]*state
	byConn map[types.ConnectionID]types.RoomCode
}

type state struct {
	mu           sync.Mutex
	code         types.RoomCode
	files        map[types.FileID]*types.FileRecord
	devices      map[types.ConnectionID]*types.Device
	createdAt    time.Time
	lastActivity time.Time
}

func New(maxDevices int, logger *zap.Logger) *Registry {
	if maxDevices <= 0 {
		maxDevices = types.MaxDevicesPerRoom
	}
	return &Registry{
		logger:     logger,
		maxDevices: maxDevices,
		rooms:      make(map[types.RoomCode]*state),
		byConn:     make(map[types.ConnectionID]types.RoomCode),
	}
}

// NormalizeCode uppercases an externally supplied room code and validates
// its format. Every external entry point goes through this.
func NormalizeCode(raw string) (types.RoomCode, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if !codePattern.MatchString(code) {
		return "", ErrInvalidRoomCode
	}
	return types.RoomCode(code), nil
}

// CreateRoom generates a fresh room code, retrying until it does not
// collide with any still-live room, and initializes empty state.
func (r *Registry) CreateRoom() (types.RoomCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var code types.RoomCode
	for {
		generated, err := generateCode()
		if err != nil {
			return "", err
		}
		if _, taken := r.rooms[generated]; !taken {
			code = generated
			break
		}
	}

	now := time.Now()
	r.rooms[code] = &state{
		code:         code,
		files:        make(map[types.FileID]*types.FileRecord),
		devices:      make(map[types.ConnectionID]*types.Device),
		createdAt:    now,
		lastActivity: now,
	}
	r.logger.Info("room created", zap.String("room", string(code)))
	return code, nil
}

// Exists reports whether a room is live.
func (r *Registry) Exists(code types.RoomCode) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[code]
	return ok
}

// Join inserts a device into a room. Returns ErrRoomNotFound for an unknown
// code and ErrRoomFull when the device cap is reached.
func (r *Registry) Join(code types.RoomCode, connID types.ConnectionID, info types.DeviceInfo) error {
	r.mu.Lock()
	st, ok := r.rooms[code]
	if !ok {
		r.mu.Unlock()
		return ErrRoomNotFound
	}

	st.mu.Lock()
	if len(st.devices) >= r.maxDevices {
		st.mu.Unlock()
		r.mu.Unlock()
		return ErrRoomFull
	}
	st.devices[connID] = &types.Device{
		ConnectionID: connID,
		Info:         info,
		JoinedAt:     time.Now(),
	}
	st.lastActivity = time.Now()
	st.mu.Unlock()

	r.byConn[connID] = code
	r.mu.Unlock()

	r.logger.Info("device joined",
		zap.String("room", string(code)),
		zap.String("connection", string(connID)),
		zap.String("device", info.Name))
	return nil
}

// Leave removes a connection from whichever room it belongs to, returning
// the affected room code. Idempotent: leaving twice is a no-op.
func (r *Registry) Leave(connID types.ConnectionID) (types.RoomCode, bool) {
	r.mu.Lock()
	code, ok := r.byConn[connID]
	if !ok {
		r.mu.Unlock()
		return "", false
	}
	delete(r.byConn, connID)
	st := r.rooms[code]
	r.mu.Unlock()

	if st != nil {
		st.mu.Lock()
		delete(st.devices, connID)
		st.lastActivity = time.Now()
		st.mu.Unlock()
	}

	r.logger.Info("device left",
		zap.String("room", string(code)),
		zap.String("connection", string(connID)))
	return code, true
}

// RoomOf looks up the room a connection currently belongs to.
func (r *Registry) RoomOf(connID types.ConnectionID) (types.RoomCode, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.byConn[connID]
	return code, ok
}

// AddFile stores a record under its owning room. A no-op when the room has
// gone away, since uploads and room teardown can race.
func (r *Registry) AddFile(code types.RoomCode, record *types.FileRecord) {
	st := r.lookup(code)
	if st == nil {
		return
	}
	st.mu.Lock()
	st.files[record.ID] = record
	st.lastActivity = time.Now()
	st.mu.Unlock()
}

// RemoveFile deletes a file from its room, returning the removed record.
// A no-op (not an error) when the room or file is already absent.
func (r *Registry) RemoveFile(code types.RoomCode, fileID types.FileID) (*types.FileRecord, bool) {
	st := r.lookup(code)
	if st == nil {
		return nil, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	record, ok := st.files[fileID]
	if !ok {
		return nil, false
	}
	delete(st.files, fileID)
	st.lastActivity = time.Now()
	return record, true
}

// ClearFiles removes every file from a room and returns how many were held.
func (r *Registry) ClearFiles(code types.RoomCode) int {
	st := r.lookup(code)
	if st == nil {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	n := len(st.files)
	st.files = make(map[types.FileID]*types.FileRecord)
	st.lastActivity = time.Now()
	return n
}

// ResolveFile maps a file ID to its record, scoped to one room: a file
// uploaded to room A is never resolvable through room B. Every lookup
// re-validates the record's required fields rather than trusting that
// AddFile's caller got them right.
func (r *Registry) ResolveFile(fileID types.FileID, code types.RoomCode) (*types.FileRecord, error) {
	st := r.lookup(code)
	if st == nil {
		return nil, ErrRoomNotFound
	}
	st.mu.Lock()
	record, ok := st.files[fileID]
	st.mu.Unlock()
	if !ok {
		return nil, ErrFileNotFound
	}
	if record.Content == "" || record.ManifestSignature == "" || len(record.Manifest.Chunks) == 0 {
		return nil, ErrCorruptRecord
	}
	return record, nil
}

// Files returns a room's records ordered by upload time.
func (r *Registry) Files(code types.RoomCode) []*types.FileRecord {
	st := r.lookup(code)
	if st == nil {
		return nil
	}
	st.mu.Lock()
	out := make([]*types.FileRecord, 0, len(st.files))
	for _, record := range st.files {
		out = append(out, record)
	}
	st.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Devices returns a room's connected devices ordered by join time.
func (r *Registry) Devices(code types.RoomCode) []*types.Device {
	st := r.lookup(code)
	if st == nil {
		return nil
	}
	st.mu.Lock()
	out := make([]*types.Device, 0, len(st.devices))
	for _, device := range st.devices {
		out = append(out, device)
	}
	st.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out
}

// Members returns the connection IDs currently in a room. The broadcast
// gateway uses this to resolve room-wide emits.
func (r *Registry) Members(code types.RoomCode) []types.ConnectionID {
	st := r.lookup(code)
	if st == nil {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]types.ConnectionID, 0, len(st.devices))
	for id := range st.devices {
		out = append(out, id)
	}
	return out
}

// Counts reports a room's file and device counts.
func (r *Registry) Counts(code types.RoomCode) (files, devices int, ok bool) {
	st := r.lookup(code)
	if st == nil {
		return 0, 0, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.files), len(st.devices), true
}

// LastActivity exposes a room's last mutation time for diagnostics. No
// expiry policy is enforced on it.
func (r *Registry) LastActivity(code types.RoomCode) (time.Time, bool) {
	st := r.lookup(code)
	if st == nil {
		return time.Time{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.lastActivity, true
}

func (r *Registry) lookup(code types.RoomCode) *state {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[code]
}

func generateCode() (types.RoomCode, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return types.RoomCode(buf), nil
}
