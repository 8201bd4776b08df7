package room

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ropix/pkg/types"
)

func newTestRegistry(t *testing.T, maxDevices int) *Registry {
	t.Helper()
	return New(maxDevices, zap.NewNop())
}

func testRecord(id types.FileID, code types.RoomCode) *types.FileRecord {
	return &types.FileRecord{
		ID:                id,
		Filename:          "notes.txt",
		MimeType:          "text/plain",
		FileType:          "text",
		Size:              5,
		Content:           "aGVsbG8=",
		ManifestSignature: "sig",
		Manifest: types.Manifest{
			FileID:    id,
			ChunkSize: types.ChunkSize,
			TotalSize: 5,
			Chunks:    []types.Chunk{{Index: 0, Offset: 0, Size: 5, Hash: "h"}},
		},
		RoomCode: code,
	}
}

func TestCreateRoomCodeFormat(t *testing.T) {
	r := newTestRegistry(t, 0)
	code, err := r.CreateRoom()
	require.NoError(t, err)
	assert.Regexp(t, `^[A-Z0-9]{6}$`, string(code))
}

func TestCreateRoomUniqueness(t *testing.T) {
	r := newTestRegistry(t, 0)
	seen := make(map[types.RoomCode]bool)
	for i := 0; i < 200; i++ {
		code, err := r.CreateRoom()
		require.NoError(t, err)
		assert.False(t, seen[code], "room code %s issued twice", code)
		seen[code] = true
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    types.RoomCode
		wantErr bool
	}{
		{"lowercase normalized", "q7k2m9", "Q7K2M9", false},
		{"already uppercase", "AB12CD", "AB12CD", false},
		{"surrounding space", " ab12cd ", "AB12CD", false},
		{"too short", "AB12", "", true},
		{"too long", "AB12CD3", "", true},
		{"illegal characters", "AB-2CD", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := NormalizeCode(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRoomCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestJoinDeviceCap(t *testing.T) {
	r := newTestRegistry(t, 10)
	code, err := r.CreateRoom()
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		connID := types.ConnectionID(fmt.Sprintf("conn-%d", i))
		err := r.Join(code, connID, types.DeviceInfo{Name: fmt.Sprintf("Device %d", i)})
		require.NoError(t, err, "device %d should fit", i)
	}

	err = r.Join(code, "conn-11", types.DeviceInfo{Name: "One Too Many"})
	assert.ErrorIs(t, err, ErrRoomFull)

	_, devices, ok := r.Counts(code)
	require.True(t, ok)
	assert.Equal(t, 10, devices)
}

func TestJoinUnknownRoom(t *testing.T) {
	r := newTestRegistry(t, 0)
	err := r.Join("NOROOM", "conn-1", types.DeviceInfo{})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestLeaveIsIdempotent(t *testing.T) {
	r := newTestRegistry(t, 0)
	code, err := r.CreateRoom()
	require.NoError(t, err)
	require.NoError(t, r.Join(code, "conn-1", types.DeviceInfo{Name: "Phone"}))

	got, ok := r.Leave("conn-1")
	assert.True(t, ok)
	assert.Equal(t, code, got)

	_, ok = r.Leave("conn-1")
	assert.False(t, ok, "second leave must be a no-op")

	_, devices, _ := r.Counts(code)
	assert.Zero(t, devices)
}

func TestResolveFileIsRoomScoped(t *testing.T) {
	r := newTestRegistry(t, 0)
	roomA, err := r.CreateRoom()
	require.NoError(t, err)
	roomB, err := r.CreateRoom()
	require.NoError(t, err)

	record := testRecord("file-1", roomA)
	r.AddFile(roomA, record)

	resolved, err := r.ResolveFile("file-1", roomA)
	require.NoError(t, err)
	assert.Equal(t, record, resolved)

	_, err = r.ResolveFile("file-1", roomB)
	assert.ErrorIs(t, err, ErrFileNotFound, "file must only resolve through its owning room")

	_, err = r.ResolveFile("file-1", "ZZZZZ9")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestResolveFileCorruptRecord(t *testing.T) {
	r := newTestRegistry(t, 0)
	code, err := r.CreateRoom()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*types.FileRecord)
	}{
		{"missing content", func(rec *types.FileRecord) { rec.Content = "" }},
		{"missing signature", func(rec *types.FileRecord) { rec.ManifestSignature = "" }},
		{"missing manifest chunks", func(rec *types.FileRecord) { rec.Manifest.Chunks = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := testRecord(types.FileID("file-"+tt.name), code)
			tt.mutate(record)
			r.AddFile(code, record)

			_, err := r.ResolveFile(record.ID, code)
			assert.ErrorIs(t, err, ErrCorruptRecord)
		})
	}
}

func TestRemoveFileAbsentIsNoOp(t *testing.T) {
	r := newTestRegistry(t, 0)
	code, err := r.CreateRoom()
	require.NoError(t, err)

	_, ok := r.RemoveFile(code, "missing")
	assert.False(t, ok)

	_, ok = r.RemoveFile("ZZZZZ9", "missing")
	assert.False(t, ok, "unknown room must not panic or error")
}

func TestClearFiles(t *testing.T) {
	r := newTestRegistry(t, 0)
	code, err := r.CreateRoom()
	require.NoError(t, err)

	r.AddFile(code, testRecord("f1", code))
	r.AddFile(code, testRecord("f2", code))

	assert.Equal(t, 2, r.ClearFiles(code))
	assert.Empty(t, r.Files(code))
	assert.Equal(t, 0, r.ClearFiles(code))
}

func TestMembersReflectsJoinsAndLeaves(t *testing.T) {
	r := newTestRegistry(t, 0)
	code, err := r.CreateRoom()
	require.NoError(t, err)

	require.NoError(t, r.Join(code, "conn-1", types.DeviceInfo{Name: "A"}))
	require.NoError(t, r.Join(code, "conn-2", types.DeviceInfo{Name: "B"}))
	assert.ElementsMatch(t, []types.ConnectionID{"conn-1", "conn-2"}, r.Members(code))

	r.Leave("conn-1")
	assert.ElementsMatch(t, []types.ConnectionID{"conn-2"}, r.Members(code))
}

func TestLastActivityTouchedByMutations(t *testing.T) {
	r := newTestRegistry(t, 0)
	code, err := r.CreateRoom()
	require.NoError(t, err)

	before, ok := r.LastActivity(code)
	require.True(t, ok)

	require.NoError(t, r.Join(code, "conn-1", types.DeviceInfo{}))
	after, _ := r.LastActivity(code)
	assert.False(t, after.Before(before))
}
