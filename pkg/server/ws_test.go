package server

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ropix/pkg/chunker"
	"ropix/pkg/gateway"
	"ropix/pkg/types"
)

const wsTestTimeout = 5 * time.Second

type wsClient struct {
	t    *testing.T
	sock *websocket.Conn
}

func dialWS(t *testing.T, ts *httptest.Server) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	sock, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { sock.Close() })
	return &wsClient{t: t, sock: sock}
}

func (c *wsClient) send(event string, payload any) {
	c.t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(c.t, err)
	msg, err := json.Marshal(map[string]json.RawMessage{
		"event": json.RawMessage(`"` + event + `"`),
		"data":  data,
	})
	require.NoError(c.t, err)
	require.NoError(c.t, c.sock.WriteMessage(websocket.TextMessage, msg))
}

// waitFor reads until the named event arrives, skipping unrelated events
// such as interleaved devices_updated broadcasts.
func (c *wsClient) waitFor(event string) json.RawMessage {
	c.t.Helper()
	deadline := time.Now().Add(wsTestTimeout)
	for {
		require.NoError(c.t, c.sock.SetReadDeadline(deadline))
		_, msg, err := c.sock.ReadMessage()
		require.NoError(c.t, err, "waiting for %s", event)

		var envelope struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		require.NoError(c.t, json.Unmarshal(msg, &envelope))
		if envelope.Event == event {
			return envelope.Data
		}
	}
}

func (c *wsClient) join(code types.RoomCode, name string) gateway.RoomJoinedPayload {
	c.t.Helper()
	c.send(gateway.EventJoinRoom, map[string]any{
		"room_code":   code,
		"device_info": types.DeviceInfo{Name: name, Platform: "test"},
	})
	var joined gateway.RoomJoinedPayload
	require.NoError(c.t, json.Unmarshal(c.waitFor(gateway.EventRoomJoined), &joined))
	return joined
}

func TestJoinRoomOverSocket(t *testing.T) {
	_, ts := newTestServer(t)
	code := createRoom(t, ts)

	alice := dialWS(t, ts)
	joined := alice.join(code, "Alice")
	assert.Equal(t, code, joined.RoomCode)
	assert.Equal(t, 0, joined.FileCount)
	assert.Equal(t, 1, joined.DeviceCount)

	bob := dialWS(t, ts)
	assert.Equal(t, 2, bob.join(code, "Bob").DeviceCount)

	var devices gateway.DevicesUpdatedPayload
	require.NoError(t, json.Unmarshal(alice.waitFor(gateway.EventDevicesUpdated), &devices))
	// Alice sees her own join broadcast first, then Bob's.
	if devices.Count == 1 {
		require.NoError(t, json.Unmarshal(alice.waitFor(gateway.EventDevicesUpdated), &devices))
	}
	assert.Equal(t, 2, devices.Count)
}

func TestJoinUnknownRoomReportsError(t *testing.T) {
	_, ts := newTestServer(t)

	c := dialWS(t, ts)
	c.send(gateway.EventJoinRoom, map[string]any{"room_code": "ZZZZZ9"})

	var payload gateway.ErrorPayload
	require.NoError(t, json.Unmarshal(c.waitFor(gateway.EventRoomError), &payload))
	assert.Equal(t, "Room not found", payload.Error)
}

func TestJoinerReceivesExistingFiles(t *testing.T) {
	_, ts := newTestServer(t)
	code := createRoom(t, ts)
	fileID := uploadedFileID(t, uploadFile(t, ts, code, "before.txt", []byte("already here")))

	c := dialWS(t, ts)
	c.join(code, "Latecomer")

	var available gateway.FileAvailablePayload
	require.NoError(t, json.Unmarshal(c.waitFor(gateway.EventFileAvailable), &available))
	assert.Equal(t, fileID, available.FileID)
	assert.Equal(t, "before.txt", available.Filename)
}

func TestChunkedTransferOverSocket(t *testing.T) {
	_, ts := newTestServer(t)
	code := createRoom(t, ts)

	receiver := dialWS(t, ts)
	receiver.join(code, "Receiver")

	content := make([]byte, 150000)
	_, err := rand.Read(content)
	require.NoError(t, err)
	fileID := uploadedFileID(t, uploadFile(t, ts, code, "big.bin", content))

	var available gateway.FileAvailablePayload
	require.NoError(t, json.Unmarshal(receiver.waitFor(gateway.EventFileAvailable), &available))
	require.Equal(t, fileID, available.FileID)
	require.Equal(t, 3, available.Chunks)

	receiver.send(gateway.EventRequestFile, map[string]any{
		"file_id":   fileID,
		"room_code": code,
	})

	var manifest gateway.FileManifestPayload
	require.NoError(t, json.Unmarshal(receiver.waitFor(gateway.EventFileManifest), &manifest))
	require.Len(t, manifest.Manifest.Chunks, 3)
	assert.True(t, chunker.Verify(manifest.Manifest, manifest.ManifestSignature))

	reassembled := make([]byte, 0, len(content))
	for i := 0; i < 3; i++ {
		var chunk gateway.FileChunkPayload
		require.NoError(t, json.Unmarshal(receiver.waitFor(gateway.EventFileChunk), &chunk))
		require.Equal(t, i, chunk.ChunkIndex, "chunks must arrive in ascending order")

		piece, err := base64.StdEncoding.DecodeString(chunk.Content)
		require.NoError(t, err)
		require.Equal(t, chunk.Size, int64(len(piece)))

		sum := sha256.Sum256(piece)
		require.Equal(t, manifest.Manifest.Chunks[i].Hash, hex.EncodeToString(sum[:]))
		reassembled = append(reassembled, piece...)
	}

	var done gateway.TransferCompletePayload
	require.NoError(t, json.Unmarshal(receiver.waitFor(gateway.EventTransferComplete), &done))
	assert.Equal(t, fileID, done.FileID)
	assert.Equal(t, content, reassembled)
}

func TestRequestFileRequiresMembership(t *testing.T) {
	_, ts := newTestServer(t)
	code := createRoom(t, ts)
	fileID := uploadedFileID(t, uploadFile(t, ts, code, "private.txt", []byte("members only")))

	outsider := dialWS(t, ts)
	outsider.send(gateway.EventRequestFile, map[string]any{
		"file_id":   fileID,
		"room_code": code,
	})

	var payload gateway.ErrorPayload
	require.NoError(t, json.Unmarshal(outsider.waitFor(gateway.EventFileError), &payload))
	assert.Equal(t, "Not a member of this room", payload.Error)
}

func TestDismissAllCancelsUpload(t *testing.T) {
	_, ts := newTestServer(t)
	code := createRoom(t, ts)

	uploader := dialWS(t, ts)
	uploader.join(code, "Uploader")
	receiver := dialWS(t, ts)
	receiver.join(code, "Receiver")

	uploader.send(gateway.EventUploadStart, map[string]any{
		"room_code":   code,
		"filename":    "incoming.bin",
		"size":        1 << 20,
		"device_info": types.DeviceInfo{Name: "Uploader", Platform: "test"},
	})

	var receiving gateway.ReceivingFilePayload
	require.NoError(t, json.Unmarshal(receiver.waitFor(gateway.EventReceivingFile), &receiving))
	assert.Equal(t, "incoming.bin", receiving.Filename)
	assert.Equal(t, "Uploader", receiving.DeviceInfo.Name)

	receiver.send(gateway.EventDismissReceiving, map[string]any{"room_code": code})

	var cancel gateway.CancelUploadPayload
	require.NoError(t, json.Unmarshal(uploader.waitFor(gateway.EventCancelUpload), &cancel))
	assert.Equal(t, "All receivers dismissed the transfer", cancel.Reason)
}

func TestDeleteBroadcastsFileDeleted(t *testing.T) {
	_, ts := newTestServer(t)
	code := createRoom(t, ts)

	watcher := dialWS(t, ts)
	watcher.join(code, "Watcher")

	fileID := uploadedFileID(t, uploadFile(t, ts, code, "doomed.txt", []byte("soon gone")))
	watcher.waitFor(gateway.EventFileAvailable)

	resp, err := http.Post(ts.URL+"/api/rooms/"+string(code)+"/files/"+string(fileID)+"/delete", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var deleted gateway.FileDeletedPayload
	require.NoError(t, json.Unmarshal(watcher.waitFor(gateway.EventFileDeleted), &deleted))
	assert.Equal(t, fileID, deleted.FileID)
	assert.Equal(t, "doomed.txt", deleted.Filename)
}

func TestLeaveRoomUpdatesDevices(t *testing.T) {
	s, ts := newTestServer(t)
	code := createRoom(t, ts)

	stayer := dialWS(t, ts)
	stayer.join(code, "Stayer")
	leaver := dialWS(t, ts)
	leaver.join(code, "Leaver")

	// Drain the stayer's own join broadcast before watching for the drop.
	var devices gateway.DevicesUpdatedPayload
	for devices.Count != 2 {
		require.NoError(t, json.Unmarshal(stayer.waitFor(gateway.EventDevicesUpdated), &devices))
	}

	leaver.send(gateway.EventLeaveRoom, map[string]any{"room_code": code})

	for devices.Count != 1 {
		require.NoError(t, json.Unmarshal(stayer.waitFor(gateway.EventDevicesUpdated), &devices))
	}
	assert.Equal(t, "Stayer", devices.Devices[0].Info.Name)

	_, count, ok := s.Registry().Counts(code)
	require.True(t, ok)
	assert.Equal(t, 1, count)
}
