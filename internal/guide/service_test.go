package guide

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/jpeg"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/tourlens/internal/prompt"
	"github.com/lehigh-university-libraries/tourlens/internal/providers"
	"github.com/lehigh-university-libraries/tourlens/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validAnswer = `{"answer":"It dates from the 1400s.","follow_up_suggestions":["Who built it?"]}`

// fakeOracle replays canned replies and records every request it receives
type fakeOracle struct {
	mu       sync.Mutex
	calls    atomic.Int32
	requests []providers.Request
	reply    func(providers.Request) (string, error)
}

func (f *fakeOracle) Name() string { return "fake" }

func (f *fakeOracle) Complete(ctx context.Context, req providers.Request) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.reply(req)
}

func (f *fakeOracle) lastRequest() providers.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func replyWith(scene, answer string) func(providers.Request) (string, error) {
	return func(req providers.Request) (string, error) {
		if req.Name == prompt.AskResponseName {
			return answer, nil
		}
		return scene, nil
	}
}

func testFrame(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// oversizedFrame is a tiny PNG whose header claims 12000x12000 pixels
func oversizedFrame() string {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], 12000)
	binary.BigEndian.PutUint32(ihdr[4:8], 12000)
	ihdr[8], ihdr[9] = 8, 6
	for _, c := range []struct {
		kind string
		data []byte
	}{{"IHDR", ihdr}, {"IDAT", nil}, {"IEND", nil}} {
		_ = binary.Write(&buf, binary.BigEndian, uint32(len(c.data)))
		body := append([]byte(c.kind), c.data...)
		buf.Write(body)
		_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(body))
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func newTestService(oracle providers.Provider) (*Service, *storage.SessionStore) {
	store := storage.New()
	return NewService(store, oracle, Options{Timeout: time.Second}), store
}

func TestAnalyzeAppendsMemory(t *testing.T) {
	oracle := &fakeOracle{reply: replyWith(validScene, validAnswer)}
	svc, store := newTestService(oracle)

	scene, err := svc.Analyze(context.Background(), AnalyzeRequest{
		Image:        testFrame(t, 32, 32),
		SessionID:    "s1",
		LocationHint: "Prague",
		Interests:    []string{"architecture"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Old Stone Bridge", scene.SceneTitle)

	session, ok := store.Get("s1")
	require.True(t, ok)
	assert.Equal(t, []string{"Saw: Old Stone Bridge - A medieval bridge over a slow river."}, session.Memory)
	require.NotNil(t, session.LastScene)
	assert.Equal(t, scene, *session.LastScene)

	req := oracle.lastRequest()
	assert.Equal(t, prompt.SceneResponseName, req.Name)
	assert.Contains(t, req.Prompt, "Location hint: Prague")
	assert.Contains(t, req.Prompt, "User interests: architecture")
	require.NotNil(t, req.Image)
	assert.Equal(t, providers.DetailHigh, req.Image.Detail)
	assert.Equal(t, 1000, req.MaxTokens)
}

func TestAnalyzeUsesRecentMemory(t *testing.T) {
	oracle := &fakeOracle{reply: replyWith(validScene, validAnswer)}
	svc, store := newTestService(oracle)
	store.Append("s1", "one", "two", "three", "four")

	_, err := svc.Analyze(context.Background(), AnalyzeRequest{Image: testFrame(t, 8, 8), SessionID: "s1"})
	require.NoError(t, err)

	p := oracle.lastRequest().Prompt
	assert.Contains(t, p, "Previous context from this tour:\ntwo\nthree\nfour")
	assert.NotContains(t, p, "\none\n")
}

func TestAnalyzeInvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		req  AnalyzeRequest
	}{
		{name: "missing image", req: AnalyzeRequest{SessionID: "s1"}},
		{name: "missing session", req: AnalyzeRequest{Image: "data:image/jpeg;base64,AAAA"}},
		{name: "garbage image", req: AnalyzeRequest{Image: "not-an-image", SessionID: "s1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := &fakeOracle{reply: replyWith(validScene, validAnswer)}
			svc, store := newTestService(oracle)

			_, err := svc.Analyze(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRequest))
			assert.Equal(t, int32(0), oracle.calls.Load())
			assert.Equal(t, 0, store.Len())
		})
	}
}

func TestAnalyzeFailuresLeaveSessionUnchanged(t *testing.T) {
	tests := []struct {
		name    string
		reply   func(providers.Request) (string, error)
		wantErr error
	}{
		{
			name:    "invalid json",
			reply:   replyWith("I see a bridge", validAnswer),
			wantErr: ErrContractViolation,
		},
		{
			name:    "missing field",
			reply:   replyWith(`{"scene_title":"t"}`, validAnswer),
			wantErr: ErrContractViolation,
		},
		{
			name: "oracle down",
			reply: func(providers.Request) (string, error) {
				return "", providers.ErrUnavailable
			},
			wantErr: ErrOracleUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(&fakeOracle{reply: tt.reply})

			_, err := svc.Analyze(context.Background(), AnalyzeRequest{Image: testFrame(t, 8, 8), SessionID: "s1"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)

			session, _ := store.Get("s1")
			assert.Empty(t, session.Memory)
			assert.Nil(t, session.LastScene)
			assert.Equal(t, session.CreatedAt, session.UpdatedAt)
		})
	}
}

func TestAnalyzeTimeout(t *testing.T) {
	oracle := &fakeOracle{}
	store := storage.New()
	svc := NewService(store, oracle, Options{Timeout: 20 * time.Millisecond})
	oracle.reply = func(providers.Request) (string, error) {
		time.Sleep(100 * time.Millisecond)
		return "", context.DeadlineExceeded
	}

	_, err := svc.Analyze(context.Background(), AnalyzeRequest{Image: testFrame(t, 8, 8), SessionID: "s1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOracleUnavailable))

	session, _ := store.Get("s1")
	assert.Empty(t, session.Memory)
}

func TestConcurrentAnalyzeSameSession(t *testing.T) {
	oracle := &fakeOracle{reply: replyWith(validScene, validAnswer)}
	svc, store := newTestService(oracle)
	frame := testFrame(t, 16, 16)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Analyze(context.Background(), AnalyzeRequest{Image: frame, SessionID: "new"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, 1, store.Len())
	session, ok := store.Get("new")
	require.True(t, ok)
	assert.Len(t, session.Memory, 2)
	assert.Equal(t, uint64(2), session.Generation)
}

func TestLateSceneDoesNotReplaceNewer(t *testing.T) {
	release := make(chan struct{})
	first := make(chan struct{})
	var n atomic.Int32

	oracle := &fakeOracle{reply: func(req providers.Request) (string, error) {
		if n.Add(1) == 1 {
			close(first)
			<-release
			return strings.Replace(validScene, "Old Stone Bridge", "Stale View", 1), nil
		}
		return validScene, nil
	}}
	svc, store := newTestService(oracle)
	frame := testFrame(t, 8, 8)

	done := make(chan error, 1)
	go func() {
		scene, err := svc.Analyze(context.Background(), AnalyzeRequest{Image: frame, SessionID: "s1"})
		if err == nil && scene.SceneTitle != "Stale View" {
			err = errors.New("late caller did not get its own result")
		}
		done <- err
	}()

	<-first
	_, err := svc.Analyze(context.Background(), AnalyzeRequest{Image: frame, SessionID: "s1"})
	require.NoError(t, err)
	close(release)
	require.NoError(t, <-done)

	session, _ := store.Get("s1")
	require.NotNil(t, session.LastScene)
	assert.Equal(t, "Old Stone Bridge", session.LastScene.SceneTitle)
	assert.Len(t, session.Memory, 2)
	assert.Equal(t, "Saw: Stale View - A medieval bridge over a slow river.", session.Memory[1])
}

func TestAskAfterAnalyze(t *testing.T) {
	oracle := &fakeOracle{reply: replyWith(validScene, validAnswer)}
	svc, store := newTestService(oracle)

	_, err := svc.Analyze(context.Background(), AnalyzeRequest{Image: testFrame(t, 8, 8), SessionID: "s1"})
	require.NoError(t, err)

	result, err := svc.Ask(context.Background(), AskRequest{Question: "What is this?", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "It dates from the 1400s.", result.Answer)
	assert.Nil(t, result.UpdatedPOIs)

	session, _ := store.Get("s1")
	require.Len(t, session.Memory, 3)
	assert.Equal(t, "User asked: What is this?", session.Memory[1])
	assert.Equal(t, "Assistant: It dates from the 1400s.", session.Memory[2])

	req := oracle.lastRequest()
	assert.Equal(t, "What is this?", req.Prompt)
	assert.Contains(t, req.System, "Current scene context:\nOld Stone Bridge: A medieval bridge over a slow river.")
	assert.Nil(t, req.Image)
	assert.Equal(t, 500, req.MaxTokens)
}

func TestAskUnknownSession(t *testing.T) {
	oracle := &fakeOracle{reply: replyWith(validScene, validAnswer)}
	svc, store := newTestService(oracle)

	_, err := svc.Ask(context.Background(), AskRequest{Question: "Where am I?", SessionID: "fresh", SceneContext: "A park"})
	require.NoError(t, err)

	req := oracle.lastRequest()
	assert.Contains(t, req.System, "Current scene context:\nA park")
	assert.NotContains(t, req.System, "Conversation history")

	session, ok := store.Get("fresh")
	require.True(t, ok)
	assert.Len(t, session.Memory, 2)
}

func TestAskWithImageIsDownscaled(t *testing.T) {
	oracle := &fakeOracle{reply: replyWith(validScene, validAnswer)}
	svc, _ := newTestService(oracle)

	_, err := svc.Ask(context.Background(), AskRequest{Question: "Q?", SessionID: "s1", Image: testFrame(t, 1024, 768)})
	require.NoError(t, err)

	req := oracle.lastRequest()
	require.NotNil(t, req.Image)
	assert.Equal(t, providers.DetailLow, req.Image.Detail)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(req.Image.Data))
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.Width)
	assert.Equal(t, 384, cfg.Height)
}

func TestAskMergesUpdatedPOIs(t *testing.T) {
	answer := `{"answer":"Look left.","follow_up_suggestions":[],"updated_pois":[
	  {"id":"arch","label":"Central arch","why_it_matters":"Rebuilt 1890","screen_anchor":{"x":0.2,"y":0.4},"confidence":0.95},
	  {"id":"statue","label":"Statue","why_it_matters":"Patron saint","screen_anchor":{"x":0.8,"y":0.3},"confidence":0.7}]}`
	oracle := &fakeOracle{reply: replyWith(validScene, answer)}
	svc, store := newTestService(oracle)

	_, err := svc.Analyze(context.Background(), AnalyzeRequest{Image: testFrame(t, 8, 8), SessionID: "s1"})
	require.NoError(t, err)
	_, err = svc.Ask(context.Background(), AskRequest{Question: "What else?", SessionID: "s1"})
	require.NoError(t, err)

	session, _ := store.Get("s1")
	require.NotNil(t, session.LastScene)
	require.Len(t, session.LastScene.POIs, 2)
	assert.Equal(t, "Rebuilt 1890", session.LastScene.POIs[0].WhyItMatters)
	assert.Equal(t, "statue", session.LastScene.POIs[1].ID)
}

func TestAskFailuresLeaveSessionUnchanged(t *testing.T) {
	tests := []struct {
		name    string
		req     AskRequest
		reply   func(providers.Request) (string, error)
		wantErr error
		calls   int32
	}{
		{
			name:    "missing question",
			req:     AskRequest{SessionID: "s1"},
			reply:   replyWith(validScene, validAnswer),
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "missing session",
			req:     AskRequest{Question: "Q?"},
			reply:   replyWith(validScene, validAnswer),
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "bad image",
			req:     AskRequest{Question: "Q?", SessionID: "s1", Image: "xyz"},
			reply:   replyWith(validScene, validAnswer),
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "oversized image",
			req:     AskRequest{Question: "Q?", SessionID: "s1", Image: oversizedFrame()},
			reply:   replyWith(validScene, validAnswer),
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "bad reply",
			req:     AskRequest{Question: "Q?", SessionID: "s1"},
			reply:   replyWith(validScene, `{"answer":""}`),
			wantErr: ErrContractViolation,
			calls:   1,
		},
		{
			name: "oracle down",
			req:  AskRequest{Question: "Q?", SessionID: "s1"},
			reply: func(providers.Request) (string, error) {
				return "", errors.New("connection refused")
			},
			wantErr: ErrOracleUnavailable,
			calls:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := &fakeOracle{reply: tt.reply}
			svc, store := newTestService(oracle)
			store.Append("s1", "Saw: A - b")

			_, err := svc.Ask(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Equal(t, tt.calls, oracle.calls.Load())

			session, _ := store.Get("s1")
			assert.Equal(t, []string{"Saw: A - b"}, session.Memory)
		})
	}
}

func TestNewServiceDefaults(t *testing.T) {
	svc := NewService(storage.New(), &fakeOracle{}, Options{})
	assert.Equal(t, DefaultOptions().Timeout, svc.opts.Timeout)
	assert.Equal(t, 3, svc.opts.SceneMemoryWindow)
	assert.Equal(t, 5, svc.opts.AskMemoryWindow)
	assert.Equal(t, 512, svc.opts.AskImageMaxDim)
}
