package bot

import (
	"context"
	"errors"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ytget/yt-music-bot/internal/config"
	"github.com/ytget/yt-music-bot/internal/download"
	"github.com/ytget/yt-music-bot/internal/model"
	"github.com/ytget/yt-music-bot/internal/platform"
)

// fakeClient records everything the bot sends
type fakeClient struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	nextID   int
	sendErr  error
	reqErr   error
	updates  chan tgbotapi.Update
	stopped  bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{updates: make(chan tgbotapi.Update, 10)}
}

func (f *fakeClient) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.nextID++
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeClient) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, c)
	if f.reqErr != nil {
		return nil, f.reqErr
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeClient) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeClient) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

// texts returns the text of every plain message sent so far
func (f *fakeClient) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

func (f *fakeClient) lastText() string {
	texts := f.texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

func (f *fakeClient) callbacks() []tgbotapi.CallbackConfig {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []tgbotapi.CallbackConfig
	for _, c := range f.requests {
		if cb, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, cb)
		}
	}
	return out
}

// fakeManager records submissions and returns canned errors
type fakeManager struct {
	mu          sync.Mutex
	singles     []model.Track
	playlists   map[string][]model.Track
	singleErr   error
	playlistErr error
	cancelled   []int64
	summary     download.CancelSummary
	snapshot    download.UserSnapshot
	panicOn     string
}

func newFakeManager() *fakeManager {
	return &fakeManager{playlists: make(map[string][]model.Track)}
}

func (m *fakeManager) SubmitSingle(_ context.Context, userID, chatID int64, track model.Track) (*model.DownloadTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.panicOn != "" && track.URL == m.panicOn {
		panic("boom")
	}
	if m.singleErr != nil {
		return nil, m.singleErr
	}
	m.singles = append(m.singles, track)
	return &model.DownloadTask{ID: "task-1", UserID: userID, ChatID: chatID, URL: track.URL, Track: track}, nil
}

func (m *fakeManager) SubmitPlaylist(_ context.Context, _, _ int64, title string, tracks []model.Track) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.playlistErr != nil {
		return "", m.playlistErr
	}
	m.playlists[title] = tracks
	return "pl-1", nil
}

func (m *fakeManager) CancelAll(_ context.Context, userID int64) download.CancelSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelled = append(m.cancelled, userID)
	return m.summary
}

func (m *fakeManager) Snapshot(userID int64) download.UserSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot
	snap.UserID = userID
	return snap
}

func (m *fakeManager) Users() []int64 { return nil }

func (m *fakeManager) submittedSingles() []model.Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Track(nil), m.singles...)
}

type fakeExpander struct {
	parsed *platform.ParsedPlaylist
	err    error
	max    int
}

func (e *fakeExpander) ParsePlaylist(context.Context, string) (*platform.ParsedPlaylist, error) {
	return e.parsed, e.err
}

func (e *fakeExpander) MaxTracks() int { return e.max }

type fakeSearcher struct {
	tracks []model.Track
	err    error
	query  string
	source model.Source
}

func (s *fakeSearcher) Search(_ context.Context, source model.Source, query string, _ int) ([]model.Track, error) {
	s.query, s.source = query, source
	return s.tracks, s.err
}

type botHarness struct {
	bot      *Bot
	client   *fakeClient
	manager  *fakeManager
	expander *fakeExpander
	searcher *fakeSearcher
}

func newBotHarness(cfg config.BotConfig) *botHarness {
	h := &botHarness{
		client:   newFakeClient(),
		manager:  newFakeManager(),
		expander: &fakeExpander{max: 100},
		searcher: &fakeSearcher{},
	}
	messenger := NewMessenger(h.client, nil, 0, nil)
	h.bot = New(h.client, messenger, h.manager, h.expander, h.searcher, cfg, nil)
	return h
}

// textUpdate builds a message update; a leading slash word becomes a command
func textUpdate(userID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, UserName: "user"},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		word, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(word)}}
	}
	return tgbotapi.Update{UpdateID: 1, Message: msg}
}

func callbackUpdate(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 2,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb-1",
			From:    &tgbotapi.User{ID: userID},
			Message: &tgbotapi.Message{MessageID: 5, Chat: &tgbotapi.Chat{ID: userID}},
			Data:    data,
		},
	}
}

var errShrink = errors.New("cannot shrink")
