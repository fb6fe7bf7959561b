package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmateus/lexflash/internal/api"
	"github.com/dmateus/lexflash/internal/clock"
	"github.com/dmateus/lexflash/internal/errors"
	"github.com/dmateus/lexflash/internal/events"
	"github.com/dmateus/lexflash/internal/models"
	"github.com/dmateus/lexflash/internal/testutil/mocks"
)

type apiFixture struct {
	study  *mocks.MockStudyService
	cards  *mocks.MockCardRepository
	remote *mocks.MockRemoteAPI
	bus    *events.Bus
	server http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	f := &apiFixture{
		study:  new(mocks.MockStudyService),
		cards:  new(mocks.MockCardRepository),
		remote: new(mocks.MockRemoteAPI),
		bus:    events.NewBus(),
	}
	srv := &api.Server{
		Study:    f.study,
		Cards:    f.cards,
		Remote:   f.remote,
		Bus:      f.bus,
		Clock:    clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		Validate: validator.New(),
	}
	f.server = srv.Routes()
	return f
}

func (f *apiFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestHandleStartSession(t *testing.T) {
	f := newAPIFixture(t)
	f.study.On("StartSession", mock.Anything).Return(12, nil)

	rec := f.do(t, http.MethodPost, "/session/start", "")

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.EqualValues(t, 12, data["queued"])
}

func TestHandleStartSession_EmptyQueue(t *testing.T) {
	f := newAPIFixture(t)
	f.study.On("StartSession", mock.Anything).Return(0, errors.NewEmptyQueueError())

	rec := f.do(t, http.MethodPost, "/session/start", "")

	require.Equal(t, http.StatusConflict, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, errors.ErrCodeEmptyQueue, body["code"])
	assert.NotEmpty(t, body["message"])
}

func TestHandleAnswerCard(t *testing.T) {
	f := newAPIFixture(t)
	f.study.On("AnswerCard", mock.Anything, 4).Return(nil)
	f.study.On("IsComplete", mock.Anything).Return(false)

	rec := f.do(t, http.MethodPost, "/session/answer", `{"quality":4}`)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, false, data["complete"])
}

func TestHandleAnswerCard_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing quality", `{}`},
		{"quality too high", `{"quality":6}`},
		{"quality negative", `{"quality":-1}`},
		{"malformed JSON", `{quality}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t)

			rec := f.do(t, http.MethodPost, "/session/answer", tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			f.study.AssertNotCalled(t, "AnswerCard", mock.Anything, mock.Anything)
		})
	}
}

func TestHandleGetCard(t *testing.T) {
	f := newAPIFixture(t)
	f.cards.On("Get", mock.Anything, "c1").Return(&models.Card{ID: "c1", Front: "sol", Back: "sun"}, nil)

	rec := f.do(t, http.MethodGet, "/cards/c1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, "sol", data["front"])
}

func TestHandleGetCard_NotFound(t *testing.T) {
	f := newAPIFixture(t)
	f.cards.On("Get", mock.Anything, "ghost").Return(nil, nil)

	rec := f.do(t, http.MethodGet, "/cards/ghost", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, errors.ErrCodeNotFound, body["code"])
}

func TestHandleAppVisible_EmitsEvent(t *testing.T) {
	f := newAPIFixture(t)

	var seen []events.Event
	f.bus.Subscribe(events.AppVisible, func(ev events.Event) {
		seen = append(seen, ev)
	})

	rec := f.do(t, http.MethodPost, "/app/visible", "")

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, seen, 1)
}

func TestHandleHealth(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", "")

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, "ok", data["status"])
}
