package mail

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWelcome_Renders(t *testing.T) {
	msg, err := Welcome(WelcomeData{AppName: "Starter", Name: "<Ann>", Email: "ann@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "ann@example.com", msg.To)
	assert.Equal(t, "Welcome to Starter", msg.Subject)
	assert.Contains(t, msg.HTML, "Welcome, &lt;Ann&gt;!")
	assert.NotContains(t, msg.HTML, "Sign in")
	assert.Contains(t, msg.Text, "ann@example.com")
}

func TestWelcome_LoginLink(t *testing.T) {
	msg, err := Welcome(WelcomeData{AppName: "Starter", Name: "Ann Lee", Email: "ann@example.com", LoginURL: "https://app.example.com/login"})
	require.NoError(t, err)

	assert.Contains(t, msg.HTML, `<a href="https://app.example.com/login">Sign in</a>`)
	assert.Contains(t, msg.Text, "Welcome, Ann Lee!")
}

type flakyMailer struct {
	failures int
	calls    int
}

func (f *flakyMailer) Send(ctx context.Context, msg Message) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("temporary")
	}
	return nil
}

func TestRetrying(t *testing.T) {
	inner := &flakyMailer{failures: 2}
	m := Retrying{Mailer: inner, Attempts: 3, Delay: time.Millisecond}
	require.NoError(t, m.Send(context.Background(), Message{To: "x@example.com"}))
	assert.Equal(t, 3, inner.calls)

	inner = &flakyMailer{failures: 5}
	m = Retrying{Mailer: inner, Attempts: 2, Delay: time.Millisecond}
	require.Error(t, m.Send(context.Background(), Message{To: "x@example.com"}))
	assert.Equal(t, 2, inner.calls)
}

func TestSendGridMailer_Send(t *testing.T) {
	var got sgMailPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := NewSendGridMailer("key", "from@example.com", "Starter")
	m.endpoint = srv.URL

	err := m.Send(context.Background(), Message{To: "to@example.com", Subject: "Hi", Text: "t", HTML: "<p>h</p>"})
	require.NoError(t, err)
	assert.Equal(t, "to@example.com", got.Personalizations[0].To[0].Email)
	assert.Equal(t, "Starter", got.From.Name)
	assert.Len(t, got.Content, 2)
}

func TestSendGridMailer_ClientErrorIsNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "bad sender", http.StatusBadRequest)
	}))
	defer srv.Close()

	sg := NewSendGridMailer("key", "from@example.com", "Starter")
	sg.endpoint = srv.URL
	m := Retrying{Mailer: sg, Attempts: 3, Delay: time.Millisecond}

	err := m.Send(context.Background(), Message{To: "to@example.com"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "400"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestSendGridMailer_ServerErrorIsRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sg := NewSendGridMailer("key", "from@example.com", "Starter")
	sg.endpoint = srv.URL
	m := Retrying{Mailer: sg, Attempts: 3, Delay: time.Millisecond}

	require.NoError(t, m.Send(context.Background(), Message{To: "to@example.com"}))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}
