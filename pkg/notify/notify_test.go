package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/smart-attendance/pkg/config"
	"github.com/noah-isme/smart-attendance/pkg/jobs"
)

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.Notify(context.Background(), Message{To: "priya@example.com", Subject: "Attendance Alert", Body: "hi"}))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "priya@example.com", logs.All()[0].ContextMap()["to"])

	assert.ErrorIs(t, n.Notify(context.Background(), Message{}), ErrNoRecipient)
}

func TestSMTPNotifierComposesMessage(t *testing.T) {
	n, err := NewSMTPNotifier(config.SMTPConfig{Host: "smtp.test", Port: 2525, From: "noreply@school.test"})
	require.NoError(t, err)

	var gotAddr string
	var gotTo []string
	var gotBody string
	n.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotBody = addr, to, string(msg)
		return nil
	}

	err = n.Notify(context.Background(), Message{To: "priya@example.com", Subject: "Attendance\r\nAlert", Body: "Dear Priya"})
	require.NoError(t, err)
	assert.Equal(t, "smtp.test:2525", gotAddr)
	assert.Equal(t, []string{"priya@example.com"}, gotTo)
	assert.Contains(t, gotBody, "Subject: Attendance  Alert\r\n")
	assert.True(t, strings.HasSuffix(gotBody, "\r\n\r\nDear Priya"))
}

func TestSMTPNotifierRequiresHost(t *testing.T) {
	_, err := NewSMTPNotifier(config.SMTPConfig{})
	assert.Error(t, err)
}

func TestQueuedNotifierRetries(t *testing.T) {
	var calls int32
	delivered := make(chan struct{})
	flaky := NotifierFunc(func(context.Context, Message) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("relay busy")
		}
		close(delivered)
		return nil
	})

	n := NewQueuedNotifier(flaky, QueueOptions{Retries: 3, RetryDelay: 5 * time.Millisecond})
	n.Start(context.Background())
	defer n.Stop()

	require.NoError(t, n.Notify(context.Background(), Message{To: "amit@example.com"}))
	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("message never delivered")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueuedNotifierStopReportsUndelivered(t *testing.T) {
	failed := make(chan struct{}, 1)
	dropped := make(chan string, 1)
	down := NotifierFunc(func(context.Context, Message) error {
		failed <- struct{}{}
		return errors.New("relay down")
	})

	n := NewQueuedNotifier(down, QueueOptions{
		Retries:    5,
		RetryDelay: time.Hour,
		OnDrop:     func(id string, _ error) { dropped <- id },
	})
	require.ErrorIs(t, n.Notify(context.Background(), Message{To: "amit@example.com"}), jobs.ErrQueueClosed)

	n.Start(context.Background())
	require.NoError(t, n.Notify(context.Background(), Message{To: "amit@example.com"}))
	<-failed
	n.Stop()

	select {
	case id := <-dropped:
		assert.NotEmpty(t, id)
	default:
		t.Fatal("undelivered message was not reported")
	}
}

func TestFromConfig(t *testing.T) {
	n, stop, err := FromConfig(context.Background(), config.NotifyConfig{Transport: "log"}, nil)
	require.NoError(t, err)
	defer stop()
	assert.IsType(t, &LogNotifier{}, n)

	_, _, err = FromConfig(context.Background(), config.NotifyConfig{Transport: "pigeon"}, nil)
	assert.Error(t, err)
}
