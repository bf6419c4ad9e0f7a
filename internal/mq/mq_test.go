package mq

import (
	"context"
	"errors"
	"testing"

	"github.com/recipeapp/apiserver/config"
	"github.com/stretchr/testify/require"
)

type recordingBackend struct {
	channel string
	data    []byte
	attrs   map[string]string
	err     error
	closed  bool
}

func (b *recordingBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	b.channel, b.data, b.attrs = channel, data, attrs
	return "msg-1", nil
}

func (b *recordingBackend) Close() error {
	b.closed = true
	return nil
}

func TestMQDelegatesToBackend(t *testing.T) {
	backend := &recordingBackend{}
	m := New(backend)

	id, err := m.Publish(context.Background(), "recipe-events", []byte(`{}`), map[string]string{"type": "recipe.created"})
	require.NoError(t, err)
	require.Equal(t, "msg-1", id)
	require.Equal(t, "recipe-events", backend.channel)
	require.Equal(t, "recipe.created", backend.attrs["type"])

	require.NoError(t, m.Close())
	require.True(t, backend.closed)
}

func TestMQPropagatesErrors(t *testing.T) {
	m := New(&recordingBackend{err: errors.New("broker down")})
	_, err := m.Publish(context.Background(), "recipe-events", nil, nil)
	require.ErrorContains(t, err, "broker down")
}

func TestOpenWithoutBackend(t *testing.T) {
	m, err := Open(context.Background(), config.MQConfig{})
	require.NoError(t, err)
	require.Nil(t, m)

	_, err = Open(context.Background(), config.MQConfig{Backend: "kafka"})
	require.ErrorContains(t, err, "unsupported mq backend")
}

func TestRabbitMQRequiresURL(t *testing.T) {
	_, err := NewRabbitMQClient("  ")
	require.Error(t, err)
}
