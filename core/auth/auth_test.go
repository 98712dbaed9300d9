package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coconature/storefront/core/model"
)

func TestParseClaims(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	token := signedToken(t, jwt.MapClaims{"id": "u1", "role": "admin", "exp": exp.Unix()})

	claims, err := ParseClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
	assert.True(t, exp.Equal(claims.ExpiresAt))

	_, err = ParseClaims("opaque-token")
	assert.Error(t, err)
}

func TestSession_ExpiredAndClone(t *testing.T) {
	now := time.Now()
	s := &Session{Token: "t", User: &model.User{ID: "u1"}}
	assert.False(t, s.Expired(now))
	s.ExpiresAt = now.Add(-time.Second)
	assert.True(t, s.Expired(now))

	cp := s.Clone()
	cp.User.ID = "other"
	assert.Equal(t, "u1", s.User.ID)

	var nilSession *Session
	assert.True(t, nilSession.Expired(now))
	assert.Nil(t, nilSession.Clone())
}

func TestBroadcaster_SubscribeUnsubscribe(t *testing.T) {
	b := NewBroadcaster()
	var got []string
	unsubA := b.Subscribe(func(ev ExpiredEvent) { got = append(got, "a:"+ev.Message) })
	b.Subscribe(func(ev ExpiredEvent) { got = append(got, "b:"+ev.Message) })
	assert.Equal(t, 2, b.Len())

	b.Publish(ExpiredEvent{Message: "1"})
	unsubA()
	unsubA()
	b.Publish(ExpiredEvent{Message: "2"})

	assert.Equal(t, []string{"a:1", "b:1", "b:2"}, got)
	assert.Equal(t, 1, b.Len())
}
