package message

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage_Valid(t *testing.T) {
	studentID := uuid.New()
	parentID := uuid.New()

	m, err := NewMessage(studentID, parentID, ChannelSMS, "Tuition due Friday")
	require.NoError(t, err)
	assert.Equal(t, studentID, m.StudentID)
	assert.Equal(t, parentID, m.ParentID)
	assert.Equal(t, ChannelSMS, m.Channel)
	assert.Equal(t, StatusPending, m.Status)
	assert.Nil(t, m.SentAt)
}

func TestNewMessage_UnknownChannel(t *testing.T) {
	_, err := NewMessage(uuid.New(), uuid.New(), Channel("CARRIER_PIGEON"), "hi")
	assert.Error(t, err)
}

func TestNewMessage_EmptyContent(t *testing.T) {
	_, err := NewMessage(uuid.New(), uuid.New(), ChannelWhatsApp, "")
	assert.Error(t, err)
}

func TestChannel_Valid(t *testing.T) {
	assert.True(t, ChannelSMS.Valid())
	assert.True(t, ChannelWhatsApp.Valid())
	assert.True(t, ChannelEmail.Valid())
	assert.False(t, Channel("FAX").Valid())
}

func TestMarkSent(t *testing.T) {
	m, _ := NewMessage(uuid.New(), uuid.New(), ChannelSMS, "hello")
	at := time.Now()

	m.MarkSent(at)
	assert.Equal(t, StatusSent, m.Status)
	require.NotNil(t, m.SentAt)
	assert.Equal(t, at, *m.SentAt)
}

func TestMarkFailed(t *testing.T) {
	m, _ := NewMessage(uuid.New(), uuid.New(), ChannelSMS, "hello")

	m.MarkFailed()
	assert.Equal(t, StatusFailed, m.Status)
	assert.Nil(t, m.SentAt)
}
