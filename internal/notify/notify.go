// Package notify holds the reminder delivery channels. Each channel is an
// independent Sender so a push-provider outage never blocks in-app delivery;
// the dispatcher fans a message out to every enabled channel and collects
// per-channel errors.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/verixence/erp-school-sub008/models"
	"gorm.io/gorm"
)

// Channel names as stored on ScheduleReminder.Channels.
const (
	ChannelInApp = "in_app"
	ChannelPush  = "push"
)

// PushQueueKey is the Redis list the push delivery worker consumes.
const PushQueueKey = "push_notification_queue"

// Message is one notification addressed to a student's guardian.
type Message struct {
	SchoolID    uint
	GuardianID  uint
	PushToken   string
	Title       string
	Body        string
	Type        string
	RelatedType string
	RelatedID   uint
	Data        map[string]interface{}
}

// Sender delivers a message over one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// InAppSender writes a Notification row for the guardian account. The web
// and mobile clients poll these rows.
type InAppSender struct {
	DB *gorm.DB
}

func (InAppSender) Name() string { return ChannelInApp }

func (s InAppSender) Send(ctx context.Context, msg Message) error {
	if msg.GuardianID == 0 {
		return errors.New("student has no guardian account")
	}

	expires := time.Now().AddDate(0, 0, 30)
	notification := models.Notification{
		SchoolID:    msg.SchoolID,
		UserID:      msg.GuardianID,
		Title:       msg.Title,
		Message:     msg.Body,
		Type:        msg.Type,
		RelatedType: msg.RelatedType,
		RelatedID:   msg.RelatedID,
		ExpiresAt:   &expires,
	}
	return s.DB.WithContext(ctx).Create(&notification).Error
}

// PushSender enqueues onto the Redis push queue keyed by device token; a
// separate worker drains the queue against the Expo push API. Disabled when
// Redis is not configured.
type PushSender struct {
	RDB *redis.Client
}

func (PushSender) Name() string { return ChannelPush }

// pushPayload is the queue wire format.
type pushPayload struct {
	ID       string                 `json:"id"`
	Token    string                 `json:"token"`
	Title    string                 `json:"title"`
	Body     string                 `json:"body"`
	Data     map[string]interface{} `json:"data,omitempty"`
	QueuedAt time.Time              `json:"queuedAt"`
}

func (s PushSender) Send(ctx context.Context, msg Message) error {
	if s.RDB == nil {
		return errors.New("push delivery is not configured")
	}
	if msg.PushToken == "" {
		return errors.New("student has no registered push token")
	}

	payload, err := json.Marshal(pushPayload{
		ID:       uuid.NewString(),
		Token:    msg.PushToken,
		Title:    msg.Title,
		Body:     msg.Body,
		Data:     msg.Data,
		QueuedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	return s.RDB.LPush(ctx, PushQueueKey, payload).Err()
}

// Senders builds the channel registry the dispatcher selects from.
func Senders(db *gorm.DB, rdb *redis.Client) map[string]Sender {
	return map[string]Sender{
		ChannelInApp: InAppSender{DB: db},
		ChannelPush:  PushSender{RDB: rdb},
	}
}
