package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"photogallery/internal/models"
)

type Type string

const (
	TypePhotoUploaded Type = "photo.uploaded"
	TypePhotoDeleted  Type = "photo.deleted"
	TypeCleanup       Type = "cleanup"
)

type Event struct {
	Type    Type
	PhotoID string
	Driver  string
	Key     string
}

func PhotoUploaded(photo models.Photo) Event {
	return Event{Type: TypePhotoUploaded, PhotoID: photo.ID, Driver: photo.StorageDriver, Key: photo.StorageKey}
}

func PhotoDeleted(photo models.Photo) Event {
	return Event{Type: TypePhotoDeleted, PhotoID: photo.ID, Driver: photo.StorageDriver, Key: photo.StorageKey}
}

// Values is the stream entry representation of e.
func (e Event) Values() map[string]any {
	return map[string]any{
		"type":    string(e.Type),
		"photoId": e.PhotoID,
		"driver":  e.Driver,
		"key":     e.Key,
	}
}

// FromValues decodes a stream entry written by Publisher.
func FromValues(values map[string]any) (Event, error) {
	typ, ok := values["type"].(string)
	if !ok || typ == "" {
		return Event{}, fmt.Errorf("event without type")
	}
	str := func(k string) string {
		s, _ := values[k].(string)
		return s
	}
	return Event{
		Type:    Type(typ),
		PhotoID: str("photoId"),
		Driver:  str("driver"),
		Key:     str("key"),
	}, nil
}

// Publisher appends events to a Redis stream. A Publisher with a nil client drops
// every event.
type Publisher struct {
	client *redis.Client
	stream string
}

func NewPublisher(client *redis.Client, stream string) *Publisher {
	return &Publisher{client: client, stream: stream}
}

func (p *Publisher) Enabled() bool {
	return p != nil && p.client != nil
}

func (p *Publisher) Publish(ctx context.Context, event Event) error {
	if !p.Enabled() {
		return nil
	}
	_, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: event.Values(),
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}
