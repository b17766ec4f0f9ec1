package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core/message"
)

type messageRepository struct {
	db *messageTable
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *DB) message.Repository {
	return &messageRepository{db: db.message}
}

// all returns messages in insertion order.
func (repo *messageRepository) all() []message.Message {
	msgs := make([]message.Message, 0, len(repo.db.order))
	for _, id := range repo.db.order {
		if m, ok := repo.db.table[id]; ok {
			msgs = append(msgs, *m)
		}
	}
	return msgs
}

func (repo *messageRepository) create(msg message.Message) message.Message {
	msg.ID = uuid.New().String()
	repo.db.table[msg.ID] = &msg
	repo.db.order = append(repo.db.order, msg.ID)
	return msg
}

func (repo *messageRepository) CreateMessage(ctx context.Context, msg message.Message) (message.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	return repo.create(msg), nil
}

func (repo *messageRepository) CreateMessages(ctx context.Context, msgs []message.Message) ([]message.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	created := make([]message.Message, 0, len(msgs))
	for _, msg := range msgs {
		created = append(created, repo.create(msg))
	}
	return created, nil
}

func (repo *messageRepository) GetMessageByID(ctx context.Context, id string) (message.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m, ok := repo.db.table[id]; ok {
		return *m, nil
	}
	return message.Message{}, message.ErrNotFound
}

func (repo *messageRepository) GetThreadMessages(ctx context.Context, threadID string) ([]message.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var msgs []message.Message
	for _, m := range repo.all() {
		if m.ID == threadID || m.ThreadID.String == threadID {
			msgs = append(msgs, m)
		}
	}
	sortByCreation(msgs)
	return msgs, nil
}

func sortByCreation(msgs []message.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}

func participates(m message.Message, ids []string) bool {
	for _, id := range ids {
		if m.SenderID == id || m.ReceiverID.String == id {
			return true
		}
	}
	return false
}

func (repo *messageRepository) QueryMessages(ctx context.Context, filter *message.QueryFilter) ([]message.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var msgs []message.Message
	for _, m := range repo.all() {
		if filter.IsEmpty() || participates(m, filter.ParticipantIDs) {
			msgs = append(msgs, m)
		}
	}
	// newest first
	sortByCreation(msgs)
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (repo *messageRepository) FindDuplicateSince(ctx context.Context, msg message.Message, since time.Time) (message.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, m := range repo.all() {
		if m.SenderID == msg.SenderID &&
			m.ReceiverID.String == msg.ReceiverID.String &&
			m.Subject == msg.Subject &&
			m.Content == msg.Content &&
			!m.CreatedAt.Before(since) {
			return m, nil
		}
	}
	return message.Message{}, message.ErrNotFound
}

func (repo *messageRepository) MarkMessageRead(ctx context.Context, id string) (message.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	m, ok := repo.db.table[id]
	if !ok {
		return message.Message{}, message.ErrNotFound
	}
	m.Read = true
	return *m, nil
}

func (repo *messageRepository) DeleteExactDuplicates(ctx context.Context) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	msgs := repo.all()
	sortByCreation(msgs)

	keep := make(map[string]string) // dup key -> first (earliest) id
	var deleted int
	for _, m := range msgs {
		key := m.SenderID + "\x00" + m.ReceiverID.String + "\x00" + m.Subject + "\x00" + m.Content
		if _, ok := keep[key]; ok {
			delete(repo.db.table, m.ID)
			deleted++
			continue
		}
		keep[key] = m.ID
	}
	return deleted, nil
}
