package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"github.com/shiled-1/task-sheduler/logging"
	"github.com/shiled-1/task-sheduler/models"
)

// CassandraMessages stores chat history in Cassandra, one partition per
// conversation so a conversation read is a single-partition slice already
// ordered by time.
type CassandraMessages struct {
	session *gocql.Session
}

// NewCassandraMessages connects to host, creates keyspace if needed and
// opens a session on it.
func NewCassandraMessages(host, keyspace string) (*CassandraMessages, error) {
	if host == "" {
		host = "127.0.0.1"
	}
	cluster := gocql.NewCluster(host)
	cluster.Keyspace = "system"
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("cassandra: connect to %s: %w", host, err)
	}

	err = session.Query(fmt.Sprintf(
		`CREATE KEYSPACE IF NOT EXISTS %s
         WITH replication = {
             'class': 'SimpleStrategy',
             'replication_factor': 1
         }`, keyspace)).Exec()
	session.Close()
	if err != nil {
		return nil, fmt.Errorf("cassandra: create keyspace %s: %w", keyspace, err)
	}

	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.One
	session, err = cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("cassandra: connect to keyspace %s: %w", keyspace, err)
	}
	logging.Logger.Infof("Event ID: CASSANDRA_CONNECTED, Description: Connected to Cassandra keyspace %s.", keyspace)

	m := &CassandraMessages{session: session}
	if err := m.createTable(); err != nil {
		session.Close()
		return nil, err
	}
	return m, nil
}

func (m *CassandraMessages) createTable() error {
	err := m.session.Query(
		`CREATE TABLE IF NOT EXISTS chat_history (
			conversation TEXT,
			sent_at TIMESTAMP,
			id UUID,
			sender_id TEXT,
			receiver_id TEXT,
			text TEXT,
			PRIMARY KEY ((conversation), sent_at, id)
		) WITH CLUSTERING ORDER BY (sent_at ASC, id ASC)`).Exec()
	if err != nil {
		return fmt.Errorf("cassandra: create chat_history table: %w", err)
	}
	return nil
}

func (m *CassandraMessages) Close() error {
	m.session.Close()
	logging.Logger.Info("Event ID: CASSANDRA_SESSION_CLOSED, Description: Cassandra session closed.")
	return nil
}

func (m *CassandraMessages) AppendMessage(ctx context.Context, msg models.Message) error {
	id, err := gocql.ParseUUID(msg.ID)
	if err != nil {
		return fmt.Errorf("cassandra: message id %q: %w", msg.ID, err)
	}
	err = m.session.Query(
		`INSERT INTO chat_history (conversation, sent_at, id, sender_id, receiver_id, text)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		models.ConversationKey(msg.SenderID, msg.ReceiverID), msg.Timestamp, id, msg.SenderID, msg.ReceiverID, msg.Text,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("cassandra: insert message: %w", err)
	}
	return nil
}

func (m *CassandraMessages) ListConversation(ctx context.Context, a, b string) ([]models.Message, error) {
	iter := m.session.Query(
		`SELECT id, sender_id, receiver_id, text, sent_at
		 FROM chat_history WHERE conversation = ?`,
		models.ConversationKey(a, b),
	).WithContext(ctx).Iter()

	messages := make([]models.Message, 0)
	var (
		id                   gocql.UUID
		sender, receiver, tx string
		sentAt               time.Time
	)
	for iter.Scan(&id, &sender, &receiver, &tx, &sentAt) {
		messages = append(messages, models.Message{
			ID:         id.String(),
			SenderID:   sender,
			ReceiverID: receiver,
			Text:       tx,
			Timestamp:  sentAt,
		})
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("cassandra: list conversation: %w", err)
	}
	return messages, nil
}
