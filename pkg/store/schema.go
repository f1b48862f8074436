package store

import (
	"fmt"
)

// EnsureSchema creates the keyspace and tables if they do not exist.
// Schema creation belongs in a migration tool in production; this keeps a
// fresh cluster usable without one.
func EnsureSchema(hosts []string, keyspace string) error {
	sysSession, err := NewSession(hosts, "system")
	if err != nil {
		return fmt.Errorf("connect to system keyspace: %w", err)
	}
	err = sysSession.Query(fmt.Sprintf(
		`CREATE KEYSPACE IF NOT EXISTS %s WITH REPLICATION = { 'class' : 'SimpleStrategy', 'replication_factor' : 1 }`,
		keyspace)).Exec()
	sysSession.Close()
	if err != nil {
		return fmt.Errorf("create keyspace: %w", err)
	}

	session, err := NewSession(hosts, keyspace)
	if err != nil {
		return fmt.Errorf("connect to %s keyspace: %w", keyspace, err)
	}
	defer session.Close()

	tables := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			convo_id text,
			id bigint,
			from_user text,
			to_user text,
			text text,
			media_url text,
			message_type text,
			seen boolean,
			created_at timestamp,
			PRIMARY KEY (convo_id, id)
		) WITH CLUSTERING ORDER BY (id DESC)`,
		`CREATE TABLE IF NOT EXISTS user_conversations (
			user_id text,
			other_user_id text,
			last_updated timestamp,
			last_id bigint,
			last_from text,
			last_text text,
			last_media_url text,
			last_type text,
			PRIMARY KEY (user_id, other_user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS conversation_counters (
			user_id text,
			other_user_id text,
			unseen_count counter,
			PRIMARY KEY (user_id, other_user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			user_id text PRIMARY KEY,
			username text,
			full_name text,
			profile_picture text
		)`,
	}
	for _, stmt := range tables {
		if err := session.Query(stmt).Exec(); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}
