// g30insight
// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: 2025 Akihiro Yamamoto <github.com/ak1211>

// Package bagtest はテスト用の小さな sqlite3 bag を作る
package bagtest

import (
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// rosbag2 が作るのと同じテーブル
var schema = []string{
	`CREATE TABLE schema(schema_version INTEGER PRIMARY KEY, ros_distro TEXT NOT NULL);`,
	`CREATE TABLE metadata(id INTEGER PRIMARY KEY, metadata_version INTEGER NOT NULL, metadata TEXT NOT NULL);`,
	`CREATE TABLE topics(id INTEGER PRIMARY KEY, name TEXT NOT NULL, type TEXT NOT NULL,
		serialization_format TEXT NOT NULL, offered_qos_profiles TEXT NOT NULL);`,
	`CREATE TABLE messages(id INTEGER PRIMARY KEY, topic_id INTEGER NOT NULL,
		timestamp INTEGER NOT NULL, data BLOB NOT NULL);`,
	`CREATE INDEX timestamp_idx ON messages (timestamp ASC);`,
}

type Message struct {
	Topic     string
	Timestamp int64
	Data      []byte
}

// Types は Write に渡すトピック名から型名への対応
type Types map[string]string

// Write は msgs をこの順に挿入した .db3 ファイルを path に作る
func Write(t testing.TB, path string, types Types, msgs []Message) {
	t.Helper()

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	for _, v := range schema {
		if _, err := db.Exec(v); err != nil {
			t.Fatalf("%v: %s", err, v)
		}
	}

	ids := map[string]int64{}
	for _, m := range msgs {
		if _, ok := ids[m.Topic]; ok {
			continue
		}
		typ := types[m.Topic]
		if typ == "" {
			typ = "std_msgs/msg/Empty"
		}
		res, err := db.Exec(`INSERT INTO topics(name, type, serialization_format, offered_qos_profiles) VALUES(?, ?, 'cdr', '')`,
			m.Topic, typ)
		if err != nil {
			t.Fatal(err)
		}
		if ids[m.Topic], err = res.LastInsertId(); err != nil {
			t.Fatal(err)
		}
	}

	for _, m := range msgs {
		data := m.Data
		if data == nil {
			data = []byte{}
		}
		if _, err := db.Exec(`INSERT INTO messages(topic_id, timestamp, data) VALUES(?, ?, ?)`,
			ids[m.Topic], m.Timestamp, data); err != nil {
			t.Fatal(err)
		}
	}
}
