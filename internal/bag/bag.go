// g30insight
// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: 2025 Akihiro Yamamoto <github.com/ak1211>

// Package bag は sqlite3 ストレージで記録された ROS 2 bag を読む
//
// bag は1つ以上の .db3 ファイル(分割 bag)を持つディレクトリか、単独の .db3 ファイル。
// メッセージは記録順(タイムスタンプ順、同時刻なら挿入順)に返す。
// 分割 bag のファイル順は metadata.yaml の relative_file_paths に従い、
// metadata.yaml がなければファイル名末尾の通し番号で並べる。
package bag

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"gopkg.in/yaml.v3"
)

var ErrNoStorage = errors.New("bag: no .db3 storage file")

// rosbag2_storage_default_plugins の sqlite3 スキーマ
const (
	queryTopics = `SELECT name, type, serialization_format FROM topics ORDER BY id`

	queryMessages = `SELECT topics.name, messages.data, messages.timestamp
FROM messages JOIN topics ON messages.topic_id = topics.id
ORDER BY messages.timestamp, messages.id`
)

// Message は1件分のシリアライズされたメッセージ
type Message struct {
	Topic     string
	Data      []byte
	Timestamp int64 // ns
}

// Topic は bag に記録されたトピック
type Topic struct {
	Name                string
	Type                string
	SerializationFormat string
}

// Reader は bag の全ストレージファイルを順に読む
type Reader struct {
	files []string
	cur   int
	db    *sql.DB
	rows  *sql.Rows

	next    Message
	hasNext bool
	err     error
}

// Open は bag ディレクトリか単独の .db3 ファイルを開く
func Open(path string) (*Reader, error) {
	files, err := storageFiles(path)
	if err != nil {
		slog.Error("storageFiles", "path", path, "err", err)
		return nil, err
	}
	r := &Reader{files: files, cur: -1}
	r.advance()
	if r.err != nil {
		r.Close()
		return nil, r.err
	}
	return r, nil
}

// MetadataFile は分割 bag のファイル一覧を持つ
const MetadataFile = "metadata.yaml"

type metadata struct {
	Information struct {
		RelativeFilePaths []string `yaml:"relative_file_paths"`
	} `yaml:"rosbag2_bagfile_information"`
}

func storageFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	files, err := metadataFiles(path)
	if err != nil {
		return nil, err
	}
	if len(files) > 0 {
		return files, nil
	}

	files, err = filepath.Glob(filepath.Join(path, "*.db3"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoStorage, path)
	}
	sortSplits(files)
	return files, nil
}

// metadataFiles は metadata.yaml に書かれた順のファイル一覧。
// metadata.yaml がないか一覧が空なら nil
func metadataFiles(dir string) ([]string, error) {
	b, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var m metadata
	if err := yaml.Unmarshal(b, &m); err != nil {
		slog.Error("Unmarshal", "path", filepath.Join(dir, MetadataFile), "err", err)
		return nil, fmt.Errorf("%s: %w", MetadataFile, err)
	}

	files := []string{}
	for _, rel := range m.Information.RelativeFilePaths {
		if filepath.Ext(rel) != ".db3" {
			continue
		}
		file := filepath.Join(dir, rel)
		// 古い rosbag2 は bag ディレクトリ名を含めて書く
		if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
			file = filepath.Join(dir, filepath.Base(rel))
		}
		if _, err := os.Stat(file); err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

// splitNumber は "<name>_<n>.db3" の name と n
func splitNumber(file string) (string, int, bool) {
	stem := strings.TrimSuffix(filepath.Base(file), ".db3")
	i := strings.LastIndexByte(stem, '_')
	if i < 0 {
		return stem, 0, false
	}
	n, err := strconv.Atoi(stem[i+1:])
	if err != nil {
		return stem, 0, false
	}
	return stem[:i], n, true
}

// sortSplits は _10 が _2 より後になるように並べる
func sortSplits(files []string) {
	sort.SliceStable(files, func(i, j int) bool {
		a, an, aok := splitNumber(files[i])
		b, bn, bok := splitNumber(files[j])
		if a != b || !aok || !bok {
			return files[i] < files[j]
		}
		return an < bn
	})
}

func openDB(file string) (*sql.DB, error) {
	// '?' や '#' を含むパスでも URI が壊れないようにする
	name := (&url.URL{Path: filepath.ToSlash(file)}).EscapedPath()
	DSN := fmt.Sprintf("file:%s?mode=ro", name)
	db, err := sql.Open("sqlite3", DSN)
	if err != nil {
		return nil, err
	}
	// sql.Open は接続しないので、ここで壊れたファイルを検出する
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return db, nil
}

// advance は次のメッセージを先読みする。ファイルの終わりでは次のファイルへ進む
func (r *Reader) advance() {
	r.hasNext = false
	for {
		if r.rows != nil {
			if r.rows.Next() {
				var m Message
				if err := r.rows.Scan(&m.Topic, &m.Data, &m.Timestamp); err != nil {
					r.err = fmt.Errorf("%s: %w", r.files[r.cur], err)
					return
				}
				r.next = m
				r.hasNext = true
				return
			}
			if err := r.rows.Err(); err != nil {
				r.err = fmt.Errorf("%s: %w", r.files[r.cur], err)
				return
			}
			r.closeCurrent()
		}

		r.cur++
		if r.cur >= len(r.files) {
			return
		}
		db, err := openDB(r.files[r.cur])
		if err != nil {
			r.err = err
			return
		}
		rows, err := db.Query(queryMessages)
		if err != nil {
			db.Close()
			r.err = fmt.Errorf("%s: %w", r.files[r.cur], err)
			return
		}
		r.db, r.rows = db, rows
	}
}

func (r *Reader) closeCurrent() {
	if r.rows != nil {
		r.rows.Close()
		r.rows = nil
	}
	if r.db != nil {
		r.db.Close()
		r.db = nil
	}
}

// HasNext は ReadNext がメッセージを返せるかどうか
func (r *Reader) HasNext() bool {
	return r.hasNext
}

// ReadNext は次のメッセージを返す。最後のメッセージの後は
// 読み込み中に起きたエラーか、終わりに達したことを示すエラーを返す
func (r *Reader) ReadNext() (Message, error) {
	if !r.hasNext {
		if r.err != nil {
			return Message{}, r.err
		}
		return Message{}, errors.New("bag: no more messages")
	}
	m := r.next
	r.advance()
	return m, nil
}

// Err は読み込みを止めたエラー
func (r *Reader) Err() error {
	return r.err
}

// Close は開いているストレージファイルを閉じる
func (r *Reader) Close() error {
	r.closeCurrent()
	r.hasNext = false
	return nil
}

// Topics は bag に記録されたトピックをストレージ順に並べる。
// 複数の分割ファイルにあるトピックは1度だけ
func Topics(path string) ([]Topic, error) {
	files, err := storageFiles(path)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	topics := []Topic{}
	for _, file := range files {
		db, err := openDB(file)
		if err != nil {
			return nil, err
		}
		rows, err := db.Query(queryTopics)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		for rows.Next() {
			var t Topic
			if err := rows.Scan(&t.Name, &t.Type, &t.SerializationFormat); err != nil {
				rows.Close()
				db.Close()
				return nil, err
			}
			if !seen[t.Name] {
				seen[t.Name] = true
				topics = append(topics, t)
			}
		}
		err = rows.Err()
		rows.Close()
		db.Close()
		if err != nil {
			return nil, err
		}
	}
	return topics, nil
}
