package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps every record as a JSON document.
//
// Key layout, with prefix "motoreg:":
//
//	motoreg:teams                    set of team ids
//	motoreg:teams:<id>               team document
//	motoreg:teams:<id>:pilots        subcollection index of the team's pilots
//	motoreg:pilots:<id>              pilot document
//	motoreg:owners:<user id>         id of the team the user represents
//
// Filters other than by id or by parent are evaluated client side over the
// collection index, which is fine for the size of one event.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

type document struct {
	raw    []byte
	fields map[string]interface{}
}

func (s *RedisStore) docKey(collection, id string) string {
	return s.prefix + collection + ":" + id
}

func (s *RedisStore) indexKey(collection string) string {
	return s.prefix + collection
}

func (s *RedisStore) subKey(collection, teamID string) string {
	return s.prefix + CollectionTeams + ":" + teamID + ":" + collection
}

func (s *RedisStore) ownerKey(userID string) string {
	return s.prefix + "owners:" + userID
}

func (s *RedisStore) Get(ctx context.Context, collection string, filter Filter, dest interface{}) error {
	docs, err := s.scan(ctx, collection, filter)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return ErrNotFound
	}
	if err := json.Unmarshal(docs[0].raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", collection, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, collection string, filter Filter, order *Order, dest interface{}) error {
	docs, err := s.scan(ctx, collection, filter)
	if err != nil {
		return err
	}
	if order != nil {
		sort.SliceStable(docs, func(i, j int) bool {
			c := compareValues(docs[i].fields[order.Field], docs[j].fields[order.Field])
			if order.Desc {
				return c > 0
			}
			return c < 0
		})
	}

	raws := make([][]byte, len(docs))
	for i, d := range docs {
		raws[i] = d.raw
	}
	arr := append(append([]byte("["), bytes.Join(raws, []byte(","))...), ']')
	if err := json.Unmarshal(arr, dest); err != nil {
		return fmt.Errorf("decode %s: %w", collection, err)
	}
	return nil
}

// Insert stores a new record. A team document and its representative's
// owner key are written in the same transaction, so one user never holds
// two teams. An owner key whose team document is missing is stale and
// gets replaced.
func (s *RedisStore) Insert(ctx context.Context, collection string, record Record) error {
	id := record.RecordID()
	if id == "" {
		return fmt.Errorf("insert into %s: record has no id", collection)
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}
	parent, err := parentOf(collection, raw)
	if err != nil {
		return err
	}
	owner, err := ownerOf(collection, raw)
	if err != nil {
		return err
	}

	key := s.docKey(collection, id)
	watched := []string{key}
	if owner != "" {
		watched = append(watched, s.ownerKey(owner))
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrConflict
		}
		if owner != "" {
			held, err := tx.Get(ctx, s.ownerKey(owner)).Result()
			switch {
			case errors.Is(err, redis.Nil):
			case err != nil:
				return err
			default:
				n, err := tx.Exists(ctx, s.docKey(CollectionTeams, held)).Result()
				if err != nil {
					return err
				}
				if n > 0 {
					return ErrConflict
				}
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)
			pipe.SAdd(ctx, s.indexKey(collection), id)
			if parent != "" {
				pipe.SAdd(ctx, s.subKey(collection, parent), id)
			}
			if owner != "" {
				pipe.Set(ctx, s.ownerKey(owner), id, 0)
			}
			return nil
		})
		return err
	}, watched...)

	// a failed transaction means a concurrent write claimed the same keys
	if errors.Is(err, ErrConflict) || errors.Is(err, redis.TxFailedErr) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert into %s: %w", collection, err)
	}
	return nil
}

// Update merges patch into the stored document. Records cannot be moved:
// "id" and "team_id" keys in patch are ignored.
func (s *RedisStore) Update(ctx context.Context, collection, id string, patch map[string]interface{}) error {
	key := s.docKey(collection, id)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var doc map[string]interface{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		for k, v := range patch {
			if k == "id" || k == ParentField {
				continue
			}
			doc[k] = normalize(v)
		}
		out, err := json.Marshal(doc)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update %s %s: %w", collection, id, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, collection, id string) error {
	key := s.docKey(collection, id)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		parent, err := parentOf(collection, raw)
		if err != nil {
			return err
		}
		owner, err := ownerOf(collection, raw)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, s.indexKey(collection), id)
			if parent != "" {
				pipe.SRem(ctx, s.subKey(collection, parent), id)
			}
			if owner != "" {
				pipe.Del(ctx, s.ownerKey(owner))
			}
			return nil
		})
		return err
	}, key)

	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", collection, id, err)
	}
	return nil
}

func (s *RedisStore) Count(ctx context.Context, collection string, filter Filter) (int64, error) {
	switch {
	case len(filter) == 0:
		n, err := s.client.SCard(ctx, s.indexKey(collection)).Result()
		if err != nil {
			return 0, fmt.Errorf("count %s: %w", collection, err)
		}
		return n, nil
	case len(filter) == 1 && isChild(collection) && filter[ParentField] != nil:
		n, err := s.client.SCard(ctx, s.subKey(collection, fmt.Sprint(filter[ParentField]))).Result()
		if err != nil {
			return 0, fmt.Errorf("count %s: %w", collection, err)
		}
		return n, nil
	}

	docs, err := s.scan(ctx, collection, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// scan loads the candidate documents for filter and keeps the matching ones.
func (s *RedisStore) scan(ctx context.Context, collection string, filter Filter) ([]document, error) {
	ids, err := s.candidates(ctx, collection, filter)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", collection, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(collection, id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", collection, err)
	}

	want := make(map[string]interface{}, len(filter))
	for k, v := range filter {
		want[k] = normalize(v)
	}

	docs := make([]document, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			// index entry without a document
			continue
		}
		d := document{raw: []byte(str)}
		if err := json.Unmarshal(d.raw, &d.fields); err != nil {
			return nil, fmt.Errorf("decode %s: %w", collection, err)
		}
		if matches(d.fields, want) {
			docs = append(docs, d)
		}
	}
	return docs, nil
}

func (s *RedisStore) candidates(ctx context.Context, collection string, filter Filter) ([]string, error) {
	if id, ok := filter["id"]; ok {
		return []string{fmt.Sprint(id)}, nil
	}
	if owner, ok := filter[OwnerField]; ok && collection == CollectionTeams {
		id, err := s.client.Get(ctx, s.ownerKey(fmt.Sprint(owner))).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []string{id}, nil
	}
	if parent, ok := filter[ParentField]; ok && isChild(collection) {
		return s.client.SMembers(ctx, s.subKey(collection, fmt.Sprint(parent))).Result()
	}
	return s.client.SMembers(ctx, s.indexKey(collection)).Result()
}

func parentOf(collection string, raw []byte) (string, error) {
	if !isChild(collection) {
		return "", nil
	}
	var ref struct {
		TeamID string `json:"team_id"`
	}
	if err := json.Unmarshal(raw, &ref); err != nil {
		return "", fmt.Errorf("decode %s: %w", collection, err)
	}
	if ref.TeamID == "" {
		return "", fmt.Errorf("%s record has no team_id", collection)
	}
	return ref.TeamID, nil
}

// ownerOf returns the representative of a team document.
func ownerOf(collection string, raw []byte) (string, error) {
	if collection != CollectionTeams {
		return "", nil
	}
	var ref struct {
		Owner string `json:"representative_user_id"`
	}
	if err := json.Unmarshal(raw, &ref); err != nil {
		return "", fmt.Errorf("decode %s: %w", collection, err)
	}
	return ref.Owner, nil
}

func matches(fields, want map[string]interface{}) bool {
	for k, v := range want {
		if !reflect.DeepEqual(fields[k], v) {
			return false
		}
	}
	return true
}

// normalize converts v to the shape it has after a JSON round trip.
func normalize(v interface{}) interface{} {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

// compareValues orders decoded JSON values. Timestamps compare as times.
func compareValues(a, b interface{}) int {
	switch av := a.(type) {
	case nil:
		if b == nil {
			return 0
		}
		return -1
	case string:
		bv, ok := b.(string)
		if !ok {
			return 1
		}
		at, aerr := time.Parse(time.RFC3339Nano, av)
		bt, berr := time.Parse(time.RFC3339Nano, bv)
		if aerr == nil && berr == nil {
			return at.Compare(bt)
		}
		return strings.Compare(av, bv)
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 1
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case bool:
		bv, ok := b.(bool)
		if !ok || av == bv {
			return 0
		}
		if !av {
			return -1
		}
		return 1
	}
	if b == nil {
		return 1
	}
	return 0
}
