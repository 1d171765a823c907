package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSStore keeps audio blobs in a NATS JetStream object store bucket.
type NATSStore struct {
	conn   *nats.Conn
	bucket string
	store  nats.ObjectStore
}

// NewNATSStore connects to the given NATS server and creates or binds
// the bucket. The store owns the connection and closes it on Close.
func NewNATSStore(url, bucket string) (*NATSStore, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	store, err := js.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:  bucket,
		Storage: nats.FileStorage,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) {
			conn.Close()
			return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
		}
		store, err = js.ObjectStore(bucket)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("bind bucket %q: %w", bucket, err)
		}
	}

	return &NATSStore{conn: conn, bucket: bucket, store: store}, nil
}

func (s *NATSStore) Upload(_ context.Context, key string, data []byte) error {
	if _, err := s.store.Put(&nats.ObjectMeta{Name: key}, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("put object %q in %q: %w", key, s.bucket, err)
	}
	return nil
}

func (s *NATSStore) Download(_ context.Context, key string) ([]byte, error) {
	obj, err := s.store.Get(key)
	if err != nil {
		if errors.Is(err, nats.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get object %q from %q: %w", key, s.bucket, err)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()
	if readErr != nil {
		return nil, fmt.Errorf("read object %q: %w", key, readErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close object %q: %w", key, closeErr)
	}
	return data, nil
}

func (s *NATSStore) Close() error {
	s.conn.Close()
	return nil
}
