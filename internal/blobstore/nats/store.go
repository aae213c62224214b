// Package nats stores blobs in a NATS JetStream object store bucket.
package nats

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/voicetranslator/internal/blobstore"
	"github.com/dmitrijs2005/voicetranslator/internal/common"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Store implements blobstore.Store on a JetStream object store bucket.
type Store struct {
	bucket string
	store  nats.ObjectStore
}

// New binds to bucketName, creating it first if needed.
func New(js nats.JetStreamContext, bucketName string) (*Store, error) {
	store, err := js.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Synthesized audio for the %s bucket.", bucketName),
		Storage:     nats.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			return nil, fmt.Errorf("failed to create object store bucket '%s': %w", bucketName, err)
		}
		store, err = js.ObjectStore(bucketName)
		if err != nil {
			return nil, fmt.Errorf("failed to bind to existing object store bucket '%s': %w", bucketName, err)
		}
	}

	return &Store{bucket: bucketName, store: store}, nil
}

// Connect dials url and returns the connection with a Store bound to
// bucket. The caller closes the connection.
func Connect(url, bucket string) (*nats.Conn, *Store, error) {
	nc, err := nats.Connect(url, nats.Name("voicetranslator"))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream context: %w", err)
	}
	s, err := New(js, bucket)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}
	return nc, s, nil
}

// Upload saves the blob under obj.ID.
func (s *Store) Upload(ctx context.Context, obj blobstore.Object, r io.Reader) error {
	meta := obj.Metadata.Encode()
	meta[blobstore.MetaFilename] = blobstore.EncodeFilename(obj.Filename)
	meta[blobstore.MetaContentType] = obj.ContentType

	_, err := s.store.Put(&nats.ObjectMeta{
		Name:        obj.ID,
		Description: obj.Filename,
		Metadata:    meta,
	}, r, nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("failed to put object '%s' to bucket '%s': %w", obj.ID, s.bucket, err)
	}
	return nil
}

// Download opens the blob. The whole object is buffered so the returned
// reader does not hold the JetStream subscription open.
func (s *Store) Download(ctx context.Context, id string) (*blobstore.Object, io.ReadCloser, error) {
	res, err := s.store.Get(id, nats.Context(ctx))
	if err != nil {
		if errors.Is(err, nats.ErrObjectNotFound) {
			return nil, nil, common.ErrorNotFound
		}
		return nil, nil, fmt.Errorf("failed to get object '%s' from bucket '%s': %w", id, s.bucket, err)
	}

	data, readErr := io.ReadAll(res)
	closeErr := res.Close()
	if readErr != nil {
		return nil, nil, fmt.Errorf("failed to read object '%s': %w", id, readErr)
	}
	if closeErr != nil {
		return nil, nil, fmt.Errorf("failed to close object '%s': %w", id, closeErr)
	}

	info, err := res.Info()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat object '%s': %w", id, err)
	}

	obj := &blobstore.Object{
		ID:          id,
		Filename:    blobstore.DecodeFilename(info.Metadata[blobstore.MetaFilename]),
		ContentType: info.Metadata[blobstore.MetaContentType],
		Size:        int64(len(data)),
		Metadata:    blobstore.DecodeMetadata(info.Metadata),
	}
	if obj.ContentType == "" {
		obj.ContentType = "application/octet-stream"
	}

	return obj, io.NopCloser(bytes.NewReader(data)), nil
}
