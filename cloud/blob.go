/*
Copyright © 2024 the XDS authors.
This file is part of XDS.

XDS is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

XDS is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with XDS.  If not, see <http://www.gnu.org/licenses/>.
*/

package cloud

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// ReadBlob reads the given blob from the given bucket.
func ReadBlob(ctx context.Context, bucket *blob.Bucket, key string) ([]byte, error) {
	var b bytes.Buffer
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, fmt.Errorf("cloud: reading blob key %s: %w", key, err)
	}
	defer r.Close()
	if _, err = io.Copy(&b, r); err != nil {
		return nil, fmt.Errorf("cloud: reading blob key %s: %w", key, err)
	}
	return b.Bytes(), nil
}

// ReadBlobRetry reads the given blob, retrying with exponential backoff
// on failures other than a missing key. notify, if not nil, is called
// before each retry.
func ReadBlobRetry(ctx context.Context, bucket *blob.Bucket, key string, notify func(error, time.Duration)) ([]byte, error) {
	var data []byte
	err := backoff.RetryNotify(
		func() error {
			var err error
			data, err = ReadBlob(ctx, bucket, key)
			if err != nil && (IsNotExist(err) || ctx.Err() != nil) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx),
		notify,
	)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// IsNotExist reports whether err was caused by a missing blob.
func IsNotExist(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}

// WriteBlob writes the given data to the given bucket.
func WriteBlob(ctx context.Context, bucket *blob.Bucket, key string, data []byte) error {
	b := bytes.NewBuffer(data)
	w, err := bucket.NewWriter(ctx, key, &blob.WriterOptions{})
	if err != nil {
		return fmt.Errorf("cloud: creating writer for blob %s: %w", key, err)
	}
	if _, err = io.Copy(w, b); err != nil {
		w.Close()
		return fmt.Errorf("cloud: copying blob %s: %w", key, err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("cloud: writing blob %s: %w", key, err)
	}
	return nil
}

// List returns the keys of all blobs in bucket that start with prefix,
// in lexical order.
func List(ctx context.Context, bucket *blob.Bucket, prefix string) ([]string, error) {
	iter := bucket.List(&blob.ListOptions{Prefix: prefix})
	var keys []string
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cloud: listing blobs with prefix %s: %w", prefix, err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// DeletePrefix deletes all blobs in bucket whose keys start with prefix.
func DeletePrefix(ctx context.Context, bucket *blob.Bucket, prefix string) error {
	keys, err := List(ctx, bucket, prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err = bucket.Delete(ctx, k); err != nil {
			return fmt.Errorf("cloud: deleting blob %s: %w", k, err)
		}
	}
	return nil
}
