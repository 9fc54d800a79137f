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

// Package cloud opens blob storage buckets and moves blobs in and out of
// them.
package cloud

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/memblob"
)

// OpenBucket returns the blob storage bucket specified by bucketName,
// where bucketName must be in the format 'provider://name' where provider
// is the name of the storage provider and name is the name of the bucket.
// The accepted storage providers are "file" for a directory on the local
// filesystem, which is created if it does not exist, and "mem" for an
// empty in-memory bucket. For "file", both "file://dir" (relative) and
// "file:///abs/dir" are accepted.
func OpenBucket(ctx context.Context, bucketName string) (*blob.Bucket, error) {
	u, err := url.Parse(bucketName)
	if err != nil {
		return nil, fmt.Errorf("cloud.OpenBucket: %v", err)
	}
	switch u.Scheme {
	case "file":
		dir := u.Host + u.Path
		if dir == "" {
			return nil, fmt.Errorf("cloud.OpenBucket: missing directory in %q", bucketName)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cloud.OpenBucket: %v", err)
		}
		return fileblob.OpenBucket(dir, nil)
	case "mem":
		return memblob.OpenBucket(nil), nil
	default:
		return nil, fmt.Errorf("cloud.OpenBucket: invalid provider %q", u.Scheme)
	}
}
