// Package policy decides what a principal may do with a file record.
// Every check is a pure function evaluated fresh on each call. Nothing in
// here caches results, ownership and blob existence can change between
// requests.
package policy

import (
	"context"

	"filedrop/transfer-api/model"
	"filedrop/transfer-api/storage"
)

// CanAccess reports whether a user may view a file's metadata. Only the
// owner and superusers qualify, anonymous principals never do.
func CanAccess(u *model.User, f *model.File) bool {
	if u == nil || f == nil {
		return false
	}

	return u.ID == f.UserID || u.IsSuperuser
}

// CanDownload reports whether a user may read the file's blob. Requires
// access plus a blob actually present in the store. A failed existence
// lookup counts as missing.
func CanDownload(ctx context.Context, u *model.User, f *model.File, blobs storage.Store) bool {
	if !CanAccess(u, f) {
		return false
	}

	exists, err := blobs.Exists(ctx, f.StoredPath)
	if err != nil {
		return false
	}

	return exists
}

// CanDelete reports whether a user may remove the file's blob and record.
// Deliberately the same predicate as CanAccess, there is no finer-grained
// sharing model.
func CanDelete(u *model.User, f *model.File) bool {
	return CanAccess(u, f)
}

// CanModify reports whether a user may edit the file's metadata or status
func CanModify(u *model.User, f *model.File) bool {
	return CanAccess(u, f)
}
