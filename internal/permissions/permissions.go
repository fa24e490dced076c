package permissions

import "errors"

// ErrPermissionDenied reports that a required OS permission is missing.
// Callers decide whether that is fatal; capture can run without the
// accessibility grant, insertion cannot.
var ErrPermissionDenied = errors.New("permission denied")
