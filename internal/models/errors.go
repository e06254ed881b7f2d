package models

import "errors"

var ErrAuditImmutable = errors.New("audit log entries are append-only")
