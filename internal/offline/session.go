package offline

import (
	"strconv"

	"go.uber.org/zap"
)

// SetSessionValue stores a preference, last-write-wins.
func (l *Layer) SetSessionValue(key, value string) error {
	if l.db == nil {
		return ErrStorageUnavailable
	}
	if err := l.db.SetSessionValue(key, value); err != nil {
		l.logger.Warn("set session value failed", zap.Error(err), zap.String("key", key))
		return err
	}
	return nil
}

// SessionValue returns a stored preference and whether it was set.
func (l *Layer) SessionValue(key string) (string, bool) {
	if l.db == nil {
		return "", false
	}
	flag, err := l.db.SessionValue(key)
	if err != nil {
		l.logger.Warn("read session value failed", zap.Error(err), zap.String("key", key))
		return "", false
	}
	if flag == nil {
		return "", false
	}
	return flag.Value, true
}

// SetSessionBool stores a boolean preference as "true"/"false".
func (l *Layer) SetSessionBool(key string, value bool) error {
	return l.SetSessionValue(key, strconv.FormatBool(value))
}

// SessionBool returns a boolean preference, falling back to def when the
// key is unset or unparsable.
func (l *Layer) SessionBool(key string, def bool) bool {
	value, ok := l.SessionValue(key)
	if !ok {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}
