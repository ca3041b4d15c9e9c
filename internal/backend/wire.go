package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// object is a JSON object with case-insensitive keys. The backend is not
// consistent about casing or id field names, so every record is read
// through it and normalized here before reaching the rest of the client.
type object map[string]json.RawMessage

func (o *object) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*o = make(object, len(raw))
	for k, v := range raw {
		(*o)[strings.ToLower(k)] = v
	}
	return nil
}

func (o object) raw(keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		v, ok := o[strings.ToLower(k)]
		if ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return v, true
		}
	}
	return nil, false
}

// str returns the first key holding a string or number.
func (o object) str(keys ...string) string {
	v, ok := o.raw(keys...)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String()
	}
	return ""
}

func (o object) boolean(keys ...string) (bool, bool) {
	v, ok := o.raw(keys...)
	if !ok {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(v, &b); err != nil {
		return false, false
	}
	return b, true
}

// time accepts RFC 3339 strings and unix milliseconds (number or string).
// Unparseable values read as absent.
func (o object) time(keys ...string) time.Time {
	v, ok := o.raw(keys...)
	if !ok {
		return time.Time{}
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return parseTime(s)
	}
	var ms int64
	if err := json.Unmarshal(v, &ms); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return time.UnixMilli(int64(f)).UTC()
	}
	return time.Time{}
}

func (o object) objects(keys ...string) []object {
	v, ok := o.raw(keys...)
	if !ok {
		return nil
	}
	var list []object
	if err := json.Unmarshal(v, &list); err != nil {
		return nil
	}
	return list
}

func (o object) object(keys ...string) object {
	v, ok := o.raw(keys...)
	if !ok {
		return nil
	}
	var obj object
	if err := json.Unmarshal(v, &obj); err != nil {
		return nil
	}
	return obj
}

func (o object) has(key string) bool {
	_, ok := o.raw(key)
	return ok
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// listOf decodes either a bare array or an object wrapping one under any of
// keys.
func listOf(data json.RawMessage, keys ...string) []object {
	var list []object
	if err := json.Unmarshal(data, &list); err == nil {
		return list
	}
	var obj object
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil
	}
	return obj.objects(keys...)
}
