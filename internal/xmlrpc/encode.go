package xmlrpc

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// iso8601 is the timestamp layout used on the wire. XML-RPC predates
// RFC 3339 and omits the separators.
const iso8601 = "20060102T15:04:05"

// marshalCall renders one <methodCall> document with positional params.
func marshalCall(method string, args []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString("<methodCall><methodName>")
	if err := xml.EscapeText(&buf, []byte(method)); err != nil {
		return nil, fmt.Errorf("failed to encode method name: %w", err)
	}
	buf.WriteString("</methodName><params>")
	for _, arg := range args {
		buf.WriteString("<param>")
		if err := writeValue(&buf, arg); err != nil {
			return nil, err
		}
		buf.WriteString("</param>")
	}
	buf.WriteString("</params></methodCall>")
	return buf.Bytes(), nil
}

// writeValue encodes a single <value>. Integers always go out as <i8>;
// the daemon's counters routinely exceed 32 bits.
func writeValue(buf *bytes.Buffer, v any) error {
	buf.WriteString("<value>")
	switch t := v.(type) {
	case nil:
		buf.WriteString("<string></string>")
	case string:
		buf.WriteString("<string>")
		if err := xml.EscapeText(buf, []byte(t)); err != nil {
			return fmt.Errorf("failed to encode string value: %w", err)
		}
		buf.WriteString("</string>")
	case bool:
		if t {
			buf.WriteString("<boolean>1</boolean>")
		} else {
			buf.WriteString("<boolean>0</boolean>")
		}
	case int:
		writeInt(buf, int64(t))
	case int32:
		writeInt(buf, int64(t))
	case int64:
		writeInt(buf, t)
	case float64:
		buf.WriteString("<double>")
		buf.WriteString(strconv.FormatFloat(t, 'f', -1, 64))
		buf.WriteString("</double>")
	case []byte:
		buf.WriteString("<base64>")
		buf.WriteString(base64.StdEncoding.EncodeToString(t))
		buf.WriteString("</base64>")
	case time.Time:
		buf.WriteString("<dateTime.iso8601>")
		buf.WriteString(t.Format(iso8601))
		buf.WriteString("</dateTime.iso8601>")
	case []any:
		buf.WriteString("<array><data>")
		for _, item := range t {
			if err := writeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteString("</data></array>")
	case map[string]any:
		// Members are emitted in sorted key order so output is deterministic.
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteString("<struct>")
		for _, k := range keys {
			buf.WriteString("<member><name>")
			if err := xml.EscapeText(buf, []byte(k)); err != nil {
				return fmt.Errorf("failed to encode member name: %w", err)
			}
			buf.WriteString("</name>")
			if err := writeValue(buf, t[k]); err != nil {
				return err
			}
			buf.WriteString("</member>")
		}
		buf.WriteString("</struct>")
	default:
		return fmt.Errorf("unsupported argument type %T", v)
	}
	buf.WriteString("</value>")
	return nil
}

func writeInt(buf *bytes.Buffer, n int64) {
	buf.WriteString("<i8>")
	buf.WriteString(strconv.FormatInt(n, 10))
	buf.WriteString("</i8>")
}
